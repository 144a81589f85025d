package gorm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"
)

const maxAttempts = 3

// retryable Postgres condition codes: serialization failure, deadlock
// detected, connection failures.
var retryableCodes = map[string]bool{
	"40001": true,
	"40P01": true,
	"08000": true,
	"08003": true,
	"08006": true,
	"57P03": true,
}

// transient reports whether an error is a retryable infrastructure
// failure. Logical failures (not found, conflicts) are never transient.
func transient(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return retryableCodes[string(pqErr.Code)]
	}
	msg := err.Error()
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "deadlock detected")
}

// withRetry runs fn, retrying transient failures with a short backoff.
// Only idempotent operations may pass through here.
func withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if err == nil || !transient(err) || attempt == maxAttempts {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
		}
	}
	return err
}
