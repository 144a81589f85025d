package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindInvalidArgument, KindOf(InvalidArgument("empty key")))
	assert.Equal(t, KindNotFound, KindOf(NotFound("project %s", "p1")))
	assert.Equal(t, KindAlreadyExists, KindOf(AlreadyExists("attribute %q", "k")))
	assert.Equal(t, KindPermissionDenied, KindOf(PermissionDenied("nope")))
	assert.Equal(t, KindUnavailable, KindOf(Unavailable(errors.New("timeout"), "authz")))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("find projects: %w", NotFound("project p1"))
	assert.True(t, IsKind(err, KindNotFound))
	assert.False(t, IsKind(err, KindUnavailable))
}

func TestUnwrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Unavailable(cause, "authorization collaborator")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "unavailable")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestIsKindNil(t *testing.T) {
	assert.False(t, IsKind(nil, KindInternal))
}
