package authz

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// AccessClient is the external authorization collaborator contract. It
// may be slow or unavailable; callers must treat every error as a
// fail-closed condition.
type AccessClient interface {
	// AccessibleIDs returns the resource ids the caller holds the
	// action permission on, ownership grants excluded.
	AccessibleIDs(ctx context.Context, callerID string, action Action, resourceType ResourceType) ([]string, error)

	// CanAccess checks a single permission.
	CanAccess(ctx context.Context, callerID string, action Action, resourceType ResourceType, resourceID string) (bool, error)
}

// HTTPAccessClient talks to the authorization service over HTTP.
type HTTPAccessClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPAccessClient creates a client for the authorization service.
// The timeout caps each call independently of the request context.
func NewHTTPAccessClient(baseURL string, timeout time.Duration) *HTTPAccessClient {
	return &HTTPAccessClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// AccessibleIDs implements AccessClient.
func (c *HTTPAccessClient) AccessibleIDs(ctx context.Context, callerID string, action Action, resourceType ResourceType) ([]string, error) {
	q := url.Values{}
	q.Set("caller", callerID)
	q.Set("action", string(action))
	q.Set("resource_type", string(resourceType))

	var body struct {
		IDs []string `json:"ids"`
	}
	if err := c.get(ctx, "/v1/accessible-ids", q, &body); err != nil {
		return nil, err
	}
	return body.IDs, nil
}

// CanAccess implements AccessClient.
func (c *HTTPAccessClient) CanAccess(ctx context.Context, callerID string, action Action, resourceType ResourceType, resourceID string) (bool, error) {
	q := url.Values{}
	q.Set("caller", callerID)
	q.Set("action", string(action))
	q.Set("resource_type", string(resourceType))
	q.Set("resource_id", resourceID)

	var body struct {
		Allowed bool `json:"allowed"`
	}
	if err := c.get(ctx, "/v1/check-permission", q, &body); err != nil {
		return false, err
	}
	return body.Allowed, nil
}

func (c *HTTPAccessClient) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("authorization service returned %d for %s", resp.StatusCode, path)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
