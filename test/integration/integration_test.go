package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zulily/modeldb/pkg/identity"
)

func TestCatalogEndToEnd(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") == "" {
		t.Skip("Skipping integration tests. Set INTEGRATION_TEST=1 to run.")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tc, err := NewTestContext(ctx)
	require.NoError(t, err)
	defer tc.Close(ctx)

	alice := tc.token(t, &identity.Identity{UserID: "u-alice", Username: "alice"})
	bob := tc.token(t, &identity.Identity{UserID: "u-bob", Username: "bob"})

	var projectID string

	t.Run("create project", func(t *testing.T) {
		status, body := tc.do(t, "POST", "/v1/projects", alice, map[string]interface{}{
			"name":       "fraud-detection",
			"visibility": "PRIVATE",
			"tags":       []string{"nlp"},
			"attributes": []map[string]interface{}{
				{"key": "accuracy", "value": 0.91, "value_type": "NUMBER"},
			},
		})
		require.Equal(t, http.StatusCreated, status, string(body))

		var got struct {
			ID        string `json:"id"`
			Owner     string `json:"owner"`
			Workspace string `json:"workspace"`
			ShortName string `json:"short_name"`
		}
		require.NoError(t, json.Unmarshal(body, &got))
		require.NotEmpty(t, got.ID)
		assert.Equal(t, "u-alice", got.Owner)
		assert.Equal(t, "alice", got.Workspace)
		assert.Equal(t, "fraud-detection", got.ShortName)
		projectID = got.ID
	})

	t.Run("owner reads private project", func(t *testing.T) {
		status, _ := tc.do(t, "GET", "/v1/projects/"+projectID, alice, nil)
		assert.Equal(t, http.StatusOK, status)
	})

	t.Run("stranger cannot read private project", func(t *testing.T) {
		status, _ := tc.do(t, "GET", "/v1/projects/"+projectID, bob, nil)
		assert.Equal(t, http.StatusForbidden, status)
	})

	t.Run("anonymous cannot read private project", func(t *testing.T) {
		status, _ := tc.do(t, "GET", "/v1/projects/"+projectID, "", nil)
		assert.Equal(t, http.StatusForbidden, status)
	})

	t.Run("tags are idempotent", func(t *testing.T) {
		status, _ := tc.do(t, "POST", "/v1/projects/"+projectID+"/tags", alice, map[string]interface{}{
			"tags": []string{"nlp", "prod"},
		})
		require.Equal(t, http.StatusOK, status)

		status, body := tc.do(t, "GET", "/v1/projects/"+projectID+"/tags", alice, nil)
		require.Equal(t, http.StatusOK, status)

		var got struct {
			Tags []string `json:"tags"`
		}
		require.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, []string{"nlp", "prod"}, got.Tags)
	})

	t.Run("find scopes to owned projects", func(t *testing.T) {
		find := map[string]interface{}{
			"filters": []map[string]interface{}{
				{"key": "attributes.accuracy", "operator": "GTE", "value": 0.9, "value_type": "NUMBER"},
			},
			"page_number": 1,
			"page_limit":  10,
		}

		status, body := tc.do(t, "POST", "/v1/projects/find", alice, find)
		require.Equal(t, http.StatusOK, status, string(body))
		var aliceResult struct {
			TotalRecords int64 `json:"total_records"`
		}
		require.NoError(t, json.Unmarshal(body, &aliceResult))
		assert.Equal(t, int64(1), aliceResult.TotalRecords)

		status, body = tc.do(t, "POST", "/v1/projects/find", bob, find)
		require.Equal(t, http.StatusOK, status, string(body))
		var bobResult struct {
			TotalRecords int64 `json:"total_records"`
		}
		require.NoError(t, json.Unmarshal(body, &bobResult))
		assert.Equal(t, int64(0), bobResult.TotalRecords)
	})

	t.Run("deep copy clones the project", func(t *testing.T) {
		status, body := tc.do(t, "POST", "/v1/projects/"+projectID+"/copy", alice, map[string]interface{}{})
		require.Equal(t, http.StatusCreated, status, string(body))

		var clone struct {
			ID         string   `json:"id"`
			Name       string   `json:"name"`
			Visibility string   `json:"visibility"`
			Tags       []string `json:"tags"`
		}
		require.NoError(t, json.Unmarshal(body, &clone))
		assert.NotEqual(t, projectID, clone.ID)
		assert.Equal(t, "PRIVATE", clone.Visibility)
		assert.Equal(t, []string{"nlp", "prod"}, clone.Tags)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		status, body := tc.do(t, "DELETE", "/v1/projects", alice, map[string]interface{}{
			"ids": []string{projectID},
		})
		require.Equal(t, http.StatusOK, status)
		assert.Contains(t, string(body), projectID)

		status, body = tc.do(t, "DELETE", "/v1/projects", alice, map[string]interface{}{
			"ids": []string{projectID},
		})
		require.Equal(t, http.StatusOK, status)
		assert.NotContains(t, string(body), projectID)
	})

	t.Run("public dataset readable anonymously", func(t *testing.T) {
		status, body := tc.do(t, "POST", "/v1/datasets", alice, map[string]interface{}{
			"name":       "clickstream",
			"visibility": "PUBLIC",
		})
		require.Equal(t, http.StatusCreated, status, string(body))

		var dataset struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(body, &dataset))

		status, _ = tc.do(t, "GET", "/v1/datasets/"+dataset.ID, "", nil)
		assert.Equal(t, http.StatusOK, status)
	})

	t.Run("health endpoint", func(t *testing.T) {
		status, body := tc.do(t, "GET", "/health", "", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, string(body), "ok")
	})
}

func (tc *TestContext) token(t *testing.T, caller *identity.Identity) string {
	t.Helper()
	token, err := tc.Auth.IssueToken(caller, time.Hour)
	require.NoError(t, err)
	return token
}

// do performs an authenticated JSON request and returns status and body.
func (tc *TestContext) do(t *testing.T, method, path, token string, payload interface{}) (int, []byte) {
	t.Helper()

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, tc.ServerURL+path, reqBody)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := tc.HTTPClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}
