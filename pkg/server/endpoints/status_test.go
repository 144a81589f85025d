package endpoints

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusEndpoint(t *testing.T) {
	s := newTestServer(new(MockProjects), new(MockDatasets))

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()

	s.Router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "modeldb", got["service"])
	assert.NotEmpty(t, got["version"])
}

func TestHealthWithoutDatabase(t *testing.T) {
	s := newTestServer(new(MockProjects), new(MockDatasets))

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	s.Router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "degraded")
}
