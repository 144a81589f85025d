package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zulily/modeldb/pkg/config"
	"github.com/zulily/modeldb/pkg/identity"
)

var testKey = []byte("test-signing-key")

func authenticator(t *testing.T) *TokenAuthenticator {
	t.Helper()
	return NewTokenAuthenticator(testKey, nil)
}

func captureIdentity(captured **identity.Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, _ := identity.Get(r.Context())
		*captured = caller
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddlewareAcceptsValidToken(t *testing.T) {
	auth := authenticator(t)
	token, err := auth.IssueToken(&identity.Identity{
		UserID:    "u1",
		Username:  "alice",
		Workspace: "team-ml",
		Admin:     true,
	}, time.Minute)
	require.NoError(t, err)

	var caller *identity.Identity
	req := httptest.NewRequest("GET", "/v1/projects/p1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	auth.Middleware(captureIdentity(&caller)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, caller)
	assert.Equal(t, "u1", caller.UserID)
	assert.Equal(t, "alice", caller.Username)
	assert.Equal(t, "team-ml", caller.Workspace)
	assert.True(t, caller.Admin)
	assert.NotNil(t, caller.RemoteIP)
}

func TestMiddlewareRejectsMissingHeader(t *testing.T) {
	auth := authenticator(t)

	req := httptest.NewRequest("GET", "/v1/projects/p1", nil)
	w := httptest.NewRecorder()

	auth.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not run")
	})).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddlewareRejectsExpiredToken(t *testing.T) {
	auth := authenticator(t)
	token, err := auth.IssueToken(&identity.Identity{UserID: "u1"}, -time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/v1/projects/p1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	auth.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not run")
	})).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddlewareRejectsWrongKey(t *testing.T) {
	other := NewTokenAuthenticator([]byte("some-other-key"), nil)
	token, err := other.IssueToken(&identity.Identity{UserID: "u1"}, time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/v1/projects/p1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	authenticator(t).Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not run")
	})).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddlewareRejectsUnsignedToken(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/v1/projects/p1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	authenticator(t).Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not run")
	})).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOptionalAdmitsAnonymous(t *testing.T) {
	auth := authenticator(t)

	var caller *identity.Identity
	req := httptest.NewRequest("GET", "/v1/projects/p1", nil)
	w := httptest.NewRecorder()

	auth.Optional(captureIdentity(&caller)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, caller)
}

func TestOptionalStillRejectsBadToken(t *testing.T) {
	req := httptest.NewRequest("GET", "/v1/projects/p1", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()

	authenticator(t).Optional(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not run")
	})).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRemoteIPHonorsTrustedProxyOnly(t *testing.T) {
	cfg := &config.CatalogConfig{TrustedProxies: []string{"10.0.0.0/8"}}
	auth := NewTokenAuthenticator(testKey, cfg)

	trusted := httptest.NewRequest("GET", "/", nil)
	trusted.RemoteAddr = "10.1.2.3:4567"
	trusted.Header.Set("X-Forwarded-For", "203.0.113.9, 10.1.2.3")
	assert.Equal(t, "203.0.113.9", auth.RemoteIP(trusted).String())

	untrusted := httptest.NewRequest("GET", "/", nil)
	untrusted.RemoteAddr = "172.16.0.9:4567"
	untrusted.Header.Set("X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, "172.16.0.9", auth.RemoteIP(untrusted).String())
}
