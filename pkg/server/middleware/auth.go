package middleware

import (
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/zulily/modeldb/pkg/config"
	"github.com/zulily/modeldb/pkg/identity"
)

// SigningKeyEnv names the environment variable holding the HMAC token
// signing key.
const SigningKeyEnv = "MODELDB_TOKEN_SIGNING_KEY"

// Claims are the token claims the catalog issues and accepts.
type Claims struct {
	Username  string `json:"username,omitempty"`
	Workspace string `json:"workspace,omitempty"`
	Admin     bool   `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

// TokenAuthenticator is middleware that validates bearer tokens and
// places the caller identity on the request context.
type TokenAuthenticator struct {
	signingKey []byte
	cfg        *config.CatalogConfig
}

// NewTokenAuthenticator creates a new token authenticator middleware.
func NewTokenAuthenticator(signingKey []byte, cfg *config.CatalogConfig) *TokenAuthenticator {
	return &TokenAuthenticator{signingKey: signingKey, cfg: cfg}
}

// SigningKeyFromEnv reads the signing key from the environment.
func SigningKeyFromEnv() []byte {
	return []byte(os.Getenv(SigningKeyEnv))
}

// Middleware returns an HTTP middleware that requires a valid bearer
// token.
func (t *TokenAuthenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")

		if len(authHeader) == 0 {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Authorization missing"))
			return
		}

		t.authenticate(w, r, next, authHeader)
	})
}

// Optional returns an HTTP middleware that admits anonymous requests.
// A present but invalid token is still rejected; the catalog services
// decide what an anonymous caller may see.
func (t *TokenAuthenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")

		if len(authHeader) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		t.authenticate(w, r, next, authHeader)
	})
}

func (t *TokenAuthenticator) authenticate(w http.ResponseWriter, r *http.Request, next http.Handler, authHeader string) {
	tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("Malformed authorization header"))
		return
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return t.signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}))

	if err != nil || !token.Valid {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("Invalid authorization token"))
		return
	}

	caller := &identity.Identity{
		UserID:    claims.Subject,
		Username:  claims.Username,
		Workspace: claims.Workspace,
		Admin:     claims.Admin,
	}
	caller.WithRemoteIP(t.RemoteIP(r))

	next.ServeHTTP(w, r.WithContext(identity.Set(r.Context(), caller)))
}

// IssueToken signs a bearer token for the given identity.
func (t *TokenAuthenticator) IssueToken(caller *identity.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Username:  caller.Username,
		Workspace: caller.Workspace,
		Admin:     caller.Admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.signingKey)
}

// RemoteIP resolves the client address. X-Forwarded-For is honored only
// when the direct peer is a trusted proxy.
func (t *TokenAuthenticator) RemoteIP(r *http.Request) net.IP {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" && t.cfg != nil && t.cfg.IsTrustedProxy(host) {
		// Leftmost address is the originating client.
		parts := strings.Split(forwarded, ",")
		if ip := net.ParseIP(strings.TrimSpace(parts[0])); ip != nil {
			return ip
		}
	}

	return net.ParseIP(host)
}
