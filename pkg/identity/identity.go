package identity

import (
	"context"
	"net"
	"strings"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// Key is the context key for Identity.
	Key ContextKey = "identity"
)

// Identity represents the caller of a catalog request. A nil Identity
// means the request is anonymous and may only see public resources.
type Identity struct {
	// UserID is the stable opaque identifier used for ownership checks.
	UserID string
	// Username is the login name, used to derive the personal workspace.
	Username string
	// Workspace is the caller's default workspace (personal namespace
	// unless an organizational one was selected at login).
	Workspace string
	// Admin marks a service administrator; admin reads are unrestricted.
	Admin bool

	// RemoteIP is the client address, carried for audit records.
	RemoteIP net.IP
}

// Anonymous reports whether the identity is absent.
func (i *Identity) Anonymous() bool {
	return i == nil || i.UserID == ""
}

// DefaultWorkspace returns the workspace listing applies to when the
// request names none: the explicit workspace if set, else the personal
// namespace derived from the username.
func (i *Identity) DefaultWorkspace() string {
	if i == nil {
		return ""
	}
	if i.Workspace != "" {
		return i.Workspace
	}
	return PersonalWorkspace(i.Username)
}

// WithRemoteIP sets the remote IP address.
func (i *Identity) WithRemoteIP(ip net.IP) *Identity {
	i.RemoteIP = ip
	return i
}

// PersonalWorkspace derives the personal workspace name from a login.
// Logins of the form "org/name" belong to the organizational workspace.
func PersonalWorkspace(username string) string {
	tokens := strings.Split(username, "/")
	if len(tokens) > 1 {
		return tokens[0]
	}
	return username
}

// Get retrieves Identity from context.
func Get(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(Key).(*Identity)
	return id, ok && id != nil
}

// Set stores Identity in context.
func Set(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, Key, id)
}
