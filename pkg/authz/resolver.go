package authz

import (
	"context"
	"time"

	"github.com/zulily/modeldb/pkg/errs"
	"github.com/zulily/modeldb/pkg/identity"
)

// VisibilityLister lists resource ids from the catalog store for the
// ownership and public-visibility legs of a scope merge.
type VisibilityLister interface {
	// OwnedIDs returns live resource ids owned by the given user in the
	// workspace (all workspaces when workspace is empty).
	OwnedIDs(ctx context.Context, resourceType ResourceType, ownerID, workspace string) ([]string, error)

	// PublicIDs returns live publicly visible resource ids in the
	// workspace (all workspaces when workspace is empty).
	PublicIDs(ctx context.Context, resourceType ResourceType, workspace string) ([]string, error)
}

// Resolver computes authorization scopes. It performs no caching: every
// call reflects the authorization state at call time.
type Resolver struct {
	access     AccessClient
	visibility VisibilityLister
	timeout    time.Duration
	publicRead bool
}

// NewResolver creates a Resolver. The timeout bounds the authorization
// collaborator call per resolution.
func NewResolver(access AccessClient, visibility VisibilityLister, timeout time.Duration) *Resolver {
	return &Resolver{access: access, visibility: visibility, timeout: timeout, publicRead: true}
}

// WithPublicRead toggles the public-visibility legs of resolution.
// Disabled, anonymous callers resolve to nothing and public ids are not
// merged into authenticated scopes.
func (r *Resolver) WithPublicRead(enabled bool) *Resolver {
	r.publicRead = enabled
	return r
}

// PublicReadAllowed reports whether public entities are readable
// without an explicit grant.
func (r *Resolver) PublicReadAllowed() bool {
	return r.publicRead
}

// Request carries the inputs of one scope resolution.
type Request struct {
	Caller       *identity.Identity
	Action       Action
	ResourceType ResourceType
	Workspace    string
	// Visibility is the requested listing visibility; PUBLIC merges the
	// publicly visible ids into the scope.
	Visibility string
	// Hint narrows the scope by set intersection, avoiding a second
	// unrestricted collaborator query for "resources named X" lookups.
	Hint []string
}

// Resolve produces the scope of resource ids the caller may act on.
// Collaborator failures surface as unavailable errors; the resolver
// never falls back to owned-only or unrestricted access.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Scope, error) {
	if req.Caller.Anonymous() {
		return r.resolveAnonymous(ctx, req)
	}

	if req.Caller.Admin {
		scope := Unrestricted(req.Action)
		if len(req.Hint) > 0 {
			scope = scope.Intersect(req.Hint)
		}
		return scope, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	shared, err := r.access.AccessibleIDs(ctx, req.Caller.UserID, req.Action, req.ResourceType)
	if err != nil {
		return Scope{}, errs.Unavailable(err, "authorization collaborator failed for %s %s", req.Action, req.ResourceType)
	}

	owned, err := r.visibility.OwnedIDs(ctx, req.ResourceType, req.Caller.UserID, req.Workspace)
	if err != nil {
		return Scope{}, errs.Internal(err, "listing owned %s ids", req.ResourceType)
	}

	merged := append(append([]string{}, owned...), shared...)

	if req.Visibility == "PUBLIC" && r.publicRead {
		public, err := r.visibility.PublicIDs(ctx, req.ResourceType, req.Workspace)
		if err != nil {
			return Scope{}, errs.Internal(err, "listing public %s ids", req.ResourceType)
		}
		merged = append(merged, public...)
	}

	scope := RestrictedTo(req.Action, merged)
	if len(req.Hint) > 0 {
		scope = scope.Intersect(req.Hint)
	}
	return scope, nil
}

// resolveAnonymous handles callers with no identity: public listing only,
// and nothing at all when public read is switched off.
func (r *Resolver) resolveAnonymous(ctx context.Context, req Request) (Scope, error) {
	if req.Action != ActionRead {
		return Scope{}, errs.PermissionDenied("anonymous callers may not %s %s resources", req.Action, req.ResourceType)
	}
	if !r.publicRead {
		return Scope{}, errs.PermissionDenied("anonymous access is disabled")
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	public, err := r.visibility.PublicIDs(ctx, req.ResourceType, req.Workspace)
	if err != nil {
		return Scope{}, errs.Internal(err, "listing public %s ids", req.ResourceType)
	}

	scope := RestrictedTo(req.Action, public)
	if len(req.Hint) > 0 {
		scope = scope.Intersect(req.Hint)
	}
	return scope, nil
}

// Check verifies a single permission for a mutation entry point. Owners
// and admins pass without a collaborator round trip.
func (r *Resolver) Check(ctx context.Context, caller *identity.Identity, action Action, resourceType ResourceType, resourceID, ownerID string) error {
	if caller.Anonymous() {
		return errs.PermissionDenied("anonymous callers may not %s %s resources", action, resourceType)
	}
	if caller.Admin || caller.UserID == ownerID {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	allowed, err := r.access.CanAccess(ctx, caller.UserID, action, resourceType, resourceID)
	if err != nil {
		return errs.Unavailable(err, "authorization collaborator failed for %s on %s", action, resourceID)
	}
	if !allowed {
		return errs.PermissionDenied("caller %s may not %s %s %s", caller.UserID, action, resourceType, resourceID)
	}
	return nil
}
