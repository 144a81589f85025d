// Package authz resolves the authorization scope for catalog requests.
//
// A Scope is the immutable result of one resolution: either unrestricted
// (admin listing) or restricted to an explicit id set. Scopes are tagged
// with the action they were computed for, are never persisted, and are
// recomputed on every request so they always reflect the authorization
// state at call time.
//
// Resolution merges three sources:
//
//   - owned resources (owners always retain access, grant or not)
//   - resources shared with the caller, fetched from the external
//     authorization collaborator
//   - publicly visible resources, when the requested visibility
//     includes PUBLIC
//
// The collaborator call is the only cross-process blocking point on the
// read path. It carries a timeout and propagates cancellation; if it
// fails or times out the resolver fails closed with an unavailable
// error, never by silently narrowing or widening the scope.
package authz
