// Package identity provides caller identity management for catalog requests.
//
// An Identity combines authentication claims (user id, username) with
// request-specific context (selected workspace, admin flag, remote IP).
// The transport middleware builds the Identity and stores it on the
// request context; the core reads it back with Get.
//
// # Basic Usage
//
//	id := &identity.Identity{UserID: "u1", Username: "alice"}
//	id.WithRemoteIP(clientIP)
//
//	ctx = identity.Set(ctx, id)
//	id, ok := identity.Get(ctx)
//
// A request with no identity is anonymous: it may list publicly visible
// resources but nothing else. The authorization scope resolver treats a
// nil Identity accordingly; no package below the transport ever trusts
// raw token material.
package identity
