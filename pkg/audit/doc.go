// Package audit provides audit logging for catalog operations.
//
// This package implements structured audit logging for data-access and
// authorization-relevant operations such as entity creation, mutation,
// deletion, scoped finds and permission checks.
//
// # Event Types
//
// The package defines event types for various operations:
//
//   - Create events (projects, datasets)
//   - Update events (tags, attributes, descriptions, artifacts)
//   - Delete events
//   - Find events (scoped listing)
//   - Copy events (deep project copies)
//   - Check events (authorization decisions)
//
// # Usage
//
//	audit.Log(audit.CreateEvent{UserID: user, EntityType: "project", ...})
//
// Audit events are logged in RFC5424 syslog format suitable for security
// monitoring and compliance requirements, and optionally persisted to a
// dedicated audit database.
package audit
