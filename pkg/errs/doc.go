// Package errs defines the error taxonomy shared by every public entry
// point of the catalog.
//
// Errors are tagged with a stable Kind (invalid_argument, not_found,
// already_exists, permission_denied, unavailable, internal) and carry a
// human-readable message. Callers classify with KindOf or IsKind; the
// transport layer maps kinds to HTTP statuses.
package errs
