// Package catalog is the service layer of the metadata catalog. It ties
// the authorization resolver, the query compiler and the stores together:
// every read resolves the caller's scope before touching storage, and
// every mutation passes a single-entity permission check first. Audit
// events are emitted for all operations.
package catalog
