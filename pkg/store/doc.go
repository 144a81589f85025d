// Package store provides storage abstractions for the catalog.
//
// This package defines interfaces for the data-access layer, decoupling
// the service layer from the database implementation and enabling tests
// with mocks. The gorm subpackage is the PostgreSQL implementation.
//
// # Available Stores
//
//   - ProjectsStore: project accessors (find, tags, attributes,
//     artifacts, deep copy, soft delete)
//   - DatasetsStore: dataset accessors
//
// Every find operation takes a compiled predicate tree plus an
// authorization scope and returns a page together with the total record
// count computed under the same constraints. An empty restricted scope
// short-circuits to an empty page before touching the database.
package store
