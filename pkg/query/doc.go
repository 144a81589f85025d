// Package query implements the predicate compiler for catalog find
// requests.
//
// Clients filter with a flat list of KeyValueQuery clauses. Compile
// validates every clause (key shape, operator/value-type compatibility,
// tag length) and normalizes the list into a Predicate tree: clauses on
// the same key are OR-ed together, distinct keys are AND-ed. The tree is
// consumed by the store, which renders it into parameterized SQL; no raw
// client input ever reaches a query string.
//
// The package also resolves sort keys against the fixed set of sortable
// entity columns and models pagination windows. Compilation is a pure
// function: the same clause list always produces a structurally
// identical tree.
package query
