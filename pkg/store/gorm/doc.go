// Package gorm implements the catalog store interfaces on PostgreSQL
// using GORM.
//
// SQL is hand-written and parameterized; the predicate compiler's tree
// is rendered into WHERE fragments whose column names come exclusively
// from the compiler's whitelist, so no client input ever reaches a
// query string. Mutations run inside a transaction that locks the
// entity row, applies the change, bumps date_updated and reads the
// snapshot back before commit. Transient infrastructure failures
// (deadlock, serialization, lost connection) are retried a bounded
// number of times; logical failures never are.
package gorm
