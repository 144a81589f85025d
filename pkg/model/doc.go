// Package model defines the database models for the catalog.
//
// This package contains GORM models that map to the catalog's PostgreSQL
// schema. Entities are soft-deleted: a deleted row stays in place with
// deleted=true and is excluded from every read and mutation path.
//
// # Core Models
//
//   - Project: top-level container for experiments and runs
//   - Dataset: versioned data artifact metadata
//   - Experiment: grouping of runs under a project
//   - ExperimentRun: a single tracked execution
//   - TagMapping: ordered unique tags attached to an entity
//   - Attribute: typed key/value metadata attached to an entity
//   - Artifact: named artifact references attached to an entity
//
// # Database Schema
//
// Tags, attributes and artifacts are shared tables keyed by
// (entity_id, entity_type), so every resource kind reuses the same
// mutation accessors. Timestamps are unix milliseconds; date_updated is
// bumped on every mutation and doubles as the optimistic-concurrency
// check for conditional updates.
package model
