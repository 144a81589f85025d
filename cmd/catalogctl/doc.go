// Package main implements catalogctl, the command line interface to the
// ModelDB metadata catalog.
//
// ModelDB is a metadata catalog for machine learning artifacts: projects,
// datasets, experiments, and experiment runs, with tags, typed attributes,
// and artifact references.
//
// # Architecture
//
//   - pkg/server: HTTP server and routing
//   - pkg/server/endpoints: REST API endpoint handlers
//   - pkg/catalog: catalog services (authorization, auditing, rendering)
//   - pkg/store: storage contracts and the GORM/PostgreSQL implementation
//   - pkg/query: predicate compiler for find requests
//   - pkg/authz: authorization scope resolution
//   - pkg/audit: audit logging
//   - pkg/config: configuration management
//
// # Quick Start
//
//	# Run database migrations
//	catalogctl db migrate
//
//	# Issue a bearer token
//	export MODELDB_TOKEN_SIGNING_KEY=some-long-random-secret
//	catalogctl token issue --user u1 --username alice
//
//	# Start the server
//	catalogctl server
//
// # Environment Variables
//
//   - DATABASE_URL: PostgreSQL connection string
//   - MODELDB_TOKEN_SIGNING_KEY: HMAC key for bearer tokens
//   - MODELDB_LOG_LEVEL: Log level (debug, info, warn, error)
//   - MODELDB_AUDIT_ENABLED: Enable audit logging
//   - AUDIT_DATABASE_URL: Optional audit message database
//   - PORT: Server port (default: 8080)
package main
