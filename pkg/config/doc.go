// Package config provides configuration management for the catalog.
//
// This package handles loading and validating server configuration
// from environment variables and configuration files.
//
// # Configuration Sources
//
// Configuration is loaded from, in order of increasing precedence:
//
//   - Built-in defaults
//   - modeldb.yml under MODELDB_CONFIG_PATH (default /etc/modeldb/config)
//   - MODELDB_* environment variables
//
// Each attribute remembers which source supplied its value so that
// `catalogctl configuration show` can report it.
//
// # Key Configuration Options
//
//   - MODELDB_TRUSTED_PROXIES: CIDR ranges allowed to set X-Forwarded-For
//   - MODELDB_PAGE_LIMIT_MAX: Maximum page size for listing requests
//   - MODELDB_AUTHZ_URL: Authorization collaborator base URL
//   - DATABASE_URL: Database connection
//   - PORT: Server listen port
package config
