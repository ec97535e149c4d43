// Package config provides configuration management for the LUCON policy
// service.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. Every field has a default,
// so an empty file (or no file at all) is a valid configuration.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("lucon.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("lucon.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention LUCON_SECTION_FIELD.
// For example:
//
//   - LUCON_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - LUCON_POLICY_LABEL_MODE overrides policy.label_mode
//   - LUCON_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Malformed values are reported instead of being ignored.
//
// # Configuration Precedence
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Example Configuration
//
//	server:
//	  listen_address: "127.0.0.1:8181"
//
//	policy:
//	  path: "./policies"
//	  watch: true
//	  label_mode: "optional"
//	  decision_timeout: "100ms"
//
//	store:
//	  driver: "sqlite"
//	  path: "data/policies.db"
//	  max_versions: 50
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
package config
