// Package config provides configuration management for relief.
//
// Configuration is read from YAML with environment variable overrides.
// Every field has a default, so an empty file (or no file at all) yields a
// working configuration that reads policies from ./policies and records
// evidence to data/evidence.db.
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfig("relief.yaml")
//	cfg, err := config.LoadConfigWithEnvOverrides("relief.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention RELIEF_SECTION_FIELD:
//
//   - RELIEF_POLICY_PATH overrides policy.path
//   - RELIEF_EVIDENCE_SQLITE_PATH overrides evidence.sqlite.path
//   - RELIEF_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//   - RELIEF_SECRETS_DIR overrides secrets.dir
//
// Git credentials may reference secrets instead of holding them:
//
//	policy:
//	  git:
//	    auth:
//	      type: "token"
//	      token: "${secret:git-token}"
//
// The reference is resolved from RELIEF_SECRET_GIT_TOKEN or, failing that,
// from the file git-token in secrets.dir.
//
// # Configuration Precedence
//
// Values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from the YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Validation
//
// Struct tags are checked with go-playground/validator and reported with
// their YAML paths. Cross-field rules (git mode needs a repository, the
// prune schedule must parse as cron) are checked by hand:
//
//	configuration validation failed with 2 errors:
//	  - engine.workers: must be at least 1
//	  - policy.git.repository: repository is required when mode is "git"
//
// # Example Configuration
//
//	engine:
//	  workers: 8
//	  fairness_baseline: 2
//
//	policy:
//	  mode: "file"
//	  path: "./policies"
//	  watch: true
//
//	evidence:
//	  backend: "sqlite"
//	  sqlite:
//	    path: "data/evidence.db"
//	  retention:
//	    days: 180
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
package config
