// Package config loads the runway configuration from defaults, an
// optional YAML file, and environment-variable overrides, in that order
// of precedence.
//
// Usage:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("runway.yaml").
//	    WithEnvPrefix("RUNWAY").
//	    Load()
//
// Environment keys are derived from the struct `env` tags, joined with
// underscores under the prefix, e.g. RUNWAY_ENGINE_MAX_PARALLEL_TASKS.
package config
