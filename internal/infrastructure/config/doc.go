// Package config loads and validates Farsign Core configuration.
//
// Configuration comes from a YAML file with hardcoded defaults and
// FARSIGN_* environment variable overrides applied on top. All sections
// are validated once at startup; a bad configuration is a fatal error
// before any component starts.
package config
