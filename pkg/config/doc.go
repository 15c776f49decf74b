// Package config defines the configuration model for secretd and loads it
// from YAML files with environment variable overrides.
//
// Configuration is resolved in three layers, later layers winning:
//
//  1. Built-in defaults (ApplyDefaults)
//  2. YAML configuration file
//  3. SECRETD_* environment variables
//
// The final configuration is validated before use.
package config
