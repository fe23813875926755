// Package config loads and validates application settings from defaults, an
// optional config.yaml and WORDMON_* environment variables.
package config
