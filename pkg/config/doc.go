// Package config loads application configuration from PAYSCHOOL_* environment
// variables with sensible defaults for local development.
package config
