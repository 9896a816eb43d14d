// Package config loads application configuration in three layers:
// built-in defaults, an optional YAML file named by AGRIFLEET_CONFIG_FILE,
// and AGRIFLEET_* environment variables. Later layers win. The JWT
// signing secret is the only setting without a default.
package config
