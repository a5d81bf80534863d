// Package config loads the run configuration of a
// submission from a YAML, TOML, or JSON file.
package config
