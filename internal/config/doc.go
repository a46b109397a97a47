// Package config loads, normalizes, and validates rollsink configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob
// the CLI needs: sink target and rotation settings, retention policy,
// diagnostic log format, and the lifecycle journal location.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
