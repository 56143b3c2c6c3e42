// Package config loads, normalizes, and validates scribe configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// SCRIBE_API_TOKEN and SCRIBE_DEVICE. The Config type centralizes every knob
// the server and CLI need: model names and cache paths, idle eviction timing,
// upload handling, and the API bind address.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
