// Package config loads, normalizes, and validates audiocloud configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours environment fallbacks such as AUDIOCLOUD_CATALOG and
// AUDIOCLOUD_LOG_LEVEL. The Config type carries the model catalog location,
// the engine policies applied to modification batches, and log routing.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, canonical enum values, and clear validation errors.
package config
