// Package config loads, normalizes, and validates clipforge configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks for provider
// keys. PipelineConfig is the explicit parameter set handed to every stage; it
// is assembled from config defaults, persisted settings, and CLI flags, in that
// order.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical language tags, and clear validation errors.
package config
