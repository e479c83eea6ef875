// Package notifications delivers pipeline events via ntfy.
//
// NewService publishes to the topic configured in config.toml and returns
// Disabled when no topic is set. Events cover per-language completion and
// failure plus a run summary.
package notifications
