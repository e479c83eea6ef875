// Package logging assembles structured slog loggers and formatting helpers used
// across clipforge.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so stage code automatically tags log lines
// with run IDs, languages, stages, and unit indexes. Console lines carry the
// language, component, and unit as a readable prefix. A no-op logger is provided for
// tests and wiring code that cannot fail.
package logging
