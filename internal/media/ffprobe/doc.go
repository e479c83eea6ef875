// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe and returns the parsed streams and container format;
// InspectWith accepts a runner so callers can substitute canned output in
// tests. DurationSeconds is the helper the merge stage relies on to check clip
// timing.
package ffprobe
