// Package services defines the error taxonomy and context helpers shared by the
// pipeline stages and their external collaborators.
//
// Key responsibilities:
//   - Sentinel markers (credential exhaustion, synthesis and encode failures,
//     timeouts, cache write failures) plus the Wrap helper that keeps stage
//     context in the message while staying errors.Is compatible.
//   - DurationMismatchError for the merge precondition.
//   - Classify and Remedy, which turn any stage error into a failure kind and a
//     next step for the user.
//   - WithTimeout, which bounds a single external call.
//   - Context helpers that stamp run IDs, languages, stages, unit indexes, and
//     correlation identifiers for logging.
package services
