// Package stage holds the four pipeline stage executors.
//
// Audio, Video, Merge and Concat each derive a fingerprint from their inputs,
// consult their artifact cache, and only on a miss call out to the provider or
// the encoder. Artifacts carry the fingerprint name that downstream stages
// build their own fingerprints from.
package stage
