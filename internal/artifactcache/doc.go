// Package artifactcache stores pipeline artifacts under content-derived names.
//
// Each stage kind (audio, videos, clips, done) gets its own directory holding
// files named <fingerprint><ext>. LookupOrCreate returns an existing entry or
// runs the producer exactly once: callers in one process are collapsed with
// singleflight and callers in different processes serialize on a per-entry
// flock. Producers write to a hidden temp file in the same directory, which is
// fsynced and renamed into place, so an interrupted producer never leaves a
// file that looks like a hit.
//
// The cache never deletes or replaces canonical entries. Sweep only removes
// temp and lock files abandoned by crashed producers.
package artifactcache
