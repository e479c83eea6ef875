// Command clipforge turns a text file and a directory of still images into a
// narrated video per language.
//
// `clipforge run` drives the whole pipeline; every intermediate artifact is
// cached under the output directory, so rerunning a batch only redoes what
// changed. The remaining commands manage provider keys, persisted settings,
// the cache, and readiness checks.
package main
