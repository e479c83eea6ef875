// Package fingerprint derives content-addressed artifact names.
//
// Every stage hashes the inputs that affect its output: narration text and
// voice, image bytes and zoom parameters, or the names of upstream artifacts.
// Changing any tracked input yields a new name, so cached files are never
// invalidated in place.
package fingerprint
