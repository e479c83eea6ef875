// Package store persists clipforge state in SQLite.
//
// Three tables live in one database under the state directory: credentials
// (API keys with their provider-reported quota snapshot), settings (the
// persisted pipeline parameters), and runs (one row per language processed by
// a pipeline run). The schema is embedded and versioned; a database written by
// a different schema version is refused rather than migrated.
//
// The package owns no policy. Credential selection lives in keypool and
// pipeline parameters are interpreted by config.
package store
