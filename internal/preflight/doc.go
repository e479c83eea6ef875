// Package preflight provides readiness checks for the filesystem, credentials,
// and external providers clipforge depends on.
//
// These checks run in two contexts:
//   - `clipforge run` calls RunAll before starting a batch. If any check fails,
//     the run is refused before a single provider call spends quota.
//   - `clipforge doctor` runs every check, including the remote provider
//     probes, and renders them as a table.
package preflight
