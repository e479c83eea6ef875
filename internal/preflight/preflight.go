package preflight

import (
	"clipforge/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the local checks a run depends on: artifact root access and
// the free-space floor.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir)}
	if minBytes := cfg.MinFreeSpaceBytes(); minBytes > 0 {
		results = append(results, CheckFreeSpace("Free space", cfg.Paths.OutputDir, minBytes))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
