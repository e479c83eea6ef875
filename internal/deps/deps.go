package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external binary clipforge relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status is a Requirement after lookup. Command holds the resolved path when
// the binary was found on PATH.
type Status struct {
	Requirement
	Available bool
	Detail    string
}

// MediaRequirements lists the encoder binaries every run needs.
func MediaRequirements(ffmpeg, ffprobe string) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     ffmpeg,
			Description: "Required for zoom-pan, merge, and concat encodes",
		},
		{
			Name:        "FFprobe",
			Command:     ffprobe,
			Description: "Required for duration probing",
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, len(requirements))
	for i, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		req.Description = strings.TrimSpace(req.Description)
		results[i] = lookup(req)
	}
	return results
}

func lookup(req Requirement) Status {
	if req.Command == "" {
		return Status{Requirement: req, Detail: "command not configured"}
	}
	path, err := exec.LookPath(req.Command)
	if err != nil {
		return Status{Requirement: req, Detail: fmt.Sprintf("binary %q not found", req.Command)}
	}
	req.Command = path
	return Status{Requirement: req, Available: true}
}

// Missing returns the required statuses that are unavailable.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			out = append(out, status)
		}
	}
	return out
}
