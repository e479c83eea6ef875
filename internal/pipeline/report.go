package pipeline

import (
	"time"

	"clipforge/internal/services"
	"clipforge/internal/stage"
)

// LanguageResult is the outcome of one language. Final is the zero Artifact
// when Err is set.
type LanguageResult struct {
	Language string
	RunID    string
	Final    stage.Artifact
	Clips    []stage.Artifact
	Err      error
	Kind     services.FailureKind
	Duration time.Duration
}

// Failed reports whether the language did not produce a final video.
func (r LanguageResult) Failed() bool {
	return r.Err != nil
}

// Report summarizes a run across all languages, source first.
type Report struct {
	BatchID   string
	Source    string
	Languages []LanguageResult
	Duration  time.Duration
}

// Failed reports whether any language failed.
func (r Report) Failed() bool {
	return r.FailedCount() > 0
}

// FailedCount returns how many languages failed.
func (r Report) FailedCount() int {
	count := 0
	for _, lang := range r.Languages {
		if lang.Failed() {
			count++
		}
	}
	return count
}

// Succeeded returns how many languages produced a final video.
func (r Report) Succeeded() int {
	return len(r.Languages) - r.FailedCount()
}
