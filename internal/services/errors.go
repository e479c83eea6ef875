package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCredentialExhausted = errors.New("credential quota exhausted")
	ErrNoCredentials       = errors.New("no credentials registered")
	ErrSynthesis           = errors.New("synthesis failed")
	ErrEncode              = errors.New("encode failed")
	ErrDurationMismatch    = errors.New("duration mismatch")
	ErrTimeout             = errors.New("timeout")
	ErrCacheWrite          = errors.New("cache write failed")
	ErrExternalTool        = errors.New("external tool error")
	ErrValidation          = errors.New("validation error")
	ErrConfiguration       = errors.New("configuration error")
	ErrTransient           = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// DurationMismatchError reports a merge whose video is too short to carry the
// padded narration.
type DurationMismatchError struct {
	AudioSeconds   float64
	PaddingSeconds float64
	VideoSeconds   float64
}

// Deficit returns how many seconds of video are missing.
func (e *DurationMismatchError) Deficit() float64 {
	return e.AudioSeconds + e.PaddingSeconds - e.VideoSeconds
}

func (e *DurationMismatchError) Error() string {
	return fmt.Sprintf("video is shorter than audio by %.3fs (audio %.3fs + padding %.3fs > video %.3fs)",
		e.Deficit(), e.AudioSeconds, e.PaddingSeconds, e.VideoSeconds)
}

func (e *DurationMismatchError) Unwrap() error { return ErrDurationMismatch }

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
