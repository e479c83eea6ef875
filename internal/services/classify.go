package services

import (
	"context"
	"errors"
)

// FailureKind groups errors by the action a user takes to recover.
type FailureKind string

const (
	FailureNone        FailureKind = ""
	FailureCredentials FailureKind = "credentials"
	FailureQuota       FailureKind = "quota"
	FailureEncode      FailureKind = "encode"
	FailureSynthesis   FailureKind = "synthesis"
	FailureDuration    FailureKind = "duration"
	FailureTimeout     FailureKind = "timeout"
	FailureStorage     FailureKind = "storage"
	FailureValidation  FailureKind = "validation"
	FailureCanceled    FailureKind = "canceled"
	FailureUnknown     FailureKind = "unknown"
)

// Classify maps err onto a FailureKind. The most specific marker wins: a
// timeout during synthesis is reported as a timeout.
func Classify(err error) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, context.Canceled):
		return FailureCanceled
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return FailureTimeout
	case errors.Is(err, ErrNoCredentials):
		return FailureCredentials
	case errors.Is(err, ErrCredentialExhausted):
		return FailureQuota
	case errors.Is(err, ErrDurationMismatch):
		return FailureDuration
	case errors.Is(err, ErrCacheWrite):
		return FailureStorage
	case errors.Is(err, ErrEncode), errors.Is(err, ErrExternalTool):
		return FailureEncode
	case errors.Is(err, ErrSynthesis):
		return FailureSynthesis
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration):
		return FailureValidation
	default:
		return FailureUnknown
	}
}

// Remedy returns the next step shown to the user for a failure kind.
func Remedy(kind FailureKind) string {
	switch kind {
	case FailureCredentials:
		return "register a key with `clipforge keys add <provider> <secret>`"
	case FailureQuota:
		return "register another key or wait for the quota reset, then run `clipforge keys refresh`"
	case FailureEncode:
		return "inspect the ffmpeg diagnostic above; check the input image and ffmpeg installation"
	case FailureSynthesis:
		return "check the voice name and provider status, then rerun the batch"
	case FailureDuration:
		return "increase the clip duration or shorten the line, then rerun the batch"
	case FailureTimeout:
		return "the provider or encoder did not answer in time; rerun the batch or raise the timeout"
	case FailureStorage:
		return "free disk space under the output directory, then rerun the batch"
	case FailureValidation:
		return "fix the reported input or setting, then rerun the batch"
	case FailureCanceled:
		return "rerun the batch; completed artifacts are reused"
	case FailureNone:
		return ""
	default:
		return "check logs for details, then rerun the batch"
	}
}
