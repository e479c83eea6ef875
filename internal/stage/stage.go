package stage

import (
	"context"
	"errors"

	"clipforge/internal/artifactcache"
	"clipforge/internal/fingerprint"
	"clipforge/internal/services"
	"clipforge/internal/store"
)

// Artifact is a committed cache entry. Name is the fingerprint the entry is
// stored under and is what downstream stages fingerprint.
type Artifact struct {
	Path string
	Name string
	Hit  bool
}

func artifactFrom(res artifactcache.Result) Artifact {
	return Artifact{Path: res.Path, Name: fingerprint.NameOf(res.Path), Hit: res.Hit}
}

// CredentialPool is the slice of keypool.Pool the audio stage needs.
type CredentialPool interface {
	Acquire(ctx context.Context, quotaNeeded int64) (store.CredentialEntry, error)
	ReportUsage(ctx context.Context, secret string, quotaUsed, quotaTotal, resetTime int64) error
}

// passthrough reports whether err already carries a marker the orchestrator
// classifies on, so wrapping it again would only add noise.
func passthrough(err error) bool {
	for _, marker := range []error{
		context.Canceled,
		services.ErrTimeout,
		services.ErrNoCredentials,
		services.ErrCredentialExhausted,
		services.ErrValidation,
		services.ErrCacheWrite,
		services.ErrDurationMismatch,
		services.ErrEncode,
	} {
		if errors.Is(err, marker) {
			return true
		}
	}
	return false
}
