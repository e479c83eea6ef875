package stage

import (
	"context"
	"log/slog"
	"time"

	"clipforge/internal/artifactcache"
	"clipforge/internal/fingerprint"
	"clipforge/internal/logging"
	"clipforge/internal/media"
	"clipforge/internal/services"
)

const clipExt = ".mp4"

// durationTolerance absorbs probe rounding when comparing clip lengths.
const durationTolerance = 1e-6

// Merge pairs narration with a video clip.
type Merge struct {
	cache   *artifactcache.Cache
	encoder media.Encoder
	logger  *slog.Logger
	timeout time.Duration
}

// NewMerge wires the merge stage. timeout bounds each probe and encode.
func NewMerge(cache *artifactcache.Cache, encoder media.Encoder, logger *slog.Logger, timeout time.Duration) *Merge {
	return &Merge{
		cache:   cache,
		encoder: encoder,
		logger:  logging.NewComponentLogger(logger, "merge"),
		timeout: timeout,
	}
}

// Merge returns the clip for (audio, video). The video must cover the narration
// plus padding; otherwise a *services.DurationMismatchError is returned and
// nothing is cached.
func (m *Merge) Merge(ctx context.Context, audio, video Artifact, padding float64) (Artifact, error) {
	ctx = services.WithStage(ctx, "merge")
	audioSeconds, err := m.probe(ctx, audio.Path)
	if err != nil {
		return Artifact{}, err
	}
	videoSeconds, err := m.probe(ctx, video.Path)
	if err != nil {
		return Artifact{}, err
	}
	total := audioSeconds + padding
	if videoSeconds+durationTolerance < total {
		return Artifact{}, &services.DurationMismatchError{
			AudioSeconds:   audioSeconds,
			PaddingSeconds: padding,
			VideoSeconds:   videoSeconds,
		}
	}

	fp := fingerprint.Merge(audio.Name, video.Name)
	res, err := m.cache.LookupOrCreate(ctx, fp, clipExt, func(ctx context.Context, tmpPath string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		logging.WithContext(ctx, m.logger).Info("merging clip",
			logging.String("audio", audio.Name),
			logging.String("video", video.Name),
			logging.Float64("total_seconds", total),
		)
		req := media.MergeRequest{
			AudioPath:      audio.Path,
			VideoPath:      video.Path,
			OutputPath:     tmpPath,
			PaddingSeconds: padding,
			TotalSeconds:   total,
		}
		return encodeErr(services.WithTimeout(ctx, m.timeout, "merge", "encode", func(callCtx context.Context) error {
			return m.encoder.Merge(callCtx, req)
		}), "merge", "encode")
	})
	if err != nil {
		return Artifact{}, err
	}
	return artifactFrom(res), nil
}

func (m *Merge) probe(ctx context.Context, path string) (float64, error) {
	var seconds float64
	err := services.WithTimeout(ctx, m.timeout, "merge", "probe", func(callCtx context.Context) error {
		var probeErr error
		seconds, probeErr = m.encoder.Duration(callCtx, path)
		return probeErr
	})
	return seconds, encodeErr(err, "merge", "probe")
}
