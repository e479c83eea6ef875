package stage

import (
	"context"
	"log/slog"
	"math"
	"time"

	"clipforge/internal/artifactcache"
	"clipforge/internal/fingerprint"
	"clipforge/internal/logging"
	"clipforge/internal/media"
	"clipforge/internal/services"
)

const finalExt = ".mp4"

// Concat joins a language's clips into the final video.
type Concat struct {
	cache   *artifactcache.Cache
	encoder media.Encoder
	logger  *slog.Logger
	timeout time.Duration
}

// NewConcat wires the concat stage. timeout bounds each probe and encode.
func NewConcat(cache *artifactcache.Cache, encoder media.Encoder, logger *slog.Logger, timeout time.Duration) *Concat {
	return &Concat{
		cache:   cache,
		encoder: encoder,
		logger:  logging.NewComponentLogger(logger, "concat"),
		timeout: timeout,
	}
}

// Concatenate returns the final video for clips in order. Each clip fades in
// and fades out over fade seconds; the fade-out is anchored at the clip's
// measured end, never later than clipSeconds.
func (c *Concat) Concatenate(ctx context.Context, clips []Artifact, fade float64, clipSeconds int) (Artifact, error) {
	if len(clips) == 0 {
		return Artifact{}, services.Wrap(services.ErrValidation, "concat", "concatenate", "no clips", nil)
	}
	ctx = services.WithStage(ctx, "concat")
	names := make([]string, len(clips))
	for i, clip := range clips {
		names[i] = clip.Name
	}
	fp := fingerprint.Concat(names)
	res, err := c.cache.LookupOrCreate(ctx, fp, finalExt, func(ctx context.Context, tmpPath string) error {
		inputs := make([]media.ConcatClip, len(clips))
		for i, clip := range clips {
			seconds, err := c.duration(ctx, clip.Path, clipSeconds)
			if err != nil {
				return err
			}
			inputs[i] = media.ConcatClip{Path: clip.Path, DurationSeconds: seconds}
		}
		logging.WithContext(ctx, c.logger).Info("concatenating clips",
			logging.Int("clips", len(clips)),
			logging.Float64("fade_seconds", fade),
		)
		req := media.ConcatRequest{Clips: inputs, OutputPath: tmpPath, FadeSeconds: fade}
		return encodeErr(services.WithTimeout(ctx, c.timeout, "concat", "encode", func(callCtx context.Context) error {
			return c.encoder.Concat(callCtx, req)
		}), "concat", "encode")
	})
	if err != nil {
		return Artifact{}, err
	}
	return artifactFrom(res), nil
}

func (c *Concat) duration(ctx context.Context, path string, clipSeconds int) (float64, error) {
	var seconds float64
	err := services.WithTimeout(ctx, c.timeout, "concat", "probe", func(callCtx context.Context) error {
		var probeErr error
		seconds, probeErr = c.encoder.Duration(callCtx, path)
		return probeErr
	})
	if err != nil {
		return 0, encodeErr(err, "concat", "probe")
	}
	if clipSeconds > 0 {
		seconds = math.Min(seconds, float64(clipSeconds))
	}
	return seconds, nil
}
