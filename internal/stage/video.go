package stage

import (
	"context"
	"log/slog"
	"os"
	"time"

	"clipforge/internal/artifactcache"
	"clipforge/internal/config"
	"clipforge/internal/fingerprint"
	"clipforge/internal/logging"
	"clipforge/internal/media"
	"clipforge/internal/services"
)

const videoExt = ".mp4"

// Video renders a still image into a zoom-pan clip.
type Video struct {
	cache   *artifactcache.Cache
	encoder media.Encoder
	pans    *PanSequencer
	logger  *slog.Logger
	timeout time.Duration
}

// NewVideo wires the video stage. timeout bounds each encode.
func NewVideo(cache *artifactcache.Cache, encoder media.Encoder, pans *PanSequencer, logger *slog.Logger, timeout time.Duration) *Video {
	if pans == nil {
		pans = NewPanSequencer(uint64(time.Now().UnixNano()))
	}
	return &Video{
		cache:   cache,
		encoder: encoder,
		pans:    pans,
		logger:  logging.NewComponentLogger(logger, "video"),
		timeout: timeout,
	}
}

// Synthesize returns the clip for imagePath under cfg, rendering it on a cache
// miss. The pan direction is chosen only when a render happens.
func (v *Video) Synthesize(ctx context.Context, imagePath string, cfg config.PipelineConfig) (Artifact, error) {
	ctx = services.WithStage(ctx, "video")
	image, err := os.ReadFile(imagePath)
	if err != nil {
		return Artifact{}, services.Wrap(services.ErrValidation, "video", "read image", imagePath, err)
	}
	if len(image) == 0 {
		return Artifact{}, services.Wrap(services.ErrValidation, "video", "read image", imagePath+" is empty", nil)
	}
	fp := fingerprint.Video(image, cfg.PeakScale, cfg.ClipDurationSeconds, cfg.FramesPerSecond, cfg.FrameWidth, cfg.FrameHeight)
	res, err := v.cache.LookupOrCreate(ctx, fp, videoExt, func(ctx context.Context, tmpPath string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		pan := v.pans.Next()
		logging.WithContext(ctx, v.logger).Info("rendering video",
			logging.String("image", imagePath),
			logging.String("pan", pan.String()),
		)
		req := media.ZoomPanRequest{
			ImagePath:       imagePath,
			OutputPath:      tmpPath,
			PeakScale:       cfg.PeakScale,
			DurationSeconds: cfg.ClipDurationSeconds,
			FramesPerSecond: cfg.FramesPerSecond,
			Width:           cfg.FrameWidth,
			Height:          cfg.FrameHeight,
			Pan:             pan,
		}
		return encodeErr(services.WithTimeout(ctx, v.timeout, "video", "zoompan", func(callCtx context.Context) error {
			return v.encoder.ZoomPan(callCtx, req)
		}), "video", "zoompan")
	})
	if err != nil {
		return Artifact{}, err
	}
	return artifactFrom(res), nil
}

func encodeErr(err error, stage, op string) error {
	if err == nil || passthrough(err) {
		return err
	}
	return services.Wrap(services.ErrEncode, stage, op, "", err)
}
