package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"clipforge/internal/logging"
	"clipforge/internal/media/ffprobe"
)

// CommandRunner executes a binary and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// diagnosticLines bounds how much tool output is kept on an EncoderError.
const diagnosticLines = 12

// FFmpeg renders clips with the ffmpeg and ffprobe binaries.
type FFmpeg struct {
	ffmpeg  string
	ffprobe string
	run     CommandRunner
	logger  *slog.Logger
}

// Option customizes an FFmpeg encoder.
type Option func(*FFmpeg)

// WithCommandRunner overrides how binaries are executed (primarily for tests).
func WithCommandRunner(runner CommandRunner) Option {
	return func(f *FFmpeg) {
		if runner != nil {
			f.run = runner
		}
	}
}

// WithBinaries overrides the ffmpeg and ffprobe executables.
func WithBinaries(ffmpegBinary, ffprobeBinary string) Option {
	return func(f *FFmpeg) {
		if s := strings.TrimSpace(ffmpegBinary); s != "" {
			f.ffmpeg = s
		}
		if s := strings.TrimSpace(ffprobeBinary); s != "" {
			f.ffprobe = s
		}
	}
}

// NewFFmpeg constructs the production encoder.
func NewFFmpeg(logger *slog.Logger, opts ...Option) *FFmpeg {
	f := &FFmpeg{
		ffmpeg:  "ffmpeg",
		ffprobe: "ffprobe",
		run:     defaultCommandRunner,
		logger:  logging.NewComponentLogger(logger, "ffmpeg"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// ZoomPan renders a still image into a clip with a slow zoom and drift.
func (f *FFmpeg) ZoomPan(ctx context.Context, req ZoomPanRequest) error {
	if err := req.Validate(); err != nil {
		return &EncoderError{Op: "zoompan", Err: err}
	}
	f.logger.Debug("rendering zoompan",
		logging.String("image", req.ImagePath),
		logging.String("pan", req.Pan.String()),
		logging.Int("frames", req.TotalFrames()),
	)
	return f.exec(ctx, "zoompan", zoomPanArgs(req))
}

// Merge pads narration with silence and muxes it with the trimmed clip.
func (f *FFmpeg) Merge(ctx context.Context, req MergeRequest) error {
	if err := req.Validate(); err != nil {
		return &EncoderError{Op: "merge", Err: err}
	}
	f.logger.Debug("merging clip",
		logging.String("audio", req.AudioPath),
		logging.String("video", req.VideoPath),
		logging.String("total_seconds", seconds(req.TotalSeconds)),
	)
	return f.exec(ctx, "merge", mergeArgs(req))
}

// Concat joins clips with fades into a single video.
func (f *FFmpeg) Concat(ctx context.Context, req ConcatRequest) error {
	if err := req.Validate(); err != nil {
		return &EncoderError{Op: "concat", Err: err}
	}
	f.logger.Debug("concatenating clips", logging.Int("clips", len(req.Clips)))
	return f.exec(ctx, "concat", concatArgs(req))
}

// Duration probes the container duration of path in seconds.
func (f *FFmpeg) Duration(ctx context.Context, path string) (float64, error) {
	result, err := ffprobe.InspectWith(ctx, ffprobe.Runner(f.run), f.ffprobe, path)
	if err != nil {
		return 0, &EncoderError{Op: "probe", Err: err}
	}
	duration := result.DurationSeconds()
	if duration <= 0 {
		return 0, &EncoderError{Op: "probe", Err: fmt.Errorf("%s: no duration reported", path)}
	}
	return duration, nil
}

func (f *FFmpeg) exec(ctx context.Context, op string, args []string) error {
	output, err := f.run(ctx, f.ffmpeg, args...)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = errors.Join(ctxErr, err)
	}
	return &EncoderError{Op: op, Diagnostic: tail(string(output), diagnosticLines), Err: err}
}

func tail(output string, lines int) string {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return ""
	}
	parts := strings.Split(trimmed, "\n")
	if len(parts) > lines {
		parts = parts[len(parts)-lines:]
	}
	return strings.Join(parts, "\n")
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}
