package media

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"clipforge/internal/services"
)

// Encoder is the set of media operations the pipeline stages need. FFmpeg is the
// production implementation; tests substitute fakes.
type Encoder interface {
	ZoomPan(ctx context.Context, req ZoomPanRequest) error
	Duration(ctx context.Context, path string) (float64, error)
	Merge(ctx context.Context, req MergeRequest) error
	Concat(ctx context.Context, req ConcatRequest) error
}

// Pan is the per-frame drift applied to the zoom window. Each axis is -1, 0 or 1.
type Pan struct {
	X int
	Y int
}

// String renders the pan as "dx,dy" for logs.
func (p Pan) String() string {
	return fmt.Sprintf("%d,%d", p.X, p.Y)
}

// ZoomPanRequest describes a still-image to video render.
type ZoomPanRequest struct {
	ImagePath       string
	OutputPath      string
	PeakScale       float64
	DurationSeconds int
	FramesPerSecond int
	Width           int
	Height          int
	Pan             Pan
}

// Validate checks the request before any process is started.
func (r ZoomPanRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.ImagePath) == "":
		return errors.New("image path is required")
	case strings.TrimSpace(r.OutputPath) == "":
		return errors.New("output path is required")
	case r.PeakScale < 1:
		return fmt.Errorf("peak scale %.3f is below 1", r.PeakScale)
	case r.DurationSeconds <= 0:
		return errors.New("duration must be positive")
	case r.FramesPerSecond <= 0:
		return errors.New("frames per second must be positive")
	case r.Width <= 0 || r.Height <= 0:
		return errors.New("frame size must be positive")
	case r.Pan.X < -1 || r.Pan.X > 1 || r.Pan.Y < -1 || r.Pan.Y > 1:
		return fmt.Errorf("pan %s out of range", r.Pan)
	}
	return nil
}

// TotalFrames is the number of frames rendered for the clip.
func (r ZoomPanRequest) TotalFrames() int {
	return r.DurationSeconds * r.FramesPerSecond
}

// MergeRequest pairs narration with a video clip. The narration is surrounded
// by PaddingSeconds of silence on both sides and the video is trimmed to
// TotalSeconds.
type MergeRequest struct {
	AudioPath      string
	VideoPath      string
	OutputPath     string
	PaddingSeconds float64
	TotalSeconds   float64
}

// Validate checks the request before any process is started.
func (r MergeRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.AudioPath) == "":
		return errors.New("audio path is required")
	case strings.TrimSpace(r.VideoPath) == "":
		return errors.New("video path is required")
	case strings.TrimSpace(r.OutputPath) == "":
		return errors.New("output path is required")
	case r.PaddingSeconds < 0:
		return errors.New("padding must not be negative")
	case r.TotalSeconds <= 0:
		return errors.New("total duration must be positive")
	}
	return nil
}

// ConcatClip is one input of a concatenation with its measured length.
type ConcatClip struct {
	Path            string
	DurationSeconds float64
}

// ConcatRequest joins clips in order, fading each one in and out.
type ConcatRequest struct {
	Clips       []ConcatClip
	OutputPath  string
	FadeSeconds float64
}

// Validate checks the request before any process is started.
func (r ConcatRequest) Validate() error {
	if len(r.Clips) == 0 {
		return errors.New("at least one clip is required")
	}
	if strings.TrimSpace(r.OutputPath) == "" {
		return errors.New("output path is required")
	}
	if r.FadeSeconds < 0 {
		return errors.New("fade must not be negative")
	}
	for i, clip := range r.Clips {
		if strings.TrimSpace(clip.Path) == "" {
			return fmt.Errorf("clip %d: path is required", i)
		}
		if clip.DurationSeconds <= 0 {
			return fmt.Errorf("clip %d: duration must be positive", i)
		}
	}
	return nil
}

// EncoderError reports a failed external encode or probe. Diagnostic carries
// the tail of the tool output.
type EncoderError struct {
	Op         string
	Diagnostic string
	Err        error
}

func (e *EncoderError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%s failed", e.Op)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Diagnostic != "" {
		msg += ": " + e.Diagnostic
	}
	return msg
}

// Unwrap exposes both the encode marker and the underlying cause so callers can
// match ErrEncode as well as context errors.
func (e *EncoderError) Unwrap() []error {
	if e == nil {
		return nil
	}
	if e.Err == nil {
		return []error{services.ErrEncode}
	}
	return []error{services.ErrEncode, e.Err}
}
