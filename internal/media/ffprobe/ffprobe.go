package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// Runner executes a binary and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// entries limits ffprobe output to the fields clipforge reads.
const entries = "format=duration,format_name:stream=codec_type,duration"

// Result is the subset of ffprobe JSON clipforge cares about.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream is one container stream. Duration is ffprobe's decimal string and may be "N/A".
type Stream struct {
	CodecType string `json:"codec_type"`
	Duration  string `json:"duration"`
}

// Format is the container section.
type Format struct {
	Duration   string `json:"duration"`
	FormatName string `json:"format_name"`
}

// Inspect probes path with the ffprobe binary.
func Inspect(ctx context.Context, binary, path string) (Result, error) {
	return InspectWith(ctx, run, binary, path)
}

// InspectWith is Inspect with an injectable runner. An empty binary means
// "ffprobe" on PATH.
func InspectWith(ctx context.Context, runner Runner, binary, path string) (Result, error) {
	if strings.TrimSpace(path) == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}
	if binary = strings.TrimSpace(binary); binary == "" {
		binary = "ffprobe"
	}
	if runner == nil {
		runner = run
	}
	out, err := runner(ctx, binary, "-v", "error", "-show_entries", entries, "-of", "json", "--", path)
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect %s: %w", path, err)
	}
	var result Result
	if err := json.Unmarshal(out, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse %s: %w", path, err)
	}
	return result, nil
}

// Count returns how many streams have the given codec type ("audio", "video").
func (r Result) Count(codecType string) int {
	n := 0
	for _, s := range r.Streams {
		if strings.EqualFold(s.CodecType, codecType) {
			n++
		}
	}
	return n
}

// DurationSeconds prefers the container duration and falls back to the
// longest stream, which covers raw elementary streams. Zero means unknown.
func (r Result) DurationSeconds() float64 {
	if d := seconds(r.Format.Duration); d > 0 {
		return d
	}
	var longest float64
	for _, s := range r.Streams {
		longest = max(longest, seconds(s.Duration))
	}
	return longest
}

func seconds(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}
