package testsupport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"clipforge/internal/media"
	"clipforge/internal/speech"
	"clipforge/internal/translation"
)

// Fake media files carry their length as a "duration=<seconds>" token that
// FakeEncoder.Duration reads back.
func writeFakeMedia(path, kind string, seconds float64) error {
	return os.WriteFile(path, []byte(fmt.Sprintf("%s duration=%s\n", kind, strconv.FormatFloat(seconds, 'f', -1, 64))), 0o644)
}

// FakeEncoder implements media.Encoder without ffmpeg.
type FakeEncoder struct {
	mu        sync.Mutex
	ZoomPans  []media.ZoomPanRequest
	Merges    []media.MergeRequest
	Concats   []media.ConcatRequest
	ZoomErr   error
	MergeErr  error
	ConcatErr error
	// VideoSeconds overrides the rendered clip length; zero uses the request.
	VideoSeconds float64
}

func (f *FakeEncoder) ZoomPan(_ context.Context, req media.ZoomPanRequest) error {
	f.mu.Lock()
	f.ZoomPans = append(f.ZoomPans, req)
	err, seconds := f.ZoomErr, f.VideoSeconds
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if seconds == 0 {
		seconds = float64(req.DurationSeconds)
	}
	return writeFakeMedia(req.OutputPath, "video", seconds)
}

func (f *FakeEncoder) Merge(_ context.Context, req media.MergeRequest) error {
	f.mu.Lock()
	f.Merges = append(f.Merges, req)
	err := f.MergeErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return writeFakeMedia(req.OutputPath, "clip", req.TotalSeconds)
}

func (f *FakeEncoder) Concat(_ context.Context, req media.ConcatRequest) error {
	f.mu.Lock()
	f.Concats = append(f.Concats, req)
	err := f.ConcatErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	total := 0.0
	for _, clip := range req.Clips {
		total += clip.DurationSeconds
	}
	return writeFakeMedia(req.OutputPath, "final", total)
}

func (f *FakeEncoder) Duration(_ context.Context, path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	for _, field := range strings.Fields(string(data)) {
		if value, ok := strings.CutPrefix(field, "duration="); ok {
			return strconv.ParseFloat(value, 64)
		}
	}
	return 0, errors.New("fake media without duration")
}

// Counts returns how many renders of each kind were requested.
func (f *FakeEncoder) Counts() (zoom, merge, concat int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ZoomPans), len(f.Merges), len(f.Concats)
}

// FakeSynthesizer implements speech.Synthesizer. Narration lasts
// SecondsPerRune per character of text (0.1 when unset).
type FakeSynthesizer struct {
	mu             sync.Mutex
	Calls          []string
	Fail           map[string]error
	SecondsPerRune float64
	UsageReply     speech.Usage
	UsageErr       error
	VoiceNames     []string
	VoicesErr      error
}

func (f *FakeSynthesizer) Synthesize(_ context.Context, secret, text, voice string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, text)
	if err := f.Fail[text]; err != nil {
		return nil, err
	}
	perRune := f.SecondsPerRune
	if perRune == 0 {
		perRune = 0.1
	}
	seconds := perRune * float64(utf8.RuneCountInString(text))
	return []byte(fmt.Sprintf("audio voice=%s duration=%s\n", voice, strconv.FormatFloat(seconds, 'f', -1, 64))), nil
}

func (f *FakeSynthesizer) Usage(context.Context, string) (speech.Usage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.UsageReply, f.UsageErr
}

func (f *FakeSynthesizer) Voices(context.Context, string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.VoicesErr != nil {
		return nil, f.VoicesErr
	}
	return append([]string(nil), f.VoiceNames...), nil
}

// CallCount returns how many synthesis requests were made.
func (f *FakeSynthesizer) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

// FakeTranslator implements translation.Translator by prefixing each line with
// "[target] ".
type FakeTranslator struct {
	mu         sync.Mutex
	Targets    []string
	Err        error
	UsageReply translation.Usage
}

func (f *FakeTranslator) Translate(_ context.Context, _ string, lines []string, _ string, target string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Targets = append(f.Targets, target)
	if f.Err != nil {
		return nil, f.Err
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = "[" + target + "] " + line
	}
	return out, nil
}

func (f *FakeTranslator) Usage(context.Context, string) (translation.Usage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.UsageReply, nil
}

func (f *FakeTranslator) Languages(context.Context, string, translation.LanguageKind) ([]translation.Language, error) {
	return []translation.Language{{Code: "de", Name: "German"}}, nil
}
