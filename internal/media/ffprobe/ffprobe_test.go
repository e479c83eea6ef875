package ffprobe

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestCountAndDuration(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video"},
			{CodecType: "audio"},
			{CodecType: "audio"},
		},
		Format: Format{Duration: "123.45"},
	}
	if got := result.Count("video"); got != 1 {
		t.Fatalf("expected 1 video stream, got %d", got)
	}
	if got := result.Count("AUDIO"); got != 2 {
		t.Fatalf("expected 2 audio streams, got %d", got)
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
}

func TestDurationFallsBackToStreams(t *testing.T) {
	result := Result{
		Streams: []Stream{{Duration: "9.5"}, {Duration: "10.25"}, {Duration: "bad"}, {Duration: "-3"}},
		Format:  Format{Duration: "N/A"},
	}
	if got := result.DurationSeconds(); got != 10.25 {
		t.Fatalf("expected longest stream duration, got %v", got)
	}
	if got := (Result{}).DurationSeconds(); got != 0 {
		t.Fatalf("expected 0 for empty result, got %v", got)
	}
}

func TestInspectWithRunner(t *testing.T) {
	var gotName string
	var gotArgs []string
	run := func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		return []byte(`{"streams":[{"codec_type":"audio","duration":"3.2"}],"format":{"duration":"3.25","format_name":"mp3"}}`), nil
	}
	result, err := InspectWith(context.Background(), run, "", "/tmp/a.mp3")
	if err != nil {
		t.Fatalf("InspectWith failed: %v", err)
	}
	if gotName != "ffprobe" {
		t.Fatalf("expected default binary, got %q", gotName)
	}
	wantArgs := []string{"-v", "error", "-show_entries", "format=duration,format_name:stream=codec_type,duration", "-of", "json", "--", "/tmp/a.mp3"}
	if !reflect.DeepEqual(gotArgs, wantArgs) {
		t.Fatalf("unexpected args %v", gotArgs)
	}
	if result.DurationSeconds() != 3.25 || result.Format.FormatName != "mp3" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestInspectErrors(t *testing.T) {
	if _, err := InspectWith(context.Background(), nil, "ffprobe", " "); err == nil {
		t.Fatal("expected error for empty path")
	}
	boom := errors.New("no such file")
	failing := func(context.Context, string, ...string) ([]byte, error) { return nil, boom }
	if _, err := InspectWith(context.Background(), failing, "ffprobe", "x.mp4"); !errors.Is(err, boom) {
		t.Fatalf("expected runner error, got %v", err)
	}
	garbage := func(context.Context, string, ...string) ([]byte, error) { return []byte("not json"), nil }
	if _, err := InspectWith(context.Background(), garbage, "ffprobe", "x.mp4"); err == nil {
		t.Fatal("expected parse error")
	}
}
