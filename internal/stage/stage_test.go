package stage_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"clipforge/internal/artifactcache"
	"clipforge/internal/config"
	"clipforge/internal/keypool"
	"clipforge/internal/media"
	"clipforge/internal/services"
	"clipforge/internal/speech"
	"clipforge/internal/stage"
	"clipforge/internal/testsupport"
)

func newCache(t *testing.T, kind artifactcache.Kind) *artifactcache.Cache {
	t.Helper()
	cache, err := artifactcache.New(t.TempDir(), kind, nil)
	if err != nil {
		t.Fatalf("artifactcache.New: %v", err)
	}
	return cache
}

func newSpeechPool(t *testing.T, quotas ...int64) *keypool.Pool {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	for i, total := range quotas {
		testsupport.MustInsertCredential(t, st, keypool.ProviderSpeech, "key-"+strconv.Itoa(i), 0, total)
	}
	return keypool.New(st, keypool.ProviderSpeech, nil)
}

func writeMedia(t *testing.T, dir, name string, seconds float64) stage.Artifact {
	t.Helper()
	path := filepath.Join(dir, name+".mp4")
	content := "media duration=" + strconv.FormatFloat(seconds, 'f', -1, 64)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return stage.Artifact{Path: path, Name: name}
}

func TestAudioSynthesizeIsIdempotent(t *testing.T) {
	pool := newSpeechPool(t, 1000)
	synth := &testsupport.FakeSynthesizer{UsageReply: speech.Usage{Used: 5, Total: 1000, ResetTime: 1767225600}}
	audio := stage.NewAudio(newCache(t, artifactcache.KindAudio), pool, synth, nil, 0)

	first, err := audio.Synthesize(context.Background(), "Hello", "Adam")
	if err != nil {
		t.Fatalf("first Synthesize: %v", err)
	}
	second, err := audio.Synthesize(context.Background(), "Hello", "Adam")
	if err != nil {
		t.Fatalf("second Synthesize: %v", err)
	}
	if first.Hit || !second.Hit {
		t.Fatalf("expected miss then hit, got %v then %v", first.Hit, second.Hit)
	}
	if first.Path != second.Path || first.Name != second.Name {
		t.Fatalf("expected same artifact, got %+v and %+v", first, second)
	}
	if synth.CallCount() != 1 {
		t.Fatalf("expected one provider call, got %d", synth.CallCount())
	}
	entries, err := pool.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if entries[0].QuotaUsed != 5 || entries[0].ResetTime != 1767225600 {
		t.Fatalf("expected provider usage recorded, got %+v", entries[0])
	}

	other, err := audio.Synthesize(context.Background(), "Hello", "Rachel")
	if err != nil {
		t.Fatalf("Synthesize other voice: %v", err)
	}
	if other.Name == first.Name || other.Hit {
		t.Fatal("expected a different voice to produce a new artifact")
	}
}

func TestAudioExhaustionCallsNoProvider(t *testing.T) {
	pool := newSpeechPool(t, 3)
	synth := &testsupport.FakeSynthesizer{}
	cache := newCache(t, artifactcache.KindAudio)
	audio := stage.NewAudio(cache, pool, synth, nil, 0)

	_, err := audio.Synthesize(context.Background(), "Hello", "Adam")
	if !errors.Is(err, services.ErrCredentialExhausted) {
		t.Fatalf("expected exhaustion, got %v", err)
	}
	if synth.CallCount() != 0 {
		t.Fatal("provider must not be called without a credential")
	}
	entries, _ := os.ReadDir(cache.Dir())
	for _, entry := range entries {
		if !entry.IsDir() {
			t.Fatalf("unexpected file left in cache: %s", entry.Name())
		}
	}
}

func TestAudioProviderFailureIsSynthesisError(t *testing.T) {
	pool := newSpeechPool(t, 1000)
	synth := &testsupport.FakeSynthesizer{Fail: map[string]error{"Hello": errors.New("503 upstream")}}
	audio := stage.NewAudio(newCache(t, artifactcache.KindAudio), pool, synth, nil, 0)

	_, err := audio.Synthesize(context.Background(), "Hello", "Adam")
	if !errors.Is(err, services.ErrSynthesis) {
		t.Fatalf("expected synthesis error, got %v", err)
	}
	if services.Classify(err) != services.FailureSynthesis {
		t.Fatalf("unexpected classification %q", services.Classify(err))
	}
}

func TestAudioUsageFailureDoesNotFailStage(t *testing.T) {
	pool := newSpeechPool(t, 1000)
	synth := &testsupport.FakeSynthesizer{UsageErr: errors.New("subscription endpoint down")}
	audio := stage.NewAudio(newCache(t, artifactcache.KindAudio), pool, synth, nil, 0)

	art, err := audio.Synthesize(context.Background(), "Hello", "Adam")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if _, err := os.Stat(art.Path); err != nil {
		t.Fatalf("expected artifact on disk: %v", err)
	}
}

func TestAudioCanceledBeforeProviderCall(t *testing.T) {
	pool := newSpeechPool(t, 1000)
	synth := &testsupport.FakeSynthesizer{}
	audio := stage.NewAudio(newCache(t, artifactcache.KindAudio), pool, synth, nil, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := audio.Synthesize(ctx, "Hello", "Adam"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
	if synth.CallCount() != 0 {
		t.Fatal("provider must not be called after cancellation")
	}
}

func TestPanSequencerNeverRepeats(t *testing.T) {
	seq := stage.NewPanSequencer(42)
	prev := seq.Next()
	seen := map[media.Pan]bool{prev: true}
	for i := 0; i < 1000; i++ {
		next := seq.Next()
		if next == prev {
			t.Fatalf("pan repeated at draw %d: %v", i, next)
		}
		if next.X == 0 || next.Y == 0 {
			t.Fatalf("unexpected zero axis %v", next)
		}
		seen[next] = true
		prev = next
	}
	if len(seen) != 4 {
		t.Fatalf("expected all four directions, saw %d", len(seen))
	}

	a, b := stage.NewPanSequencer(7), stage.NewPanSequencer(7)
	for i := 0; i < 20; i++ {
		if a.Next() != b.Next() {
			t.Fatal("expected equal seeds to produce equal sequences")
		}
	}
}

func TestPanSequencerConcurrentUse(t *testing.T) {
	seq := stage.NewPanSequencer(1)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				seq.Next()
			}
		}()
	}
	wg.Wait()
}

func pipelineConfig() config.PipelineConfig {
	cfg := config.Default().PipelineDefaults()
	cfg.Voice = "Adam"
	cfg.SourceLanguage = "en"
	return cfg
}

func TestVideoFingerprintsImageContent(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "1.png")
	copyPath := filepath.Join(dir, "copy.png")
	for _, p := range []string{first, copyPath} {
		if err := os.WriteFile(p, []byte("png-bytes"), 0o644); err != nil {
			t.Fatalf("write image: %v", err)
		}
	}
	enc := &testsupport.FakeEncoder{}
	video := stage.NewVideo(newCache(t, artifactcache.KindVideo), enc, stage.NewPanSequencer(3), nil, 0)
	cfg := pipelineConfig()

	a, err := video.Synthesize(context.Background(), first, cfg)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	b, err := video.Synthesize(context.Background(), copyPath, cfg)
	if err != nil {
		t.Fatalf("Synthesize copy: %v", err)
	}
	if !b.Hit || a.Name != b.Name {
		t.Fatalf("expected identical image bytes to hit, got %+v vs %+v", a, b)
	}

	cfg.PeakScale = 1.2
	c, err := video.Synthesize(context.Background(), first, cfg)
	if err != nil {
		t.Fatalf("Synthesize rescaled: %v", err)
	}
	if c.Hit || c.Name == a.Name {
		t.Fatal("expected a new scale to render a new clip")
	}
	cfg.PeakScale = pipelineConfig().PeakScale
	cfg.FrameWidth, cfg.FrameHeight = 1280, 720
	d, err := video.Synthesize(context.Background(), first, cfg)
	if err != nil {
		t.Fatalf("Synthesize resized: %v", err)
	}
	if d.Hit || d.Name == a.Name {
		t.Fatal("expected a new frame size to render a new clip")
	}
	if zoom, _, _ := enc.Counts(); zoom != 3 {
		t.Fatalf("expected 3 renders, got %d", zoom)
	}
	if enc.ZoomPans[2].Width != 1280 || enc.ZoomPans[2].Height != 720 {
		t.Fatalf("unexpected resized request %+v", enc.ZoomPans[2])
	}
	if enc.ZoomPans[0].Pan == enc.ZoomPans[1].Pan {
		t.Fatal("expected consecutive renders to use different pans")
	}
	if enc.ZoomPans[0].Width != pipelineConfig().FrameWidth || enc.ZoomPans[0].FramesPerSecond != cfg.FramesPerSecond {
		t.Fatalf("unexpected request %+v", enc.ZoomPans[0])
	}
}

func TestVideoEncodeFailure(t *testing.T) {
	image := filepath.Join(t.TempDir(), "1.png")
	if err := os.WriteFile(image, []byte("png"), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	enc := &testsupport.FakeEncoder{ZoomErr: &media.EncoderError{Op: "zoompan", Diagnostic: "Invalid data"}}
	cache := newCache(t, artifactcache.KindVideo)
	video := stage.NewVideo(cache, enc, nil, nil, 0)

	_, err := video.Synthesize(context.Background(), image, pipelineConfig())
	if !errors.Is(err, services.ErrEncode) {
		t.Fatalf("expected encode error, got %v", err)
	}
	if _, err := video.Synthesize(context.Background(), filepath.Join(t.TempDir(), "missing.png"), pipelineConfig()); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing image, got %v", err)
	}
}

func TestMergeRejectsShortVideo(t *testing.T) {
	dir := t.TempDir()
	audio := writeMedia(t, dir, "audio", 10)
	short := writeMedia(t, dir, "short", 10.5)
	enc := &testsupport.FakeEncoder{}
	merge := stage.NewMerge(newCache(t, artifactcache.KindClip), enc, nil, 0)

	_, err := merge.Merge(context.Background(), audio, short, 1)
	var mismatch *services.DurationMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected duration mismatch, got %v", err)
	}
	if mismatch.Deficit() != 0.5 {
		t.Fatalf("expected 0.5s deficit, got %v", mismatch.Deficit())
	}
	if services.Classify(err) != services.FailureDuration {
		t.Fatalf("unexpected classification %q", services.Classify(err))
	}
	if _, m, _ := enc.Counts(); m != 0 {
		t.Fatal("encoder must not run for a mismatched pair")
	}

	exact := writeMedia(t, dir, "exact", 11)
	clip, err := merge.Merge(context.Background(), audio, exact, 1)
	if err != nil {
		t.Fatalf("expected exact fit to merge, got %v", err)
	}
	if enc.Merges[0].TotalSeconds != 11 || enc.Merges[0].PaddingSeconds != 1 {
		t.Fatalf("unexpected merge request %+v", enc.Merges[0])
	}
	again, err := merge.Merge(context.Background(), audio, exact, 1)
	if err != nil || !again.Hit || again.Name != clip.Name {
		t.Fatalf("expected cached clip, got %+v (err=%v)", again, err)
	}
}

func TestConcatenate(t *testing.T) {
	dir := t.TempDir()
	a := writeMedia(t, dir, "a", 4)
	b := writeMedia(t, dir, "b", 6)
	enc := &testsupport.FakeEncoder{}
	concat := stage.NewConcat(newCache(t, artifactcache.KindFinal), enc, nil, 0)

	if _, err := concat.Concatenate(context.Background(), nil, 0.5, 15); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for no clips, got %v", err)
	}

	forward, err := concat.Concatenate(context.Background(), []stage.Artifact{a, b}, 0.5, 5)
	if err != nil {
		t.Fatalf("Concatenate: %v", err)
	}
	req := enc.Concats[0]
	if req.FadeSeconds != 0.5 || req.Clips[0].DurationSeconds != 4 || req.Clips[1].DurationSeconds != 5 {
		t.Fatalf("unexpected concat request %+v", req)
	}
	reversed, err := concat.Concatenate(context.Background(), []stage.Artifact{b, a}, 0.5, 5)
	if err != nil {
		t.Fatalf("Concatenate reversed: %v", err)
	}
	if reversed.Name == forward.Name {
		t.Fatal("expected clip order to change the final fingerprint")
	}
}
