package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"clipforge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig returns a validated-shape config rooted in a fresh temp dir, with
// voice "Adam", source "en", and no free-space floor.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	cfg := config.Default()
	b := &configBuilder{t: t, baseDir: t.TempDir(), cfg: &cfg}
	cfg.Paths.OutputDir = filepath.Join(b.baseDir, "output")
	cfg.Paths.StateDir = filepath.Join(b.baseDir, "state")
	cfg.Paths.LogDir = filepath.Join(b.baseDir, "logs")
	cfg.Pipeline.Voice = "Adam"
	cfg.Pipeline.SourceLanguage = "en"
	cfg.Workflow.MinFreeSpaceMiB = 0
	for _, opt := range opts {
		opt(b)
	}
	return b.cfg
}

// WithTargets sets the target languages on the test config.
func WithTargets(targets ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.TargetLanguages = append([]string(nil), targets...)
	}
}

// WithNtfyTopic points notifications at the given topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithStubbedBinaries puts no-op executables named after names (ffmpeg and
// ffprobe when empty) first on PATH for the rest of the test.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		for _, name := range names {
			writeFixture(b.t, filepath.Join(binDir, name), []byte("#!/bin/sh\nexit 0\n"), 0o755)
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OutputDir)
}
