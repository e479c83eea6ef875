package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"clipforge/internal/config"
)

func TestLoadDefaultConfigExpandsPathsAndReadsEnvKeys(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("CLIPFORGE_SPEECH_KEY", " speech-secret ")
	t.Setenv("CLIPFORGE_TRANSLATION_KEY", "deepl-secret")
	t.Setenv("CLIPFORGE_CONFIG", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantOutput := filepath.Join(tempHome, ".local", "share", "clipforge", "output")
	if cfg.Paths.OutputDir != wantOutput {
		t.Fatalf("unexpected output dir: got %q want %q", cfg.Paths.OutputDir, wantOutput)
	}
	if cfg.DatabasePath() != filepath.Join(tempHome, ".local", "share", "clipforge", "clipforge.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.SpeechKey != "speech-secret" {
		t.Fatalf("expected speech key from env, got %q", cfg.SpeechKey)
	}
	if cfg.TranslationKey != "deepl-secret" {
		t.Fatalf("expected translation key from env, got %q", cfg.TranslationKey)
	}
	if cfg.Pipeline.FramesPerSecond != 30 || cfg.Pipeline.PeakScale != 1.5 {
		t.Fatalf("unexpected pipeline defaults: %+v", cfg.Pipeline)
	}
	if cfg.Workflow.PairConcurrency != 2 {
		t.Fatalf("unexpected pair concurrency: %d", cfg.Workflow.PairConcurrency)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.OutputDir, cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "clipforge.toml")

	type payload struct {
		Paths struct {
			OutputDir string `toml:"output_dir"`
		} `toml:"paths"`
		Pipeline struct {
			Voice           string   `toml:"voice"`
			SourceLanguage  string   `toml:"source_language"`
			TargetLanguages []string `toml:"target_languages"`
		} `toml:"pipeline"`
		Workflow struct {
			PairConcurrency int `toml:"pair_concurrency"`
		} `toml:"workflow"`
	}
	custom := payload{}
	custom.Paths.OutputDir = filepath.Join(tempDir, "out")
	custom.Pipeline.Voice = "Adam"
	custom.Pipeline.SourceLanguage = "English"
	custom.Pipeline.TargetLanguages = []string{"de", "DE", "pt-br", ""}
	custom.Workflow.PairConcurrency = 4

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected config at %q, got %q (exists=%v)", configPath, resolved, exists)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempDir, "out") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.Pipeline.SourceLanguage != "en" {
		t.Fatalf("expected source language normalized to en, got %q", cfg.Pipeline.SourceLanguage)
	}
	if got := strings.Join(cfg.Pipeline.TargetLanguages, ","); got != "de,pt-BR" {
		t.Fatalf("unexpected target languages: %q", got)
	}
	if cfg.Workflow.PairConcurrency != 4 {
		t.Fatalf("unexpected pair concurrency: %d", cfg.Workflow.PairConcurrency)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"fps", func(c *config.Config) { c.Pipeline.FramesPerSecond = 0 }, "frames per second"},
		{"scale", func(c *config.Config) { c.Pipeline.PeakScale = 0.5 }, "peak scale"},
		{"fade", func(c *config.Config) { c.Pipeline.FadeDurationSeconds = 10 }, "fade duration"},
		{"padding", func(c *config.Config) { c.Pipeline.AudioPaddingSeconds = -1 }, "audio padding"},
		{"concurrency", func(c *config.Config) { c.Workflow.PairConcurrency = 100 }, "pair_concurrency"},
		{"cron", func(c *config.Config) { c.Workflow.QuotaRefreshCron = "every tuesday" }, "quota_refresh_cron"},
		{"level", func(c *config.Config) { c.Logging.Level = "loud" }, "logging.level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample failed: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Speech.Model != "eleven_multilingual_v2" {
		t.Fatalf("unexpected speech model: %q", cfg.Speech.Model)
	}
}

func TestLoadPrefersEnvironmentPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile("clipforge.toml", []byte("[pipeline]\nvoice = \"Project\"\n"), 0o644); err != nil {
		t.Fatalf("write project config: %v", err)
	}

	_, resolved, exists, err := config.Load("")
	if err != nil || !exists || filepath.Base(resolved) != "clipforge.toml" {
		t.Fatalf("expected project config, got %q exists=%v err=%v", resolved, exists, err)
	}

	envPath := filepath.Join(dir, "env.toml")
	if err := os.WriteFile(envPath, []byte("[pipeline]\nvoice = \"Env\"\n"), 0o644); err != nil {
		t.Fatalf("write env config: %v", err)
	}
	t.Setenv("CLIPFORGE_CONFIG", envPath)
	cfg, resolved, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != envPath || cfg.Pipeline.Voice != "Env" {
		t.Fatalf("expected env config, got %q voice=%q", resolved, cfg.Pipeline.Voice)
	}
}
