package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipforge/internal/config"
	"clipforge/internal/keypool"
	"clipforge/internal/services"
	"clipforge/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if result := CheckFreeSpace("space", dir, 1); !result.Passed {
		t.Fatalf("expected a byte to be available, got: %s", result.Detail)
	}
	result := CheckFreeSpace("space", dir, 1<<62)
	if result.Passed {
		t.Fatal("expected failure for an impossible floor")
	}
	if !strings.Contains(result.Detail, "need") {
		t.Fatalf("expected shortfall detail, got %q", result.Detail)
	}
	if result := CheckFreeSpace("space", filepath.Join(dir, "missing"), 1); result.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func newPool(t *testing.T) (*keypool.Pool, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	return keypool.New(st, keypool.ProviderSpeech, nil), cfg
}

func TestCheckCredentials(t *testing.T) {
	pool, _ := newPool(t)
	ctx := context.Background()

	if result := CheckCredentials(ctx, pool); result.Passed || result.Detail != "none registered" {
		t.Fatalf("expected empty pool to fail, got %+v", result)
	}
	if err := pool.Register(ctx, "key-one", 100); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := pool.ReportUsage(ctx, "key-one", 100, 100, 0); err != nil {
		t.Fatalf("report usage: %v", err)
	}
	if result := CheckCredentials(ctx, pool); result.Passed || !strings.Contains(result.Detail, "exhausted") {
		t.Fatalf("expected exhausted pool to fail, got %+v", result)
	}
	if err := pool.Register(ctx, "key-two", 2500); err != nil {
		t.Fatalf("register: %v", err)
	}
	result := CheckCredentials(ctx, pool)
	if !result.Passed {
		t.Fatalf("expected pass, got %+v", result)
	}
	if result.Detail != "1 of 2 usable, 2,500 characters remaining" {
		t.Fatalf("unexpected detail: %q", result.Detail)
	}
}

func TestCheckSpeech(t *testing.T) {
	pool, _ := newPool(t)
	ctx := context.Background()
	synth := &testsupport.FakeSynthesizer{VoiceNames: []string{"Adam", "Rachel"}}

	if result := CheckSpeech(ctx, synth, pool); result.Passed || !strings.Contains(result.Detail, "no credentials") {
		t.Fatalf("expected skip without credentials, got %+v", result)
	}
	if err := pool.Register(ctx, "key-one", 100); err != nil {
		t.Fatalf("register: %v", err)
	}
	if result := CheckSpeech(ctx, synth, pool); !result.Passed || result.Detail != "reachable, 2 voices" {
		t.Fatalf("unexpected result: %+v", result)
	}

	synth.VoicesErr = services.Wrap(services.ErrCredentialExhausted, "speech", "voices", "quota", nil)
	if result := CheckSpeech(ctx, synth, pool); result.Passed || !strings.Contains(result.Detail, "quota exhausted") {
		t.Fatalf("expected quota detail, got %+v", result)
	}

	synth.VoicesErr = fmt.Errorf("voices: %w", context.DeadlineExceeded)
	if result := CheckSpeech(ctx, synth, pool); result.Passed || !strings.Contains(result.Detail, "timed out") {
		t.Fatalf("expected timeout detail, got %+v", result)
	}

	synth.VoicesErr = errors.New("voices: http 401: invalid key")
	if result := CheckSpeech(ctx, synth, pool); result.Passed || result.Detail != "voices: http 401: invalid key" {
		t.Fatalf("expected raw error detail, got %+v", result)
	}
}

func TestCheckTranslation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	pool := keypool.New(st, keypool.ProviderTranslation, nil)
	testsupport.MustInsertCredential(t, st, keypool.ProviderTranslation, "deepl-key", 0, 500000)

	result := CheckTranslation(context.Background(), &testsupport.FakeTranslator{}, pool)
	if !result.Passed || result.Detail != "reachable, 1 target languages" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestCheckSystemDeps(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	statuses := CheckSystemDeps(cfg)
	if len(statuses) != 2 {
		t.Fatalf("expected ffmpeg and ffprobe, got %d", len(statuses))
	}
	for _, status := range statuses {
		if !status.Available {
			t.Fatalf("expected stubbed %s to be available: %s", status.Name, status.Detail)
		}
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(cfg)
	if len(results) != 1 || !results[0].Passed {
		t.Fatalf("expected single passing directory check, got %+v", results)
	}

	cfg.Workflow.MinFreeSpaceMiB = 1
	results = RunAll(cfg)
	if len(results) != 2 {
		t.Fatalf("expected free space check, got %+v", results)
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}

	cfg.Paths.OutputDir = filepath.Join(t.TempDir(), "missing")
	if failed := Failed(RunAll(cfg)); len(failed) != 2 {
		t.Fatalf("expected both checks to fail for missing dir, got %+v", failed)
	}
}
