package deps

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for blank command: %q", results[2].Detail)
	}
}

func TestCheckBinariesResolvesPath(t *testing.T) {
	binDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(binDir, "ffprobe"), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	t.Setenv("PATH", binDir)

	results := CheckBinaries(MediaRequirements("ffmpeg", "ffprobe"))
	if results[0].Available {
		t.Fatal("expected ffmpeg to be missing")
	}
	if !results[1].Available || results[1].Command != filepath.Join(binDir, "ffprobe") {
		t.Fatalf("expected resolved ffprobe path, got %#v", results[1])
	}
	missing := Missing(results)
	if len(missing) != 1 || missing[0].Name != "FFmpeg" {
		t.Fatalf("unexpected missing list: %#v", missing)
	}
}

func TestMissingSkipsOptional(t *testing.T) {
	statuses := []Status{
		{Requirement: Requirement{Name: "a", Optional: true}},
		{Requirement: Requirement{Name: "b"}, Available: true},
	}
	if got := Missing(statuses); len(got) != 0 {
		t.Fatalf("expected no missing requirements, got %#v", got)
	}
}
