package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteFile creates path with size bytes of filler derived from the file name,
// so two fixtures of equal size still fingerprint differently.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()
	if size <= 0 {
		size = 1
	}
	seed := []byte(filepath.Base(path) + ";")
	data := bytes.Repeat(seed, int(size)/len(seed)+1)[:size]
	writeFixture(t, path, data, 0o644)
}

// WriteScript writes lines as a newline-terminated input script and returns path.
func WriteScript(t testing.TB, path string, lines ...string) string {
	t.Helper()
	writeFixture(t, path, []byte(strings.Join(lines, "\n")+"\n"), 0o644)
	return path
}

func writeFixture(t testing.TB, path string, data []byte, mode os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
