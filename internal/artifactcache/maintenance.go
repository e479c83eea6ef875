package artifactcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"

	"clipforge/internal/logging"
)

// statfsFunc allows tests to stub filesystem stats.
type statfsFunc func(path string) (total uint64, free uint64, err error)

// Stats describes current cache usage.
type Stats struct {
	Kind         Kind   `json:"kind"`
	Dir          string `json:"dir"`
	Entries      int    `json:"entries"`
	TotalBytes   int64  `json:"total_bytes"`
	TempFiles    int    `json:"temp_files"`
	FreeBytes    uint64 `json:"free_bytes"`
	TotalFSBytes uint64 `json:"total_fs_bytes"`
}

// SweepResult counts what a sweep removed.
type SweepResult struct {
	TempFiles  int   `json:"temp_files"`
	LockFiles  int   `json:"lock_files"`
	FreedBytes int64 `json:"freed_bytes"`
}

// Stats returns entry counts and filesystem free-space info.
func (c *Cache) Stats() (Stats, error) {
	s := Stats{Kind: c.kind, Dir: c.dir}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return s, fmt.Errorf("artifactcache: read %s: %w", c.dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, tempPrefix) {
			s.TempFiles++
			continue
		}
		if strings.HasPrefix(name, ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		s.Entries++
		s.TotalBytes += info.Size()
	}
	total, free, err := c.statfs(c.dir)
	if err != nil {
		return s, fmt.Errorf("artifactcache: statfs: %w", err)
	}
	s.TotalFSBytes = total
	s.FreeBytes = free
	return s, nil
}

// Sweep removes temp files left by interrupted producers and unused lock files.
// Files whose fingerprint lock is held by a live producer are left alone.
// Canonical entries are never touched.
func (c *Cache) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return result, fmt.Errorf("artifactcache: read %s: %w", c.dir, err)
	}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, tempPrefix) {
			continue
		}
		fp := tempFingerprint(name)
		if fp == "" {
			continue
		}
		lock := flock.New(filepath.Join(c.dir, lockDirName, fp+".lock"))
		locked, err := lock.TryLock()
		if err != nil || !locked {
			continue
		}
		path := filepath.Join(c.dir, name)
		if info, statErr := os.Stat(path); statErr == nil {
			if removeErr := os.Remove(path); removeErr == nil {
				result.TempFiles++
				result.FreedBytes += info.Size()
			}
		}
		_ = lock.Unlock()
	}

	locks, err := os.ReadDir(filepath.Join(c.dir, lockDirName))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return result, fmt.Errorf("artifactcache: read locks: %w", err)
	}
	for _, entry := range locks {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".lock") {
			continue
		}
		path := filepath.Join(c.dir, lockDirName, entry.Name())
		lock := flock.New(path)
		locked, err := lock.TryLock()
		if err != nil || !locked {
			continue
		}
		if os.Remove(path) == nil {
			result.LockFiles++
		}
		_ = lock.Unlock()
	}

	if result.TempFiles > 0 || result.LockFiles > 0 {
		c.logger.Info("cache swept",
			logging.String(logging.FieldEventType, "cache_swept"),
			logging.Int("temp_files", result.TempFiles),
			logging.Int("lock_files", result.LockFiles),
			logging.Int64("freed_bytes", result.FreedBytes),
		)
	}
	return result, nil
}

// tempFingerprint extracts the fingerprint from ".tmp-<fp>-<random><ext>".
func tempFingerprint(name string) string {
	rest := strings.TrimPrefix(name, tempPrefix)
	idx := strings.IndexByte(rest, '-')
	if idx <= 0 {
		return ""
	}
	return rest[:idx]
}

func realStatfs(path string) (uint64, uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	return total, free, nil
}

// Layout holds one cache per stage kind under a shared output root.
type Layout struct {
	Root  string
	Audio *Cache
	Video *Cache
	Clips *Cache
	Final *Cache
}

// NewLayout creates the four stage caches under root.
func NewLayout(root string, logger *slog.Logger) (*Layout, error) {
	layout := &Layout{Root: root}
	targets := []struct {
		kind Kind
		dst  **Cache
	}{
		{KindAudio, &layout.Audio},
		{KindVideo, &layout.Video},
		{KindClip, &layout.Clips},
		{KindFinal, &layout.Final},
	}
	for _, target := range targets {
		cache, err := New(root, target.kind, logger)
		if err != nil {
			return nil, err
		}
		*target.dst = cache
	}
	return layout, nil
}

// All returns the caches in pipeline order.
func (l *Layout) All() []*Cache {
	return []*Cache{l.Audio, l.Video, l.Clips, l.Final}
}
