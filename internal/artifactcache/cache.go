package artifactcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/singleflight"

	"clipforge/internal/fingerprint"
	"clipforge/internal/logging"
	"clipforge/internal/services"
)

// Kind names a stage subdirectory under the output root.
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "videos"
	KindClip  Kind = "clips"
	KindFinal Kind = "done"
)

const (
	lockDirName   = ".locks"
	tempPrefix    = ".tmp-"
	lockRetryWait = 50 * time.Millisecond
)

// ProduceFunc writes the artifact to tmpPath. The file already exists and is
// empty; producers overwrite it. Returning an error discards the file.
type ProduceFunc func(ctx context.Context, tmpPath string) error

// Result describes where an artifact lives and whether it was already cached.
type Result struct {
	Path string
	Hit  bool
}

// Cache maps fingerprints to immutable files for one stage kind. Entries are
// never deleted or overwritten; the user removes files to force regeneration.
type Cache struct {
	kind   Kind
	dir    string
	logger *slog.Logger
	group  singleflight.Group
	statfs statfsFunc
}

// New creates the directory for kind under root.
func New(root string, kind Kind, logger *slog.Logger) (*Cache, error) {
	dir := filepath.Join(root, string(kind))
	if err := os.MkdirAll(filepath.Join(dir, lockDirName), 0o755); err != nil {
		return nil, fmt.Errorf("artifactcache: create %s: %w", dir, err)
	}
	return &Cache{
		kind:   kind,
		dir:    dir,
		logger: logging.NewComponentLogger(logger, "cache").With(logging.String("kind", string(kind))),
		statfs: realStatfs,
	}, nil
}

// Kind returns the stage kind served by the cache.
func (c *Cache) Kind() Kind { return c.kind }

// Dir returns the directory holding canonical entries.
func (c *Cache) Dir() string { return c.dir }

// Path returns the canonical location for fp with extension ext.
func (c *Cache) Path(fp fingerprint.Fingerprint, ext string) string {
	return filepath.Join(c.dir, string(fp)+normalizeExt(ext))
}

// Exists reports whether a non-empty canonical entry is present.
func (c *Cache) Exists(fp fingerprint.Fingerprint, ext string) bool {
	info, err := os.Stat(c.Path(fp, ext))
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

// LookupOrCreate returns the entry for fp, invoking produce at most once per
// fingerprint across goroutines and processes when it is missing. A failed
// produce leaves the slot empty.
func (c *Cache) LookupOrCreate(ctx context.Context, fp fingerprint.Fingerprint, ext string, produce ProduceFunc) (Result, error) {
	if !fp.Valid() {
		return Result{}, services.Wrap(services.ErrValidation, string(c.kind), "lookup", fmt.Sprintf("invalid fingerprint %q", fp), nil)
	}
	ext = normalizeExt(ext)
	path := c.Path(fp, ext)
	logger := logging.WithContext(ctx, c.logger).With(logging.String("fingerprint", fp.Short()))

	if c.Exists(fp, ext) {
		logger.Debug("artifact cache decision", logging.Args(
			append(logging.DecisionAttrs("artifact_cache", "hit", "already exists, remove it to regenerate"),
				logging.String("path", path))...)...)
		return Result{Path: path, Hit: true}, nil
	}

	for attempt := 0; ; attempt++ {
		value, err, shared := c.group.Do(string(fp)+ext, func() (any, error) {
			return c.create(ctx, logger, fp, ext, produce)
		})
		// A shared call canceled by another caller's context is retried once under ours.
		if err != nil && shared && attempt == 0 && errors.Is(err, context.Canceled) && ctx.Err() == nil {
			continue
		}
		if err != nil {
			return Result{}, err
		}
		return value.(Result), nil
	}
}

func (c *Cache) create(ctx context.Context, logger *slog.Logger, fp fingerprint.Fingerprint, ext string, produce ProduceFunc) (Result, error) {
	path := c.Path(fp, ext)

	lock := flock.New(c.lockPath(fp))
	locked, err := lock.TryLockContext(ctx, lockRetryWait)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		return Result{}, services.Wrap(services.ErrCacheWrite, string(c.kind), "lock", fp.Short(), err)
	}
	if !locked {
		return Result{}, services.Wrap(services.ErrCacheWrite, string(c.kind), "lock", fp.Short()+": lock not acquired", nil)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	if c.Exists(fp, ext) {
		logger.Debug("artifact cache decision", logging.Args(
			append(logging.DecisionAttrs("artifact_cache", "hit", "produced by a concurrent caller"),
				logging.String("path", path))...)...)
		return Result{Path: path, Hit: true}, nil
	}

	logger.Debug("artifact cache decision", logging.Args(
		logging.DecisionAttrs("artifact_cache", "miss", "no entry for fingerprint")...)...)

	tmp, err := os.CreateTemp(c.dir, tempPrefix+string(fp)+"-*"+ext)
	if err != nil {
		return Result{}, services.Wrap(services.ErrCacheWrite, string(c.kind), "create temp", fp.Short(), err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()

	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := produce(ctx, tmpPath); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	info, err := os.Stat(tmpPath)
	if err != nil {
		return Result{}, services.Wrap(services.ErrCacheWrite, string(c.kind), "verify", "producer removed its output", err)
	}
	if info.Size() == 0 {
		return Result{}, services.Wrap(services.ErrCacheWrite, string(c.kind), "verify", "producer left an empty file", nil)
	}
	if err := syncFile(tmpPath); err != nil {
		return Result{}, services.Wrap(services.ErrCacheWrite, string(c.kind), "fsync", fp.Short(), err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return Result{}, services.Wrap(services.ErrCacheWrite, string(c.kind), "rename", fp.Short(), err)
	}
	committed = true
	_ = syncFile(c.dir)

	logger.Info("artifact stored",
		logging.String(logging.FieldEventType, "artifact_stored"),
		logging.String("path", path),
		logging.Int64("size_bytes", info.Size()),
	)
	return Result{Path: path, Hit: false}, nil
}

func (c *Cache) lockPath(fp fingerprint.Fingerprint) string {
	return filepath.Join(c.dir, lockDirName, string(fp)+".lock")
}

func syncFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

func normalizeExt(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext == "" || strings.HasPrefix(ext, ".") {
		return ext
	}
	return "." + ext
}
