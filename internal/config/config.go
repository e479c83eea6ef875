package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	StateDir  string `toml:"state_dir"`
	LogDir    string `toml:"log_dir"`
}

// Pipeline holds the defaults used to build a PipelineConfig before persisted
// settings and command-line flags are applied.
type Pipeline struct {
	FramesPerSecond     int      `toml:"frames_per_second"`
	PeakScale           float64  `toml:"peak_scale"`
	Voice               string   `toml:"voice"`
	ClipDurationSeconds int      `toml:"clip_duration_seconds"`
	FadeDurationSeconds float64  `toml:"fade_duration_seconds"`
	AudioPaddingSeconds float64  `toml:"audio_padding_seconds"`
	SourceLanguage      string   `toml:"source_language"`
	TargetLanguages     []string `toml:"target_languages"`
	FrameWidth          int      `toml:"frame_width"`
	FrameHeight         int      `toml:"frame_height"`
}

// Speech contains configuration for the text-to-speech provider.
type Speech struct {
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	DefaultQuota   int64  `toml:"default_quota"`
}

// Translation contains configuration for the translation provider.
type Translation struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	DefaultQuota   int64  `toml:"default_quota"`
}

// Workflow contains configuration for pipeline concurrency and call deadlines.
type Workflow struct {
	PairConcurrency      int    `toml:"pair_concurrency"`
	CallTimeoutSeconds   int    `toml:"call_timeout_seconds"`
	EncodeTimeoutSeconds int    `toml:"encode_timeout_seconds"`
	QuotaRefreshCron     string `toml:"quota_refresh_cron"`
	MinFreeSpaceMiB      int    `toml:"min_free_space_mib"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for clipforge.
//
// Configuration sections by subsystem:
//   - Paths: artifact root, state database, and log directories
//   - Pipeline: defaults for frame rate, zoom, voice, timing, and languages
//   - Speech: text-to-speech provider endpoint and quota defaults
//   - Translation: translation provider endpoint and quota defaults
//   - Workflow: concurrency bound and external call deadlines
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Speech        Speech        `toml:"speech"`
	Translation   Translation   `toml:"translation"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`

	// Bootstrap secrets read from the environment. They are never written to disk
	// by the config package; the CLI registers them as credentials on first use.
	SpeechKey      string `toml:"-"`
	TranslationKey string `toml:"-"`
}

// DefaultConfigPath is ~/.config/clipforge/config.toml, expanded.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/clipforge/config.toml")
}

// Load reads the config file, applies defaults and environment overrides, and
// validates the result. It returns the path it considered and whether that file
// existed; a missing file is not an error.
//
// Without an explicit path the first existing candidate wins:
// $CLIPFORGE_CONFIG, ~/.config/clipforge/config.toml, ./clipforge.toml.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()
	resolved, exists, err := locate(path)
	if err != nil {
		return nil, "", false, err
	}
	if exists {
		data, err := os.ReadFile(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("read config %s: %w", resolved, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func locate(explicit string) (string, bool, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		expanded, err := expandPath(explicit)
		if err != nil {
			return "", false, err
		}
		exists, err := isFile(expanded)
		return expanded, exists, err
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	candidates := []string{defaultPath, "clipforge.toml"}
	if env := strings.TrimSpace(os.Getenv("CLIPFORGE_CONFIG")); env != "" {
		candidates = append([]string{env}, candidates...)
	}
	for _, candidate := range candidates {
		expanded, err := expandPath(candidate)
		if err != nil {
			return "", false, err
		}
		if ok, err := isFile(expanded); err != nil {
			return "", false, err
		} else if ok {
			return expanded, true, nil
		}
	}
	return defaultPath, false, nil
}

func isFile(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("stat config: %w", err)
	case info.IsDir():
		return false, fmt.Errorf("config path %s is a directory", path)
	}
	return true, nil
}

// EnsureDirectories creates the state, log, and artifact directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the SQLite state database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "clipforge.db")
}

// FFmpegBinary returns the ffmpeg executable name.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for duration probing.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// CallTimeout bounds a single provider HTTP call made by a stage.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.Workflow.CallTimeoutSeconds) * time.Second
}

// EncodeTimeout bounds a single ffmpeg invocation made by a stage.
func (c *Config) EncodeTimeout() time.Duration {
	return time.Duration(c.Workflow.EncodeTimeoutSeconds) * time.Second
}

// MinFreeSpaceBytes is the free-space floor checked before a run starts.
func (c *Config) MinFreeSpaceBytes() uint64 {
	if c.Workflow.MinFreeSpaceMiB <= 0 {
		return 0
	}
	return uint64(c.Workflow.MinFreeSpaceMiB) * 1024 * 1024
}

// ExpandPath resolves a leading "~" and makes the path absolute.
func ExpandPath(value string) (string, error) {
	return expandPath(value)
}

func expandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = home + strings.TrimPrefix(value, "~")
	}
	absolute, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", value, err)
	}
	return absolute, nil
}

// CreateSample writes the commented sample config to path, creating parent
// directories. Existing files are overwritten.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
