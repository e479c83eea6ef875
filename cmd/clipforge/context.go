package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"clipforge/internal/config"
	"clipforge/internal/keypool"
	"clipforge/internal/logging"
	"clipforge/internal/media"
	"clipforge/internal/notifications"
	"clipforge/internal/pipeline"
	"clipforge/internal/speech"
	"clipforge/internal/store"
	"clipforge/internal/translation"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger

	// providers replaces the real provider clients when set.
	providers *pipeline.Providers
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		if err := loadDotEnv(); err != nil {
			c.configErr = err
			return
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// loadDotEnv reads provider keys from .env files without overriding variables
// that are already exported.
func loadDotEnv() error {
	candidates := []string{".env"}
	if dir, err := config.ExpandPath("~/.config/clipforge"); err == nil {
		candidates = append(candidates, filepath.Join(dir, ".env"))
	}
	for _, path := range candidates {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

func (c *commandContext) loggerFor() *slog.Logger {
	c.loggerOnce.Do(func() {
		logger, err := logging.NewFromConfig(c.config)
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

// withStore opens the state database, registers env-provided keys into empty
// pools, and closes the store when fn returns.
func (c *commandContext) withStore(ctx context.Context, fn func(*store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open state database: %w", err)
	}
	defer st.Close()

	if err := c.bootstrapCredentials(ctx, st); err != nil {
		return err
	}
	return fn(st)
}

func (c *commandContext) bootstrapCredentials(ctx context.Context, st *store.Store) error {
	cfg := c.config
	logger := c.loggerFor()
	seeds := []struct {
		provider string
		secret   string
		quota    int64
	}{
		{keypool.ProviderSpeech, cfg.SpeechKey, cfg.Speech.DefaultQuota},
		{keypool.ProviderTranslation, cfg.TranslationKey, cfg.Translation.DefaultQuota},
	}
	for _, seed := range seeds {
		added, err := keypool.New(st, seed.provider, logger).Bootstrap(ctx, seed.secret, seed.quota)
		if err != nil {
			return fmt.Errorf("bootstrap %s credential: %w", seed.provider, err)
		}
		if added {
			logger.Info("credential registered from environment",
				logging.String(logging.FieldEventType, "credential_bootstrap"),
				logging.String("provider", seed.provider),
				logging.Int64("quota_total", seed.quota),
			)
		}
	}
	return nil
}

func (c *commandContext) pool(st *store.Store, provider string) *keypool.Pool {
	return keypool.New(st, provider, c.loggerFor())
}

func (c *commandContext) pipelineProviders() pipeline.Providers {
	if c.providers != nil {
		return *c.providers
	}
	cfg := c.config
	return pipeline.Providers{
		Speech: speech.NewElevenLabs(speech.Config{
			BaseURL:        cfg.Speech.BaseURL,
			Model:          cfg.Speech.Model,
			TimeoutSeconds: cfg.Speech.TimeoutSeconds,
		}),
		Translation: translation.NewDeepL(translation.Config{
			BaseURL:        cfg.Translation.BaseURL,
			TimeoutSeconds: cfg.Translation.TimeoutSeconds,
		}),
		Encoder:  media.NewFFmpeg(c.loggerFor(), media.WithBinaries(cfg.FFmpegBinary(), cfg.FFprobeBinary())),
		Notifier: notifications.NewService(cfg),
	}
}

// pipelineConfig layers config file defaults, persisted settings, and the
// flags the user changed on cmd.
func (c *commandContext) pipelineConfig(ctx context.Context, st *store.Store, cmd *cobra.Command, flags *pipelineFlags) (config.PipelineConfig, error) {
	settings, err := st.Settings(ctx)
	if err != nil {
		return config.PipelineConfig{}, err
	}
	pcfg, err := c.config.PipelineDefaults().WithSettings(settings)
	if err != nil {
		return config.PipelineConfig{}, fmt.Errorf("persisted settings: %w", err)
	}
	if flags != nil {
		if pcfg, err = flags.apply(cmd, pcfg); err != nil {
			return config.PipelineConfig{}, err
		}
	}
	return pcfg, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
