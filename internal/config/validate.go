package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.PipelineDefaults().validateParameters(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.pair_concurrency":       c.Workflow.PairConcurrency,
		"workflow.call_timeout_seconds":   c.Workflow.CallTimeoutSeconds,
		"workflow.encode_timeout_seconds": c.Workflow.EncodeTimeoutSeconds,
		"speech.timeout_seconds":          c.Speech.TimeoutSeconds,
		"translation.timeout_seconds":     c.Translation.TimeoutSeconds,
		"notifications.request_timeout":   c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	if c.Workflow.PairConcurrency > maxPairConcurrency {
		return fmt.Errorf("workflow.pair_concurrency must be at most %d", maxPairConcurrency)
	}
	if _, err := cron.ParseStandard(c.Workflow.QuotaRefreshCron); err != nil {
		return fmt.Errorf("workflow.quota_refresh_cron: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
