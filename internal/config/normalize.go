package config

import (
	"fmt"
	"os"
	"strings"

	"clipforge/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizePipeline(); err != nil {
		return err
	}
	c.normalizeSpeech()
	c.normalizeTranslation()
	c.normalizeWorkflow()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePipeline() error {
	c.Pipeline.Voice = strings.TrimSpace(c.Pipeline.Voice)
	if c.Pipeline.FrameWidth <= 0 {
		c.Pipeline.FrameWidth = defaultFrameWidth
	}
	if c.Pipeline.FrameHeight <= 0 {
		c.Pipeline.FrameHeight = defaultFrameHeight
	}

	source := strings.TrimSpace(c.Pipeline.SourceLanguage)
	if source != "" && !strings.EqualFold(source, SourceLanguageAuto) {
		normalized, err := language.Normalize(source)
		if err != nil {
			return fmt.Errorf("pipeline.source_language: %w", err)
		}
		source = normalized
	} else if source != "" {
		source = SourceLanguageAuto
	}
	c.Pipeline.SourceLanguage = source

	targets, err := normalizeLanguages(c.Pipeline.TargetLanguages)
	if err != nil {
		return fmt.Errorf("pipeline.target_languages: %w", err)
	}
	c.Pipeline.TargetLanguages = targets
	return nil
}

func (c *Config) normalizeSpeech() {
	c.Speech.BaseURL = strings.TrimRight(strings.TrimSpace(c.Speech.BaseURL), "/")
	if c.Speech.BaseURL == "" {
		c.Speech.BaseURL = defaultSpeechBaseURL
	}
	c.Speech.Model = strings.TrimSpace(c.Speech.Model)
	if c.Speech.Model == "" {
		c.Speech.Model = defaultSpeechModel
	}
	if c.Speech.TimeoutSeconds <= 0 {
		c.Speech.TimeoutSeconds = defaultSpeechTimeoutSeconds
	}
	if c.Speech.DefaultQuota <= 0 {
		c.Speech.DefaultQuota = defaultSpeechQuota
	}
	if value, ok := os.LookupEnv("CLIPFORGE_SPEECH_KEY"); ok {
		c.SpeechKey = strings.TrimSpace(value)
	} else if value, ok := os.LookupEnv("ELEVENLABS_API_KEY"); ok {
		c.SpeechKey = strings.TrimSpace(value)
	}
}

func (c *Config) normalizeTranslation() {
	c.Translation.BaseURL = strings.TrimRight(strings.TrimSpace(c.Translation.BaseURL), "/")
	if c.Translation.BaseURL == "" {
		c.Translation.BaseURL = defaultTranslationBaseURL
	}
	if c.Translation.TimeoutSeconds <= 0 {
		c.Translation.TimeoutSeconds = defaultTranslationTimeout
	}
	if c.Translation.DefaultQuota <= 0 {
		c.Translation.DefaultQuota = defaultTranslationQuota
	}
	if value, ok := os.LookupEnv("CLIPFORGE_TRANSLATION_KEY"); ok {
		c.TranslationKey = strings.TrimSpace(value)
	} else if value, ok := os.LookupEnv("DEEPL_AUTH_KEY"); ok {
		c.TranslationKey = strings.TrimSpace(value)
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.PairConcurrency <= 0 {
		c.Workflow.PairConcurrency = defaultPairConcurrency
	}
	if c.Workflow.CallTimeoutSeconds <= 0 {
		c.Workflow.CallTimeoutSeconds = defaultCallTimeoutSeconds
	}
	if c.Workflow.EncodeTimeoutSeconds <= 0 {
		c.Workflow.EncodeTimeoutSeconds = defaultEncodeTimeoutSeconds
	}
	c.Workflow.QuotaRefreshCron = strings.TrimSpace(c.Workflow.QuotaRefreshCron)
	if c.Workflow.QuotaRefreshCron == "" {
		c.Workflow.QuotaRefreshCron = defaultQuotaRefreshCron
	}
	if c.Workflow.MinFreeSpaceMiB < 0 {
		c.Workflow.MinFreeSpaceMiB = 0
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("CLIPFORGE_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func normalizeLanguages(values []string) ([]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		if strings.TrimSpace(value) == "" {
			continue
		}
		normalized, err := language.Normalize(value)
		if err != nil {
			return nil, err
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out, nil
}
