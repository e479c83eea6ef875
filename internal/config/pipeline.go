package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"clipforge/internal/language"
)

// SourceLanguageAuto asks the translation stage to detect the source language
// from the batch text.
const SourceLanguageAuto = "auto"

// Persisted settings keys. The names match the settings table written by earlier
// releases so existing databases keep working.
const (
	SettingFPS             = "fps"
	SettingScale           = "scale"
	SettingVoice           = "voice"
	SettingVideoLength     = "video_length"
	SettingFadeDuration    = "fade_duration"
	SettingAudioPadding    = "audio_padding"
	SettingSourceLanguage  = "source_language"
	SettingTargetLanguages = "selected_languages"
)

// SettingKeys lists every recognized persisted setting.
var SettingKeys = []string{
	SettingFPS,
	SettingScale,
	SettingVoice,
	SettingVideoLength,
	SettingFadeDuration,
	SettingAudioPadding,
	SettingSourceLanguage,
	SettingTargetLanguages,
}

// PipelineConfig is the explicit set of parameters every stage reads. Values are
// copied into stage fingerprints where they affect the artifact, so changing them
// only influences work fingerprinted afterwards.
type PipelineConfig struct {
	FramesPerSecond     int
	PeakScale           float64
	Voice               string
	ClipDurationSeconds int
	FadeDurationSeconds float64
	AudioPaddingSeconds float64
	SourceLanguage      string
	TargetLanguages     []string
	FrameWidth          int
	FrameHeight         int
}

// PipelineDefaults returns the pipeline parameters declared in the config file.
func (c Config) PipelineDefaults() PipelineConfig {
	targets := make([]string, len(c.Pipeline.TargetLanguages))
	copy(targets, c.Pipeline.TargetLanguages)
	return PipelineConfig{
		FramesPerSecond:     c.Pipeline.FramesPerSecond,
		PeakScale:           c.Pipeline.PeakScale,
		Voice:               c.Pipeline.Voice,
		ClipDurationSeconds: c.Pipeline.ClipDurationSeconds,
		FadeDurationSeconds: c.Pipeline.FadeDurationSeconds,
		AudioPaddingSeconds: c.Pipeline.AudioPaddingSeconds,
		SourceLanguage:      c.Pipeline.SourceLanguage,
		TargetLanguages:     targets,
		FrameWidth:          c.Pipeline.FrameWidth,
		FrameHeight:         c.Pipeline.FrameHeight,
	}
}

// WithSettings overlays persisted settings on top of p. Unknown keys are ignored;
// malformed values are reported with the offending key.
func (p PipelineConfig) WithSettings(settings map[string]string) (PipelineConfig, error) {
	out := p.clone()
	for key, raw := range settings {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		var err error
		switch key {
		case SettingFPS:
			out.FramesPerSecond, err = strconv.Atoi(value)
		case SettingScale:
			out.PeakScale, err = strconv.ParseFloat(value, 64)
		case SettingVoice:
			out.Voice = value
		case SettingVideoLength:
			out.ClipDurationSeconds, err = strconv.Atoi(value)
		case SettingFadeDuration:
			out.FadeDurationSeconds, err = strconv.ParseFloat(value, 64)
		case SettingAudioPadding:
			out.AudioPaddingSeconds, err = strconv.ParseFloat(value, 64)
		case SettingSourceLanguage:
			if strings.EqualFold(value, SourceLanguageAuto) {
				out.SourceLanguage = SourceLanguageAuto
			} else {
				out.SourceLanguage, err = normalizeLanguageValue(value)
			}
		case SettingTargetLanguages:
			out.TargetLanguages, err = normalizeLanguages(strings.Split(value, ","))
		}
		if err != nil {
			return PipelineConfig{}, fmt.Errorf("setting %s: %w", key, err)
		}
	}
	return out, nil
}

// WithTargets replaces the target languages. An empty list clears them.
func (p PipelineConfig) WithTargets(targets []string) (PipelineConfig, error) {
	normalized, err := normalizeLanguages(targets)
	if err != nil {
		return PipelineConfig{}, err
	}
	out := p.clone()
	out.TargetLanguages = normalized
	return out, nil
}

// Settings renders p as persisted settings rows.
func (p PipelineConfig) Settings() map[string]string {
	return map[string]string{
		SettingFPS:             strconv.Itoa(p.FramesPerSecond),
		SettingScale:           strconv.FormatFloat(p.PeakScale, 'f', -1, 64),
		SettingVoice:           p.Voice,
		SettingVideoLength:     strconv.Itoa(p.ClipDurationSeconds),
		SettingFadeDuration:    strconv.FormatFloat(p.FadeDurationSeconds, 'f', -1, 64),
		SettingAudioPadding:    strconv.FormatFloat(p.AudioPaddingSeconds, 'f', -1, 64),
		SettingSourceLanguage:  p.SourceLanguage,
		SettingTargetLanguages: strings.Join(p.TargetLanguages, ","),
	}
}

// ValidateSetting checks a single key/value pair before it is persisted.
func ValidateSetting(key, value string) error {
	known := false
	for _, candidate := range SettingKeys {
		if candidate == key {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown setting %q", key)
	}
	_, err := PipelineConfig{}.WithSettings(map[string]string{key: value})
	return err
}

// Validate reports whether p is complete enough to start a run.
func (p PipelineConfig) Validate() error {
	if err := p.validateParameters(); err != nil {
		return err
	}
	if strings.TrimSpace(p.Voice) == "" {
		return errors.New("voice must be set (pipeline.voice or `clipforge settings set voice NAME`)")
	}
	if strings.TrimSpace(p.SourceLanguage) == "" {
		return errors.New("source language must be set (use \"auto\" to detect it)")
	}
	return nil
}

func (p PipelineConfig) validateParameters() error {
	if p.FramesPerSecond <= 0 {
		return errors.New("frames per second must be positive")
	}
	if p.PeakScale < 1 {
		return errors.New("peak scale must be at least 1.0")
	}
	if p.ClipDurationSeconds <= 0 {
		return errors.New("clip duration must be positive")
	}
	if p.FadeDurationSeconds < 0 {
		return errors.New("fade duration must not be negative")
	}
	if 2*p.FadeDurationSeconds > float64(p.ClipDurationSeconds) {
		return errors.New("fade duration must fit twice into the clip duration")
	}
	if p.AudioPaddingSeconds < 0 {
		return errors.New("audio padding must not be negative")
	}
	if p.FrameWidth <= 0 || p.FrameHeight <= 0 {
		return errors.New("frame size must be positive")
	}
	return nil
}

// Languages returns the languages a run produces output for: the source first,
// then every distinct non-blank target that names a different language. Codes
// compare after normalization, the same way the translation stage skips them.
func (p PipelineConfig) Languages() []string {
	out := []string{p.SourceLanguage}
	for _, target := range p.TargetLanguages {
		if strings.TrimSpace(target) == "" {
			continue
		}
		duplicate := false
		for _, existing := range out {
			if language.Equal(existing, target) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			out = append(out, target)
		}
	}
	return out
}

func (p PipelineConfig) clone() PipelineConfig {
	out := p
	out.TargetLanguages = append([]string(nil), p.TargetLanguages...)
	return out
}

func normalizeLanguageValue(value string) (string, error) {
	normalized, err := normalizeLanguages([]string{value})
	if err != nil {
		return "", err
	}
	if len(normalized) == 0 {
		return "", nil
	}
	return normalized[0], nil
}
