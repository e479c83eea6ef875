package config_test

import (
	"reflect"
	"testing"

	"clipforge/internal/config"
	"clipforge/internal/translation"
)

func TestPipelineWithSettingsOverridesDefaults(t *testing.T) {
	cfg := config.Default()
	base := cfg.PipelineDefaults()

	got, err := base.WithSettings(map[string]string{
		config.SettingFPS:             "24",
		config.SettingScale:           "1.2",
		config.SettingVoice:           "Rachel",
		config.SettingVideoLength:     "10",
		config.SettingFadeDuration:    "0.5",
		config.SettingAudioPadding:    "1",
		config.SettingSourceLanguage:  "AUTO",
		config.SettingTargetLanguages: "German,fr, ",
		"unrelated":                   "ignored",
	})
	if err != nil {
		t.Fatalf("WithSettings returned error: %v", err)
	}
	if got.FramesPerSecond != 24 || got.PeakScale != 1.2 || got.Voice != "Rachel" {
		t.Fatalf("unexpected overrides: %+v", got)
	}
	if got.ClipDurationSeconds != 10 || got.FadeDurationSeconds != 0.5 || got.AudioPaddingSeconds != 1 {
		t.Fatalf("unexpected timing overrides: %+v", got)
	}
	if got.SourceLanguage != config.SourceLanguageAuto {
		t.Fatalf("expected auto source, got %q", got.SourceLanguage)
	}
	if !reflect.DeepEqual(got.TargetLanguages, []string{"de", "fr"}) {
		t.Fatalf("unexpected targets: %v", got.TargetLanguages)
	}
	if base.FramesPerSecond != 30 {
		t.Fatal("expected base config to remain unchanged")
	}
}

func TestPipelineWithSettingsReportsBadValue(t *testing.T) {
	_, err := config.PipelineConfig{}.WithSettings(map[string]string{config.SettingFPS: "fast"})
	if err == nil {
		t.Fatal("expected error for non-numeric fps")
	}
}

func TestPipelineSettingsRoundTrip(t *testing.T) {
	original := config.PipelineConfig{
		FramesPerSecond:     25,
		PeakScale:           1.75,
		Voice:               "Adam",
		ClipDurationSeconds: 12,
		FadeDurationSeconds: 0.25,
		AudioPaddingSeconds: 0.75,
		SourceLanguage:      "en",
		TargetLanguages:     []string{"de", "pt-BR"},
	}
	restored, err := config.PipelineConfig{}.WithSettings(original.Settings())
	if err != nil {
		t.Fatalf("WithSettings returned error: %v", err)
	}
	if !reflect.DeepEqual(restored, original) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", restored, original)
	}
}

func TestValidateSetting(t *testing.T) {
	if err := config.ValidateSetting(config.SettingScale, "1.1"); err != nil {
		t.Fatalf("expected valid scale, got %v", err)
	}
	if err := config.ValidateSetting("colour", "blue"); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
	if err := config.ValidateSetting(config.SettingTargetLanguages, "klingon-ish language"); err == nil {
		t.Fatal("expected bad language to be rejected")
	}
}

func TestPipelineLanguagesPutsSourceFirst(t *testing.T) {
	p := config.PipelineConfig{SourceLanguage: "en", TargetLanguages: []string{"de", "en", "fr", "de"}}
	if got := p.Languages(); !reflect.DeepEqual(got, []string{"en", "de", "fr"}) {
		t.Fatalf("unexpected languages: %v", got)
	}
}

func TestPipelineLanguagesMatchesTranslationTargets(t *testing.T) {
	p := config.PipelineConfig{SourceLanguage: "en", TargetLanguages: []string{"English", " ", "German", "de"}}
	if got := p.Languages(); !reflect.DeepEqual(got, []string{"en", "German"}) {
		t.Fatalf("unexpected languages: %v", got)
	}
	targets := translation.Targets(p.SourceLanguage, p.TargetLanguages)
	if !reflect.DeepEqual(targets, p.Languages()[1:]) {
		t.Fatalf("languages %v disagree with translation targets %v", p.Languages(), targets)
	}
}

func TestPipelineValidateRequiresVoice(t *testing.T) {
	p := config.Default().PipelineDefaults()
	p.SourceLanguage = "en"
	if err := p.Validate(); err == nil {
		t.Fatal("expected missing voice to fail validation")
	}
	p.Voice = "Adam"
	if err := p.Validate(); err != nil {
		t.Fatalf("expected valid pipeline, got %v", err)
	}
}

func TestPipelineWithTargetsClears(t *testing.T) {
	p := config.PipelineConfig{TargetLanguages: []string{"de"}}
	got, err := p.WithTargets(nil)
	if err != nil {
		t.Fatalf("WithTargets: %v", err)
	}
	if len(got.TargetLanguages) != 0 || len(p.TargetLanguages) != 1 {
		t.Fatalf("unexpected targets: got %v base %v", got.TargetLanguages, p.TargetLanguages)
	}
	got, err = p.WithTargets([]string{"French", "fr"})
	if err != nil {
		t.Fatalf("WithTargets: %v", err)
	}
	if !reflect.DeepEqual(got.TargetLanguages, []string{"fr"}) {
		t.Fatalf("unexpected targets: %v", got.TargetLanguages)
	}
}
