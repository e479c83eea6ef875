package language

import (
	"errors"
	"fmt"
	"strings"

	"github.com/abadojack/whatlanggo"
	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ErrUndetermined is returned when text is too short or ambiguous to detect.
var ErrUndetermined = errors.New("language could not be determined")

// words maps the English names accepted in settings to their base tags. Region
// variants are written as tags ("en-GB", "pt-BR").
var words = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"russian":    "ru",
	"arabic":     "ar",
	"dutch":      "nl",
	"polish":     "pl",
	"swedish":    "sv",
	"danish":     "da",
	"norwegian":  "nb",
	"finnish":    "fi",
	"ukrainian":  "uk",
	"turkish":    "tr",
	"czech":      "cs",
	"greek":      "el",
	"hungarian":  "hu",
	"romanian":   "ro",
	"bulgarian":  "bg",
	"indonesian": "id",
}

// Normalize converts a language code, three-letter code, or English language
// name into a canonical BCP 47 tag such as "en", "en-US", or "pt-BR".
func Normalize(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", errors.New("empty language")
	}
	if mapped, ok := words[strings.ToLower(trimmed)]; ok {
		trimmed = mapped
	}
	tag, err := xlanguage.Parse(strings.ReplaceAll(trimmed, "_", "-"))
	if err != nil {
		return "", fmt.Errorf("unrecognized language %q", value)
	}
	if tag == xlanguage.Und {
		return "", fmt.Errorf("unrecognized language %q", value)
	}
	return tag.String(), nil
}

// Base returns the lowercase primary language subtag ("en" for "en-US").
func Base(code string) string {
	tag, err := xlanguage.Parse(strings.TrimSpace(code))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(code))
	}
	base, _ := tag.Base()
	return base.String()
}

// Equal reports whether two codes name the same tag after normalization.
func Equal(a, b string) bool {
	na, errA := Normalize(a)
	nb, errB := Normalize(b)
	if errA != nil || errB != nil {
		return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
	}
	return na == nb
}

// DisplayName returns an English name for a tag ("American English" for "en-US").
// Returns "Unknown" for empty input, or the uppercased code for unrecognized input.
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "Unknown"
	}
	tag, err := xlanguage.Parse(trimmed)
	if err != nil {
		return strings.ToUpper(trimmed)
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return strings.ToUpper(trimmed)
}

// Detect guesses the language of text and returns its ISO 639-1 code. Detection
// that whatlanggo marks unreliable is reported as ErrUndetermined.
func Detect(text string) (string, float64, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", 0, ErrUndetermined
	}
	info := whatlanggo.Detect(trimmed)
	if info.Lang < 0 {
		return "", 0, ErrUndetermined
	}
	code := info.Lang.Iso6391()
	if code == "" || !info.IsReliable() {
		return "", info.Confidence, ErrUndetermined
	}
	return code, info.Confidence, nil
}
