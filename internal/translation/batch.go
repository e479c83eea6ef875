package translation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"clipforge/internal/language"
	"clipforge/internal/logging"
	"clipforge/internal/services"
	"clipforge/internal/store"
)

// SourceAuto asks ResolveSource to detect the language from the text.
const SourceAuto = "auto"

// CredentialPool is the slice of keypool.Pool the batch needs.
type CredentialPool interface {
	Acquire(ctx context.Context, quotaNeeded int64) (store.CredentialEntry, error)
	ReportUsage(ctx context.Context, secret string, quotaUsed, quotaTotal, resetTime int64) error
}

// Result holds translated lines keyed by target language. It belongs to one
// run and is never persisted.
type Result map[string][]string

// Lines returns the translation for target.
func (r Result) Lines(target string) ([]string, bool) {
	lines, ok := r[target]
	return lines, ok
}

// Batch translates a whole text into every target under a single credential.
type Batch struct {
	translator Translator
	pool       CredentialPool
	logger     *slog.Logger
	timeout    time.Duration
}

// NewBatch wires a batch translator. timeout bounds each provider call.
func NewBatch(translator Translator, pool CredentialPool, logger *slog.Logger, timeout time.Duration) *Batch {
	return &Batch{
		translator: translator,
		pool:       pool,
		logger:     logging.NewComponentLogger(logger, "translation"),
		timeout:    timeout,
	}
}

// Targets drops targets equal to source and duplicates, keeping order.
func Targets(source string, targets []string) []string {
	out := make([]string, 0, len(targets))
	for _, target := range targets {
		if strings.TrimSpace(target) == "" || language.Equal(target, source) {
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

// QuotaNeeded is the character budget reserved for translating lines into
// targets languages.
func QuotaNeeded(lines []string, targets int) int64 {
	var chars int64
	for _, line := range lines {
		chars += int64(utf8.RuneCountInString(line))
	}
	return chars * int64(targets)
}

// Translate runs the translation for every target. Any failure fails the whole
// batch so no language is produced from a partial translation.
func (b *Batch) Translate(ctx context.Context, lines []string, source string, targets []string) (Result, error) {
	targets = Targets(source, targets)
	result := make(Result, len(targets))
	if len(targets) == 0 || len(lines) == 0 {
		return result, nil
	}

	need := QuotaNeeded(lines, len(targets))
	cred, err := b.pool.Acquire(ctx, need)
	if err != nil {
		return nil, err
	}
	logger := logging.WithContext(ctx, b.logger)
	logger.Info("translating batch",
		logging.String("source", source),
		logging.String("targets", strings.Join(targets, ",")),
		logging.Int64("quota_needed", need),
		logging.String("credential", cred.Masked()),
	)

	for _, target := range targets {
		var translated []string
		err := services.WithTimeout(ctx, b.timeout, "translation", "translate", func(callCtx context.Context) error {
			var callErr error
			translated, callErr = b.translator.Translate(callCtx, cred.Secret, lines, source, target)
			return callErr
		})
		if err != nil {
			return nil, classifyProviderError(err, target)
		}
		if len(translated) != len(lines) {
			return nil, services.Wrap(services.ErrSynthesis, "translation", "translate",
				fmt.Sprintf("%s: expected %d lines, got %d", target, len(lines), len(translated)), nil)
		}
		result[target] = translated
		logger.Info("translation ready", logging.String(logging.FieldLanguage, target), logging.Int("lines", len(translated)))
	}

	b.reportUsage(ctx, logger, cred.Secret)
	return result, nil
}

func (b *Batch) reportUsage(ctx context.Context, logger *slog.Logger, secret string) {
	var usage Usage
	err := services.WithTimeout(ctx, b.timeout, "translation", "usage", func(callCtx context.Context) error {
		var callErr error
		usage, callErr = b.translator.Usage(callCtx, secret)
		return callErr
	})
	if err == nil {
		err = b.pool.ReportUsage(ctx, secret, usage.Used, usage.Total, 0)
	}
	if err != nil {
		logging.WarnWithContext(logger, "translation usage not recorded", "quota_report_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run `clipforge keys refresh --force` to resync quotas"),
			logging.String(logging.FieldImpact, "local quota for the credential may be stale"),
		)
	}
}

func classifyProviderError(err error, target string) error {
	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, services.ErrTimeout),
		errors.Is(err, services.ErrCredentialExhausted),
		errors.Is(err, services.ErrValidation):
		return err
	default:
		return services.Wrap(services.ErrSynthesis, "translation", "translate", target, err)
	}
}

// ResolveSource returns the normalized source language, detecting it from
// lines when source is "auto".
func ResolveSource(source string, lines []string) (string, error) {
	source = strings.TrimSpace(source)
	if source != "" && !strings.EqualFold(source, SourceAuto) {
		normalized, err := language.Normalize(source)
		if err != nil {
			return "", services.Wrap(services.ErrValidation, "translation", "source language", "", err)
		}
		return normalized, nil
	}
	code, _, err := language.Detect(strings.Join(lines, "\n"))
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "translation", "detect source",
			"set the source language explicitly", err)
	}
	return code, nil
}
