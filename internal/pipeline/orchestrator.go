package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/notifications"
	"clipforge/internal/services"
	"clipforge/internal/stage"
	"clipforge/internal/store"
	"clipforge/internal/translation"
)

// RunStore records per-language run history.
type RunStore interface {
	NewRun(ctx context.Context, run store.RunRecord) error
	FinishRun(ctx context.Context, id string, status store.RunStatus, artifactPath, errorMessage, failureKind string) error
}

// Options wires the orchestrator. Translator, Runs and Notifier are optional.
type Options struct {
	Audio       *stage.Audio
	Video       *stage.Video
	Merge       *stage.Merge
	Concat      *stage.Concat
	Translator  *translation.Batch
	Runs        RunStore
	Notifier    notifications.Service
	Logger      *slog.Logger
	Concurrency int
	NewID       func() string
}

// Orchestrator runs a batch through every stage for each language.
type Orchestrator struct {
	audio       *stage.Audio
	video       *stage.Video
	merge       *stage.Merge
	concat      *stage.Concat
	translator  *translation.Batch
	runs        RunStore
	notifier    notifications.Service
	logger      *slog.Logger
	concurrency int
	newID       func() string
}

// New builds an orchestrator from opts.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		audio:       opts.Audio,
		video:       opts.Video,
		merge:       opts.Merge,
		concat:      opts.Concat,
		translator:  opts.Translator,
		runs:        opts.Runs,
		notifier:    opts.Notifier,
		logger:      logging.NewComponentLogger(opts.Logger, "pipeline"),
		concurrency: opts.Concurrency,
		newID:       opts.NewID,
	}
	if o.concurrency <= 0 {
		o.concurrency = 1
	}
	if o.newID == nil {
		o.newID = func() string { return uuid.NewString() }
	}
	return o
}

// Run produces a final video for the source language and every target. A
// failing language does not stop the others; cancellation of ctx does.
func (o *Orchestrator) Run(ctx context.Context, batch Batch, cfg config.PipelineConfig) Report {
	started := time.Now()
	report := Report{BatchID: o.newID()}
	ctx = services.WithRunID(ctx, report.BatchID)
	logger := logging.WithContext(ctx, o.logger)
	lines := batch.Lines()

	source, err := translation.ResolveSource(cfg.SourceLanguage, lines)
	if err != nil {
		for _, lang := range cfg.Languages() {
			report.Languages = append(report.Languages, o.failLanguage(ctx, report.BatchID, lang, len(batch.Units), err))
		}
		report.Duration = time.Since(started)
		return report
	}
	cfg.SourceLanguage = source
	report.Source = source
	languages := cfg.Languages()
	targets := languages[1:]

	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("source", source),
		logging.String("targets", strings.Join(targets, ",")),
		logging.Int("units", len(batch.Units)),
		logging.Int("pair_concurrency", o.concurrency),
	)

	translated, translateErr := o.translate(ctx, lines, source, targets)
	if translateErr != nil {
		logging.ErrorWithContext(logger, "translation failed", "translation_failed",
			logging.Error(translateErr),
			logging.String(logging.FieldErrorHint, services.Remedy(services.Classify(translateErr))),
		)
	}

	for _, lang := range languages {
		texts := lines
		if lang != source {
			if translateErr != nil {
				report.Languages = append(report.Languages, o.failLanguage(ctx, report.BatchID, lang, len(batch.Units), translateErr))
				continue
			}
			texts = translated[lang]
		}
		report.Languages = append(report.Languages, o.runLanguage(ctx, report.BatchID, lang, batch, texts, cfg))
	}

	report.Duration = time.Since(started)
	logger.Info("run finished",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("succeeded", report.Succeeded()),
		logging.Int("failed", report.FailedCount()),
		logging.Duration("duration", report.Duration),
	)
	o.notify(ctx, "run summary", func(n notifications.Service) error {
		return n.NotifyRunCompleted(ctx, report.Succeeded(), report.FailedCount(), report.Duration)
	})
	return report
}

func (o *Orchestrator) translate(ctx context.Context, lines []string, source string, targets []string) (translation.Result, error) {
	if len(targets) == 0 {
		return translation.Result{}, nil
	}
	if o.translator == nil {
		return nil, services.Wrap(services.ErrConfiguration, "translation", "translate", "no translation provider configured", nil)
	}
	return o.translator.Translate(ctx, lines, source, targets)
}

func (o *Orchestrator) runLanguage(ctx context.Context, batchID, lang string, batch Batch, texts []string, cfg config.PipelineConfig) LanguageResult {
	started := time.Now()
	result := LanguageResult{Language: lang, RunID: o.newID()}
	ctx = services.WithLanguage(ctx, lang)
	logger := logging.WithContext(ctx, o.logger)
	o.recordStart(ctx, logger, result.RunID, batchID, lang, len(batch.Units))

	logger.Info("language started",
		logging.String(logging.FieldEventType, "language_start"),
		logging.String("run_id", result.RunID),
	)

	clips, err := o.produceClips(ctx, batch, texts, cfg)
	if err == nil {
		result.Clips = clips
		result.Final, err = o.concat.Concatenate(ctx, clips, cfg.FadeDurationSeconds, cfg.ClipDurationSeconds)
	}
	result.Duration = time.Since(started)
	if err != nil {
		return o.finishFailed(ctx, logger, result, err)
	}

	hits := 0
	for _, clip := range result.Clips {
		if clip.Hit {
			hits++
		}
	}
	logger.Info("language completed",
		logging.String(logging.FieldEventType, "language_complete"),
		logging.String("final", result.Final.Path),
		logging.Int("clips", len(result.Clips)),
		logging.Int("cached_clips", hits),
		logging.Duration("duration", result.Duration),
	)
	o.recordFinish(ctx, logger, result)
	o.notify(ctx, "language completed", func(n notifications.Service) error {
		return n.NotifyLanguageCompleted(ctx, lang, result.Final.Path, len(result.Clips))
	})
	return result
}

// produceClips runs every unit, at most concurrency at a time, and returns the
// clips in unit order. The first failure cancels the remaining units.
func (o *Orchestrator) produceClips(ctx context.Context, batch Batch, texts []string, cfg config.PipelineConfig) ([]stage.Artifact, error) {
	if len(texts) != len(batch.Units) {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "produce clips",
			fmt.Sprintf("have %d lines for %d units", len(texts), len(batch.Units)), nil)
	}
	clips := make([]stage.Artifact, len(batch.Units))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, unit := range batch.Units {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			clip, err := o.produceClip(services.WithUnit(gctx, unit.Index), unit, texts[i], cfg)
			if err != nil {
				return fmt.Errorf("line %d: %w", unit.Index, err)
			}
			clips[i] = clip
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return clips, nil
}

func (o *Orchestrator) produceClip(ctx context.Context, unit Unit, text string, cfg config.PipelineConfig) (stage.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return stage.Artifact{}, err
	}
	var audio, video stage.Artifact
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		audio, err = o.audio.Synthesize(gctx, text, cfg.Voice)
		return err
	})
	g.Go(func() error {
		var err error
		video, err = o.video.Synthesize(gctx, unit.ImagePath, cfg)
		return err
	})
	if err := g.Wait(); err != nil {
		return stage.Artifact{}, err
	}
	return o.merge.Merge(ctx, audio, video, cfg.AudioPaddingSeconds)
}

func (o *Orchestrator) failLanguage(ctx context.Context, batchID, lang string, units int, err error) LanguageResult {
	result := LanguageResult{Language: lang, RunID: o.newID()}
	ctx = services.WithLanguage(ctx, lang)
	logger := logging.WithContext(ctx, o.logger)
	o.recordStart(ctx, logger, result.RunID, batchID, lang, units)
	return o.finishFailed(ctx, logger, result, err)
}

func (o *Orchestrator) finishFailed(ctx context.Context, logger *slog.Logger, result LanguageResult, err error) LanguageResult {
	result.Err = err
	result.Kind = services.Classify(err)
	result.Final = stage.Artifact{}
	remedy := services.Remedy(result.Kind)
	logging.ErrorWithContext(logger, "language failed", "language_failed",
		logging.Error(err),
		logging.String("failure_kind", string(result.Kind)),
		logging.String(logging.FieldErrorHint, remedy),
	)
	o.recordFinish(ctx, logger, result)
	o.notify(ctx, "language failed", func(n notifications.Service) error {
		return n.NotifyLanguageFailed(ctx, result.Language, err, remedy)
	})
	return result
}

func (o *Orchestrator) recordStart(ctx context.Context, logger *slog.Logger, runID, batchID, lang string, units int) {
	if o.runs == nil {
		return
	}
	err := o.runs.NewRun(context.WithoutCancel(ctx), store.RunRecord{
		ID:       runID,
		BatchID:  batchID,
		Language: lang,
		Units:    units,
	})
	if err != nil {
		logging.WarnWithContext(logger, "run history not recorded", "run_record_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the state database"),
			logging.String(logging.FieldImpact, "this run will be missing from `clipforge history`"),
		)
	}
}

func (o *Orchestrator) recordFinish(ctx context.Context, logger *slog.Logger, result LanguageResult) {
	if o.runs == nil {
		return
	}
	status := store.RunCompleted
	var message string
	if result.Err != nil {
		status = store.RunFailed
		message = result.Err.Error()
	}
	// History is written even when the run was canceled.
	err := o.runs.FinishRun(context.WithoutCancel(ctx), result.RunID, status, result.Final.Path, message, string(result.Kind))
	if err != nil {
		logging.WarnWithContext(logger, "run outcome not recorded", "run_record_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the state database"),
			logging.String(logging.FieldImpact, "history shows this run as still running"),
		)
	}
}

func (o *Orchestrator) notify(ctx context.Context, label string, send func(notifications.Service) error) {
	if o.notifier == nil {
		return
	}
	if err := send(o.notifier); err != nil {
		if errors.Is(err, context.Canceled) {
			o.logger.Debug("run canceled, could not send notification", logging.String("notification", label))
			return
		}
		o.logger.Debug("notification failed", logging.String("notification", label), logging.Error(err))
	}
}
