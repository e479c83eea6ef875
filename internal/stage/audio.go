package stage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"clipforge/internal/artifactcache"
	"clipforge/internal/fingerprint"
	"clipforge/internal/logging"
	"clipforge/internal/services"
	"clipforge/internal/speech"
)

const audioExt = ".mp3"

// Audio synthesizes narration for one line of text.
type Audio struct {
	cache   *artifactcache.Cache
	pool    CredentialPool
	synth   speech.Synthesizer
	logger  *slog.Logger
	timeout time.Duration
}

// NewAudio wires the audio stage. timeout bounds each provider call.
func NewAudio(cache *artifactcache.Cache, pool CredentialPool, synth speech.Synthesizer, logger *slog.Logger, timeout time.Duration) *Audio {
	return &Audio{
		cache:   cache,
		pool:    pool,
		synth:   synth,
		logger:  logging.NewComponentLogger(logger, "audio"),
		timeout: timeout,
	}
}

// Synthesize returns the narration artifact for (line, voice), producing it
// on a cache miss. A credential is only acquired when the provider is called.
func (a *Audio) Synthesize(ctx context.Context, line, voice string) (Artifact, error) {
	if strings.TrimSpace(line) == "" {
		return Artifact{}, services.Wrap(services.ErrValidation, "audio", "synthesize", "empty line", nil)
	}
	ctx = services.WithStage(ctx, "audio")
	fp := fingerprint.Audio(line, voice)
	res, err := a.cache.LookupOrCreate(ctx, fp, audioExt, func(ctx context.Context, tmpPath string) error {
		return a.produce(ctx, line, voice, tmpPath)
	})
	if err != nil {
		return Artifact{}, err
	}
	return artifactFrom(res), nil
}

func (a *Audio) produce(ctx context.Context, line, voice, tmpPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logger := logging.WithContext(ctx, a.logger)
	need := int64(utf8.RuneCountInString(line))
	cred, err := a.pool.Acquire(ctx, need)
	if err != nil {
		return err
	}
	logger.Info("generating audio",
		logging.String("voice", voice),
		logging.Int64("quota_needed", need),
		logging.String("credential", cred.Masked()),
	)

	var audio []byte
	err = services.WithTimeout(ctx, a.timeout, "audio", "synthesize", func(callCtx context.Context) error {
		var callErr error
		audio, callErr = a.synth.Synthesize(callCtx, cred.Secret, line, voice)
		return callErr
	})
	if err != nil {
		if passthrough(err) {
			return err
		}
		return services.Wrap(services.ErrSynthesis, "audio", "synthesize", fmt.Sprintf("voice %s", voice), err)
	}
	if len(audio) == 0 {
		return services.Wrap(services.ErrSynthesis, "audio", "synthesize", "provider returned no audio", nil)
	}
	if err := os.WriteFile(tmpPath, audio, 0o644); err != nil {
		return services.Wrap(services.ErrCacheWrite, "audio", "write", tmpPath, err)
	}

	a.reportUsage(ctx, logger, cred.Secret)
	return nil
}

// reportUsage refreshes the credential counters from the provider. The audio
// is already produced, so failures only leave the local quota stale.
func (a *Audio) reportUsage(ctx context.Context, logger *slog.Logger, secret string) {
	var usage speech.Usage
	err := services.WithTimeout(ctx, a.timeout, "audio", "usage", func(callCtx context.Context) error {
		var callErr error
		usage, callErr = a.synth.Usage(callCtx, secret)
		return callErr
	})
	if err == nil {
		err = a.pool.ReportUsage(ctx, secret, usage.Used, usage.Total, usage.ResetTime)
	}
	if err != nil {
		logging.WarnWithContext(logger, "speech usage not recorded", "quota_report_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run `clipforge keys refresh --force` to resync quotas"),
			logging.String(logging.FieldImpact, "local quota for the credential may be stale"),
		)
	}
}
