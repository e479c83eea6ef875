package keypool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"clipforge/internal/logging"
)

// Snapshot is a provider-reported quota figure for one credential.
type Snapshot struct {
	Used      int64
	Total     int64
	ResetTime int64
}

// UsageReader asks the provider for the current quota of secret.
type UsageReader func(ctx context.Context, secret string) (Snapshot, error)

// RefreshResult summarizes one refresh pass.
type RefreshResult struct {
	Provider  string
	Checked   int
	Refreshed int
	Failed    int
}

// Refresher pulls provider quota snapshots for credentials whose reset time has
// passed. It is the only path by which an exhausted credential becomes usable
// again.
type Refresher struct {
	pool   *Pool
	usage  UsageReader
	now    func() time.Time
	logger *slog.Logger
	group  singleflight.Group
}

// NewRefresher pairs a pool with the provider usage endpoint.
func NewRefresher(pool *Pool, usage UsageReader, logger *slog.Logger) *Refresher {
	return &Refresher{
		pool:   pool,
		usage:  usage,
		now:    time.Now,
		logger: logging.NewComponentLogger(logger, "quota-refresh").With(logging.String("provider", pool.Provider())),
	}
}

// Refresh queries usage for every credential whose ResetTime is known and in the
// past. With force, every credential is refreshed. Per-credential failures are
// logged and counted; only a failure to list credentials aborts the pass.
func (r *Refresher) Refresh(ctx context.Context, force bool) (RefreshResult, error) {
	result := RefreshResult{Provider: r.pool.Provider()}
	entries, err := r.pool.List(ctx)
	if err != nil {
		return result, err
	}

	nowUnix := r.now().Unix()
	var errs []error
	for _, entry := range entries {
		if !force && (entry.ResetTime == 0 || entry.ResetTime > nowUnix) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Checked++
		snapshot, err := r.usage(ctx, entry.Secret)
		if err != nil {
			result.Failed++
			errs = append(errs, fmt.Errorf("%s: %w", entry.Masked(), err))
			logging.WarnWithContext(r.logger, "quota refresh failed", "quota_refresh_failed",
				logging.String("key", entry.Masked()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check that the key is still valid"),
				logging.String(logging.FieldImpact, "credential keeps its previous quota snapshot"),
			)
			continue
		}
		if err := r.pool.ReportUsage(ctx, entry.Secret, snapshot.Used, snapshot.Total, snapshot.ResetTime); err != nil {
			result.Failed++
			errs = append(errs, err)
			continue
		}
		result.Refreshed++
		r.logger.Info("quota refreshed",
			logging.String(logging.FieldEventType, "quota_refreshed"),
			logging.String("key", entry.Masked()),
			logging.Int64("quota_used", snapshot.Used),
			logging.Int64("quota_total", snapshot.Total),
		)
	}
	if len(errs) > 0 && result.Refreshed == 0 {
		return result, errors.Join(errs...)
	}
	return result, nil
}

// Watch runs Refresh on the cron schedule spec until ctx is canceled. Overlapping
// ticks share one pass.
func (r *Refresher) Watch(ctx context.Context, spec string) error {
	scheduler := cron.New()
	_, err := scheduler.AddFunc(spec, func() {
		_, _, _ = r.group.Do("refresh", func() (any, error) {
			res, err := r.Refresh(ctx, false)
			if err != nil && ctx.Err() == nil {
				logging.ErrorWithContext(r.logger, "scheduled quota refresh failed", "quota_refresh_failed",
					logging.Error(err))
			}
			return res, err
		})
	})
	if err != nil {
		return fmt.Errorf("quota refresh schedule %q: %w", spec, err)
	}

	if next, err := NextRun(spec, r.now()); err == nil {
		r.logger.Info("quota refresh scheduled", logging.String("schedule", spec), logging.String("next", next.Format(time.RFC3339)))
	}
	scheduler.Start()
	<-ctx.Done()
	<-scheduler.Stop().Done()
	return nil
}

// NextRun returns the first activation of spec after ref.
func NextRun(spec string, ref time.Time) (time.Time, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron expression: %w", err)
	}
	return schedule.Next(ref), nil
}
