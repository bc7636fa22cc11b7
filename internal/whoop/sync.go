package whoop

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tyemirov/lifecrm/internal/observability"
	"github.com/tyemirov/lifecrm/internal/store"
)

const (
	MinSyncDays = 1
	MaxSyncDays = 365

	// PageSize caps each range fetch.
	PageSize = 25
)

// AccessTokenProvider yields a usable credential. TokenManager is the production implementation.
type AccessTokenProvider interface {
	EnsureValidToken(ctx context.Context) (store.Credential, error)
}

// DailyRecordWriter persists merged daily records keyed by date.
type DailyRecordWriter interface {
	UpsertDailyRecord(ctx context.Context, record store.DailyRecord) error
}

// SyncResult describes one completed pass.
type SyncResult struct {
	Upserted   int
	RangeStart time.Time
	RangeEnd   time.Time
}

// Reconciler pulls cycles and sleep for a range and upserts one record per cycle date.
// It keeps no state between calls.
type Reconciler struct {
	tokens  AccessTokenProvider
	fetcher DataFetcher
	records DailyRecordWriter
	logger  *zap.Logger
	metrics observability.MetricsRecorder
	now     func() time.Time
}

// NewReconciler wires a Reconciler. Nil logger and metrics fall back to no-ops.
func NewReconciler(tokens AccessTokenProvider, fetcher DataFetcher, records DailyRecordWriter, logger *zap.Logger, metrics observability.MetricsRecorder) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NopMetrics{}
	}
	return &Reconciler{
		tokens:  tokens,
		fetcher: fetcher,
		records: records,
		logger:  logger,
		metrics: metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ClampDays bounds a requested look-back to [MinSyncDays, MaxSyncDays].
func ClampDays(days int) int {
	if days < MinSyncDays {
		return MinSyncDays
	}
	if days > MaxSyncDays {
		return MaxSyncDays
	}
	return days
}

// SyncRange syncs the window [now - days, now].
func (reconciler *Reconciler) SyncRange(ctx context.Context, days int) (SyncResult, error) {
	days = ClampDays(days)
	rangeEnd := reconciler.now().UTC()
	rangeStart := rangeEnd.AddDate(0, 0, -days)
	result := SyncResult{RangeStart: rangeStart, RangeEnd: rangeEnd}

	credential, tokenErr := reconciler.tokens.EnsureValidToken(ctx)
	if tokenErr != nil {
		return result, tokenErr
	}

	var (
		cyclesBody, sleepBody any
		cyclesErr, sleepErr   error
		group                 errgroup.Group
	)
	// Each fetch captures its own failure so one never cancels the other.
	group.Go(func() error {
		cyclesBody, cyclesErr = reconciler.fetcher.FetchCycles(ctx, credential.AccessToken, rangeStart, rangeEnd, PageSize)
		return nil
	})
	group.Go(func() error {
		sleepBody, sleepErr = reconciler.fetcher.FetchSleep(ctx, credential.AccessToken, rangeStart, rangeEnd, PageSize)
		return nil
	})
	_ = group.Wait()

	if cyclesErr != nil && sleepErr != nil {
		reconciler.metrics.Increment("whoop.sync.upstream_unavailable")
		reconciler.logger.Error("whoop.sync.upstream_unavailable", zap.NamedError("cycles", cyclesErr), zap.NamedError("sleep", sleepErr))
		return result, &UpstreamUnavailableError{Cycles: cyclesErr, Sleep: sleepErr}
	}
	if cyclesErr != nil || sleepErr != nil {
		reconciler.metrics.Increment("whoop.sync.partial_failure")
		reconciler.logger.Warn("whoop.sync.partial_failure", zap.NamedError("cycles", cyclesErr), zap.NamedError("sleep", sleepErr))
	}

	sleepByDate := make(map[string]map[string]any)
	for _, sleep := range normalizeRecords(sleepBody) {
		if key, ok := dateKey(sleep, sleepDateFields); ok {
			sleepByDate[key] = sleep
		}
	}

	for _, cycle := range normalizeRecords(cyclesBody) {
		key, ok := dateKey(cycle, cycleDateFields)
		if !ok {
			continue
		}
		record := projectDailyRecord(key, cycle, sleepByDate[key])
		if err := reconciler.records.UpsertDailyRecord(ctx, record); err != nil {
			return result, fmt.Errorf("whoop.sync.upsert %s: %w", key, err)
		}
		result.Upserted++
	}

	reconciler.metrics.Increment("whoop.sync.success")
	reconciler.logger.Info("whoop sync completed",
		zap.Int("days", days),
		zap.Int("upserted", result.Upserted),
		zap.String("range_start", FormatInstant(rangeStart)),
		zap.String("range_end", FormatInstant(rangeEnd)),
	)
	return result, nil
}
