package observability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/rezkam/demand/internal/application/demand"
	"github.com/rezkam/demand/internal/domain"
)

// Metric names emitted by the Recorder.
const (
	MetricCacheHits            = "demand.cache.hits"
	MetricCacheMisses          = "demand.cache.misses"
	MetricCacheInvalidations   = "demand.cache.invalidations"
	MetricInvalidationsBlocked = "demand.cache.invalidations_blocked"
	MetricLoadRetries          = "demand.load.retries"
	MetricFilterEntriesDropped = "demand.filter.entries_dropped"
	MetricStrategySelections   = "demand.strategy.selections"
)

const instrumentationScope = "github.com/rezkam/demand/internal/infrastructure/observability"

// Recorder turns engine events into slog records and OpenTelemetry counters.
type Recorder struct {
	view  string
	attrs metric.MeasurementOption

	hits, misses, invalidations, blocked metric.Int64Counter
	retries, dropped, strategies         metric.Int64Counter
}

var _ demand.Observer = (*Recorder)(nil)

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithView tags every record and measurement with the view name.
func WithView(name string) RecorderOption {
	return func(r *Recorder) {
		r.view = name
	}
}

// NewRecorder creates a Recorder whose instruments come from mp.
func NewRecorder(mp metric.MeterProvider, opts ...RecorderOption) (*Recorder, error) {
	r := &Recorder{}
	for _, opt := range opts {
		opt(r)
	}
	r.attrs = metric.WithAttributes(attribute.String("view", r.view))

	meter := mp.Meter(instrumentationScope)
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&r.hits, MetricCacheHits, "Matrix cache hits"},
		{&r.misses, MetricCacheMisses, "Matrix cache misses"},
		{&r.invalidations, MetricCacheInvalidations, "Applied cache invalidations"},
		{&r.blocked, MetricInvalidationsBlocked, "Invalidations dropped by the circuit breaker"},
		{&r.retries, MetricLoadRetries, "Load attempts retried after a transient failure"},
		{&r.dropped, MetricFilterEntriesDropped, "Breakdown entries removed by filter stages"},
		{&r.strategies, MetricStrategySelections, "Aggregation strategy selections"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("failed to create counter %s: %w", c.name, err)
		}
		*c.dst = counter
	}

	return r, nil
}

func (r *Recorder) StrategySelected(ctx context.Context, strategy domain.AggregationStrategy) {
	r.strategies.Add(ctx, 1, r.attrs, metric.WithAttributes(attribute.String("strategy", string(strategy))))
	slog.DebugContext(ctx, "Aggregation strategy selected", "view", r.view, "strategy", strategy)
}

func (r *Recorder) CacheHit(ctx context.Context, key string) {
	r.hits.Add(ctx, 1, r.attrs)
	slog.DebugContext(ctx, "Matrix cache hit", "view", r.view, "key", key)
}

func (r *Recorder) CacheMiss(ctx context.Context, key string) {
	r.misses.Add(ctx, 1, r.attrs)
	slog.DebugContext(ctx, "Matrix cache miss", "view", r.view, "key", key)
}

func (r *Recorder) CacheInvalidated(ctx context.Context, reason string) {
	r.invalidations.Add(ctx, 1, r.attrs)
	slog.InfoContext(ctx, "Matrix cache invalidated", "view", r.view, "reason", reason)
}

func (r *Recorder) InvalidationBlocked(ctx context.Context, blocked domain.InvalidationBlocked) {
	r.blocked.Add(ctx, 1, r.attrs)
	slog.WarnContext(ctx, "Cache invalidation blocked",
		"view", r.view,
		"reason", blocked.Reason,
		"retry_in", blocked.RetryIn)
}

func (r *Recorder) FilterApplied(ctx context.Context, event demand.FilterEvent) {
	if removed := event.Before - event.After; removed > 0 {
		r.dropped.Add(ctx, int64(removed), r.attrs, metric.WithAttributes(attribute.String("stage", string(event.Stage))))
	}
	slog.DebugContext(ctx, "Filter stage applied",
		"view", r.view,
		"stage", event.Stage,
		"before", event.Before,
		"after", event.After)
}

func (r *Recorder) LoadRetried(ctx context.Context, attempt int, delay time.Duration, err error) {
	r.retries.Add(ctx, 1, r.attrs)
	slog.WarnContext(ctx, "Matrix load failed, retrying",
		"view", r.view,
		"attempt", attempt,
		"delay", delay,
		"error", err)
}
