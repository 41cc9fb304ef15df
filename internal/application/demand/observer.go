package demand

import (
	"context"
	"time"

	"github.com/rezkam/demand/internal/domain"
)

// FilterEvent reports one applied filter stage as breakdown entry counts.
type FilterEvent struct {
	Stage  FilterStage
	Before int
	After  int
}

// Observer receives the structured events of the engine.
// Implementations must be safe for concurrent use.
type Observer interface {
	StrategySelected(ctx context.Context, strategy domain.AggregationStrategy)
	CacheHit(ctx context.Context, key string)
	CacheMiss(ctx context.Context, key string)
	CacheInvalidated(ctx context.Context, reason string)
	InvalidationBlocked(ctx context.Context, blocked domain.InvalidationBlocked)
	FilterApplied(ctx context.Context, event FilterEvent)
	LoadRetried(ctx context.Context, attempt int, delay time.Duration, err error)
}

// NopObserver discards every event.
type NopObserver struct{}

func (NopObserver) StrategySelected(context.Context, domain.AggregationStrategy) {}
func (NopObserver) CacheHit(context.Context, string) {}
func (NopObserver) CacheMiss(context.Context, string) {}
func (NopObserver) CacheInvalidated(context.Context, string) {}
func (NopObserver) InvalidationBlocked(context.Context, domain.InvalidationBlocked) {}
func (NopObserver) FilterApplied(context.Context, FilterEvent) {}
func (NopObserver) LoadRetried(context.Context, int, time.Duration, error) {}
