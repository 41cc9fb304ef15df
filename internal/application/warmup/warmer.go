// Package warmup keeps the matrix caches of every view populated so the
// first request after a data change does not pay for extraction and build.
package warmup

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rezkam/demand/internal/application/demand"
	"github.com/rezkam/demand/internal/domain"
)

const (
	DefaultInterval         = 5 * time.Minute
	DefaultOperationTimeout = 2 * time.Minute
)

// Loader loads one view's matrix.
type Loader interface {
	LoadWithRetry(ctx context.Context, req demand.LoadRequest) (*demand.LoadResult, error)
}

// Target is one view to keep warm.
type Target struct {
	Name   string
	Loader Loader
}

// Warmer periodically loads the unfiltered matrix of each target.
// The cache key carries the source fingerprint, so a warm cycle after a
// directory change caches the new build in place of the old one.
type Warmer struct {
	targets          []Target
	interval         time.Duration
	operationTimeout time.Duration
	wg               sync.WaitGroup
}

// Option configures a Warmer.
type Option func(*Warmer)

// WithInterval sets the time between warm cycles.
func WithInterval(d time.Duration) Option {
	return func(w *Warmer) {
		w.interval = d
	}
}

// WithOperationTimeout bounds one view load.
func WithOperationTimeout(d time.Duration) Option {
	return func(w *Warmer) {
		w.operationTimeout = d
	}
}

// New creates a Warmer for targets.
func New(targets []Target, opts ...Option) *Warmer {
	w := &Warmer{
		targets:          targets,
		interval:         DefaultInterval,
		operationTimeout: DefaultOperationTimeout,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start warms every view once, then again on each tick, until ctx is cancelled.
// On shutdown it waits for the running cycle and returns nil.
func (w *Warmer) Start(ctx context.Context) error {
	slog.InfoContext(ctx, "Cache warmer started", "interval", w.interval, "views", len(w.targets))

	w.wg.Go(func() { w.RunOnce(ctx) })

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.wg.Go(func() { w.RunOnce(ctx) })
		case <-ctx.Done():
			w.wg.Wait()
			slog.InfoContext(ctx, "Cache warmer stopped")
			return nil
		}
	}
}

// RunOnce loads every target once and returns the number of views warmed.
// Failures are logged and do not stop the cycle.
func (w *Warmer) RunOnce(ctx context.Context) int {
	warmed := 0
	for _, t := range w.targets {
		opCtx, cancel := context.WithTimeout(ctx, w.operationTimeout)
		start := time.Now()
		result, err := t.Loader.LoadWithRetry(opCtx, demand.LoadRequest{Filter: domain.FilterState{}})
		cancel()

		if err != nil {
			if errors.Is(err, context.Canceled) {
				return warmed
			}
			slog.WarnContext(ctx, "Cache warm-up failed", "view", t.Name, "error", err)
			continue
		}

		warmed++
		slog.DebugContext(ctx, "Cache warmed",
			"view", t.Name,
			"request_id", result.RequestID,
			"strategy", result.Strategy,
			"attempts", result.Attempts,
			"duration", time.Since(start))
	}
	return warmed
}
