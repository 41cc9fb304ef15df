package demand

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/rezkam/demand/internal/domain"
)

const (
	DefaultRetryBaseDelay  = 1 * time.Second
	DefaultRetryMaxDelay   = 30 * time.Second
	DefaultLoadMaxAttempts = 5
	tracerName             = "github.com/rezkam/demand/internal/application/demand"
)

// LoadRequest is one load of a view for a captured filter state.
type LoadRequest struct {
	// Token is the caller's monotonic request token, echoed in the result.
	Token  uint64
	Filter domain.FilterState
	// Window defaults to the loader's window when zero.
	Window domain.MonthWindow
	// RequestID correlates logs and spans; a UUIDv7 is generated when empty.
	RequestID string
	// TrackStrategy records the request's strategy on the cache breaker, so a
	// strategy change invalidates the cache. Only a single interactive consumer
	// sets it; independent requests leave it false and rely on the strategy
	// being part of the cache key.
	TrackStrategy bool
}

// LoadResult is the outcome of a successful load.
type LoadResult struct {
	Token            uint64                     `json:"token"`
	RequestID        string                     `json:"requestId"`
	Strategy         domain.AggregationStrategy `json:"aggregationStrategy"`
	Full             *domain.DemandMatrix       `json:"full"`
	Filtered         *domain.DemandMatrix       `json:"filtered"`
	ValidationIssues []string                   `json:"validationIssues"`
	Attempts         int                        `json:"attempts"`
}

// RetryConfig controls the backoff between failed loads.
// The delay before retry n (0-based) is min(BaseDelay * 2^n, MaxDelay).
type RetryConfig struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

// Loader fetches the directories, builds the matrix through the cache and
// filters it. Transient directory failures are retried with exponential backoff;
// a build tagged with the wrong strategy is rebuilt exactly once.
type Loader struct {
	directory Directory
	cache     *CacheController
	extractor *Extractor
	builder   MatrixBuilder
	pipeline  *FilterPipeline
	observer  Observer
	tracer    trace.Tracer
	retry     RetryConfig
	window    func() domain.MonthWindow
	sleep     func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	attempt int // consecutive failed attempts of the running load
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithBuilder sets the matrix builder.
func WithBuilder(b MatrixBuilder) LoaderOption {
	return func(l *Loader) {
		l.builder = b
	}
}

// WithExtractor sets the task extractor.
func WithExtractor(x *Extractor) LoaderOption {
	return func(l *Loader) {
		l.extractor = x
	}
}

// WithObserver sets the observer for load and filter events.
func WithObserver(o Observer) LoaderOption {
	return func(l *Loader) {
		l.observer = o
	}
}

// WithRetry sets the retry policy. Zero fields keep their defaults.
func WithRetry(cfg RetryConfig) LoaderOption {
	return func(l *Loader) {
		if cfg.BaseDelay > 0 {
			l.retry.BaseDelay = cfg.BaseDelay
		}
		if cfg.MaxDelay > 0 {
			l.retry.MaxDelay = cfg.MaxDelay
		}
		if cfg.MaxAttempts > 0 {
			l.retry.MaxAttempts = cfg.MaxAttempts
		}
	}
}

// WithWindow fixes the month window used when a request carries none.
func WithWindow(w domain.MonthWindow) LoaderOption {
	return func(l *Loader) {
		l.window = func() domain.MonthWindow { return w }
	}
}

// WithWindowFunc computes the default month window per request, so a
// long-running loader rolls over to the next month on its own.
func WithWindowFunc(fn func() domain.MonthWindow) LoaderOption {
	return func(l *Loader) {
		l.window = fn
	}
}

// WithSleep replaces the function used to wait between retries.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) LoaderOption {
	return func(l *Loader) {
		l.sleep = sleep
	}
}

// NewLoader creates a Loader reading from directory and memoizing builds in cache.
func NewLoader(directory Directory, cache *CacheController, opts ...LoaderOption) *Loader {
	l := &Loader{
		directory: directory,
		cache:     cache,
		extractor: NewExtractor(),
		builder:   NewBuilder(domain.DimensionSkill),
		observer:  NopObserver{},
		tracer:    otel.Tracer(tracerName),
		retry: RetryConfig{
			BaseDelay:   DefaultRetryBaseDelay,
			MaxDelay:    DefaultRetryMaxDelay,
			MaxAttempts: DefaultLoadMaxAttempts,
		},
		window: func() domain.MonthWindow {
			return domain.NewMonthWindow(time.Now().UTC(), domain.DefaultMonthCount)
		},
		sleep: sleepContext,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.pipeline = NewFilterPipeline(l.observer)
	return l
}

// Cache returns the controller memoizing this loader's builds.
func (l *Loader) Cache() *CacheController {
	return l.cache
}

// Attempt returns the number of consecutive failed attempts of the load in
// progress. It is zero once a load succeeds.
func (l *Loader) Attempt() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.attempt
}

func (l *Loader) setAttempt(n int) {
	l.mu.Lock()
	l.attempt = n
	l.mu.Unlock()
}

// LoadWithRetry loads the matrices for req.
//
// A *domain.LoadError is retried up to MaxAttempts with exponential backoff and
// returned with its attempt count once exhausted. A strategy mismatch surviving
// one forced rebuild fails with *domain.AggregationConsistencyError. An invalid
// filter fails immediately.
func (l *Loader) LoadWithRetry(ctx context.Context, req LoadRequest) (*LoadResult, error) {
	if err := req.Filter.Validate(); err != nil {
		return nil, err
	}
	if req.RequestID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate request id: %w", err)
		}
		req.RequestID = id.String()
	}
	if req.Window.Count == 0 {
		req.Window = l.window()
	}

	ctx, span := l.tracer.Start(ctx, "demand.LoadWithRetry", trace.WithAttributes(
		attribute.String("demand.request_id", req.RequestID),
		attribute.Int64("demand.token", int64(req.Token)),
		attribute.String("demand.staff_mode", string(req.Filter.Mode())),
	))
	defer span.End()

	delays := &backoff.ExponentialBackOff{
		InitialInterval:     l.retry.BaseDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         l.retry.MaxDelay,
	}
	delays.Reset()

	for attempt := 1; ; attempt++ {
		result, err := l.load(ctx, req)
		if err == nil {
			l.setAttempt(0)
			result.Attempts = attempt
			span.SetAttributes(attribute.Int("demand.attempts", attempt))
			return result, nil
		}

		var loadErr *domain.LoadError
		if !errors.As(err, &loadErr) {
			l.setAttempt(0)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		l.setAttempt(attempt)

		if attempt >= l.retry.MaxAttempts {
			l.setAttempt(0)
			final := &domain.LoadError{Op: loadErr.Op, Attempts: attempt, Err: loadErr.Err}
			span.RecordError(final)
			span.SetStatus(codes.Error, final.Error())
			slog.ErrorContext(ctx, "Load failed, retries exhausted",
				"request_id", req.RequestID, "op", loadErr.Op, "attempts", attempt, "error", loadErr.Err)
			return nil, final
		}

		delay := delays.NextBackOff()
		slog.WarnContext(ctx, "Load failed, retrying",
			"request_id", req.RequestID, "op", loadErr.Op, "attempt", attempt, "delay", delay, "error", loadErr.Err)
		l.observer.LoadRetried(ctx, attempt, delay, err)

		if err := l.sleep(ctx, delay); err != nil {
			l.setAttempt(0)
			return nil, err
		}
	}
}

type source struct {
	tasks   []domain.RecurringTask
	catalog Catalog
}

func (l *Loader) load(ctx context.Context, req LoadRequest) (*LoadResult, error) {
	src, err := l.fetch(ctx)
	if err != nil {
		return nil, err
	}

	expected := SelectStrategy(req.Filter)
	if req.TrackStrategy {
		if _, err := l.cache.ObserveStrategy(ctx, expected); err != nil {
			slog.WarnContext(ctx, "Strategy change invalidation failed", "request_id", req.RequestID, "error", err)
		}
	} else {
		l.observer.StrategySelected(ctx, expected)
	}

	fingerprint := Fingerprint(src.tasks, src.catalog, req.Window)
	build := func() (*BuildResult, error) {
		return l.build(src, expected, req.Window)
	}

	built, err := l.cache.GetOrBuild(ctx, expected, fingerprint, build)
	if err != nil {
		return nil, err
	}

	if built.Matrix.Strategy != expected {
		slog.WarnContext(ctx, "Built matrix strategy mismatch, rebuilding",
			"request_id", req.RequestID, "expected", expected, "actual", built.Matrix.Strategy)

		if _, err := l.cache.RequestInvalidation(ctx, "aggregation strategy mismatch"); err != nil {
			slog.WarnContext(ctx, "Mismatch invalidation failed", "request_id", req.RequestID, "error", err)
		}

		// The breaker may have kept the stale entry, so rebuild directly.
		built, err = build()
		if err != nil {
			return nil, err
		}
		if built.Matrix.Strategy != expected {
			return nil, &domain.AggregationConsistencyError{Expected: expected, Actual: built.Matrix.Strategy}
		}
		l.cache.Put(ctx, expected, fingerprint, built)
	}

	filtered, err := l.pipeline.Apply(ctx, built.Matrix, req.Filter)
	if err != nil {
		return nil, err
	}

	return &LoadResult{
		Token:            req.Token,
		RequestID:        req.RequestID,
		Strategy:         expected,
		Full:             built.Matrix,
		Filtered:         filtered,
		ValidationIssues: built.ValidationIssues,
	}, nil
}

func (l *Loader) build(src source, strategy domain.AggregationStrategy, window domain.MonthWindow) (*BuildResult, error) {
	extracted, err := l.extractor.Extract(src.tasks, src.catalog, window)
	if err != nil {
		// Bad task data does not heal on retry.
		return nil, fmt.Errorf("strict extraction failed: %w", err)
	}

	result := l.builder.Build(extracted.Entries, strategy, window)
	result.ValidationIssues = append(extracted.Issues, result.ValidationIssues...)
	return &result, nil
}

// fetch reads the four directories concurrently.
func (l *Loader) fetch(ctx context.Context) (source, error) {
	var (
		tasks   []domain.RecurringTask
		staff   []domain.Staff
		skills  []string
		clients []domain.Client
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if tasks, err = l.directory.ListRecurringTasks(gctx, TaskQuery{ActiveOnly: true}); err != nil {
			return &domain.LoadError{Op: "list_recurring_tasks", Err: err}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if staff, err = l.directory.ListPreferredStaff(gctx); err != nil {
			return &domain.LoadError{Op: "list_preferred_staff", Err: err}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if skills, err = l.directory.ListSkills(gctx); err != nil {
			return &domain.LoadError{Op: "list_skills", Err: err}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if clients, err = l.directory.ListClients(gctx); err != nil {
			return &domain.LoadError{Op: "list_clients", Err: err}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return source{}, err
	}

	return source{tasks: tasks, catalog: NewCatalog(skills, clients, staff)}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
