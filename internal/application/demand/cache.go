package demand

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rezkam/demand/internal/domain"
)

// DefaultInvalidationCooldown is the minimum spacing between two cache invalidations.
const DefaultInvalidationCooldown = time.Second

// CacheStore holds built matrices by cache key.
// Stored results are shared and must not be modified by callers.
type CacheStore interface {
	// Get returns the result stored under key. The bool is false on a miss.
	Get(ctx context.Context, key string) (*BuildResult, bool, error)
	Put(ctx context.Context, key string, result *BuildResult) error
	// Clear drops every entry of this store.
	Clear(ctx context.Context) error
}

// CacheKey derives the cache key of a build.
func CacheKey(strategy domain.AggregationStrategy, fingerprint string) string {
	return string(strategy) + "|" + fingerprint
}

// BreakerState is the invalidation state of a CacheController.
type BreakerState string

const (
	BreakerIdle         BreakerState = "idle"
	BreakerInvalidating BreakerState = "invalidating"
)

// InvalidationOutcome reports what happened to an invalidation request.
// Exactly one of Applied or Blocked is set.
type InvalidationOutcome struct {
	Applied bool
	Blocked *domain.InvalidationBlocked
}

// CacheController memoizes matrix builds and rate-limits invalidation.
//
// At most one invalidation runs per cooldown window. Requests arriving inside
// the window, or while an invalidation is running, are dropped and reported as
// InvalidationBlocked; cached entries stay in use until the cooldown elapses.
// Every view owns its own controller, so breakers never interfere.
type CacheController struct {
	store    CacheStore
	observer Observer
	cooldown time.Duration
	now      func() time.Time

	mu               sync.Mutex
	state            BreakerState
	lastInvalidation time.Time
	lastStrategy     domain.AggregationStrategy
}

// CacheOption configures a CacheController.
type CacheOption func(*CacheController)

// WithCooldown sets the invalidation cooldown window.
func WithCooldown(d time.Duration) CacheOption {
	return func(c *CacheController) {
		c.cooldown = d
	}
}

// WithClock replaces the time source used by the breaker.
func WithClock(now func() time.Time) CacheOption {
	return func(c *CacheController) {
		c.now = now
	}
}

// WithCacheObserver sets the observer receiving cache events.
func WithCacheObserver(o Observer) CacheOption {
	return func(c *CacheController) {
		c.observer = o
	}
}

// NewCacheController creates a controller over store.
func NewCacheController(store CacheStore, opts ...CacheOption) *CacheController {
	c := &CacheController{
		store:    store,
		observer: NopObserver{},
		cooldown: DefaultInvalidationCooldown,
		now:      func() time.Time { return time.Now().UTC() },
		state:    BreakerIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrBuild returns the cached result for (strategy, fingerprint), calling build on a miss.
// Store failures degrade to a rebuild; they are logged, never returned.
func (c *CacheController) GetOrBuild(ctx context.Context, strategy domain.AggregationStrategy, fingerprint string, build func() (*BuildResult, error)) (*BuildResult, error) {
	key := CacheKey(strategy, fingerprint)

	cached, ok, err := c.store.Get(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "Cache lookup failed, rebuilding", "key", key, "error", err)
	}
	if ok && cached != nil {
		c.observer.CacheHit(ctx, key)
		return cached, nil
	}
	c.observer.CacheMiss(ctx, key)

	result, err := build()
	if err != nil {
		return nil, err
	}

	c.Put(ctx, strategy, fingerprint, result)
	return result, nil
}

// Put stores result under (strategy, fingerprint), replacing any previous entry.
func (c *CacheController) Put(ctx context.Context, strategy domain.AggregationStrategy, fingerprint string, result *BuildResult) {
	key := CacheKey(strategy, fingerprint)
	if err := c.store.Put(ctx, key, result); err != nil {
		slog.WarnContext(ctx, "Cache store failed", "key", key, "error", err)
	}
}

// ObserveStrategy records strategy as the last observed one. A change from a
// previously observed strategy requests an invalidation.
func (c *CacheController) ObserveStrategy(ctx context.Context, strategy domain.AggregationStrategy) (InvalidationOutcome, error) {
	c.mu.Lock()
	previous := c.lastStrategy
	c.lastStrategy = strategy
	c.mu.Unlock()

	c.observer.StrategySelected(ctx, strategy)

	if previous == "" || previous == strategy {
		return InvalidationOutcome{}, nil
	}
	return c.RequestInvalidation(ctx, fmt.Sprintf("strategy changed from %s to %s", previous, strategy))
}

// RequestInvalidation clears the store unless the breaker blocks it.
// A blocked request is dropped, not queued.
func (c *CacheController) RequestInvalidation(ctx context.Context, reason string) (InvalidationOutcome, error) {
	c.mu.Lock()
	now := c.now()

	if c.state == BreakerInvalidating {
		c.mu.Unlock()
		return c.blocked(ctx, domain.InvalidationBlocked{Reason: "invalidation in progress"}), nil
	}
	if !c.lastInvalidation.IsZero() {
		if elapsed := now.Sub(c.lastInvalidation); elapsed < c.cooldown {
			c.mu.Unlock()
			return c.blocked(ctx, domain.InvalidationBlocked{Reason: "cooldown active", RetryIn: c.cooldown - elapsed}), nil
		}
	}

	c.state = BreakerInvalidating
	c.lastInvalidation = now
	c.mu.Unlock()

	err := c.store.Clear(ctx)

	c.mu.Lock()
	c.state = BreakerIdle
	c.mu.Unlock()

	if err != nil {
		return InvalidationOutcome{}, fmt.Errorf("failed to invalidate cache: %w", err)
	}

	c.observer.CacheInvalidated(ctx, reason)
	return InvalidationOutcome{Applied: true}, nil
}

func (c *CacheController) blocked(ctx context.Context, b domain.InvalidationBlocked) InvalidationOutcome {
	c.observer.InvalidationBlocked(ctx, b)
	return InvalidationOutcome{Blocked: &b}
}

// State returns the current breaker state.
func (c *CacheController) State() BreakerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastStrategy returns the last observed strategy, empty before the first load.
func (c *CacheController) LastStrategy() domain.AggregationStrategy {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastStrategy
}

// Reset forgets the observed strategy and breaker history and clears the store.
// Call it when the owning view is torn down.
func (c *CacheController) Reset(ctx context.Context) error {
	c.mu.Lock()
	c.lastStrategy = ""
	c.lastInvalidation = time.Time{}
	c.state = BreakerIdle
	c.mu.Unlock()

	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to reset cache: %w", err)
	}
	return nil
}

// MemoryStore is an in-process CacheStore.
//
// It keeps one entry per strategy: storing a build for a new fingerprint drops
// the entry built from the previous source state.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*BuildResult
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*BuildResult)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*BuildResult, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.entries[key]
	return r, ok, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, result *BuildResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix, _, _ := strings.Cut(key, "|")
	for existing := range s.entries {
		if p, _, _ := strings.Cut(existing, "|"); p == prefix && existing != key {
			delete(s.entries, existing)
		}
	}
	s.entries[key] = result
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.entries)
	return nil
}

// Len returns the number of cached entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
