package demand

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rezkam/demand/internal/domain"
)

// DefaultDebounce coalesces bursts of filter changes before a load starts.
const DefaultDebounce = 800 * time.Millisecond

// ErrStaleResponse is returned for a load superseded by a newer request.
var ErrStaleResponse = errors.New("stale response discarded")

// ErrViewClosed is returned by loads started after Close.
var ErrViewClosed = errors.New("view closed")

// ViewUpdate is delivered to subscribers for every load that was still the
// latest request when it finished.
type ViewUpdate struct {
	Token  uint64
	Result *LoadResult
	Err    error
}

// View is one matrix view (skill × month, client × month) with its own loader,
// cache and breaker.
//
// Every request takes a new monotonic token. A load whose token is no longer
// the latest when it completes is discarded, so a slow load can never overwrite
// a newer selection.
type View struct {
	name     string
	loader   *Loader
	debounce time.Duration
	loadCtx  func() (context.Context, context.CancelFunc)

	token atomic.Uint64

	mu           sync.Mutex
	timer        *time.Timer
	pending      domain.FilterState
	pendingToken uint64
	current      *LoadResult
	subscribers  []func(ViewUpdate)
	closed       bool
	inflight     sync.WaitGroup
}

// ViewOption configures a View.
type ViewOption func(*View)

// WithDebounce sets the debounce delay of Submit.
func WithDebounce(d time.Duration) ViewOption {
	return func(v *View) {
		v.debounce = d
	}
}

// WithLoadTimeout bounds debounced loads, which run detached from any caller context.
func WithLoadTimeout(d time.Duration) ViewOption {
	return func(v *View) {
		v.loadCtx = func() (context.Context, context.CancelFunc) {
			return context.WithTimeout(context.Background(), d)
		}
	}
}

// NewView creates a view named name over loader.
func NewView(name string, loader *Loader, opts ...ViewOption) *View {
	v := &View{
		name:     name,
		loader:   loader,
		debounce: DefaultDebounce,
		loadCtx: func() (context.Context, context.CancelFunc) {
			return context.WithCancel(context.Background())
		},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Name returns the view name.
func (v *View) Name() string {
	return v.name
}

// Subscribe registers fn for view updates. fn runs on the loading goroutine.
func (v *View) Subscribe(fn func(ViewUpdate)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.subscribers = append(v.subscribers, fn)
}

// Current returns the result of the latest successful load, nil before the first.
func (v *View) Current() *LoadResult {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Submit schedules a debounced load of f and returns its token.
// Each Submit restarts the debounce timer; only the last filter of a burst is loaded.
func (v *View) Submit(f domain.FilterState) uint64 {
	token := v.token.Add(1)

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return token
	}

	v.pending = f
	v.pendingToken = token

	if v.timer == nil {
		v.timer = time.AfterFunc(v.debounce, v.fire)
	} else {
		v.timer.Reset(v.debounce)
	}
	return token
}

func (v *View) fire() {
	v.mu.Lock()
	if v.closed || v.pendingToken != v.token.Load() {
		v.mu.Unlock()
		return
	}
	f, token := v.pending, v.pendingToken
	v.inflight.Add(1)
	v.mu.Unlock()

	defer v.inflight.Done()

	ctx, cancel := v.loadCtx()
	defer cancel()

	if _, err := v.run(ctx, token, f); err != nil && !errors.Is(err, ErrStaleResponse) {
		slog.ErrorContext(ctx, "Debounced load failed", "view", v.name, "token", token, "error", err)
	}
}

// Load loads f immediately under a new token.
// It returns ErrStaleResponse when a newer request was issued meanwhile.
func (v *View) Load(ctx context.Context, f domain.FilterState) (*LoadResult, error) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil, ErrViewClosed
	}
	v.inflight.Add(1)
	v.mu.Unlock()

	defer v.inflight.Done()

	return v.run(ctx, v.token.Add(1), f)
}

func (v *View) run(ctx context.Context, token uint64, f domain.FilterState) (*LoadResult, error) {
	result, err := v.loader.LoadWithRetry(ctx, LoadRequest{Token: token, Filter: f, TrackStrategy: true})

	if latest := v.token.Load(); token != latest {
		slog.DebugContext(ctx, "Discarding stale response", "view", v.name, "token", token, "latest", latest)
		return nil, ErrStaleResponse
	}

	v.mu.Lock()
	if err == nil {
		v.current = result
	}
	subscribers := append([]func(ViewUpdate){}, v.subscribers...)
	v.mu.Unlock()

	update := ViewUpdate{Token: token, Result: result, Err: err}
	for _, fn := range subscribers {
		fn(update)
	}

	return result, err
}

// Close stops pending debounced loads, waits for in-flight loads and resets
// the view's cache and breaker.
func (v *View) Close(ctx context.Context) error {
	v.mu.Lock()
	v.closed = true
	if v.timer != nil {
		v.timer.Stop()
	}
	v.mu.Unlock()

	v.inflight.Wait()

	return v.loader.Cache().Reset(ctx)
}
