package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/rezkam/demand/internal/application/demand"
	"github.com/rezkam/demand/internal/config"
	"github.com/rezkam/demand/internal/domain"
	"github.com/rezkam/demand/internal/infrastructure/cache/redis"
	"github.com/rezkam/demand/internal/infrastructure/observability"
)

// View names.
const (
	ViewSkills  = "skills"
	ViewClients = "clients"
)

// Options carries everything New needs.
type Options struct {
	Source config.SourceConfig
	Cache  config.CacheConfig
	Retry  config.RetryConfig
	Matrix config.MatrixConfig

	// MeterProvider backs the per-view recorders; nil uses the global provider.
	MeterProvider metric.MeterProvider
	// Now anchors the month window when no start month is pinned; nil uses time.Now.
	Now func() time.Time
	// Directory overrides the configured source.
	Directory demand.Directory
	// Redis overrides the client dialed from Cache.RedisURL.
	Redis goredis.UniversalClient
}

// ViewRuntime is one wired matrix view.
type ViewRuntime struct {
	Name      string
	Dimension domain.Dimension
	Loader    *demand.Loader
	Cache     *demand.CacheController
	View      *demand.View
}

// App owns the directory, cache backends and views of one process.
type App struct {
	Directory demand.Directory
	views     []*ViewRuntime
	closers   []io.Closer
}

// New wires a skill view and a client view over one directory. Each view has
// its own cache controller, so breaker state never crosses views.
func New(ctx context.Context, opts Options) (_ *App, err error) {
	app := &App{}
	defer func() {
		if err != nil {
			err = errors.Join(err, app.Close())
		}
	}()

	app.Directory = opts.Directory
	if app.Directory == nil {
		dir, closer, err := OpenDirectory(ctx, opts.Source)
		if err != nil {
			return nil, err
		}
		app.Directory = dir
		app.closers = append(app.closers, closer)
	}

	rdb := opts.Redis
	if opts.Cache.Backend == config.CacheRedis && rdb == nil {
		client, err := redis.NewClient(opts.Cache.RedisURL)
		if err != nil {
			return nil, err
		}
		rdb = client
		app.closers = append(app.closers, client)
	}

	mp := opts.MeterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	matrix := opts.Matrix
	window := func() domain.MonthWindow { return matrix.Window(now().UTC()) }

	for _, def := range []struct {
		name      string
		dimension domain.Dimension
	}{
		{ViewSkills, domain.DimensionSkill},
		{ViewClients, domain.DimensionClient},
	} {
		store, err := newCacheStore(opts.Cache, rdb, def.name)
		if err != nil {
			return nil, err
		}
		recorder, err := observability.NewRecorder(mp, observability.WithView(def.name))
		if err != nil {
			return nil, fmt.Errorf("failed to create recorder for view %s: %w", def.name, err)
		}

		cache := demand.NewCacheController(store,
			demand.WithCooldown(opts.Cache.Cooldown),
			demand.WithCacheObserver(recorder))
		loader := demand.NewLoader(app.Directory, cache,
			demand.WithWindowFunc(window),
			demand.WithRetry(demand.RetryConfig{
				BaseDelay:   opts.Retry.BaseDelay,
				MaxDelay:    opts.Retry.MaxDelay,
				MaxAttempts: opts.Retry.MaxAttempts,
			}),
			demand.WithObserver(recorder),
			demand.WithExtractor(demand.NewExtractor(demand.WithStrictExtraction(matrix.StrictExtraction))),
			demand.WithBuilder(demand.NewBuilder(def.dimension)))

		viewOpts := []demand.ViewOption{demand.WithDebounce(matrix.Debounce)}
		if matrix.LoadTimeout > 0 {
			viewOpts = append(viewOpts, demand.WithLoadTimeout(matrix.LoadTimeout))
		}

		app.views = append(app.views, &ViewRuntime{
			Name:      def.name,
			Dimension: def.dimension,
			Loader:    loader,
			Cache:     cache,
			View:      demand.NewView(def.name, loader, viewOpts...),
		})
	}

	slog.InfoContext(ctx, "Matrix views ready",
		"source", opts.Source.Type,
		"cache", opts.Cache.Backend,
		"months", matrix.Months)

	return app, nil
}

func newCacheStore(cfg config.CacheConfig, rdb goredis.UniversalClient, view string) (demand.CacheStore, error) {
	if cfg.Backend != config.CacheRedis {
		return demand.NewMemoryStore(), nil
	}
	store, err := redis.NewStore(rdb, cfg.Namespace, view, redis.WithTTL(cfg.TTL))
	if err != nil {
		return nil, fmt.Errorf("failed to create redis cache for view %s: %w", view, err)
	}
	return store, nil
}

// Views returns the wired views in a stable order.
func (a *App) Views() []*ViewRuntime {
	return a.views
}

// View looks up a view by name.
func (a *App) View(name string) (*ViewRuntime, bool) {
	for _, v := range a.views {
		if v.Name == name {
			return v, true
		}
	}
	return nil, false
}

// Shutdown stops every view and waits for in-flight debounced loads.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	for _, v := range a.views {
		if err := v.View.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("view %s: %w", v.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Close releases the directory and cache connections in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
