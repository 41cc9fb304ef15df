package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rezkam/demand/internal/application/warmup"
	"github.com/rezkam/demand/internal/bootstrap"
	"github.com/rezkam/demand/internal/config"
	httpserver "github.com/rezkam/demand/internal/infrastructure/http"
	"github.com/rezkam/demand/internal/infrastructure/http/handler"
	"github.com/rezkam/demand/internal/infrastructure/observability"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		return err
	}

	// Root context, cancelled on SIGTERM/SIGINT.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	providers, err := observability.Init(ctx, observability.Config{
		Enabled:     cfg.Observability.OTelEnabled,
		ServiceName: cfg.Observability.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("failed to init observability: %w", err)
	}
	defer func() {
		// Bounded so an unreachable collector cannot hang shutdown.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "Failed to shutdown telemetry providers", "error", err)
		}
	}()
	slog.SetDefault(providers.Logger)

	slog.InfoContext(ctx, "Starting demand service",
		"source", cfg.Source.Type,
		"location", describeSource(cfg.Source))

	app, err := bootstrap.New(ctx, bootstrap.Options{
		Source:        cfg.Source,
		Cache:         cfg.Cache,
		Retry:         cfg.Retry,
		Matrix:        cfg.Matrix,
		MeterProvider: providers.Meter,
	})
	if err != nil {
		return fmt.Errorf("failed to wire views: %w", err)
	}

	handles := make([]handler.ViewHandle, 0, len(app.Views()))
	for _, v := range app.Views() {
		handles = append(handles, handler.ViewHandle{
			Name:      v.Name,
			Dimension: v.Dimension,
			Loader:    v.Loader,
			Cache:     v.Cache,
		})
	}

	server := httpserver.NewAPIServer(handler.NewServer(handles...).Routes(), httpserver.ServerConfig{
		Host:              cfg.HTTP.Host,
		Port:              cfg.HTTP.Port,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		MaxHeaderBytes:    cfg.HTTP.MaxHeaderBytes,
		MaxBodyBytes:      cfg.HTTP.MaxBodyBytes,
	})

	errResult := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errResult <- fmt.Errorf("failed to serve HTTP: %w", err)
		}
	}()

	warmerCtx, stopWarmer := context.WithCancel(ctx)
	defer stopWarmer()
	warmerDone := make(chan struct{})
	if cfg.WarmupInterval > 0 {
		targets := make([]warmup.Target, 0, len(app.Views()))
		for _, v := range app.Views() {
			targets = append(targets, warmup.Target{Name: v.Name, Loader: v.Loader})
		}
		warmer := warmup.New(targets,
			warmup.WithInterval(cfg.WarmupInterval),
			warmup.WithOperationTimeout(cfg.Matrix.LoadTimeout))
		go func() {
			defer close(warmerDone)
			_ = warmer.Start(warmerCtx)
		}()
	} else {
		close(warmerDone)
	}

	var runErr error
	select {
	case <-ctx.Done():
		slog.InfoContext(ctx, "Shutting down")
	case runErr = <-errResult:
	}

	// Fresh context: ctx is already cancelled at this point.
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.WarnContext(shutdownCtx, "HTTP server shutdown incomplete", "error", err)
	}
	stopWarmer()
	select {
	case <-warmerDone:
	case <-shutdownCtx.Done():
		slog.WarnContext(shutdownCtx, "Cache warmer did not stop in time")
	}
	newCleanup(shutdownCtx, app, app)()

	return runErr
}

// describeSource returns a loggable location of the configured directory.
func describeSource(cfg config.SourceConfig) string {
	switch cfg.Type {
	case config.SourcePostgres:
		return maskPassword(cfg.DSN)
	case config.SourceSQLite:
		return cfg.SQLitePath
	case config.SourceFS:
		return cfg.SnapshotPath
	case config.SourceGCS:
		return "gs://" + cfg.GCSBucket + "/" + cfg.GCSObject
	default:
		return ""
	}
}

// maskPassword masks the password in a connection string for logging.
func maskPassword(connStr string) string {
	u, err := url.Parse(connStr)
	if err != nil {
		return "[REDACTED]"
	}
	if u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), "xxxxxx")
		}
	}
	return u.String()
}
