package main

import (
	"context"
	"io"
	"log/slog"
)

// shutdowner stops the matrix views so tests can verify cleanup order
// without wiring real infrastructure.
type shutdowner interface {
	Shutdown(context.Context) error
}

// newCleanup returns the shutdown hook: stop the views first so no debounced
// load is still reading, then close the directory and cache connections.
func newCleanup(ctx context.Context, views shutdowner, resources io.Closer) func() {
	return func() {
		if views != nil {
			if err := views.Shutdown(ctx); err != nil {
				slog.ErrorContext(ctx, "Failed to shut down views", "error", err)
			}
		}

		if resources != nil {
			if err := resources.Close(); err != nil {
				slog.ErrorContext(ctx, "Failed to close resources", "error", err)
			}
		}
	}
}
