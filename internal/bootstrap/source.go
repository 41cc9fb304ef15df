// Package bootstrap assembles directories, caches and matrix views from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rezkam/demand/internal/application/demand"
	"github.com/rezkam/demand/internal/config"
	"github.com/rezkam/demand/internal/infrastructure/persistence/postgres"
	"github.com/rezkam/demand/internal/infrastructure/persistence/sqlite"
	"github.com/rezkam/demand/internal/storage/fs"
	"github.com/rezkam/demand/internal/storage/gcs"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenDirectory opens the directory backend selected by cfg.Type.
// The returned closer releases the backend's connections.
func OpenDirectory(ctx context.Context, cfg config.SourceConfig) (demand.Directory, io.Closer, error) {
	switch cfg.Type {
	case config.SourcePostgres:
		store, err := postgres.NewStoreWithConfig(ctx, postgres.DBConfig{
			DSN:             cfg.DSN,
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.ConnMaxLifetime) * time.Second,
			ConnMaxIdleTime: time.Duration(cfg.ConnMaxIdleTime) * time.Second,
			AutoMigrate:     cfg.AutoMigrate,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres directory: %w", err)
		}
		return store, store, nil

	case config.SourceSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath, cfg.AutoMigrate)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite directory: %w", err)
		}
		return store, store, nil

	case config.SourceFS:
		store, err := fs.NewStore(cfg.SnapshotPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open snapshot directory: %w", err)
		}
		return store.Directory(), nopCloser{}, nil

	case config.SourceGCS:
		store, err := gcs.NewStore(ctx, cfg.GCSBucket, cfg.GCSObject)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open gcs directory: %w", err)
		}
		return store.Directory(), store, nil

	default:
		return nil, nil, fmt.Errorf("unsupported source type %q", cfg.Type)
	}
}
