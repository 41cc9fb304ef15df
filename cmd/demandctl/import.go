package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rezkam/demand/internal/config"
	"github.com/rezkam/demand/internal/infrastructure/persistence/postgres"
	"github.com/rezkam/demand/internal/infrastructure/persistence/sqlite"
	"github.com/rezkam/demand/internal/storage/fs"
	"github.com/rezkam/demand/internal/storage/gcs"
	"github.com/rezkam/demand/internal/storage/snapshot"
)

// importStats counts the records written by an import.
type importStats struct {
	Source  string `json:"source"`
	Skills  int    `json:"skills"`
	Clients int    `json:"clients"`
	Staff   int    `json:"staff"`
	Tasks   int    `json:"tasks"`
}

func newImportCmd(c *cli) *cobra.Command {
	var object string

	cmd := &cobra.Command{
		Use:   "import <snapshot.json>",
		Short: "Replace the configured directory with a snapshot file",
		Long: `Replace the contents of the configured directory (DEMAND_SOURCE_TYPE) with a
JSON snapshot. Database sources are rewritten in one transaction; fs and gcs
sources get the snapshot file written in place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open snapshot: %w", err)
			}
			defer f.Close()

			snap, err := snapshot.Decode(f)
			if err != nil {
				return err
			}
			// Reject malformed tasks before anything is written.
			if _, err := snap.RecurringTasks(); err != nil {
				return err
			}

			if object == "" {
				object = filepath.Base(args[0])
			}
			stats, err := importSnapshot(cmd, c.cfg.Source, snap, object)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		},
	}

	cmd.Flags().StringVar(&object, "object", "", "Object name for the gcs source (default: the file name)")
	return cmd
}

func importSnapshot(cmd *cobra.Command, cfg config.SourceConfig, snap *snapshot.Snapshot, object string) (importStats, error) {
	ctx := cmd.Context()

	switch cfg.Type {
	case config.SourceSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath, true)
		if err != nil {
			return importStats{}, err
		}
		defer store.Close()

		s, err := store.Import(ctx, snap)
		if err != nil {
			return importStats{}, err
		}
		return importStats{Source: cfg.Type, Skills: s.Skills, Clients: s.Clients, Staff: s.Staff, Tasks: s.Tasks}, nil

	case config.SourcePostgres:
		store, err := postgres.NewStoreWithConfig(ctx, postgres.DBConfig{DSN: cfg.DSN, AutoMigrate: true})
		if err != nil {
			return importStats{}, err
		}
		defer store.Close()

		s, err := store.Import(ctx, snap)
		if err != nil {
			return importStats{}, err
		}
		return importStats{Source: cfg.Type, Skills: s.Skills, Clients: s.Clients, Staff: s.Staff, Tasks: s.Tasks}, nil

	case config.SourceFS:
		store, err := fs.NewStore(cfg.SnapshotPath)
		if err != nil {
			return importStats{}, err
		}
		if err := store.Save(ctx, snap); err != nil {
			return importStats{}, err
		}
		return snapshotStats(cfg.Type, snap), nil

	case config.SourceGCS:
		store, err := gcs.NewStore(ctx, cfg.GCSBucket, cfg.GCSObject)
		if err != nil {
			return importStats{}, err
		}
		defer store.Close()

		if err := store.Save(ctx, object, snap); err != nil {
			return importStats{}, err
		}
		return snapshotStats(cfg.Type, snap), nil

	default:
		return importStats{}, fmt.Errorf("unsupported source type %q", cfg.Type)
	}
}

func snapshotStats(source string, snap *snapshot.Snapshot) importStats {
	return importStats{
		Source:  source,
		Skills:  len(snap.Skills),
		Clients: len(snap.Clients),
		Staff:   len(snap.Staff),
		Tasks:   len(snap.Tasks),
	}
}
