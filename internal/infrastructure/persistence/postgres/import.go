package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/rezkam/demand/internal/storage/snapshot"
)

// ImportStats counts the rows written by Import.
type ImportStats struct {
	Skills  int `json:"skills"`
	Clients int `json:"clients"`
	Staff   int `json:"staff"`
	Tasks   int `json:"tasks"`
}

// Import replaces the directory contents with snap in one transaction.
func (s *Store) Import(ctx context.Context, snap *snapshot.Snapshot) (ImportStats, error) {
	tasks, err := snap.RecurringTasks()
	if err != nil {
		return ImportStats{}, fmt.Errorf("invalid snapshot: %w", err)
	}

	var stats ImportStats
	err = s.executeInTransaction(ctx, "import_snapshot", func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `TRUNCATE recurring_tasks, staff, clients, skills`); err != nil {
			return fmt.Errorf("failed to truncate directory: %w", err)
		}

		batch := &pgx.Batch{}
		for _, skill := range snap.Skills {
			batch.Queue(`INSERT INTO skills (name) VALUES ($1) ON CONFLICT DO NOTHING`, skill)
		}
		for _, c := range snap.Clients {
			batch.Queue(`INSERT INTO clients (id, name) VALUES ($1, $2)`, c.ID, c.Name)
		}
		for _, m := range snap.Staff {
			batch.Queue(`INSERT INTO staff (id, name, role_title) VALUES ($1, $2, $3)`, m.ID, m.Name, m.RoleTitle)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert reference data: %w", err)
		}

		rows := make([][]any, 0, len(tasks))
		for _, t := range tasks {
			rows = append(rows, []any{
				t.ID, t.Name, t.ClientID, t.SkillType, t.EstimatedHours, string(t.Recurrence.Pattern),
				max(t.Recurrence.Interval, 1),
				dateToPgtype(t.Recurrence.StartDate),
				datePtrToPgtype(t.Recurrence.EndDate),
				monthsToInt32(t.Recurrence.Months),
				t.PreferredStaffID,
				t.IsActive,
			})
		}
		copied, err := tx.CopyFrom(ctx,
			pgx.Identifier{"recurring_tasks"},
			[]string{"id", "name", "client_id", "skill_type", "estimated_hours", "pattern", "interval_count",
				"start_date", "end_date", "custom_months", "preferred_staff_id", "is_active"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("failed to copy recurring tasks: %w", err)
		}

		stats = ImportStats{
			Skills:  len(snap.Skills),
			Clients: len(snap.Clients),
			Staff:   len(snap.Staff),
			Tasks:   int(copied),
		}
		return nil
	})
	if err != nil {
		return ImportStats{}, err
	}

	slog.InfoContext(ctx, "Snapshot imported",
		"skills", stats.Skills,
		"clients", stats.Clients,
		"staff", stats.Staff,
		"tasks", stats.Tasks)
	return stats, nil
}
