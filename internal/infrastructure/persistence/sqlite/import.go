package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

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
func (s *Store) Import(ctx context.Context, snap *snapshot.Snapshot) (stats ImportStats, err error) {
	tasks, err := snap.RecurringTasks()
	if err != nil {
		return ImportStats{}, fmt.Errorf("invalid snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ImportStats{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.ErrorContext(ctx, "Rollback failed", "original_error", err, "rollback_error", rbErr)
			}
		}
	}()

	for _, table := range []string{"recurring_tasks", "staff", "clients", "skills"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return ImportStats{}, fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, skill := range snap.Skills {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO skills (name) VALUES (?)`, skill); err != nil {
			return ImportStats{}, fmt.Errorf("failed to insert skill %q: %w", skill, err)
		}
	}
	for _, c := range snap.Clients {
		if _, err := tx.ExecContext(ctx, `INSERT INTO clients (id, name) VALUES (?, ?)`, c.ID, c.Name); err != nil {
			return ImportStats{}, fmt.Errorf("failed to insert client %s: %w", c.ID, err)
		}
	}
	for _, m := range snap.Staff {
		if _, err := tx.ExecContext(ctx, `INSERT INTO staff (id, name, role_title) VALUES (?, ?, ?)`, m.ID, m.Name, m.RoleTitle); err != nil {
			return ImportStats{}, fmt.Errorf("failed to insert staff %s: %w", m.ID, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO recurring_tasks (id, name, client_id, skill_type, estimated_hours, pattern, interval_count,
		                             start_date, end_date, custom_months, preferred_staff_id, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return ImportStats{}, fmt.Errorf("failed to prepare task insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range tasks {
		months, err := json.Marshal(monthNumbers(t.Recurrence.Months))
		if err != nil {
			return ImportStats{}, err
		}
		_, err = stmt.ExecContext(ctx,
			t.ID, t.Name, t.ClientID, t.SkillType, t.EstimatedHours, string(t.Recurrence.Pattern),
			max(t.Recurrence.Interval, 1),
			nullDate(t.Recurrence.StartDate),
			nullDatePtr(t.Recurrence.EndDate),
			string(months),
			t.PreferredStaffID,
			t.IsActive,
		)
		if err != nil {
			return ImportStats{}, fmt.Errorf("failed to insert task %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return ImportStats{}, fmt.Errorf("failed to commit import: %w", err)
	}

	stats = ImportStats{Skills: len(snap.Skills), Clients: len(snap.Clients), Staff: len(snap.Staff), Tasks: len(tasks)}
	slog.InfoContext(ctx, "Snapshot imported",
		"skills", stats.Skills,
		"clients", stats.Clients,
		"staff", stats.Staff,
		"tasks", stats.Tasks)
	return stats, nil
}

func monthNumbers(months []time.Month) []int {
	out := make([]int, 0, len(months))
	for _, m := range months {
		out = append(out, int(m))
	}
	return out
}

func nullDate(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(dateLayout), Valid: true}
}

func nullDatePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return nullDate(*t)
}
