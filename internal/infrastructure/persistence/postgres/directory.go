package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/rezkam/demand/internal/application/demand"
	"github.com/rezkam/demand/internal/domain"
)

const listTasksQuery = `
SELECT id, name, client_id, skill_type, estimated_hours, pattern, interval_count,
       start_date, end_date, custom_months, preferred_staff_id, is_active
FROM recurring_tasks
WHERE ($1::boolean IS FALSE OR is_active)
ORDER BY id`

// ListRecurringTasks implements demand.TaskDirectory.
func (s *Store) ListRecurringTasks(ctx context.Context, query demand.TaskQuery) ([]domain.RecurringTask, error) {
	rows, err := s.pool.Query(ctx, listTasksQuery, query.ActiveOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to query recurring tasks: %w", err)
	}

	tasks, err := pgx.CollectRows(rows, scanTask)
	if err != nil {
		return nil, fmt.Errorf("failed to scan recurring tasks: %w", err)
	}
	return tasks, nil
}

func scanTask(row pgx.CollectableRow) (domain.RecurringTask, error) {
	var (
		t         domain.RecurringTask
		pattern   string
		start     pgtype.Date
		end       pgtype.Date
		months    []int32
		preferred pgtype.Text
	)
	err := row.Scan(&t.ID, &t.Name, &t.ClientID, &t.SkillType, &t.EstimatedHours, &pattern,
		&t.Recurrence.Interval, &start, &end, &months, &preferred, &t.IsActive)
	if err != nil {
		return domain.RecurringTask{}, err
	}

	t.Recurrence.Pattern = domain.NormalizeRecurrencePattern(pattern)
	t.Recurrence.StartDate = pgtypeToDate(start)
	t.Recurrence.EndDate = pgtypeToDatePtr(end)
	t.Recurrence.Months = int32ToMonths(months)
	t.PreferredStaffID = pgtypeToStringPtr(preferred)
	return t, nil
}

// ListPreferredStaff implements demand.StaffDirectory.
func (s *Store) ListPreferredStaff(ctx context.Context) ([]domain.Staff, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, role_title FROM staff ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query staff: %w", err)
	}

	staff, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Staff, error) {
		var m domain.Staff
		err := row.Scan(&m.ID, &m.Name, &m.RoleTitle)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan staff: %w", err)
	}
	return staff, nil
}

// ListSkills implements demand.SkillDirectory.
func (s *Store) ListSkills(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT name FROM skills ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query skills: %w", err)
	}

	skills, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan skills: %w", err)
	}
	return skills, nil
}

// ListClients implements demand.ClientDirectory.
func (s *Store) ListClients(ctx context.Context) ([]domain.Client, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM clients ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}

	clients, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Client, error) {
		var c domain.Client
		err := row.Scan(&c.ID, &c.Name)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan clients: %w", err)
	}
	return clients, nil
}
