package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rezkam/demand/internal/application/demand"
	"github.com/rezkam/demand/internal/domain"
)

const dateLayout = "2006-01-02"

var _ demand.Directory = (*Store)(nil)

// ListRecurringTasks implements demand.TaskDirectory.
func (s *Store) ListRecurringTasks(ctx context.Context, query demand.TaskQuery) ([]domain.RecurringTask, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, client_id, skill_type, estimated_hours, pattern, interval_count,
		       start_date, end_date, custom_months, preferred_staff_id, is_active
		FROM recurring_tasks
		WHERE (? = 0 OR is_active = 1)
		ORDER BY id`, query.ActiveOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to query recurring tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.RecurringTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recurring tasks: %w", err)
	}
	return tasks, nil
}

func scanTask(rows *sql.Rows) (domain.RecurringTask, error) {
	var (
		t         domain.RecurringTask
		pattern   string
		start     sql.NullString
		end       sql.NullString
		months    string
		preferred sql.NullString
	)
	if err := rows.Scan(&t.ID, &t.Name, &t.ClientID, &t.SkillType, &t.EstimatedHours, &pattern,
		&t.Recurrence.Interval, &start, &end, &months, &preferred, &t.IsActive); err != nil {
		return domain.RecurringTask{}, fmt.Errorf("failed to scan recurring task: %w", err)
	}

	t.Recurrence.Pattern = domain.NormalizeRecurrencePattern(pattern)
	if start.Valid {
		d, err := time.Parse(dateLayout, start.String)
		if err != nil {
			return domain.RecurringTask{}, fmt.Errorf("task %s: invalid start_date: %w", t.ID, err)
		}
		t.Recurrence.StartDate = d
	}
	if end.Valid {
		d, err := time.Parse(dateLayout, end.String)
		if err != nil {
			return domain.RecurringTask{}, fmt.Errorf("task %s: invalid end_date: %w", t.ID, err)
		}
		t.Recurrence.EndDate = &d
	}
	var ms []time.Month
	if err := json.Unmarshal([]byte(months), &ms); err != nil {
		return domain.RecurringTask{}, fmt.Errorf("task %s: invalid custom_months: %w", t.ID, err)
	}
	if len(ms) > 0 {
		t.Recurrence.Months = ms
	}
	if preferred.Valid {
		id := preferred.String
		t.PreferredStaffID = &id
	}
	return t, nil
}

// ListPreferredStaff implements demand.StaffDirectory.
func (s *Store) ListPreferredStaff(ctx context.Context) ([]domain.Staff, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, role_title FROM staff ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query staff: %w", err)
	}
	defer rows.Close()

	var staff []domain.Staff
	for rows.Next() {
		var m domain.Staff
		if err := rows.Scan(&m.ID, &m.Name, &m.RoleTitle); err != nil {
			return nil, fmt.Errorf("failed to scan staff: %w", err)
		}
		staff = append(staff, m)
	}
	return staff, rows.Err()
}

// ListSkills implements demand.SkillDirectory.
func (s *Store) ListSkills(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM skills ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query skills: %w", err)
	}
	defer rows.Close()

	var skills []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan skill: %w", err)
		}
		skills = append(skills, name)
	}
	return skills, rows.Err()
}

// ListClients implements demand.ClientDirectory.
func (s *Store) ListClients(ctx context.Context) ([]domain.Client, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM clients ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}
	defer rows.Close()

	var clients []domain.Client
	for rows.Next() {
		var c domain.Client
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}
