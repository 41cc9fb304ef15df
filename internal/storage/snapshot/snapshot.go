// Package snapshot defines the JSON document that carries a complete
// task/staff/skill/client directory, and a read-only directory over it.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rezkam/demand/internal/domain"
)

// DateLayout is the layout of recurrence dates in a snapshot.
const DateLayout = "2006-01-02"

// ErrEmptySnapshot is returned when a document decodes to nothing.
var ErrEmptySnapshot = errors.New("snapshot is empty")

// Snapshot is the serialized form of a directory.
type Snapshot struct {
	Skills  []string `json:"skills"`
	Clients []Client `json:"clients"`
	Staff   []Staff  `json:"staff"`
	Tasks   []Task   `json:"tasks"`
}

// Client is a client record.
type Client struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Staff is a preferred-staff record.
type Staff struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	RoleTitle string `json:"roleTitle,omitempty"`
}

// Task is a recurring task record.
type Task struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	ClientID         string     `json:"clientId"`
	SkillType        string     `json:"skillType"`
	EstimatedHours   float64    `json:"estimatedHours"`
	Recurrence       Recurrence `json:"recurrence"`
	PreferredStaffID *string    `json:"preferredStaffId,omitempty"`
	IsActive         bool       `json:"isActive"`
}

// Recurrence is a recurrence record. Dates use DateLayout.
type Recurrence struct {
	Pattern   string  `json:"pattern"`
	Interval  int     `json:"interval,omitempty"`
	StartDate string  `json:"startDate"`
	EndDate   *string `json:"endDate,omitempty"`
	Months    []int   `json:"months,omitempty"`
}

// Decode reads a snapshot document from r.
func Decode(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptySnapshot
		}
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &s, nil
}

// Encode writes s to w as indented JSON.
func Encode(w io.Writer, s *Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return nil
}

// RecurringTasks converts the task records to domain tasks.
//
// Unknown patterns are kept verbatim (upper-cased) so the extractor reports
// them per task instead of failing the whole directory. Malformed dates fail.
func (s *Snapshot) RecurringTasks() ([]domain.RecurringTask, error) {
	out := make([]domain.RecurringTask, 0, len(s.Tasks))
	for _, t := range s.Tasks {
		rec, err := t.Recurrence.toDomain()
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", t.ID, err)
		}
		out = append(out, domain.RecurringTask{
			ID:               t.ID,
			Name:             t.Name,
			ClientID:         t.ClientID,
			SkillType:        t.SkillType,
			EstimatedHours:   t.EstimatedHours,
			Recurrence:       rec,
			PreferredStaffID: t.PreferredStaffID,
			IsActive:         t.IsActive,
		})
	}
	return out, nil
}

// DomainClients converts the client records.
func (s *Snapshot) DomainClients() []domain.Client {
	out := make([]domain.Client, 0, len(s.Clients))
	for _, c := range s.Clients {
		out = append(out, domain.Client{ID: c.ID, Name: c.Name})
	}
	return out
}

// DomainStaff converts the staff records.
func (s *Snapshot) DomainStaff() []domain.Staff {
	out := make([]domain.Staff, 0, len(s.Staff))
	for _, m := range s.Staff {
		out = append(out, domain.Staff{ID: m.ID, Name: m.Name, RoleTitle: m.RoleTitle})
	}
	return out
}

// FromDomain builds a snapshot record from a domain task.
func FromDomain(t domain.RecurringTask) Task {
	rec := Recurrence{
		Pattern:  string(t.Recurrence.Pattern),
		Interval: t.Recurrence.Interval,
	}
	if !t.Recurrence.StartDate.IsZero() {
		rec.StartDate = t.Recurrence.StartDate.UTC().Format(DateLayout)
	}
	if t.Recurrence.EndDate != nil {
		end := t.Recurrence.EndDate.UTC().Format(DateLayout)
		rec.EndDate = &end
	}
	for _, m := range t.Recurrence.Months {
		rec.Months = append(rec.Months, int(m))
	}
	return Task{
		ID:               t.ID,
		Name:             t.Name,
		ClientID:         t.ClientID,
		SkillType:        t.SkillType,
		EstimatedHours:   t.EstimatedHours,
		Recurrence:       rec,
		PreferredStaffID: t.PreferredStaffID,
		IsActive:         t.IsActive,
	}
}

func (r Recurrence) toDomain() (domain.Recurrence, error) {
	rec := domain.Recurrence{Pattern: domain.NormalizeRecurrencePattern(r.Pattern), Interval: r.Interval}

	if r.StartDate != "" {
		start, err := time.Parse(DateLayout, r.StartDate)
		if err != nil {
			return domain.Recurrence{}, fmt.Errorf("invalid startDate %q: %w", r.StartDate, err)
		}
		rec.StartDate = start
	}
	if r.EndDate != nil && *r.EndDate != "" {
		end, err := time.Parse(DateLayout, *r.EndDate)
		if err != nil {
			return domain.Recurrence{}, fmt.Errorf("invalid endDate %q: %w", *r.EndDate, err)
		}
		rec.EndDate = &end
	}
	for _, m := range r.Months {
		if m < 1 || m > 12 {
			return domain.Recurrence{}, fmt.Errorf("invalid month %d", m)
		}
		rec.Months = append(rec.Months, time.Month(m))
	}
	return rec, nil
}
