package domain

import (
	"fmt"
	"time"
)

// RecurringTask is one recurring task definition owned by the task directory.
// The engine only reads it.
type RecurringTask struct {
	ID             string
	Name           string
	ClientID       string
	SkillType      string
	EstimatedHours float64
	Recurrence     Recurrence

	// PreferredStaffID references the staff directory; nil means unassigned.
	PreferredStaffID *string

	IsActive bool
}

// Recurrence describes when a recurring task is due.
type Recurrence struct {
	Pattern RecurrencePattern

	// Interval repeats every N units of the pattern (0 is treated as 1).
	// Ignored by BIWEEKLY, QUARTERLY, YEARLY, WEEKDAYS and CUSTOM.
	Interval int

	// StartDate anchors the first occurrence.
	StartDate time.Time
	// EndDate stops the recurrence (inclusive); nil means open ended.
	EndDate *time.Time

	// Months lists due months for CUSTOM recurrences.
	Months []time.Month
}

// Staff is a preferred-staff directory record.
type Staff struct {
	ID        string
	Name      string
	RoleTitle string
}

// Client is a client directory record.
type Client struct {
	ID   string
	Name string
}

// PreferredStaffRef is the resolved preferred-staff reference of a breakdown entry.
// Kind is StaffRefUnassigned when the task has no preferred staff member; this
// means "unassigned", never "filtered out".
type PreferredStaffRef struct {
	Kind      StaffRefKind `json:"kind"`
	StaffID   string       `json:"staffId,omitempty"`
	StaffName string       `json:"staffName,omitempty"`
}

// Unassigned returns the unassigned reference.
func Unassigned() PreferredStaffRef {
	return PreferredStaffRef{Kind: StaffRefUnassigned}
}

// AssignedTo returns a reference to a staff member. The id is normalized.
func AssignedTo(id, name string) PreferredStaffRef {
	return PreferredStaffRef{Kind: StaffRefStaff, StaffID: NormalizeStaffID(id), StaffName: name}
}

// IsAssigned reports whether the reference points at a staff member.
func (r PreferredStaffRef) IsAssigned() bool {
	return r.Kind == StaffRefStaff
}

// MonthColumn is one column of the matrix.
type MonthColumn struct {
	Key   string `json:"key"` // "2025-01"
	Label string `json:"label"`
}

// MonthKey returns the column key for t.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// ParseMonthKey parses a "YYYY-MM" key into the first instant of that month (UTC).
func ParseMonthKey(key string) (time.Time, error) {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMonthKey, key)
	}
	return t.UTC(), nil
}

// DefaultMonthCount is the number of columns in an unrestricted matrix.
const DefaultMonthCount = 12

// MonthWindow is the span of months a matrix covers.
type MonthWindow struct {
	Start time.Time // first instant of the first month, UTC
	Count int
}

// NewMonthWindow returns a window of count months starting at the month containing start.
// A non-positive count falls back to DefaultMonthCount.
func NewMonthWindow(start time.Time, count int) MonthWindow {
	if count <= 0 {
		count = DefaultMonthCount
	}
	start = start.UTC()
	return MonthWindow{
		Start: time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC),
		Count: count,
	}
}

// End returns the first instant after the window.
func (w MonthWindow) End() time.Time {
	return w.Start.AddDate(0, w.Count, 0)
}

// Contains reports whether t falls inside the window.
func (w MonthWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End())
}

// Months returns the ordered columns of the window.
func (w MonthWindow) Months() []MonthColumn {
	cols := make([]MonthColumn, 0, w.Count)
	for i := range w.Count {
		m := w.Start.AddDate(0, i, 0)
		cols = append(cols, MonthColumn{Key: MonthKey(m), Label: m.Format("Jan 2006")})
	}
	return cols
}

// TaskBreakdownEntry is one task's hour allocation in one month.
// It is the finest-grained unit of demand.
type TaskBreakdownEntry struct {
	ClientID          string            `json:"clientId"`
	ClientName        string            `json:"clientName"`
	RecurringTaskID   string            `json:"recurringTaskId"`
	TaskName          string            `json:"taskName"`
	SkillType         string            `json:"skillType"`
	EstimatedHours    float64           `json:"estimatedHours"`
	MonthlyHours      float64           `json:"monthlyHours"`
	Month             string            `json:"month"`
	RecurrencePattern RecurrencePattern `json:"recurrencePattern"`
	PreferredStaff    PreferredStaffRef `json:"preferredStaff"`
}

// DataPoint is one matrix cell, identified by (bucket, month).
// For staff-based matrices SkillType holds the staff member's label.
type DataPoint struct {
	SkillType       string               `json:"skillType"`
	Month           string               `json:"month"`
	MonthLabel      string               `json:"monthLabel"`
	DemandHours     float64              `json:"demandHours"`
	TaskCount       int                  `json:"taskCount"`
	ClientCount     int                  `json:"clientCount"`
	TaskBreakdown   []TaskBreakdownEntry `json:"taskBreakdown"`
	IsStaffSpecific bool                 `json:"isStaffSpecific"`
	ActualStaffName string               `json:"actualStaffName,omitempty"`
}

// Recompute derives DemandHours, TaskCount and ClientCount from TaskBreakdown.
func (p *DataPoint) Recompute() {
	var hours float64
	clients := make(map[string]struct{}, len(p.TaskBreakdown))
	for _, e := range p.TaskBreakdown {
		hours += e.MonthlyHours
		clients[e.ClientID] = struct{}{}
	}
	p.DemandHours = hours
	p.TaskCount = len(p.TaskBreakdown)
	p.ClientCount = len(clients)
}

// DemandMatrix is an immutable snapshot of aggregated demand.
// Consumers must treat it as read-only; the filter pipeline always derives a new one.
type DemandMatrix struct {
	Skills     []string            `json:"skills"`
	Months     []MonthColumn       `json:"months"`
	DataPoints []DataPoint         `json:"dataPoints"`
	Unassigned []DataPoint         `json:"unassigned,omitempty"` // staff-based builds only
	Strategy   AggregationStrategy `json:"aggregationStrategy"`
	Dimension  Dimension           `json:"dimension"`

	TotalDemand  float64 `json:"totalDemand"`
	TotalTasks   int     `json:"totalTasks"`   // distinct recurring tasks
	TotalClients int     `json:"totalClients"` // distinct clients
}

// RecomputeTotals derives the matrix totals from DataPoints and Unassigned.
func (m *DemandMatrix) RecomputeTotals() {
	var total float64
	tasks := make(map[string]struct{})
	clients := make(map[string]struct{})
	for _, cells := range [][]DataPoint{m.DataPoints, m.Unassigned} {
		for _, p := range cells {
			total += p.DemandHours
			for _, e := range p.TaskBreakdown {
				tasks[e.RecurringTaskID] = struct{}{}
				clients[e.ClientID] = struct{}{}
			}
		}
	}
	m.TotalDemand = total
	m.TotalTasks = len(tasks)
	m.TotalClients = len(clients)
}

// EntryCount returns the number of breakdown entries across all cells.
func (m *DemandMatrix) EntryCount() int {
	n := 0
	for _, cells := range [][]DataPoint{m.DataPoints, m.Unassigned} {
		for _, p := range cells {
			n += len(p.TaskBreakdown)
		}
	}
	return n
}
