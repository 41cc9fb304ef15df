// Package demand builds demand matrices from recurring tasks and narrows them
// to a user's selection of skills, clients, preferred staff and months.
package demand

import (
	"context"

	"github.com/rezkam/demand/internal/domain"
)

// TaskQuery narrows a recurring task listing.
type TaskQuery struct {
	// ActiveOnly excludes inactive tasks at the source.
	ActiveOnly bool
}

// TaskDirectory lists recurring task definitions. The engine never writes to it.
type TaskDirectory interface {
	// ListRecurringTasks returns every task matching query, in no particular order.
	ListRecurringTasks(ctx context.Context, query TaskQuery) ([]domain.RecurringTask, error)
}

// StaffDirectory lists staff members that tasks may name as preferred.
type StaffDirectory interface {
	ListPreferredStaff(ctx context.Context) ([]domain.Staff, error)
}

// SkillDirectory lists the known skill names.
type SkillDirectory interface {
	ListSkills(ctx context.Context) ([]string, error)
}

// ClientDirectory lists the known clients.
type ClientDirectory interface {
	ListClients(ctx context.Context) ([]domain.Client, error)
}

// Directory is the full read-only source a Loader consumes.
// Storage adapters (postgres, sqlite, snapshot files) implement all four.
type Directory interface {
	TaskDirectory
	StaffDirectory
	SkillDirectory
	ClientDirectory
}
