package snapshot

import (
	"context"

	"github.com/rezkam/demand/internal/application/demand"
	"github.com/rezkam/demand/internal/domain"
)

// Source yields the current snapshot. Implementations may re-read their
// backing file or object on every call.
type Source interface {
	Load(ctx context.Context) (*Snapshot, error)
}

// Static is a Source that always returns the same snapshot.
type Static struct {
	Snapshot *Snapshot
}

func (s Static) Load(context.Context) (*Snapshot, error) {
	return s.Snapshot, nil
}

// Directory serves the four directory ports from a Source.
type Directory struct {
	source Source
}

var _ demand.Directory = (*Directory)(nil)

// NewDirectory creates a Directory over source.
func NewDirectory(source Source) *Directory {
	return &Directory{source: source}
}

func (d *Directory) ListRecurringTasks(ctx context.Context, query demand.TaskQuery) ([]domain.RecurringTask, error) {
	snap, err := d.source.Load(ctx)
	if err != nil {
		return nil, err
	}
	tasks, err := snap.RecurringTasks()
	if err != nil {
		return nil, err
	}
	if !query.ActiveOnly {
		return tasks, nil
	}

	active := tasks[:0]
	for _, t := range tasks {
		if t.IsActive {
			active = append(active, t)
		}
	}
	return active, nil
}

func (d *Directory) ListPreferredStaff(ctx context.Context) ([]domain.Staff, error) {
	snap, err := d.source.Load(ctx)
	if err != nil {
		return nil, err
	}
	return snap.DomainStaff(), nil
}

func (d *Directory) ListSkills(ctx context.Context) ([]string, error) {
	snap, err := d.source.Load(ctx)
	if err != nil {
		return nil, err
	}
	return append([]string{}, snap.Skills...), nil
}

func (d *Directory) ListClients(ctx context.Context) ([]domain.Client, error) {
	snap, err := d.source.Load(ctx)
	if err != nil {
		return nil, err
	}
	return snap.DomainClients(), nil
}
