package demand

import (
	"context"
	"fmt"
	"slices"

	"github.com/rezkam/demand/internal/domain"
)

// FilterStage names one step of the filter pipeline.
type FilterStage string

const (
	StageSkill          FilterStage = "skill"
	StageClient         FilterStage = "client"
	StagePreferredStaff FilterStage = "preferred_staff"
	StageMonth          FilterStage = "month"
)

// FilterPipeline narrows a built matrix to a FilterState.
//
// Stages run in a fixed order: skill, client, preferred staff, month. Each stage
// filters breakdown entries, recomputes the surviving cells and drops cells left
// empty, so later stages always aggregate from the already narrowed entries.
// Unfiltered selections skip their stage entirely.
type FilterPipeline struct {
	observer Observer
}

// NewFilterPipeline creates a pipeline reporting each applied stage to observer.
// A nil observer discards events.
func NewFilterPipeline(observer Observer) *FilterPipeline {
	if observer == nil {
		observer = NopObserver{}
	}
	return &FilterPipeline{observer: observer}
}

// Filter applies f to m without reporting events.
func Filter(m *domain.DemandMatrix, f domain.FilterState) (*domain.DemandMatrix, error) {
	return NewFilterPipeline(nil).Apply(context.Background(), m, f)
}

// Apply returns a new matrix holding the part of m selected by f.
// The input matrix is never modified, so the same base matrix can be filtered
// repeatedly and concurrently.
func (p *FilterPipeline) Apply(ctx context.Context, m *domain.DemandMatrix, f domain.FilterState) (*domain.DemandMatrix, error) {
	if m == nil {
		return nil, fmt.Errorf("filter: nil matrix")
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}

	out := &domain.DemandMatrix{
		Months:     slices.Clone(m.Months),
		DataPoints: m.DataPoints,
		Unassigned: m.Unassigned,
		Strategy:   m.Strategy,
		Dimension:  m.Dimension,
	}

	if !f.Skills.IsUnfiltered() {
		p.stage(ctx, out, StageSkill, func(e domain.TaskBreakdownEntry) bool {
			return f.Skills.Contains(e.SkillType)
		})
	}

	if !f.Clients.IsUnfiltered() {
		p.stage(ctx, out, StageClient, func(e domain.TaskBreakdownEntry) bool {
			return f.Clients.Contains(e.ClientID)
		})
	}

	switch f.Mode() {
	case domain.StaffModeSpecific:
		// An empty selection keeps nothing: "nothing selected yet" is not "no filter".
		selected := f.NormalizedStaff()
		p.stage(ctx, out, StagePreferredStaff, func(e domain.TaskBreakdownEntry) bool {
			return e.PreferredStaff.IsAssigned() && slices.Contains(selected, e.PreferredStaff.StaffID)
		})
	case domain.StaffModeNone:
		p.stage(ctx, out, StagePreferredStaff, func(e domain.TaskBreakdownEntry) bool {
			return !e.PreferredStaff.IsAssigned()
		})
	}

	if f.MonthRange != nil {
		p.monthStage(ctx, out, *f.MonthRange)
	}

	// Cells may still be shared with m when every stage was skipped.
	out.DataPoints = cloneCells(out.DataPoints)
	out.Unassigned = cloneCells(out.Unassigned)
	out.Skills = retainedSkills(m.Skills, out.DataPoints)
	out.RecomputeTotals()

	return out, nil
}

func (p *FilterPipeline) stage(ctx context.Context, m *domain.DemandMatrix, stage FilterStage, keep func(domain.TaskBreakdownEntry) bool) {
	before := m.EntryCount()
	m.DataPoints = filterCells(m.DataPoints, keep)
	m.Unassigned = filterCells(m.Unassigned, keep)
	p.observer.FilterApplied(ctx, FilterEvent{Stage: stage, Before: before, After: m.EntryCount()})
}

func (p *FilterPipeline) monthStage(ctx context.Context, m *domain.DemandMatrix, r domain.MonthRange) {
	before := m.EntryCount()

	start, end := r.Start, min(r.End, len(m.Months)-1)
	if start > end {
		m.Months = []domain.MonthColumn{}
	} else {
		m.Months = m.Months[start : end+1]
	}

	keep := make(map[string]struct{}, len(m.Months))
	for _, mc := range m.Months {
		keep[mc.Key] = struct{}{}
	}
	inRange := func(cells []domain.DataPoint) []domain.DataPoint {
		var out []domain.DataPoint
		for _, c := range cells {
			if _, ok := keep[c.Month]; ok {
				out = append(out, c)
			}
		}
		return out
	}
	m.DataPoints = inRange(m.DataPoints)
	m.Unassigned = inRange(m.Unassigned)

	p.observer.FilterApplied(ctx, FilterEvent{Stage: StageMonth, Before: before, After: m.EntryCount()})
}

// filterCells returns new cells holding only the entries keep accepts.
// Cells left without entries are dropped.
func filterCells(cells []domain.DataPoint, keep func(domain.TaskBreakdownEntry) bool) []domain.DataPoint {
	var out []domain.DataPoint
	for _, c := range cells {
		var entries []domain.TaskBreakdownEntry
		for _, e := range c.TaskBreakdown {
			if keep(e) {
				entries = append(entries, e)
			}
		}
		if len(entries) == 0 {
			continue
		}
		c.TaskBreakdown = entries
		c.Recompute()
		out = append(out, c)
	}
	return out
}

func cloneCells(cells []domain.DataPoint) []domain.DataPoint {
	if cells == nil {
		return nil
	}
	out := make([]domain.DataPoint, len(cells))
	for i, c := range cells {
		c.TaskBreakdown = slices.Clone(c.TaskBreakdown)
		out[i] = c
	}
	return out
}

// retainedSkills keeps the input bucket order, dropping buckets without cells.
func retainedSkills(skills []string, cells []domain.DataPoint) []string {
	present := make(map[string]struct{}, len(cells))
	for _, c := range cells {
		present[c.SkillType] = struct{}{}
	}
	out := make([]string, 0, len(present))
	for _, s := range skills {
		if _, ok := present[s]; ok {
			out = append(out, s)
		}
	}
	return out
}
