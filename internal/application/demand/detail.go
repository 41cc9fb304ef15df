package demand

import (
	"fmt"
	"slices"

	"github.com/rezkam/demand/internal/domain"
)

// CellDetail returns the breakdown entries of the cell at (key, monthKey).
// key is a row bucket of m (skill, client or staff label) or UnassignedBucket.
//
// A known bucket and month without a cell yields no entries and no error.
// An unknown bucket or month returns domain.ErrCellNotFound.
func CellDetail(m *domain.DemandMatrix, key, monthKey string) ([]domain.TaskBreakdownEntry, error) {
	if !slices.ContainsFunc(m.Months, func(mc domain.MonthColumn) bool { return mc.Key == monthKey }) {
		return nil, fmt.Errorf("%w: month %q", domain.ErrCellNotFound, monthKey)
	}

	cells := m.DataPoints
	switch {
	case key == UnassignedBucket && m.Strategy == domain.StrategyStaffBased:
		cells = m.Unassigned
	case !slices.Contains(m.Skills, key):
		return nil, fmt.Errorf("%w: bucket %q", domain.ErrCellNotFound, key)
	}

	for _, p := range cells {
		if p.SkillType == key && p.Month == monthKey {
			return slices.Clone(p.TaskBreakdown), nil
		}
	}
	return []domain.TaskBreakdownEntry{}, nil
}
