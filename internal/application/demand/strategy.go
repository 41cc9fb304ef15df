package demand

import "github.com/rezkam/demand/internal/domain"

// SelectStrategy decides how a matrix must be aggregated for the given filter.
// Staff-based aggregation is chosen only when specific staff members are selected;
// every other combination is skill-based. It has no hidden state.
func SelectStrategy(f domain.FilterState) domain.AggregationStrategy {
	if len(f.PreferredStaff) > 0 && f.Mode() == domain.StaffModeSpecific {
		return domain.StrategyStaffBased
	}
	return domain.StrategySkillBased
}
