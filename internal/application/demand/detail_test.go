package demand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/demand/internal/domain"
)

func TestCellDetail(t *testing.T) {
	m := buildFixture(practiceFixture(), domain.StrategySkillBased, 2).Matrix

	entries, err := CellDetail(m, "Tax", "2025-02")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "t1", entries[0].RecurringTaskID)
	assert.Equal(t, "t3", entries[1].RecurringTaskID)

	// Drill-down returns a copy.
	entries[0].MonthlyHours = 100
	again, err := CellDetail(m, "Tax", "2025-02")
	require.NoError(t, err)
	assert.InDelta(t, 5.0, again[0].MonthlyHours, 1e-9)
}

func TestCellDetail_Unknown(t *testing.T) {
	m := buildFixture(practiceFixture(), domain.StrategySkillBased, 2).Matrix

	_, err := CellDetail(m, "Juggling", "2025-01")
	assert.ErrorIs(t, err, domain.ErrCellNotFound)

	_, err = CellDetail(m, "Tax", "2026-01")
	assert.ErrorIs(t, err, domain.ErrCellNotFound)
}

func TestCellDetail_EmptyKnownCell(t *testing.T) {
	m, err := Filter(buildFixture(practiceFixture(), domain.StrategySkillBased, 2).Matrix,
		domain.FilterState{Skills: domain.Only("Tax", "Audit"), Clients: domain.Only("acme")})
	require.NoError(t, err)
	m.DataPoints = m.DataPoints[:1] // keep only Audit/Jan

	entries, err := CellDetail(m, "Audit", "2025-02")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCellDetail_StaffBasedUnassigned(t *testing.T) {
	m := buildFixture(practiceFixture(), domain.StrategyStaffBased, 1).Matrix

	entries, err := CellDetail(m, UnassignedBucket, "2025-01")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "t3", entries[0].RecurringTaskID)

	entries, err = CellDetail(m, "Bob Berg", "2025-01")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "t2", entries[0].RecurringTaskID)
}

func TestCellDetail_StaffNamedUnassignedIsReachable(t *testing.T) {
	f := practiceFixture()
	f.staff[1].Name = UnassignedBucket
	m := buildFixture(f, domain.StrategyStaffBased, 1).Matrix

	require.Contains(t, m.Skills, "Unassigned (bob)")

	entries, err := CellDetail(m, "Unassigned (bob)", "2025-01")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "t2", entries[0].RecurringTaskID)

	entries, err = CellDetail(m, UnassignedBucket, "2025-01")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "t3", entries[0].RecurringTaskID)
}
