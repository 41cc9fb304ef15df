// Package compliance holds the contract every demand.Directory backend must honor.
package compliance

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/demand/internal/application/demand"
	"github.com/rezkam/demand/internal/domain"
	"github.com/rezkam/demand/internal/storage/snapshot"
)

// Setup returns a directory seeded with snap. Backends register their own cleanup on t.
type Setup func(t *testing.T, snap *snapshot.Snapshot) demand.Directory

// Fixture returns the snapshot every compliance run seeds.
//
// Window Jan 2025 + 12 months: t1 (5h), t2 (10h) and t3 (4h) are due monthly,
// t4 is inactive. Skill-based total is 228h; Ana's preferred work is 60h.
func Fixture() *snapshot.Snapshot {
	ana, bob := "ANA", "bob"
	monthly := snapshot.Recurrence{Pattern: "MONTHLY", StartDate: "2025-01-10"}
	return &snapshot.Snapshot{
		Skills: []string{"Advisory", "Audit", "Tax"},
		Clients: []snapshot.Client{
			{ID: "acme", Name: "Acme AB"},
			{ID: "globex", Name: "Globex"},
		},
		Staff: []snapshot.Staff{
			{ID: "ana", Name: "Ana Lind", RoleTitle: "Manager"},
			{ID: "bob", Name: "Bob Berg"},
		},
		Tasks: []snapshot.Task{
			{ID: "t1", Name: "VAT return", ClientID: "acme", SkillType: "Tax", EstimatedHours: 5, Recurrence: monthly, PreferredStaffID: &ana, IsActive: true},
			{ID: "t2", Name: "Audit fieldwork", ClientID: "acme", SkillType: "Audit", EstimatedHours: 10, Recurrence: monthly, PreferredStaffID: &bob, IsActive: true},
			{ID: "t3", Name: "Payroll", ClientID: "globex", SkillType: "Tax", EstimatedHours: 4, Recurrence: monthly, IsActive: true},
			{ID: "t4", Name: "Strategy day", ClientID: "globex", SkillType: "Advisory", EstimatedHours: 8, Recurrence: monthly, IsActive: false},
		},
	}
}

// RunDirectoryComplianceTest runs the directory contract against a backend.
func RunDirectoryComplianceTest(t *testing.T, setup Setup) {
	t.Run("ListsEveryRecord", func(t *testing.T) {
		dir := setup(t, Fixture())
		ctx := context.Background()

		tasks, err := dir.ListRecurringTasks(ctx, demand.TaskQuery{})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"t1", "t2", "t3", "t4"}, taskIDs(tasks))

		skills, err := dir.ListSkills(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"Advisory", "Audit", "Tax"}, skills)

		clients, err := dir.ListClients(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []domain.Client{{ID: "acme", Name: "Acme AB"}, {ID: "globex", Name: "Globex"}}, clients)

		staff, err := dir.ListPreferredStaff(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []domain.Staff{
			{ID: "ana", Name: "Ana Lind", RoleTitle: "Manager"},
			{ID: "bob", Name: "Bob Berg"},
		}, staff)
	})

	t.Run("ActiveOnly", func(t *testing.T) {
		dir := setup(t, Fixture())

		tasks, err := dir.ListRecurringTasks(context.Background(), demand.TaskQuery{ActiveOnly: true})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"t1", "t2", "t3"}, taskIDs(tasks))
	})

	t.Run("PreservesTaskFields", func(t *testing.T) {
		dir := setup(t, Fixture())

		tasks, err := dir.ListRecurringTasks(context.Background(), demand.TaskQuery{})
		require.NoError(t, err)

		idx := slices.IndexFunc(tasks, func(task domain.RecurringTask) bool { return task.ID == "t1" })
		require.GreaterOrEqual(t, idx, 0)
		t1 := tasks[idx]

		assert.Equal(t, "VAT return", t1.Name)
		assert.Equal(t, "acme", t1.ClientID)
		assert.Equal(t, "Tax", t1.SkillType)
		assert.InDelta(t, 5.0, t1.EstimatedHours, 1e-9)
		assert.Equal(t, domain.RecurrenceMonthly, t1.Recurrence.Pattern)
		assert.True(t, t1.Recurrence.StartDate.Equal(time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)))
		assert.Nil(t, t1.Recurrence.EndDate)
		require.NotNil(t, t1.PreferredStaffID)
		assert.Equal(t, "ana", domain.NormalizeStaffID(*t1.PreferredStaffID))
		assert.True(t, t1.IsActive)
	})

	t.Run("EmptyDirectory", func(t *testing.T) {
		dir := setup(t, &snapshot.Snapshot{})

		tasks, err := dir.ListRecurringTasks(context.Background(), demand.TaskQuery{})
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})

	t.Run("FeedsTheLoader", func(t *testing.T) {
		dir := setup(t, Fixture())
		window := domain.NewMonthWindow(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 12)
		loader := demand.NewLoader(dir, demand.NewCacheController(demand.NewMemoryStore()), demand.WithWindow(window))

		all, err := loader.LoadWithRetry(context.Background(), demand.LoadRequest{})
		require.NoError(t, err)
		assert.Equal(t, domain.StrategySkillBased, all.Strategy)
		assert.InDelta(t, 228.0, all.Full.TotalDemand, 1e-9)
		assert.Empty(t, all.ValidationIssues)

		ana, err := loader.LoadWithRetry(context.Background(), demand.LoadRequest{Filter: domain.FilterState{
			PreferredStaff: []string{"Ana"},
			StaffMode:      domain.StaffModeSpecific,
		}})
		require.NoError(t, err)
		assert.Equal(t, domain.StrategyStaffBased, ana.Strategy)
		assert.InDelta(t, 60.0, ana.Filtered.TotalDemand, 1e-9)
	})
}

func taskIDs(tasks []domain.RecurringTask) []string {
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	return ids
}
