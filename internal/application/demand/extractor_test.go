package demand

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/demand/internal/domain"
	"github.com/rezkam/demand/internal/ptr"
)

func TestExtractor_MonthlyHours(t *testing.T) {
	f := practiceFixture()
	window := domain.NewMonthWindow(jan2025, 3)

	result, err := NewExtractor().Extract(f.tasks, f.catalog(), window)
	require.NoError(t, err)

	assert.Len(t, result.Entries, 9)
	assert.Empty(t, result.Issues)

	first := result.Entries[0]
	assert.Equal(t, "t1", first.RecurringTaskID)
	assert.Equal(t, "Acme AB", first.ClientName)
	assert.Equal(t, "2025-01", first.Month)
	assert.InDelta(t, 5.0, first.MonthlyHours, 1e-9)
	assert.Equal(t, domain.AssignedTo("ana", "Ana Lind"), first.PreferredStaff)

	last := result.Entries[8]
	assert.Equal(t, "t3", last.RecurringTaskID)
	assert.False(t, last.PreferredStaff.IsAssigned())
}

func TestExtractor_OnlyDueMonthsGetEntries(t *testing.T) {
	f := practiceFixture()
	quarterly := monthlyTask("q1", "VAT return", "globex", "Tax", 3, "")
	quarterly.Recurrence = domain.Recurrence{Pattern: domain.RecurrenceQuarterly, StartDate: jan2025.AddDate(0, 1, 0)}
	weekly := monthlyTask("w1", "Bookkeeping", "acme", "Tax", 2, "")
	weekly.Recurrence = domain.Recurrence{Pattern: domain.RecurrenceWeekly, StartDate: jan2025}

	result, err := NewExtractor().Extract([]domain.RecurringTask{quarterly, weekly}, f.catalog(), domain.NewMonthWindow(jan2025, 6))
	require.NoError(t, err)

	byMonth := map[string]float64{}
	for _, e := range result.Entries {
		if e.RecurringTaskID == "q1" {
			byMonth[e.Month] += e.MonthlyHours
		}
	}
	assert.Equal(t, map[string]float64{"2025-02": 3, "2025-05": 3}, byMonth)

	for _, e := range result.Entries {
		if e.RecurringTaskID == "w1" && e.Month == "2025-01" {
			// five Wednesdays in January 2025
			assert.InDelta(t, 10.0, e.MonthlyHours, 1e-9)
		}
	}
}

func TestExtractor_SkipsMalformedTasks(t *testing.T) {
	f := practiceFixture()
	badSkill := monthlyTask("x1", "Unknown skill", "acme", "Juggling", 1, "")
	badClient := monthlyTask("x2", "Unknown client", "initech", "Tax", 1, "")
	negative := monthlyTask("x3", "Negative", "acme", "Tax", -2, "")
	badPattern := monthlyTask("x4", "Hourly", "acme", "Tax", 1, "")
	badPattern.Recurrence.Pattern = "HOURLY"
	inactive := monthlyTask("x5", "Inactive", "acme", "Tax", 1, "")
	inactive.IsActive = false

	tasks := append(f.tasks, badSkill, badClient, negative, badPattern, inactive)

	result, err := NewExtractor().Extract(tasks, f.catalog(), domain.NewMonthWindow(jan2025, 1))
	require.NoError(t, err)

	assert.Len(t, result.Entries, 3)
	require.Len(t, result.Skipped, 4)
	assert.Equal(t, "skill_type", result.Skipped[0].Field)
	assert.Equal(t, "client_id", result.Skipped[1].Field)
	assert.Equal(t, "estimated_hours", result.Skipped[2].Field)
	assert.Equal(t, "recurrence", result.Skipped[3].Field)
	assert.Len(t, result.Issues, 4)
}

func TestExtractor_StrictModeFails(t *testing.T) {
	f := practiceFixture()
	tasks := append(f.tasks, monthlyTask("x1", "Unknown skill", "acme", "Juggling", 1, ""))

	_, err := NewExtractor(WithStrictExtraction(true)).Extract(tasks, f.catalog(), domain.NewMonthWindow(jan2025, 1))

	var extractionErr *domain.ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Equal(t, "x1", extractionErr.TaskID)
}

func TestExtractor_UnknownStaffBecomesUnassigned(t *testing.T) {
	f := practiceFixture()
	task := monthlyTask("t9", "Ghost", "acme", "Tax", 1, "carl")

	result, err := NewExtractor().Extract([]domain.RecurringTask{task}, f.catalog(), domain.NewMonthWindow(jan2025, 1))
	require.NoError(t, err)

	require.Len(t, result.Entries, 1)
	assert.Equal(t, domain.Unassigned(), result.Entries[0].PreferredStaff)
	require.Len(t, result.Issues, 1)
	assert.Contains(t, result.Issues[0], "carl")
}

func TestExtractor_StaffIDsAreNormalized(t *testing.T) {
	f := practiceFixture()
	task := monthlyTask("t9", "Mixed case", "acme", "Tax", 1, "  Bob ")

	result, err := NewExtractor().Extract([]domain.RecurringTask{task}, f.catalog(), domain.NewMonthWindow(jan2025, 1))
	require.NoError(t, err)

	require.Len(t, result.Entries, 1)
	assert.Equal(t, "bob", result.Entries[0].PreferredStaff.StaffID)
	assert.Equal(t, "Bob Berg", result.Entries[0].PreferredStaff.StaffName)
}

func TestExtractor_EndDateStopsAllocation(t *testing.T) {
	f := practiceFixture()
	task := monthlyTask("t9", "Wind down", "acme", "Tax", 2, "")
	task.Recurrence.EndDate = ptr.To(time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC))

	result, err := NewExtractor().Extract([]domain.RecurringTask{task}, f.catalog(), domain.NewMonthWindow(jan2025, 12))
	require.NoError(t, err)

	assert.Len(t, result.Entries, 2)
}
