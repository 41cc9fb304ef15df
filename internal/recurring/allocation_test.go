package recurring

import (
	"errors"
	"testing"
	"time"

	"github.com/rezkam/demand/internal/domain"
	"github.com/rezkam/demand/internal/ptr"
)

func TestMonthlyOccurrences(t *testing.T) {
	window := domain.NewMonthWindow(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 12)

	tests := []struct {
		name     string
		r        domain.Recurrence
		expected map[string]int
	}{
		{
			name: "monthly anchored before window",
			r: domain.Recurrence{
				Pattern:   domain.RecurrenceMonthly,
				StartDate: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
				EndDate:   ptr.To(time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)),
			},
			expected: map[string]int{"2025-01": 1, "2025-02": 1, "2025-03": 1},
		},
		{
			name: "quarterly starts inside window",
			r: domain.Recurrence{
				Pattern:   domain.RecurrenceQuarterly,
				StartDate: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
			},
			expected: map[string]int{"2025-02": 1, "2025-05": 1, "2025-08": 1, "2025-11": 1},
		},
		{
			name: "weekly counts every week of the month",
			r: domain.Recurrence{
				Pattern:   domain.RecurrenceWeekly,
				StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
				EndDate:   ptr.To(time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)),
			},
			expected: map[string]int{"2025-01": 5, "2025-02": 4},
		},
		{
			name: "zero start anchors at window start",
			r: domain.Recurrence{
				Pattern: domain.RecurrenceCustom,
				Months:  []time.Month{time.March, time.September},
			},
			expected: map[string]int{"2025-03": 1, "2025-09": 1},
		},
		{
			name: "ended before window",
			r: domain.Recurrence{
				Pattern:   domain.RecurrenceMonthly,
				StartDate: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
				EndDate:   ptr.To(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)),
			},
			expected: map[string]int{},
		},
		{
			name: "starts after window",
			r: domain.Recurrence{
				Pattern:   domain.RecurrenceYearly,
				StartDate: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
			},
			expected: map[string]int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MonthlyOccurrences(tt.r, window)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, got)
			}
			for month, count := range tt.expected {
				if got[month] != count {
					t.Errorf("%s: expected %d occurrences, got %d", month, count, got[month])
				}
			}
		})
	}
}

func TestMonthlyOccurrences_UnsupportedPattern(t *testing.T) {
	window := domain.NewMonthWindow(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 12)

	_, err := MonthlyOccurrences(domain.Recurrence{Pattern: "HOURLY"}, window)

	if !errors.Is(err, domain.ErrInvalidRecurrencePattern) {
		t.Fatalf("expected ErrInvalidRecurrencePattern, got %v", err)
	}
}
