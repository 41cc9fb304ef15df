package recurring

import (
	"time"

	"github.com/rezkam/demand/internal/domain"
)

// PatternCalculator calculates occurrence dates for a given recurrence pattern.
type PatternCalculator interface {
	// NextOccurrence returns the next occurrence date after the given date.
	// Returns nil if there is no next occurrence.
	NextOccurrence(after time.Time, r domain.Recurrence) *time.Time

	// OccurrencesBetween returns all occurrence dates within the given range.
	// start is treated as the first occurrence; end is inclusive.
	OccurrencesBetween(start, end time.Time, r domain.Recurrence) []time.Time
}

// GetCalculator returns the appropriate calculator for the given pattern.
func GetCalculator(pattern domain.RecurrencePattern) PatternCalculator {
	switch pattern {
	case domain.RecurrenceDaily:
		return &DailyCalculator{}
	case domain.RecurrenceWeekly:
		return &WeeklyCalculator{}
	case domain.RecurrenceBiweekly:
		return &BiweeklyCalculator{}
	case domain.RecurrenceMonthly:
		return &MonthlyCalculator{}
	case domain.RecurrenceYearly:
		return &YearlyCalculator{}
	case domain.RecurrenceQuarterly:
		return &QuarterlyCalculator{}
	case domain.RecurrenceWeekdays:
		return &WeekdaysCalculator{}
	case domain.RecurrenceCustom:
		return &CustomCalculator{}
	default:
		return nil
	}
}

// interval returns the configured step, never less than 1.
// A zero or negative interval would never advance and loop forever.
func interval(r domain.Recurrence) int {
	if r.Interval < 1 {
		return 1
	}
	return r.Interval
}
