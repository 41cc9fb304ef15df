package recurring

import (
	"slices"
	"time"

	"github.com/rezkam/demand/internal/domain"
)

// DailyCalculator generates daily recurrences.
type DailyCalculator struct{}

func (c *DailyCalculator) NextOccurrence(after time.Time, r domain.Recurrence) *time.Time {
	next := after.AddDate(0, 0, interval(r))
	return &next
}

func (c *DailyCalculator) OccurrencesBetween(start, end time.Time, r domain.Recurrence) []time.Time {
	return stepDays(start, end, interval(r))
}

// WeeklyCalculator generates weekly recurrences.
type WeeklyCalculator struct{}

func (c *WeeklyCalculator) NextOccurrence(after time.Time, r domain.Recurrence) *time.Time {
	next := after.AddDate(0, 0, 7*interval(r))
	return &next
}

func (c *WeeklyCalculator) OccurrencesBetween(start, end time.Time, r domain.Recurrence) []time.Time {
	return stepDays(start, end, 7*interval(r))
}

// BiweeklyCalculator generates biweekly (every 2 weeks) recurrences.
type BiweeklyCalculator struct{}

func (c *BiweeklyCalculator) NextOccurrence(after time.Time, _ domain.Recurrence) *time.Time {
	next := after.AddDate(0, 0, 14)
	return &next
}

func (c *BiweeklyCalculator) OccurrencesBetween(start, end time.Time, _ domain.Recurrence) []time.Time {
	return stepDays(start, end, 14)
}

// MonthlyCalculator generates monthly recurrences.
// Days past the end of a shorter month clamp to its last day (Jan 31 -> Feb 28).
type MonthlyCalculator struct{}

func (c *MonthlyCalculator) NextOccurrence(after time.Time, r domain.Recurrence) *time.Time {
	next := addMonthsClamped(after, interval(r))
	return &next
}

func (c *MonthlyCalculator) OccurrencesBetween(start, end time.Time, r domain.Recurrence) []time.Time {
	return stepMonths(start, end, interval(r))
}

// QuarterlyCalculator generates quarterly recurrences.
type QuarterlyCalculator struct{}

func (c *QuarterlyCalculator) NextOccurrence(after time.Time, _ domain.Recurrence) *time.Time {
	next := addMonthsClamped(after, 3)
	return &next
}

func (c *QuarterlyCalculator) OccurrencesBetween(start, end time.Time, _ domain.Recurrence) []time.Time {
	return stepMonths(start, end, 3)
}

// YearlyCalculator generates yearly recurrences.
type YearlyCalculator struct{}

func (c *YearlyCalculator) NextOccurrence(after time.Time, _ domain.Recurrence) *time.Time {
	next := addMonthsClamped(after, 12)
	return &next
}

func (c *YearlyCalculator) OccurrencesBetween(start, end time.Time, _ domain.Recurrence) []time.Time {
	return stepMonths(start, end, 12)
}

// WeekdaysCalculator generates recurrences on weekdays only (Mon-Fri).
type WeekdaysCalculator struct{}

func (c *WeekdaysCalculator) NextOccurrence(after time.Time, _ domain.Recurrence) *time.Time {
	next := after.AddDate(0, 0, 1)

	// Skip weekends
	for isWeekend(next) {
		next = next.AddDate(0, 0, 1)
	}

	return &next
}

func (c *WeekdaysCalculator) OccurrencesBetween(start, end time.Time, _ domain.Recurrence) []time.Time {
	var occurrences []time.Time
	current := start

	for !current.After(end) {
		if !isWeekend(current) {
			occurrences = append(occurrences, current)
		}
		current = current.AddDate(0, 0, 1)
	}

	return occurrences
}

// CustomCalculator generates one occurrence in each month listed in Recurrence.Months,
// every year, on the anchor's day of month (clamped).
type CustomCalculator struct{}

func (c *CustomCalculator) NextOccurrence(after time.Time, r domain.Recurrence) *time.Time {
	if len(r.Months) == 0 {
		return nil
	}
	for i := 1; i <= 12; i++ {
		candidate := addMonthsClamped(after, i)
		if slices.Contains(r.Months, candidate.Month()) {
			return &candidate
		}
	}
	return nil
}

func (c *CustomCalculator) OccurrencesBetween(start, end time.Time, r domain.Recurrence) []time.Time {
	if len(r.Months) == 0 {
		return nil
	}

	var occurrences []time.Time
	for offset := 0; ; offset++ {
		current := addMonthsClamped(start, offset)
		if current.After(end) {
			break
		}
		if slices.Contains(r.Months, current.Month()) {
			occurrences = append(occurrences, current)
		}
	}

	return occurrences
}

func stepDays(start, end time.Time, days int) []time.Time {
	var occurrences []time.Time
	current := start

	for !current.After(end) {
		occurrences = append(occurrences, current)
		current = current.AddDate(0, 0, days)
	}

	return occurrences
}

// stepMonths derives every occurrence from the anchor instead of the previous
// occurrence, so clamped days do not drift (Jan 31, Feb 28, Mar 31).
func stepMonths(start, end time.Time, months int) []time.Time {
	var occurrences []time.Time

	for n := 0; ; n++ {
		current := addMonthsClamped(start, n*months)
		if current.After(end) {
			break
		}
		occurrences = append(occurrences, current)
	}

	return occurrences
}

// addMonthsClamped adds months to t, clamping the day to the target month's length.
func addMonthsClamped(t time.Time, months int) time.Time {
	firstOfTarget := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location()).
		AddDate(0, months, 0)
	day := min(t.Day(), daysIn(firstOfTarget.Year(), firstOfTarget.Month()))
	return firstOfTarget.AddDate(0, 0, day-1)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func isWeekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}
