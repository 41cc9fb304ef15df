package recurring

import (
	"fmt"
	"time"

	"github.com/rezkam/demand/internal/domain"
)

// MonthlyOccurrences counts how many times r is due in each month of window.
// The result is keyed by month key ("2025-01"); months with no occurrence are absent.
//
// The recurrence is anchored at StartDate, or at the window start when StartDate is zero.
// EndDate is inclusive.
func MonthlyOccurrences(r domain.Recurrence, window domain.MonthWindow) (map[string]int, error) {
	calc := GetCalculator(r.Pattern)
	if calc == nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRecurrencePattern, r.Pattern)
	}

	anchor := r.StartDate.UTC()
	if r.StartDate.IsZero() {
		anchor = window.Start
	}

	end := window.End().Add(-time.Nanosecond)
	if r.EndDate != nil && r.EndDate.UTC().Before(end) {
		end = r.EndDate.UTC()
	}

	counts := make(map[string]int)
	if anchor.After(end) {
		return counts, nil
	}

	for _, occurrence := range calc.OccurrencesBetween(anchor, end, r) {
		if !window.Contains(occurrence) {
			continue
		}
		counts[domain.MonthKey(occurrence)]++
	}

	return counts, nil
}
