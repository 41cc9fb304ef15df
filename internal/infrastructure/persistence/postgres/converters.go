package postgres

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// dateToPgtype converts a date to pgtype.Date; the zero time is stored as NULL.
func dateToPgtype(t time.Time) pgtype.Date {
	if t.IsZero() {
		return pgtype.Date{Valid: false}
	}
	return pgtype.Date{Time: t.UTC(), Valid: true}
}

// datePtrToPgtype converts *time.Time to pgtype.Date; nil is stored as NULL.
func datePtrToPgtype(t *time.Time) pgtype.Date {
	if t == nil {
		return pgtype.Date{Valid: false}
	}
	return dateToPgtype(*t)
}

// pgtypeToDate converts pgtype.Date to a UTC midnight (zero if NULL).
func pgtypeToDate(d pgtype.Date) time.Time {
	if !d.Valid {
		return time.Time{}
	}
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// pgtypeToDatePtr converts pgtype.Date to *time.Time (nil if NULL).
func pgtypeToDatePtr(d pgtype.Date) *time.Time {
	if !d.Valid {
		return nil
	}
	t := pgtypeToDate(d)
	return &t
}

// pgtypeToStringPtr converts pgtype.Text to *string (nil if NULL).
func pgtypeToStringPtr(s pgtype.Text) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func monthsToInt32(months []time.Month) []int32 {
	out := make([]int32, 0, len(months))
	for _, m := range months {
		out = append(out, int32(m))
	}
	return out
}

func int32ToMonths(values []int32) []time.Month {
	if len(values) == 0 {
		return nil
	}
	out := make([]time.Month, 0, len(values))
	for _, v := range values {
		out = append(out, time.Month(v))
	}
	return out
}
