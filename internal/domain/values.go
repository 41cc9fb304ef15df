package domain

import "strings"

// RecurrencePattern represents the type of recurrence for recurring tasks.
// Value object - immutable string enum.
type RecurrencePattern string

const (
	RecurrenceDaily     RecurrencePattern = "DAILY"
	RecurrenceWeekly    RecurrencePattern = "WEEKLY"
	RecurrenceBiweekly  RecurrencePattern = "BIWEEKLY"
	RecurrenceMonthly   RecurrencePattern = "MONTHLY"
	RecurrenceQuarterly RecurrencePattern = "QUARTERLY"
	RecurrenceYearly    RecurrencePattern = "YEARLY"
	RecurrenceWeekdays  RecurrencePattern = "WEEKDAYS"
	// RecurrenceCustom is due once in each month listed in Recurrence.Months.
	RecurrenceCustom RecurrencePattern = "CUSTOM"
)

// ParseRecurrencePattern normalizes a stored pattern string.
// Accepts "annually" as an alias of YEARLY.
func ParseRecurrencePattern(s string) (RecurrencePattern, error) {
	p := RecurrencePattern(strings.ToUpper(strings.TrimSpace(s)))
	switch p {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceBiweekly, RecurrenceMonthly,
		RecurrenceQuarterly, RecurrenceYearly, RecurrenceWeekdays, RecurrenceCustom:
		return p, nil
	case "ANNUALLY":
		return RecurrenceYearly, nil
	default:
		return "", ErrInvalidRecurrencePattern
	}
}

// NormalizeRecurrencePattern maps stored pattern spellings ("monthly",
// "annually") onto the canonical pattern. Unknown values come back upper-cased
// so extraction reports them instead of the reader failing.
func NormalizeRecurrencePattern(s string) RecurrencePattern {
	if p, err := ParseRecurrencePattern(s); err == nil {
		return p
	}
	return RecurrencePattern(strings.ToUpper(strings.TrimSpace(s)))
}

// AggregationStrategy tells how a matrix groups its demand.
// Every DemandMatrix is tagged with the strategy that built it.
type AggregationStrategy string

const (
	StrategySkillBased AggregationStrategy = "skill-based"
	StrategyStaffBased AggregationStrategy = "staff-based"
)

// StaffFilterMode is the three-mode preferred-staff filter.
type StaffFilterMode string

const (
	// StaffModeAll applies no staff filtering.
	StaffModeAll StaffFilterMode = "all"
	// StaffModeSpecific keeps only tasks preferred for the selected staff.
	// An empty selection yields an empty result.
	StaffModeSpecific StaffFilterMode = "specific"
	// StaffModeNone keeps only tasks without a preferred staff member.
	StaffModeNone StaffFilterMode = "none"
)

// ParseStaffFilterMode parses a mode string. Empty means StaffModeAll.
func ParseStaffFilterMode(s string) (StaffFilterMode, error) {
	switch m := StaffFilterMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return StaffModeAll, nil
	case StaffModeAll, StaffModeSpecific, StaffModeNone:
		return m, nil
	default:
		return "", ErrInvalidStaffFilterMode
	}
}

// Dimension is the bucket a skill-based matrix groups its rows by.
type Dimension string

const (
	DimensionSkill  Dimension = "skill"
	DimensionClient Dimension = "client"
)

// ParseDimension parses a view dimension name.
func ParseDimension(s string) (Dimension, error) {
	switch d := Dimension(strings.ToLower(strings.TrimSpace(s))); d {
	case DimensionSkill, DimensionClient:
		return d, nil
	default:
		return "", ErrInvalidDimension
	}
}

// StaffRefKind tags a PreferredStaffRef.
type StaffRefKind string

const (
	StaffRefUnassigned StaffRefKind = "unassigned"
	StaffRefStaff      StaffRefKind = "staff"
)

// NormalizeStaffID returns the canonical form used for every staff id comparison.
func NormalizeStaffID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
