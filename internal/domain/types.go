package domain

import "slices"

// Selection is a user's choice over a dimension (skills, clients).
//
// The zero value is Unfiltered: no filtering is applied. Only(...) narrows to
// the given values; Only() with no values selects nothing. "Everything is
// selected" is never inferred from comparing against the available set.
type Selection struct {
	restricted bool
	values     []string
}

// Unfiltered returns the "no filter" marker.
func Unfiltered() Selection {
	return Selection{}
}

// Only returns a selection restricted to values.
func Only(values ...string) Selection {
	return Selection{restricted: true, values: append([]string{}, values...)}
}

// IsUnfiltered reports whether the selection applies no filtering.
func (s Selection) IsUnfiltered() bool {
	return !s.restricted
}

// Values returns a copy of the selected values. Nil when unfiltered, and
// never nil when restricted, so an empty selection survives serialization.
func (s Selection) Values() []string {
	if !s.restricted {
		return nil
	}
	return append([]string{}, s.values...)
}

// Contains reports whether v passes the selection.
func (s Selection) Contains(v string) bool {
	if !s.restricted {
		return true
	}
	return slices.Contains(s.values, v)
}

// MonthRange is an inclusive index slice into the matrix month columns.
type MonthRange struct {
	Start int
	End   int
}

// Validate checks the range bounds.
func (r MonthRange) Validate() error {
	if r.Start < 0 || r.End < r.Start {
		return ErrInvalidMonthRange
	}
	return nil
}

// FilterState is the user's current selection.
//
// It is created when the controls mount and changed only through explicit
// toggle/reset operations; the engine never mutates it.
//
// Common use cases:
//   - "Everything": zero value
//   - "Only Tax work for ACME": Skills=Only("Tax"), Clients=Only("acme")
//   - "Work preferred for Ana": PreferredStaff=["ana"], StaffMode=StaffModeSpecific
//   - "Unassigned work in Q1": StaffMode=StaffModeNone, MonthRange={0, 2}
type FilterState struct {
	Skills  Selection
	Clients Selection

	PreferredStaff []string        // staff ids; normalized on comparison
	StaffMode      StaffFilterMode // empty is treated as StaffModeAll

	MonthRange *MonthRange // nil = every month
}

// Mode returns the effective staff filter mode.
func (f FilterState) Mode() StaffFilterMode {
	if f.StaffMode == "" {
		return StaffModeAll
	}
	return f.StaffMode
}

// NormalizedStaff returns the selected staff ids in canonical form.
func (f FilterState) NormalizedStaff() []string {
	out := make([]string, 0, len(f.PreferredStaff))
	for _, id := range f.PreferredStaff {
		out = append(out, NormalizeStaffID(id))
	}
	return out
}

// Validate checks the filter state for malformed values.
func (f FilterState) Validate() error {
	if _, err := ParseStaffFilterMode(string(f.StaffMode)); err != nil {
		return err
	}
	if f.MonthRange != nil {
		return f.MonthRange.Validate()
	}
	return nil
}
