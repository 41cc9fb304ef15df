package demand

import (
	"fmt"

	"github.com/rezkam/demand/internal/domain"
)

// FilterRequest is the wire form of a FilterState.
//
// A nil (absent) skills or clients list means no filter; an empty list
// selects nothing.
type FilterRequest struct {
	Skills         []string           `json:"skills"`
	Clients        []string           `json:"clients"`
	PreferredStaff []string           `json:"preferredStaff,omitempty"`
	StaffMode      string             `json:"staffMode,omitempty"`
	MonthRange     *MonthRangeRequest `json:"monthRange,omitempty"`
}

// MonthRangeRequest is an inclusive month index range.
type MonthRangeRequest struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// ToFilterState validates r and converts it to a FilterState.
func (r FilterRequest) ToFilterState() (domain.FilterState, error) {
	mode, err := domain.ParseStaffFilterMode(r.StaffMode)
	if err != nil {
		return domain.FilterState{}, fmt.Errorf("%w: %q", err, r.StaffMode)
	}

	f := domain.FilterState{
		Skills:         selection(r.Skills),
		Clients:        selection(r.Clients),
		PreferredStaff: r.PreferredStaff,
		StaffMode:      mode,
	}
	if r.MonthRange != nil {
		f.MonthRange = &domain.MonthRange{Start: r.MonthRange.Start, End: r.MonthRange.End}
	}

	if err := f.Validate(); err != nil {
		return domain.FilterState{}, err
	}
	return f, nil
}

// NewFilterRequest converts f to its wire form.
func NewFilterRequest(f domain.FilterState) FilterRequest {
	r := FilterRequest{
		Skills:         f.Skills.Values(),
		Clients:        f.Clients.Values(),
		PreferredStaff: f.PreferredStaff,
		StaffMode:      string(f.Mode()),
	}
	if f.MonthRange != nil {
		r.MonthRange = &MonthRangeRequest{Start: f.MonthRange.Start, End: f.MonthRange.End}
	}
	return r
}

func selection(values []string) domain.Selection {
	if values == nil {
		return domain.Unfiltered()
	}
	return domain.Only(values...)
}
