package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/rezkam/demand/internal/application/demand"
	"github.com/rezkam/demand/internal/bootstrap"
)

// filterFlags are the filter options shared by matrix and cell.
type filterFlags struct {
	view       string
	skills     []string
	clients    []string
	staff      []string
	staffMode  string
	monthStart int
	monthEnd   int
}

func (f *filterFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.view, "view", bootstrap.ViewSkills, "Matrix view: skills or clients")
	flags.StringSliceVar(&f.skills, "skill", nil, `Keep only these skills (--skill="" keeps none)`)
	flags.StringSliceVar(&f.clients, "client", nil, `Keep only these client ids (--client="" keeps none)`)
	flags.StringSliceVar(&f.staff, "staff", nil, "Preferred staff ids for --staff-mode=specific")
	flags.StringVar(&f.staffMode, "staff-mode", "all", "Preferred staff filter: all, specific or none")
	flags.IntVar(&f.monthStart, "month-start", 0, "First month column index (with --month-end)")
	flags.IntVar(&f.monthEnd, "month-end", 0, "Last month column index, inclusive")
}

// request converts the flags to a FilterRequest. An unset --skill or --client
// means no filter on that dimension.
func (f *filterFlags) request(cmd *cobra.Command) (demand.FilterRequest, error) {
	flags := cmd.Flags()
	req := demand.FilterRequest{
		PreferredStaff: nonEmpty(f.staff),
		StaffMode:      f.staffMode,
	}
	if flags.Changed("skill") {
		req.Skills = selection(f.skills)
	}
	if flags.Changed("client") {
		req.Clients = selection(f.clients)
	}

	start, end := flags.Changed("month-start"), flags.Changed("month-end")
	if start != end {
		return demand.FilterRequest{}, errors.New("--month-start and --month-end must be given together")
	}
	if start {
		req.MonthRange = &demand.MonthRangeRequest{Start: f.monthStart, End: f.monthEnd}
	}
	return req, nil
}

func selection(values []string) []string {
	out := nonEmpty(values)
	if out == nil {
		out = []string{}
	}
	return out
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
