package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rezkam/demand/internal/application/demand"
)

func newCellCmd(c *cli) *cobra.Command {
	var filter filterFlags

	cmd := &cobra.Command{
		Use:   "cell <bucket> <month>",
		Short: "Print the task breakdown of one matrix cell",
		Long: `Print the task breakdown of one cell of the filtered matrix.
bucket is a skill, client name, staff label or "Unassigned"; month is YYYY-MM.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := filter.request(cmd)
			if err != nil {
				return err
			}
			result, err := c.load(cmd, filter.view, req)
			if err != nil {
				return err
			}

			entries, err := demand.CellDetail(result.Filtered, args[0], args[1])
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TASK\tNAME\tCLIENT\tSKILL\tPATTERN\tSTAFF\tHOURS")
			var total float64
			for _, e := range entries {
				staff := "-"
				if e.PreferredStaff.IsAssigned() {
					staff = e.PreferredStaff.StaffName
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					e.RecurringTaskID, e.TaskName, e.ClientName, e.SkillType, e.RecurrencePattern, staff, formatHours(e.MonthlyHours))
				total += e.MonthlyHours
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "\n%d tasks, %sh\n", len(entries), formatHours(total))
			return err
		},
	}

	filter.register(cmd)
	return cmd
}
