package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rezkam/demand/internal/application/demand"
	"github.com/rezkam/demand/internal/domain"
)

func newMatrixCmd(c *cli) *cobra.Command {
	var (
		filter filterFlags
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "matrix",
		Short: "Print the filtered demand matrix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := filter.request(cmd)
			if err != nil {
				return err
			}
			result, err := c.load(cmd, filter.view, req)
			if err != nil {
				return err
			}

			warnIssues(cmd.ErrOrStderr(), result.ValidationIssues)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			return printMatrix(cmd.OutOrStdout(), result.Filtered)
		},
	}

	filter.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full load result as JSON")
	return cmd
}

// load runs one load of view with req.
func (c *cli) load(cmd *cobra.Command, view string, req demand.FilterRequest) (*demand.LoadResult, error) {
	f, err := req.ToFilterState()
	if err != nil {
		return nil, err
	}

	app, closeApp, err := c.openApp(cmd.Context())
	if err != nil {
		return nil, err
	}
	defer closeApp()

	v, err := c.view(app, view)
	if err != nil {
		return nil, err
	}
	return v.Loader.LoadWithRetry(cmd.Context(), demand.LoadRequest{Filter: f})
}

// printMatrix writes one row per bucket with hours per month and a total column.
func printMatrix(w io.Writer, m *domain.DemandMatrix) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprint(tw, "BUCKET\t")
	for _, month := range m.Months {
		fmt.Fprintf(tw, "%s\t", month.Key)
	}
	fmt.Fprintln(tw, "TOTAL\t")

	writeRows := func(buckets []string, cells []domain.DataPoint) {
		for _, bucket := range buckets {
			hours := make(map[string]float64, len(m.Months))
			var total float64
			for _, p := range cells {
				if p.SkillType == bucket {
					hours[p.Month] += p.DemandHours
					total += p.DemandHours
				}
			}
			fmt.Fprintf(tw, "%s\t", bucket)
			for _, month := range m.Months {
				fmt.Fprintf(tw, "%s\t", formatHours(hours[month.Key]))
			}
			fmt.Fprintf(tw, "%s\t\n", formatHours(total))
		}
	}

	writeRows(m.Skills, m.DataPoints)
	if len(m.Unassigned) > 0 {
		writeRows([]string{demand.UnassignedBucket}, m.Unassigned)
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\nstrategy: %s  dimension: %s  demand: %sh  tasks: %d  clients: %d\n",
		m.Strategy, m.Dimension, formatHours(m.TotalDemand), m.TotalTasks, m.TotalClients)
	return err
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}
