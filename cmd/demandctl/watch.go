package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezkam/demand/internal/application/demand"
	"github.com/rezkam/demand/internal/bootstrap"
)

func newWatchCmd(c *cli) *cobra.Command {
	var (
		view    string
		table   bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Load the matrix for each filter read from stdin",
		Long: `Read one JSON filter per line from stdin, for example
  {"skills":["Tax"],"staffMode":"none"}
and submit each to a debounced view. Bursts of filters collapse into one load,
and only results that are still the latest request are printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, closeApp, err := c.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer closeApp()

			v, err := c.view(app, view)
			if err != nil {
				return err
			}

			out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
			var mu sync.Mutex
			delivered := make(chan uint64, 64)
			v.View.Subscribe(func(u demand.ViewUpdate) {
				mu.Lock()
				printUpdate(out, errOut, u, table)
				mu.Unlock()

				select {
				case delivered <- u.Token:
				default:
				}
			})

			last, err := submitLines(cmd, v)
			if err != nil || last == 0 {
				return err
			}
			return awaitToken(cmd, delivered, last, timeout)
		},
	}

	cmd.Flags().StringVar(&view, "view", bootstrap.ViewSkills, "Matrix view: skills or clients")
	cmd.Flags().BoolVar(&table, "table", false, "Print the matrix table for every update")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "How long to wait for the last load after stdin closes")
	return cmd
}

// printUpdate writes one update line and, with table, the filtered matrix.
// Write failures go to errOut.
func printUpdate(out, errOut io.Writer, u demand.ViewUpdate, table bool) {
	if u.Err != nil {
		fmt.Fprintf(out, "#%d error: %v\n", u.Token, u.Err)
		return
	}

	m := u.Result.Filtered
	if _, err := fmt.Fprintf(out, "#%d %s %sh tasks=%d clients=%d attempts=%d\n",
		u.Token, m.Strategy, formatHours(m.TotalDemand), m.TotalTasks, m.TotalClients, u.Result.Attempts); err != nil {
		fmt.Fprintf(errOut, "#%d: failed to print update: %v\n", u.Token, err)
		return
	}
	if table {
		if err := printMatrix(out, m); err != nil {
			fmt.Fprintf(errOut, "#%d: failed to print matrix: %v\n", u.Token, err)
		}
	}
}

// submitLines submits every valid filter line and returns the last token.
// Malformed lines are reported on stderr and skipped.
func submitLines(cmd *cobra.Command, v *bootstrap.ViewRuntime) (uint64, error) {
	var last uint64
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var req demand.FilterRequest
		if err := json.Unmarshal([]byte(text), &req); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "line %d: invalid filter: %v\n", line, err)
			continue
		}
		f, err := req.ToFilterState()
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "line %d: %v\n", line, err)
			continue
		}
		last = v.View.Submit(f)
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("failed to read filters: %w", err)
	}
	return last, nil
}

func awaitToken(cmd *cobra.Command, delivered <-chan uint64, last uint64, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case token := <-delivered:
			if token >= last {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("no result for request #%d within %s", last, timeout)
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		}
	}
}
