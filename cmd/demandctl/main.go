// Command demandctl inspects demand matrices and loads directory snapshots.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezkam/demand/internal/bootstrap"
	"github.com/rezkam/demand/internal/config"
	"github.com/rezkam/demand/internal/infrastructure/observability"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(&cli{}).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cli holds state shared by the subcommands.
type cli struct {
	cfg       *config.CLIConfig // loaded from the environment when nil
	verbose   bool
	providers *observability.Providers
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "demandctl",
		Short: "Inspect recurring-task demand matrices",
		Long: `demandctl builds the skill and client demand matrices from the configured
directory (DEMAND_SOURCE_TYPE), prints cells and their task breakdown, follows
filter changes from stdin and imports directory snapshots.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return c.teardown(cmd.Context())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Log engine events to stderr")

	root.AddCommand(
		newMatrixCmd(c),
		newCellCmd(c),
		newWatchCmd(c),
		newImportCmd(c),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	if c.cfg == nil {
		cfg, err := config.LoadCLIConfig()
		if err != nil {
			return err
		}
		c.cfg = cfg
	}

	if c.cfg.Observability.OTelEnabled {
		providers, err := observability.Init(cmd.Context(), observability.Config{
			Enabled:     true,
			ServiceName: c.cfg.Observability.ServiceName,
		})
		if err != nil {
			return fmt.Errorf("failed to init observability: %w", err)
		}
		c.providers = providers
		slog.SetDefault(providers.Logger)
		return nil
	}

	// stdout carries command output; logs go to stderr.
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
	return nil
}

func (c *cli) teardown(ctx context.Context) error {
	if c.providers == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	return c.providers.Shutdown(shutdownCtx)
}

// openApp wires the views. The returned func stops them and releases connections.
func (c *cli) openApp(ctx context.Context) (*bootstrap.App, func(), error) {
	opts := bootstrap.Options{
		Source: c.cfg.Source,
		Cache:  c.cfg.Cache,
		Retry:  c.cfg.Retry,
		Matrix: c.cfg.Matrix,
	}
	if c.providers != nil {
		opts.MeterProvider = c.providers.Meter
	}

	app, err := bootstrap.New(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	return app, func() {
		shutdownCtx := context.WithoutCancel(ctx)
		if err := app.Shutdown(shutdownCtx); err != nil {
			slog.WarnContext(shutdownCtx, "Failed to stop views", "error", err)
		}
		if err := app.Close(); err != nil {
			slog.WarnContext(shutdownCtx, "Failed to close resources", "error", err)
		}
	}, nil
}

func (c *cli) view(app *bootstrap.App, name string) (*bootstrap.ViewRuntime, error) {
	v, ok := app.View(name)
	if !ok {
		return nil, fmt.Errorf("unknown view %q: use %s or %s", name, bootstrap.ViewSkills, bootstrap.ViewClients)
	}
	return v, nil
}

func warnIssues(w io.Writer, issues []string) {
	for _, issue := range issues {
		fmt.Fprintf(w, "warning: %s\n", issue)
	}
}
