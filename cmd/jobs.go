package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rent-tracking/internal/config"
	"rent-tracking/internal/domain"

	"github.com/spf13/cobra"
)

func generateCmd() *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Open this month's tracking for every active lease",
		Long: `Open one rent tracking per active lease for the current month.

Safe to re-run: months already opened are reported as skipped.

Examples:
  rent-tracking generate
  rent-tracking generate --period 2025-01`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if period == "" {
				return runJobCmd(cmd.Context(), domain.JobGenerate, nil)
			}
			p, err := time.Parse("2006-01", period)
			if err != nil {
				return fmt.Errorf("invalid --period %q, expected YYYY-MM", period)
			}
			return runJobCmd(cmd.Context(), domain.JobGenerate, func(ctx context.Context, a *app) (*domain.JobRun, error) {
				return a.jobs.RunGenerateFor(ctx, p.Year(), int(p.Month()))
			})
		},
	}

	cmd.Flags().StringVar(&period, "period", "", "month to open instead of the current one (YYYY-MM)")
	return cmd
}

func checkPaymentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-payments",
		Short: "Match bank transactions against open trackings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJobCmd(cmd.Context(), domain.JobCheckPayments, nil)
		},
	}
}

func processRemindersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "process-reminders",
		Short: "Escalate unpaid trackings and send reminder emails",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJobCmd(cmd.Context(), domain.JobProcessReminders, nil)
		},
	}
}

// runJobCmd runs one job under the shared lock and prints its run record as JSON.
func runJobCmd(parent context.Context, name domain.JobName, fn func(context.Context, *app) (*domain.JobRun, error)) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	log := newLogger(cfg)
	defer func() { _ = log.Sync() }()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	if fn == nil {
		fn = func(ctx context.Context, a *app) (*domain.JobRun, error) {
			return a.jobs.Run(ctx, name)
		}
	}

	run, err := fn(ctx, a)
	if run != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(run)
	}
	return err
}
