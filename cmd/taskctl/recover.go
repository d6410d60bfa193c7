package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fastygo/taskbot/domain"
	"github.com/fastygo/taskbot/usecase/reminder"
)

// noopScheduler satisfies the recovery planner; a dry run never schedules.
type noopScheduler struct{}

func (noopScheduler) Schedule(domain.Job)         {}
func (noopScheduler) CancelAllForTask(string) int { return 0 }

func recoverCmd() *cobra.Command {
	var (
		dryRun     bool
		allOffsets bool
	)
	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Show what the server would reschedule on startup",
		Long: `Read every active task and print the recovery decision for it:
scheduled, debounced (reminder instant passed while offline) or missed
(due time already passed).

Recovery itself runs inside the server process at startup.

Examples:
  taskctl recover --dry-run
  taskctl recover --dry-run --all-offsets`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !dryRun {
				return errors.New("recovery runs inside the server at startup; use --dry-run to inspect it")
			}
			e, err := loadEnv(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer e.close()

			if !cmd.Flags().Changed("all-offsets") {
				allOffsets = e.cfg.Reminders.RecoverAllOffsets
			}
			recovery := reminder.NewRecovery(e.stores.Tasks, noopScheduler{}, e.logger,
				reminder.WithDebounce(e.cfg.Reminders.RecoveryDebounce),
				reminder.WithAllOffsets(allOffsets))

			report, err := recovery.Plan(cmd.Context())
			if err != nil {
				return err
			}

			loc := e.cfg.Location()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TASK\tOWNER\tDUE\tOUTCOME\tFIRE AT")
			for _, d := range report.Decisions {
				fireAt := "-"
				if len(d.Jobs) > 0 {
					fireAt = d.Jobs[0].FireAt.In(loc).Format("2006-01-02 15:04:05")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					d.Task.ID, d.Task.OwnerID, d.Task.DueAt.In(loc).Format("2006-01-02 15:04"), d.Outcome, fireAt)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nscheduled=%d debounced=%d missed=%d\n",
				report.Scheduled, report.Debounced, report.Missed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the plan without scheduling anything")
	cmd.Flags().BoolVar(&allOffsets, "all-offsets", false, "restore every still-future offset (defaults to RECOVER_ALL_OFFSETS)")
	return cmd
}
