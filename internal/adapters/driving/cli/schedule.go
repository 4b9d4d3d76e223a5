package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run or inspect periodic sync and merge tasks",
	Long: `Every configured source gets a sync:<source> task and articles and books
get a merge:<type> task. Intervals come from scheduler.sync_interval and
scheduler.merge_interval.`,
}

var scheduleRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run due tasks in the foreground until interrupted",
	RunE:  runScheduleRun,
}

var scheduleStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show each task's last and next run",
	RunE:  runScheduleStatus,
}

func init() {
	scheduleCmd.AddCommand(scheduleRunCmd)
	scheduleCmd.AddCommand(scheduleStatusCmd)
	rootCmd.AddCommand(scheduleCmd)
}

func runScheduleRun(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}
	if runtimeConfig != nil && !runtimeConfig.Scheduler.Enabled {
		return errors.New("scheduler is disabled (scheduler.enabled = false)")
	}

	cmd.Println("Scheduler running. Press Ctrl+C to stop.")
	err := scheduler.Start(cmd.Context())
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if stopErr := scheduler.Stop(); stopErr != nil && err == nil {
		err = stopErr
	}
	if err != nil {
		return fmt.Errorf("scheduler stopped: %w", err)
	}
	cmd.Println("Scheduler stopped.")
	return nil
}

func runScheduleStatus(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}

	tasks, err := scheduler.Tasks(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}
	if len(tasks) == 0 {
		cmd.Println("No scheduled tasks yet. Run 'shelfsync schedule run' to create them.")
		return nil
	}

	for _, t := range tasks {
		state := "enabled"
		if !t.Enabled {
			state = "disabled"
		}
		cmd.Printf("%-16s every %-8s %s\n", t.ID, t.Interval, state)
		cmd.Printf("  last run:  %s\n", formatRunTime(t.LastRun))
		cmd.Printf("  next run:  %s\n", formatRunTime(t.NextRun))
		if t.LastError != "" {
			cmd.Printf("  last error: %s\n", t.LastError)
		}
	}
	return nil
}

func formatRunTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04")
}
