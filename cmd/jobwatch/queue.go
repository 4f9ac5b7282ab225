package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jobwatch/jobwatch/internal/appconfig"
	"github.com/jobwatch/jobwatch/internal/store"
	"github.com/jobwatch/jobwatch/internal/ui"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect or reset the diff and job-task queues",
}

var queueClearDiffsCmd = &cobra.Command{
	Use:   "clear-diffs",
	Short: "Delete every row from diff_queue",
	RunE:  runQueueClearDiffs,
}

var queueStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print row counts per status for the diff and job-task queues",
	RunE:  runQueueStats,
}

func init() {
	queueCmd.AddCommand(queueClearDiffsCmd)
	queueCmd.AddCommand(queueStatsCmd)
	rootCmd.AddCommand(queueCmd)
}

func runQueueClearDiffs(cmd *cobra.Command, args []string) error {
	if !ui.PromptYesNo("This deletes every row in diff_queue. Continue?", false) {
		fmt.Println("aborted")
		return nil
	}

	ctx := context.Background()
	s, err := store.Open(ctx, appconfig.GetString("db"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	n, err := s.ClearDiffQueue(ctx)
	if err != nil {
		return fmt.Errorf("clear diff queue: %w", err)
	}
	fmt.Printf("cleared_diff_queue rows_deleted=%d\n", n)
	return nil
}

func runQueueStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	s, err := store.Open(ctx, appconfig.GetString("db"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	diffStats, err := s.DiffQueueStats(ctx)
	if err != nil {
		return fmt.Errorf("diff queue stats: %w", err)
	}
	taskStats, err := s.JobTaskStats(ctx)
	if err != nil {
		return fmt.Errorf("job task stats: %w", err)
	}

	statuses := []string{store.StatusPending, store.StatusInProgress, store.StatusDone, store.StatusFailed}

	if ui.IsTerminal() {
		fmt.Println(ui.RenderQueueStats("DIFF_QUEUE", diffStats, statuses, ui.GetWidth()))
		fmt.Println(ui.RenderQueueStats("JOB_TASKS", taskStats, statuses, ui.GetWidth()))
		return nil
	}

	fmt.Println("diff_queue:")
	printStats(diffStats, statuses)
	fmt.Println("job_tasks:")
	printStats(taskStats, statuses)
	return nil
}

func printStats(stats map[string]int64, statuses []string) {
	for _, status := range statuses {
		fmt.Printf("  %-12s %d\n", status, stats[status])
	}
}
