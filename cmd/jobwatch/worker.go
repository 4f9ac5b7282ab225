package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jobwatch/jobwatch/internal/appconfig"
	"github.com/jobwatch/jobwatch/internal/applog"
	"github.com/jobwatch/jobwatch/internal/expander"
	"github.com/jobwatch/jobwatch/internal/inference"
	"github.com/jobwatch/jobwatch/internal/store"
)

var flagWorkerMaxJobs int

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Expand enqueued diffs into job tasks and run the inference pipeline over them",
	RunE:  runWorker,
}

func init() {
	workerCmd.Flags().IntVar(&flagWorkerMaxJobs, "max-jobs-per-run", 0, "stop after scoring this many jobs (0 = run until interrupted)")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	owner := applog.Owner()
	log := applog.WithOwner(logger, owner)
	log.Info("inference_worker_start", "db", appconfig.GetString("db"))

	pipeline := &inference.Pipeline{
		NodeBin:         appconfig.GetString("node-bin"),
		PuppeteerScript: appconfig.GetString("puppeteer-script"),
		ExtractorBin:    appconfig.GetString("extractor-bin"),
		ExtractorScript: appconfig.GetString("extractor-script"),
		Timeout:         time.Duration(appconfig.GetInt("inference-timeout-seconds")) * time.Second,
	}

	staleAfter := appconfig.GetDuration("stale-claim-timeout")
	if staleAfter <= 0 {
		staleAfter = store.StaleClaimTimeout
	}
	backoff := appconfig.GetDuration("retry-backoff")
	if backoff <= 0 {
		backoff = store.DefaultBackoff
	}
	maxAttempts := appconfig.GetInt("max-attempts")
	pollSleep := time.Duration(appconfig.GetInt("poll-sleep-seconds")) * time.Second

	maxJobs := flagWorkerMaxJobs
	if maxJobs == 0 {
		maxJobs = appconfig.GetInt("max-jobs-per-run")
	}

	processed := 0
	for {
		if maxJobs > 0 && processed >= maxJobs {
			log.Info("worker_max_jobs_reached", "processed", processed)
			return nil
		}
		select {
		case <-ctx.Done():
			log.Info("worker_stopping", "processed", processed)
			return nil
		default:
		}

		s, err := store.Open(ctx, appconfig.GetString("db"))
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}

		if _, err := s.ReapStuckDiffs(ctx, staleAfter.Milliseconds()); err != nil {
			log.Error("reap_stuck_diffs_failed", "error", err)
		}
		if _, err := s.ReapStuckJobTasks(ctx, staleAfter.Milliseconds()); err != nil {
			log.Error("reap_stuck_job_tasks_failed", "error", err)
		}

		inserted, claimed, err := expander.ExpandOne(ctx, s, owner)
		if err != nil {
			log.Error("expand_diff_failed", "error", err)
		} else if claimed && inserted > 0 {
			log.Info("expanded_diff", "inserted_tasks", inserted)
		}

		task, err := s.ClaimJobTask(ctx, owner)
		if err != nil {
			s.Close()
			return fmt.Errorf("claim job task: %w", err)
		}
		if task == nil {
			s.Close()
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(pollSleep):
			}
			continue
		}

		if expander.ShouldSkipURL(task.URL) {
			log.Info("job_skipped_invalid_url", "site", task.Site, "url", task.URL)
			if err := s.CompleteJobTask(ctx, task.ID); err != nil {
				log.Error("complete_skipped_task_failed", "error", err)
			}
			s.Close()
			continue
		}
		s.Close()

		result, err := pipeline.Run(ctx, task.URL)

		s, err2 := store.Open(ctx, appconfig.GetString("db"))
		if err2 != nil {
			return fmt.Errorf("reopen store: %w", err2)
		}
		if err != nil {
			log.Error("job_failed", "site", task.Site, "url", task.URL, "error", err)
			if failErr := s.FailJobTask(ctx, task.ID, err.Error(), backoff.Milliseconds(), maxAttempts); failErr != nil {
				log.Error("mark_job_failed_failed", "error", failErr)
			}
			s.Close()
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			continue
		}

		years := result.MinYears
		include := result.Include()
		excludeReason := ""
		if !include {
			excludeReason = fmt.Sprintf("min_years_gte_%d", inference.MinYearsThreshold)
		}
		if err := s.UpsertJobDetail(ctx, store.JobDetail{
			Site:           task.Site,
			URL:            task.URL,
			Title:          result.JobTitle,
			MinYears:       &years,
			DiscoveredTsMs: time.Now().UnixMilli(),
			IncludeJob:     include,
			ExcludeReason:  excludeReason,
		}); err != nil {
			log.Error("upsert_job_detail_failed", "error", err)
		}
		if err := s.CompleteJobTask(ctx, task.ID); err != nil {
			log.Error("complete_job_task_failed", "error", err)
		}
		s.Close()

		processed++
		log.Info("job_done", "site", task.Site, "min_years", result.MinYears, "title", result.JobTitle)
	}
}
