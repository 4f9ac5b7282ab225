package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jobwatch/jobwatch/internal/appconfig"
	"github.com/jobwatch/jobwatch/internal/linkextract"
	"github.com/jobwatch/jobwatch/internal/snapshotter"
	"github.com/jobwatch/jobwatch/internal/store"
	"github.com/jobwatch/jobwatch/internal/targets"
	"github.com/jobwatch/jobwatch/internal/ui"
)

var (
	flagSnapshotCSV         string
	flagSnapshotStopOnError bool
	flagSnapshotMaxWorkers  int
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Crawl every target's careers page and enqueue any new job links",
	RunE:  runSnapshot,
}

func init() {
	snapshotCmd.Flags().StringVar(&flagSnapshotCSV, "csv", "", "path to the company,url targets CSV (overrides config)")
	snapshotCmd.Flags().BoolVar(&flagSnapshotStopOnError, "stop-on-error", false, "stop the batch at the first failed target")
	snapshotCmd.Flags().IntVar(&flagSnapshotMaxWorkers, "max-workers", 1, "number of targets to crawl concurrently (1 = serial)")
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	csvPath := flagSnapshotCSV
	if csvPath == "" {
		csvPath = appconfig.GetString("targets-csv")
	}
	ts, err := targets.LoadCSV(csvPath)
	if err != nil {
		return fmt.Errorf("load targets: %w", err)
	}
	logger.Info("targets_loaded", "count", len(ts), "csv_path", csvPath)

	s, err := store.Open(ctx, appconfig.GetString("db"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	extractor := linkextract.NewClient(
		appconfig.GetString("node-bin"),
		appconfig.GetString("node-workdir"),
		time.Duration(appconfig.GetInt("node-timeout-seconds"))*time.Second,
	)
	runner := &snapshotter.Runner{Store: s, Extractor: extractor}

	var report snapshotter.BatchReport
	if flagSnapshotMaxWorkers > 1 {
		report, err = runner.RunParallel(ctx, ts, flagSnapshotMaxWorkers, flagSnapshotStopOnError)
		if err != nil {
			return fmt.Errorf("run parallel batch: %w", err)
		}
	} else {
		report = runner.RunSerial(ctx, ts, flagSnapshotStopOnError)
	}

	for _, res := range report.Results {
		logger.Info("company_done",
			"company", res.Company,
			"ok", res.OK,
			"error", res.Error,
			"node_ms", res.NodeMs,
			"new_link_count", res.NewLinkCount,
			"added", res.AddedURLCount,
			"diff_enqueued", res.DiffEnqueued,
		)
	}
	logger.Info("batch_done",
		"total", report.TargetCount,
		"ok", report.OKCount,
		"fail", report.FailCount,
		"duration_ms", report.DurationMs,
	)

	if ui.IsTerminal() {
		rows := make([]ui.BatchRow, len(report.Results))
		for i, res := range report.Results {
			rows[i] = ui.BatchRow{
				Company: res.Company,
				OK:      res.OK,
				Added:   res.AddedURLCount,
				NodeMs:  res.NodeMs,
				Error:   res.Error,
			}
		}
		fmt.Println(ui.RenderBatchTable(rows, ui.GetWidth(), ui.ShouldUseColor()))
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
