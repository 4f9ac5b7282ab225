package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jobwatch/jobwatch/internal/appconfig"
	"github.com/jobwatch/jobwatch/internal/diffing"
	"github.com/jobwatch/jobwatch/internal/linkextract"
	"github.com/jobwatch/jobwatch/internal/store"
	"github.com/jobwatch/jobwatch/internal/targets"
	"github.com/jobwatch/jobwatch/internal/ui"
)

var (
	flagSeedCSV         string
	flagSeedClearFirst  bool
	flagSeedStopOnError bool
)

// seedResult mirrors one row of seed_current_snapshot_from_csv's per-company report.
type seedResult struct {
	Company      string `json:"company"`
	URL          string `json:"url"`
	OK           bool   `json:"ok"`
	Error        string `json:"error,omitempty"`
	LinkCount    int    `json:"link_count"`
	SnapshotHash string `json:"snapshot_hash"`
	NodeMs       int64  `json:"node_ms"`
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate current_snapshot from a targets CSV without enqueueing any diffs",
	Long: `seed fetches every target's current links and writes them straight
into current_snapshot, bypassing the diff/enqueue step entirely.

Use this once, before the first real "jobwatch snapshot" run, so that
postings that already exist on a careers page are not all treated as
newly discovered.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&flagSeedCSV, "csv", "", "path to the company,url targets CSV (overrides config)")
	seedCmd.Flags().BoolVar(&flagSeedClearFirst, "clear-current-snapshot-first", false, "DELETE FROM current_snapshot before repopulating")
	seedCmd.Flags().BoolVar(&flagSeedStopOnError, "stop-on-error", false, "stop the seed run at the first failed target")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	csvPath := flagSeedCSV
	if csvPath == "" {
		csvPath = appconfig.GetString("targets-csv")
	}
	ts, err := targets.LoadCSV(csvPath)
	if err != nil {
		return fmt.Errorf("load targets: %w", err)
	}

	s, err := store.Open(ctx, appconfig.GetString("db"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	if flagSeedClearFirst {
		if !ui.PromptYesNo("This deletes every row in current_snapshot before reseeding. Continue?", false) {
			fmt.Println("aborted")
			return nil
		}
		logger.Info("clear_current_snapshot_first", "value", true)
		if err := s.ClearCurrentSnapshot(ctx); err != nil {
			return fmt.Errorf("clear current snapshot: %w", err)
		}
	}

	extractor := linkextract.NewClient(
		appconfig.GetString("node-bin"),
		appconfig.GetString("node-workdir"),
		time.Duration(appconfig.GetInt("node-timeout-seconds"))*time.Second,
	)

	results := make([]seedResult, 0, len(ts))
	okCount, failCount := 0, 0

	for idx, t := range ts {
		logger.Info("seed_progress", "index", idx+1, "total", len(ts), "company", t.Company)

		start := time.Now()
		res, err := extractor.FetchLinks(ctx, t.URL)
		nodeMs := time.Since(start).Milliseconds()
		if err != nil {
			failCount++
			logger.Error("seed_failed", "company", t.Company, "url", t.URL, "error", err)
			results = append(results, seedResult{
				Company: t.Company,
				URL:     t.URL,
				OK:      false,
				Error:   err.Error(),
			})
			if flagSeedStopOnError {
				logger.Error("stop_on_error", "value", true)
				break
			}
			continue
		}

		hash, err := diffing.SnapshotHash(res.Links)
		if err != nil {
			failCount++
			logger.Error("seed_failed", "company", t.Company, "url", t.URL, "error", err)
			results = append(results, seedResult{
				Company: t.Company,
				URL:     t.URL,
				OK:      false,
				Error:   err.Error(),
			})
			if flagSeedStopOnError {
				logger.Error("stop_on_error", "value", true)
				break
			}
			continue
		}
		if err := s.UpsertSnapshot(ctx, t.Company, res.Links, hash); err != nil {
			failCount++
			logger.Error("seed_failed", "company", t.Company, "url", t.URL, "error", err)
			results = append(results, seedResult{
				Company: t.Company,
				URL:     t.URL,
				OK:      false,
				Error:   err.Error(),
			})
			if flagSeedStopOnError {
				logger.Error("stop_on_error", "value", true)
				break
			}
			continue
		}

		okCount++
		results = append(results, seedResult{
			Company:      t.Company,
			URL:          t.URL,
			OK:           true,
			LinkCount:    len(res.Links),
			SnapshotHash: hash,
			NodeMs:       nodeMs,
		})
		logger.Info("seed_done",
			"company", t.Company,
			"ok", true,
			"node_ms", nodeMs,
			"link_count", len(res.Links),
			"snapshot_hash", hash,
		)
	}

	report := map[string]any{
		"csv_path":                     csvPath,
		"clear_current_snapshot_first": flagSeedClearFirst,
		"company_count_total":          len(ts),
		"company_ok_count":             okCount,
		"company_fail_count":           failCount,
		"results":                      results,
	}
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
