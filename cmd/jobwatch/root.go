package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jobwatch/jobwatch/internal/appconfig"
	"github.com/jobwatch/jobwatch/internal/applog"
	"github.com/jobwatch/jobwatch/internal/inference"
)

var (
	flagVerbose   bool
	flagDBPath    string
	flagThreshold int

	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "jobwatch",
	Short: "Crash-safe job-posting tracker and experience-requirement digest",
	Long: `jobwatch watches company careers pages, detects new job postings,
scores each one's minimum years of experience via an external inference
pipeline, and emails a periodic digest of postings under a threshold.

All state lives in one embedded SQLite database; every stage of the
pipeline is safe to interrupt and resume.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := appconfig.Initialize(); err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		flagsChanged := map[string]any{}
		if cmd.Flags().Changed("verbose") {
			appconfig.Set("verbose", flagVerbose)
			flagsChanged["verbose"] = flagVerbose
		}
		if cmd.Flags().Changed("db") {
			appconfig.Set("db", flagDBPath)
			flagsChanged["db"] = flagDBPath
		}
		if cmd.Flags().Changed("threshold") {
			appconfig.Set("threshold", flagThreshold)
			flagsChanged["threshold"] = flagThreshold
		}
		inference.MinYearsThreshold = appconfig.GetInt("threshold")

		l, err := applog.New(applog.Options{
			Verbose:    appconfig.GetBool("verbose"),
			LogDir:     appconfig.GetString("log-dir"),
			MaxSizeMB:  appconfig.GetInt("log-max-size-mb"),
			MaxBackups: appconfig.GetInt("log-max-backups"),
		})
		if err != nil {
			return fmt.Errorf("init logging: %w", err)
		}
		logger = l

		if appconfig.GetBool("verbose") {
			for _, o := range appconfig.CheckOverrides(flagsChanged) {
				logger.Debug("config_override", "key", o.Key, "value", o.EffectiveValue, "source", o.OverriddenBy)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug-level logging")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "path to the jobwatch SQLite database (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagThreshold, "threshold", 0, "inclusive-below minimum-years cutoff for the digest (overrides config)")
}
