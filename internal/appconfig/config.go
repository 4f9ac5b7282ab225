// Package appconfig is the layered application configuration for
// jobwatch: defaults, then ./state/jobwatch.toml, then JOBWATCH_*
// environment variables, then CLI flags (flags are applied by cmd/
// via Set after Initialize runs). This is deliberately separate from
// internal/targets, which only ever reads the plain company/URL CSV.
package appconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var v *viper.Viper

// Initialize sets up the viper singleton: defaults, then
// ./state/jobwatch.toml if present, then JOBWATCH_*-prefixed env vars.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("toml")

	configPath := locateConfigFile()
	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	v.SetEnvPrefix("JOBWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	// The audit CSV path also honours the unprefixed EMAILED_JOBS_CSV.
	if err := v.BindEnv("audit-csv", "JOBWATCH_AUDIT_CSV", "EMAILED_JOBS_CSV"); err != nil {
		return fmt.Errorf("bind audit-csv env: %w", err)
	}

	setDefaults(v)

	if configPath != "" {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", configPath, err)
		}
	}
	return nil
}

// locateConfigFile walks up from the working directory looking for
// state/jobwatch.toml, the way the teacher's config loader walks up
// looking for .beads/config.yaml. Returns "" if none is found.
func locateConfigFile() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
		candidate := filepath.Join(dir, "state", "jobwatch.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db", "./state/snapshots.sqlite3")
	v.SetDefault("targets-csv", "./state/companies.csv")

	v.SetDefault("node-bin", "node")
	v.SetDefault("node-workdir", "./node_link_extractor")
	v.SetDefault("node-timeout-seconds", 180)

	v.SetDefault("puppeteer-script", "./node_link_extractor/index.js")
	v.SetDefault("extractor-bin", "python")
	v.SetDefault("extractor-script", "./job-alert/extract_experience.py")
	v.SetDefault("inference-timeout-seconds", 120)

	v.SetDefault("poll-sleep-seconds", 2)
	v.SetDefault("max-jobs-per-run", 0)
	v.SetDefault("stale-claim-timeout", "10m")
	v.SetDefault("retry-backoff", "30s")
	v.SetDefault("max-attempts", 5)
	v.SetDefault("snapshot-max-workers", 4)

	v.SetDefault("email-to", "")
	v.SetDefault("audit-csv", "./state/emailed_jobs.csv")
	v.SetDefault("threshold", 4)

	v.SetDefault("log-dir", "./state/logs")
	v.SetDefault("log-max-size-mb", 50)
	v.SetDefault("log-max-backups", 5)
	v.SetDefault("verbose", false)
}

func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// Set overrides a configuration value, used by cmd/jobwatch to apply
// explicitly-set CLI flags after Initialize has loaded file/env
// config.
func Set(key string, value any) {
	if v != nil {
		v.Set(key, value)
	}
}

// ConfigFileUsed reports which file, if any, Initialize loaded.
func ConfigFileUsed() string {
	if v == nil {
		return ""
	}
	return v.ConfigFileUsed()
}

// ConfigSource identifies where an effective configuration value came
// from, for the startup override log.
type ConfigSource string

const (
	SourceDefault    ConfigSource = "default"
	SourceConfigFile ConfigSource = "config_file"
	SourceEnvVar     ConfigSource = "env_var"
	SourceFlag       ConfigSource = "flag"
)

// Override describes one configuration key whose effective value came
// from something other than a default, worth surfacing to an operator
// in verbose mode so a forgotten env var or flag doesn't cause
// silent, hard-to-explain behavior.
type Override struct {
	Key            string
	EffectiveValue any
	OverriddenBy   ConfigSource
}

func valueSource(key string) ConfigSource {
	if v == nil {
		return SourceDefault
	}
	envKey := "JOBWATCH_" + strings.ToUpper(strings.ReplaceAll(strings.ReplaceAll(key, "-", "_"), ".", "_"))
	if os.Getenv(envKey) != "" {
		return SourceEnvVar
	}
	if v.InConfig(key) {
		return SourceConfigFile
	}
	return SourceDefault
}

// CheckOverrides reports every key whose effective value did not come
// from a default: flags explicitly set on the command line (per
// flagsChanged), then config-file and env-var values detected via
// valueSource. Flags take priority since Set() is applied after
// Initialize for exactly those keys.
func CheckOverrides(flagsChanged map[string]any) []Override {
	var overrides []Override
	seen := map[string]bool{}

	for key, val := range flagsChanged {
		overrides = append(overrides, Override{Key: key, EffectiveValue: val, OverriddenBy: SourceFlag})
		seen[key] = true
	}

	if v != nil {
		for _, key := range v.AllKeys() {
			if seen[key] {
				continue
			}
			if src := valueSource(key); src != SourceDefault {
				overrides = append(overrides, Override{Key: key, EffectiveValue: v.Get(key), OverriddenBy: src})
			}
		}
	}
	return overrides
}
