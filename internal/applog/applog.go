// Package applog wires up the structured key=value logging shared
// across every jobwatch command: slog's text handler writing stable
// field names (company=, ok=, node_ms=, added=, diff_enqueued=, ...)
// so log lines stay greppable, with optional file rotation via
// lumberjack when a log directory is configured.
package applog

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	// Verbose enables DEBUG-level output; otherwise INFO and above.
	Verbose bool
	// LogDir, if non-empty, also writes rotated log files there in
	// addition to stdout.
	LogDir     string
	MaxSizeMB  int
	MaxBackups int
}

// New builds the process-wide logger. Output always goes to stdout;
// when LogDir is set it additionally fans out to a rotating file so
// long-running workers don't need an external log-rotation daemon.
func New(opts Options) (*slog.Logger, error) {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}

	var writer io.Writer = os.Stdout
	if opts.LogDir != "" {
		if err := os.MkdirAll(opts.LogDir, 0o755); err != nil {
			return nil, err
		}
		rotator := &lumberjack.Logger{
			Filename:   filepath.Join(opts.LogDir, "jobwatch.log"),
			MaxSize:    defaultInt(opts.MaxSizeMB, 50),
			MaxBackups: defaultInt(opts.MaxBackups, 5),
			Compress:   true,
		}
		writer = io.MultiWriter(os.Stdout, rotator)
	}

	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	})
	return slog.New(handler), nil
}

func defaultInt(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

// WithOwner returns a logger with an "owner" field attached, the
// identity workers stamp onto every diff_queue/job_tasks claim so log
// lines can be correlated with the row that holds the lock.
func WithOwner(logger *slog.Logger, owner string) *slog.Logger {
	return logger.With("owner", owner)
}

// Owner builds the "<hostname>:<pid>" identity used both for claim
// ownership and for log correlation, mirroring the original tooling's
// socket.gethostname():os.getpid() convention.
func Owner() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown-host"
	}
	return host + ":" + strconv.Itoa(os.Getpid())
}

// Discard returns a logger that drops everything, for tests that
// don't want log noise but still need a *slog.Logger to satisfy an
// interface.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
