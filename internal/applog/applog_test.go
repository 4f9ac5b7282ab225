package applog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewWithoutLogDirSucceeds(t *testing.T) {
	logger, err := New(Options{Verbose: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("test_message", "company", "acme", "ok", true)
}

func TestNewWithLogDirCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	logger, err := New(Options{LogDir: dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("test_message")
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("expected log dir %s to exist, stat err=%v", dir, err)
	}
}

func TestOwnerIsStable(t *testing.T) {
	a := Owner()
	b := Owner()
	if a != b {
		t.Fatalf("Owner() should be stable within a process: %q != %q", a, b)
	}
	if a == "" {
		t.Fatalf("Owner() returned empty string")
	}
}
