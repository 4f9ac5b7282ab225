package snapshotter

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jobwatch/jobwatch/internal/linkextract"
	"github.com/jobwatch/jobwatch/internal/store"
	"github.com/jobwatch/jobwatch/internal/targets"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(ctx, t.TempDir()+"/jobwatch.db")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// newFakeExtractor writes a fake node index.js that prints the given
// links, one per line, regardless of the URL argument.
func newFakeExtractor(t *testing.T, links ...string) *linkextract.Client {
	t.Helper()
	dir := t.TempDir()
	body := "#!/bin/sh\n"
	for _, l := range links {
		body += "echo \"" + l + "\"\n"
	}
	if err := os.WriteFile(filepath.Join(dir, "index.js"), []byte(body), 0o755); err != nil {
		t.Fatalf("write fake index.js: %v", err)
	}
	return linkextract.NewClient("/bin/sh", dir, time.Second)
}

func TestRunOneFirstCrawlEnqueuesEverythingAsAdded(t *testing.T) {
	s := newTestStore(t)
	r := &Runner{Store: s, Extractor: newFakeExtractor(t, "https://acme.example/jobs/1", "https://acme.example/jobs/2")}

	res := r.RunOne(context.Background(), targets.Target{Company: "acme", URL: "https://acme.example/careers"})
	if !res.OK {
		t.Fatalf("RunOne failed: %s", res.Error)
	}
	if res.OldLinkCount != 0 || res.NewLinkCount != 2 || res.AddedURLCount != 2 {
		t.Fatalf("RunOne result = %+v, want old=0 new=2 added=2", res)
	}
	if !res.DiffEnqueued {
		t.Fatalf("expected a diff to be enqueued on first crawl")
	}
}

func TestRunOneSecondCrawlOnlyDiffsNewLinks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r1 := &Runner{Store: s, Extractor: newFakeExtractor(t, "https://acme.example/jobs/1")}
	if res := r1.RunOne(ctx, targets.Target{Company: "acme", URL: "https://acme.example/careers"}); !res.OK {
		t.Fatalf("first RunOne failed: %s", res.Error)
	}

	r2 := &Runner{Store: s, Extractor: newFakeExtractor(t, "https://acme.example/jobs/1", "https://acme.example/jobs/2")}
	res := r2.RunOne(ctx, targets.Target{Company: "acme", URL: "https://acme.example/careers"})
	if !res.OK {
		t.Fatalf("second RunOne failed: %s", res.Error)
	}
	if res.OldLinkCount != 1 || res.NewLinkCount != 2 || res.AddedURLCount != 1 {
		t.Fatalf("RunOne result = %+v, want old=1 new=2 added=1", res)
	}
}

func TestRunOneNoChangeDoesNotEnqueueDiff(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	target := targets.Target{Company: "acme", URL: "https://acme.example/careers"}

	r := &Runner{Store: s, Extractor: newFakeExtractor(t, "https://acme.example/jobs/1")}
	if res := r.RunOne(ctx, target); !res.OK {
		t.Fatalf("first RunOne failed: %s", res.Error)
	}
	res := r.RunOne(ctx, target)
	if !res.OK {
		t.Fatalf("second RunOne failed: %s", res.Error)
	}
	if res.AddedURLCount != 0 || res.DiffEnqueued {
		t.Fatalf("RunOne result = %+v, want no added links and no diff enqueued", res)
	}
}

func TestRunSerialStopsOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	good := targets.Target{Company: "acme", URL: "https://acme.example/careers"}
	bad := targets.Target{Company: "globex", URL: "https://globex.example/careers"}
	afterBad := targets.Target{Company: "initech", URL: "https://initech.example/careers"}

	brokenExtractor := linkextract.NewClient("/bin/sh", t.TempDir(), time.Second) // no index.js present -> fails
	r := &Runner{Store: s, Extractor: brokenExtractor}

	report := r.RunSerial(ctx, []targets.Target{good, bad, afterBad}, true)
	if report.OKCount != 0 {
		t.Fatalf("expected all targets to fail with a broken extractor, got OKCount=%d", report.OKCount)
	}
	if len(report.Results) != 1 {
		t.Fatalf("expected RunSerial to stop after first failure, got %d results", len(report.Results))
	}
}

func TestRunParallelCoversAllTargets(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	r := &Runner{Store: s, Extractor: newFakeExtractor(t, "https://acme.example/jobs/1")}

	ts := []targets.Target{
		{Company: "acme", URL: "https://acme.example/careers"},
		{Company: "globex", URL: "https://globex.example/careers"},
		{Company: "initech", URL: "https://initech.example/careers"},
	}

	report, err := r.RunParallel(ctx, ts, 2, false)
	if err != nil {
		t.Fatalf("RunParallel: %v", err)
	}
	if report.OKCount != 3 || len(report.Results) != 3 {
		t.Fatalf("RunParallel report = %+v, want 3 OK results", report)
	}
}

func TestRunParallelStopsDispatchOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	brokenExtractor := linkextract.NewClient("/bin/sh", t.TempDir(), time.Second) // no index.js present -> fails
	r := &Runner{Store: s, Extractor: brokenExtractor}

	ts := []targets.Target{
		{Company: "acme", URL: "https://acme.example/careers"},
		{Company: "globex", URL: "https://globex.example/careers"},
		{Company: "initech", URL: "https://initech.example/careers"},
	}

	report, err := r.RunParallel(ctx, ts, 1, true)
	if err != nil {
		t.Fatalf("RunParallel: %v", err)
	}
	if report.OKCount != 0 {
		t.Fatalf("expected all targets to fail with a broken extractor, got OKCount=%d", report.OKCount)
	}
	if len(report.Results) == len(ts) {
		t.Fatalf("expected RunParallel to stop dispatching after the first failure, got all %d results", len(report.Results))
	}
}
