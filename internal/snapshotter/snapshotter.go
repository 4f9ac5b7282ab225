// Package snapshotter crawls each target's careers page, diffs the
// fresh link list against the stored current snapshot, enqueues any
// new links for inference, and commits the new snapshot — all serial
// by default, with a bounded-parallel mode for larger target lists.
package snapshotter

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jobwatch/jobwatch/internal/diffing"
	"github.com/jobwatch/jobwatch/internal/linkextract"
	"github.com/jobwatch/jobwatch/internal/store"
	"github.com/jobwatch/jobwatch/internal/targets"
)

// CompanyResult reports the outcome of snapshotting one target.
type CompanyResult struct {
	Company       string
	URL           string
	OK            bool
	Error         string
	OldLinkCount  int
	NewLinkCount  int
	AddedURLCount int
	DiffEnqueued  bool
	NodeMs        int64
	TotalMs       int64
}

// BatchReport summarizes a full run across all targets.
type BatchReport struct {
	TargetCount int
	OKCount     int
	FailCount   int
	StartedTsMs int64
	EndedTsMs   int64
	DurationMs  int64
	Results     []CompanyResult
}

// Runner owns the store and extractor client shared across a batch.
type Runner struct {
	Store     *store.Store
	Extractor *linkextract.Client
}

// RunOne fetches fresh links for one target, diffs them against the
// stored current snapshot, enqueues any added URLs as a diff_queue
// row, and commits the new snapshot. It is safe to call concurrently
// for distinct companies; callers running concurrently for possibly
// overlapping state should use RunParallel, which serializes the
// read-diff-commit section with a shared mutex, instead of calling
// this directly.
func (r *Runner) RunOne(ctx context.Context, t targets.Target) CompanyResult {
	start := time.Now()

	res := CompanyResult{Company: t.Company, URL: t.URL}

	oldLinks, _, err := r.Store.CurrentLinks(ctx, t.Company)
	if err != nil {
		res.Error = fmt.Sprintf("read current snapshot: %v", err)
		return res
	}
	res.OldLinkCount = len(oldLinks)

	nodeStart := time.Now()
	fetched, err := r.Extractor.FetchLinks(ctx, t.URL)
	res.NodeMs = time.Since(nodeStart).Milliseconds()
	if err != nil {
		res.Error = err.Error()
		return res
	}

	newLinks := diffing.DedupePreserveOrder(fetched.Links)
	added, _ := diffing.Diff(oldLinks, newLinks)
	res.NewLinkCount = len(newLinks)
	res.AddedURLCount = len(added)

	if len(added) > 0 {
		diffHash, sortedAdded := diffing.Hash(t.Company, added)
		enqueued, err := r.Store.EnqueueDiff(ctx, t.Company, diffHash, sortedAdded, nil)
		if err != nil {
			res.Error = fmt.Sprintf("enqueue diff: %v", err)
			return res
		}
		res.DiffEnqueued = enqueued
	}

	snapshotHash, err := diffing.SnapshotHash(newLinks)
	if err != nil {
		res.Error = fmt.Sprintf("hash snapshot: %v", err)
		return res
	}
	if err := r.Store.UpsertSnapshot(ctx, t.Company, newLinks, snapshotHash); err != nil {
		res.Error = fmt.Sprintf("upsert snapshot: %v", err)
		return res
	}

	res.OK = true
	res.TotalMs = time.Since(start).Milliseconds()
	return res
}

// RunSerial snapshots every target one at a time, stopping early if
// stopOnError is set and a target fails.
func (r *Runner) RunSerial(ctx context.Context, ts []targets.Target, stopOnError bool) BatchReport {
	started := time.Now().UnixMilli()
	wallStart := time.Now()

	report := BatchReport{TargetCount: len(ts), StartedTsMs: started}
	for _, t := range ts {
		res := r.RunOne(ctx, t)
		report.Results = append(report.Results, res)
		if res.OK {
			report.OKCount++
		} else {
			report.FailCount++
			if stopOnError {
				break
			}
		}
	}
	report.EndedTsMs = time.Now().UnixMilli()
	report.DurationMs = time.Since(wallStart).Milliseconds()
	return report
}

// RunParallel snapshots up to maxWorkers targets at once. Only the
// read-current-links, diff, and commit critical section is
// serialized by a shared mutex; the external fetch itself — the slow
// part — runs fully concurrently across distinct sites. When
// stopOnError is set, the first failure stops any pending dispatch
// (futures not yet started are cancelled) while fetches already in
// flight run to completion.
func (r *Runner) RunParallel(ctx context.Context, ts []targets.Target, maxWorkers int, stopOnError bool) (BatchReport, error) {
	started := time.Now().UnixMilli()
	wallStart := time.Now()

	report := BatchReport{TargetCount: len(ts), StartedTsMs: started}
	results := make([]CompanyResult, len(ts))

	var mu sync.Mutex
	var failed atomic.Bool
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for i, t := range ts {
		i, t := i, t
		if stopOnError && failed.Load() {
			break
		}
		g.Go(func() error {
			if stopOnError && failed.Load() {
				return nil
			}
			res := r.runOneLocked(gctx, t, &mu)
			results[i] = res
			if !res.OK && stopOnError {
				failed.Store(true)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, fmt.Errorf("snapshotter: parallel batch: %w", err)
	}

	for _, res := range results {
		if res == (CompanyResult{}) {
			continue
		}
		report.Results = append(report.Results, res)
		if res.OK {
			report.OKCount++
		} else {
			report.FailCount++
		}
	}
	report.EndedTsMs = time.Now().UnixMilli()
	report.DurationMs = time.Since(wallStart).Milliseconds()
	return report, nil
}

// runOneLocked fetches links without holding the mutex (the part worth
// parallelizing), then takes it only around the read-diff-commit
// sequence that touches shared store state.
func (r *Runner) runOneLocked(ctx context.Context, t targets.Target, mu *sync.Mutex) CompanyResult {
	start := time.Now()
	res := CompanyResult{Company: t.Company, URL: t.URL}

	nodeStart := time.Now()
	fetched, err := r.Extractor.FetchLinks(ctx, t.URL)
	res.NodeMs = time.Since(nodeStart).Milliseconds()
	if err != nil {
		res.Error = err.Error()
		return res
	}
	newLinks := diffing.DedupePreserveOrder(fetched.Links)

	mu.Lock()
	defer mu.Unlock()

	oldLinks, _, err := r.Store.CurrentLinks(ctx, t.Company)
	if err != nil {
		res.Error = fmt.Sprintf("read current snapshot: %v", err)
		return res
	}
	res.OldLinkCount = len(oldLinks)
	res.NewLinkCount = len(newLinks)

	added, _ := diffing.Diff(oldLinks, newLinks)
	res.AddedURLCount = len(added)

	if len(added) > 0 {
		diffHash, sortedAdded := diffing.Hash(t.Company, added)
		enqueued, err := r.Store.EnqueueDiff(ctx, t.Company, diffHash, sortedAdded, nil)
		if err != nil {
			res.Error = fmt.Sprintf("enqueue diff: %v", err)
			return res
		}
		res.DiffEnqueued = enqueued
	}

	snapshotHash, err := diffing.SnapshotHash(newLinks)
	if err != nil {
		res.Error = fmt.Sprintf("hash snapshot: %v", err)
		return res
	}
	if err := r.Store.UpsertSnapshot(ctx, t.Company, newLinks, snapshotHash); err != nil {
		res.Error = fmt.Sprintf("upsert snapshot: %v", err)
		return res
	}

	res.OK = true
	res.TotalMs = time.Since(start).Milliseconds()
	return res
}
