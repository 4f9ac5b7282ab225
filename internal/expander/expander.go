// Package expander claims diff_queue rows and expands each into the
// job_tasks rows the inference worker will later claim, filtering out
// URLs that are obviously not worth sending through the inference
// pipeline.
package expander

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/jobwatch/jobwatch/internal/store"
)

// blockedHosts are known non-job error/redirect pages that occasionally
// show up in a careers-page crawl; never enqueue them as job tasks.
var blockedHosts = map[string]struct{}{
	"errors.edgesuite.net": {},
}

// ShouldSkipURL reports whether a URL is unsuitable for inference: not
// an http(s) URL, or pointing at a known non-job host.
func ShouldSkipURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return true
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return true
	}
	if _, blocked := blockedHosts[u.Hostname()]; blocked {
		return true
	}
	return false
}

// ExpandOne claims the oldest eligible diff_queue row for owner,
// filters its added URLs down to ones worth scoring, inserts them as
// job_tasks, and marks the diff DONE. Returns the number of job_tasks
// rows inserted and whether a diff was claimed at all.
func ExpandOne(ctx context.Context, s *store.Store, owner string) (inserted int64, claimed bool, err error) {
	d, err := s.ClaimDiff(ctx, owner)
	if err != nil {
		return 0, false, fmt.Errorf("expander: claim diff: %w", err)
	}
	if d == nil {
		return 0, false, nil
	}

	urls := make([]string, 0, len(d.Added))
	for _, u := range d.Added {
		if u == "" || ShouldSkipURL(u) {
			continue
		}
		urls = append(urls, u)
	}

	inserted, err = s.AddJobTasks(ctx, d.Site, urls)
	if err != nil {
		_ = s.MarkDiffFailed(ctx, d.ID, err.Error(), store.DefaultBackoff.Milliseconds())
		return 0, true, fmt.Errorf("expander: add job tasks for diff %d: %w", d.ID, err)
	}

	if err := s.MarkDiffDone(ctx, d.ID); err != nil {
		return inserted, true, fmt.Errorf("expander: mark diff %d done: %w", d.ID, err)
	}
	return inserted, true, nil
}
