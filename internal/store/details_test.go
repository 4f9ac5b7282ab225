package store

import (
	"context"
	"testing"
)

func intPtr(v int) *int { return &v }

func TestJobsReadyForEmailFiltersByThresholdAndEmailedState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	jobs := []JobDetail{
		{Site: "acme", URL: "u1", Title: "Engineer I", MinYears: intPtr(2), DiscoveredTsMs: 1},
		{Site: "acme", URL: "u2", Title: "Engineer II", MinYears: intPtr(8), DiscoveredTsMs: 2},
		{Site: "acme", URL: "u3", Title: "Unscored", MinYears: nil, DiscoveredTsMs: 3},
	}
	for _, j := range jobs {
		if err := s.UpsertJobDetail(ctx, j); err != nil {
			t.Fatalf("UpsertJobDetail(%s): %v", j.URL, err)
		}
	}

	ready, err := s.JobsReadyForEmail(ctx, 4, 200)
	if err != nil {
		t.Fatalf("JobsReadyForEmail: %v", err)
	}
	if len(ready) != 1 || ready[0].URL != "u1" {
		t.Fatalf("JobsReadyForEmail = %+v, want only u1", ready)
	}

	if err := s.MarkJobsEmailed(ctx, ready, "digest-1"); err != nil {
		t.Fatalf("MarkJobsEmailed: %v", err)
	}

	ready, err = s.JobsReadyForEmail(ctx, 4, 200)
	if err != nil {
		t.Fatalf("JobsReadyForEmail after mark: %v", err)
	}
	if len(ready) != 0 {
		t.Fatalf("JobsReadyForEmail after mark = %+v, want none", ready)
	}
}

func TestJobsReadyForEmailOrdersMostRecentFirstAndRespectsLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	jobs := []JobDetail{
		{Site: "acme", URL: "u1", MinYears: intPtr(1), DiscoveredTsMs: 1},
		{Site: "acme", URL: "u2", MinYears: intPtr(1), DiscoveredTsMs: 2},
		{Site: "acme", URL: "u3", MinYears: intPtr(1), DiscoveredTsMs: 3},
	}
	for _, j := range jobs {
		if err := s.UpsertJobDetail(ctx, j); err != nil {
			t.Fatalf("UpsertJobDetail(%s): %v", j.URL, err)
		}
	}

	ready, err := s.JobsReadyForEmail(ctx, 4, 2)
	if err != nil {
		t.Fatalf("JobsReadyForEmail: %v", err)
	}
	if len(ready) != 2 {
		t.Fatalf("JobsReadyForEmail returned %d rows, want 2 (limit)", len(ready))
	}
	if ready[0].URL != "u3" || ready[1].URL != "u2" {
		t.Fatalf("JobsReadyForEmail order = %v, want [u3, u2] (most recent first)", []string{ready[0].URL, ready[1].URL})
	}
}

func TestMarkJobsEmailedPersistsDigestID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job := JobDetail{Site: "acme", URL: "u1", MinYears: intPtr(1), DiscoveredTsMs: 1}
	if err := s.UpsertJobDetail(ctx, job); err != nil {
		t.Fatalf("UpsertJobDetail: %v", err)
	}
	if err := s.MarkJobsEmailed(ctx, []JobDetail{job}, "digest-abc"); err != nil {
		t.Fatalf("MarkJobsEmailed: %v", err)
	}

	var digestID string
	if err := s.db.QueryRowContext(ctx, `SELECT digest_id FROM job_details WHERE url = ?`, "u1").Scan(&digestID); err != nil {
		t.Fatalf("read digest_id: %v", err)
	}
	if digestID != "digest-abc" {
		t.Fatalf("digest_id = %q, want digest-abc", digestID)
	}
}

func TestMarkJobsEmailedIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job := JobDetail{Site: "acme", URL: "u1", MinYears: intPtr(1), DiscoveredTsMs: 1}
	if err := s.UpsertJobDetail(ctx, job); err != nil {
		t.Fatalf("UpsertJobDetail: %v", err)
	}

	if err := s.MarkJobsEmailed(ctx, []JobDetail{job}, "digest-1"); err != nil {
		t.Fatalf("MarkJobsEmailed #1: %v", err)
	}
	// A second racing digest run must not clobber the first emailed_ts_ms.
	if err := s.MarkJobsEmailed(ctx, []JobDetail{job}, "digest-2"); err != nil {
		t.Fatalf("MarkJobsEmailed #2: %v", err)
	}

	ready, err := s.JobsReadyForEmail(ctx, 10, 200)
	if err != nil {
		t.Fatalf("JobsReadyForEmail: %v", err)
	}
	if len(ready) != 0 {
		t.Fatalf("expected job to remain excluded after repeated mark, got %+v", ready)
	}
}

func TestUpsertJobDetailPreservesDiscoveredTs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertJobDetail(ctx, JobDetail{Site: "acme", URL: "u1", MinYears: intPtr(3), DiscoveredTsMs: 100}); err != nil {
		t.Fatalf("UpsertJobDetail #1: %v", err)
	}
	// Re-inference overwrites the scored fields but not discovered_ts_ms.
	if err := s.UpsertJobDetail(ctx, JobDetail{Site: "acme", URL: "u1", MinYears: intPtr(5), DiscoveredTsMs: 999}); err != nil {
		t.Fatalf("UpsertJobDetail #2: %v", err)
	}

	ready, err := s.JobsReadyForEmail(ctx, 10, 200)
	if err != nil {
		t.Fatalf("JobsReadyForEmail: %v", err)
	}
	if len(ready) != 1 {
		t.Fatalf("JobsReadyForEmail = %+v, want 1 row", ready)
	}
	if *ready[0].MinYears != 5 {
		t.Fatalf("MinYears = %d, want 5 (latest write)", *ready[0].MinYears)
	}
	if ready[0].DiscoveredTsMs != 100 {
		t.Fatalf("DiscoveredTsMs = %d, want 100 (preserved from first insert)", ready[0].DiscoveredTsMs)
	}
}
