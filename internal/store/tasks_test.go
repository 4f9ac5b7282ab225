package store

import (
	"context"
	"testing"
)

func TestAddJobTasksDedupesByURL(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.AddJobTasks(ctx, "acme", []string{"u1", "u2", "u1"})
	if err != nil {
		t.Fatalf("AddJobTasks #1: %v", err)
	}
	if n != 2 {
		t.Fatalf("AddJobTasks #1 inserted %d, want 2", n)
	}

	n, err = s.AddJobTasks(ctx, "acme", []string{"u1", "u3"})
	if err != nil {
		t.Fatalf("AddJobTasks #2: %v", err)
	}
	if n != 1 {
		t.Fatalf("AddJobTasks #2 inserted %d, want 1 (u3 only)", n)
	}
}

func TestClaimJobTaskOrderAndComplete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.AddJobTasks(ctx, "acme", []string{"u1", "u2"}); err != nil {
		t.Fatalf("AddJobTasks: %v", err)
	}

	first, err := s.ClaimJobTask(ctx, "worker-a")
	if err != nil || first == nil {
		t.Fatalf("ClaimJobTask #1: %v, %+v", err, first)
	}
	if first.URL != "u1" {
		t.Fatalf("ClaimJobTask #1 = %q, want u1 (oldest first)", first.URL)
	}

	if err := s.CompleteJobTask(ctx, first.ID); err != nil {
		t.Fatalf("CompleteJobTask: %v", err)
	}

	second, err := s.ClaimJobTask(ctx, "worker-a")
	if err != nil || second == nil {
		t.Fatalf("ClaimJobTask #2: %v, %+v", err, second)
	}
	if second.URL != "u2" {
		t.Fatalf("ClaimJobTask #2 = %q, want u2", second.URL)
	}

	stats, err := s.JobTaskStats(ctx)
	if err != nil {
		t.Fatalf("JobTaskStats: %v", err)
	}
	if stats[StatusDone] != 1 || stats[StatusInProgress] != 1 {
		t.Fatalf("JobTaskStats = %v, want 1 DONE + 1 IN_PROGRESS", stats)
	}
}

func TestClaimJobTaskReclaimsFailedAfterBackoff(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.AddJobTasks(ctx, "acme", []string{"u1"}); err != nil {
		t.Fatalf("AddJobTasks: %v", err)
	}
	task, err := s.ClaimJobTask(ctx, "worker-a")
	if err != nil || task == nil {
		t.Fatalf("ClaimJobTask: %v, %+v", err, task)
	}

	// Fail it past maxAttempts so it lands on FAILED with a backoff.
	if err := s.FailJobTask(ctx, task.ID, "boom", 60_000, 1); err != nil {
		t.Fatalf("FailJobTask: %v", err)
	}
	stats, err := s.JobTaskStats(ctx)
	if err != nil {
		t.Fatalf("JobTaskStats: %v", err)
	}
	if stats[StatusFailed] != 1 {
		t.Fatalf("JobTaskStats = %v, want 1 FAILED row", stats)
	}

	if got, err := s.ClaimJobTask(ctx, "worker-b"); err != nil {
		t.Fatalf("ClaimJobTask during backoff: %v", err)
	} else if got != nil {
		t.Fatalf("expected FAILED row still in backoff window, got %+v", got)
	}

	// Once the backoff window has passed, FAILED must be reclaimable:
	// there is no hard retry cap.
	if _, err := s.db.ExecContext(ctx, `UPDATE job_tasks SET backoff_until_ms = 0 WHERE id = ?`, task.ID); err != nil {
		t.Fatalf("reset backoff: %v", err)
	}
	again, err := s.ClaimJobTask(ctx, "worker-b")
	if err != nil {
		t.Fatalf("ClaimJobTask after backoff: %v", err)
	}
	if again == nil || again.ID != task.ID {
		t.Fatalf("expected FAILED row to be reclaimed, got %+v", again)
	}
}

func TestReapStuckJobTasks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.AddJobTasks(ctx, "acme", []string{"u1"}); err != nil {
		t.Fatalf("AddJobTasks: %v", err)
	}
	if _, err := s.ClaimJobTask(ctx, "worker-a"); err != nil {
		t.Fatalf("ClaimJobTask: %v", err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE job_tasks SET claimed_ts_ms = 1`); err != nil {
		t.Fatalf("backdate claim: %v", err)
	}

	n, err := s.ReapStuckJobTasks(ctx, 1)
	if err != nil {
		t.Fatalf("ReapStuckJobTasks: %v", err)
	}
	if n != 1 {
		t.Fatalf("ReapStuckJobTasks reaped %d, want 1", n)
	}
}
