package store

import (
	"context"
	"database/sql"
	"fmt"
)

// AddJobTasks inserts one job_tasks row per (site, url) pair that
// doesn't already exist, via INSERT OR IGNORE against the unique
// (site, url) index. Returns the number of rows actually inserted.
func (s *Store) AddJobTasks(ctx context.Context, site string, urls []string) (int64, error) {
	if len(urls) == 0 {
		return 0, nil
	}
	var inserted int64
	err := s.withImmediateTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR IGNORE INTO job_tasks (site, url, status, attempts, created_ts_ms)
			 VALUES (?, ?, ?, 0, ?)`,
		)
		if err != nil {
			return fmt.Errorf("prepare insert job_tasks: %w", err)
		}
		defer stmt.Close()

		ts := nowMs()
		for _, url := range urls {
			res, err := stmt.ExecContext(ctx, site, url, StatusPending, ts)
			if err != nil {
				return fmt.Errorf("insert job_task: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			inserted += n
		}
		return nil
	})
	return inserted, err
}

// ClaimJobTask atomically claims the oldest eligible job_tasks row for
// owner: PENDING rows, or FAILED rows whose backoff has elapsed, since
// there is no hard retry cap and a FAILED task re-enters the pool once
// its backoff expires. Uses the same select-then-guarded-update pattern
// as ClaimDiff.
func (s *Store) ClaimJobTask(ctx context.Context, owner string) (*JobTask, error) {
	var t *JobTask
	err := s.withImmediateTx(ctx, func(tx *sql.Tx) error {
		now := nowMs()
		row := tx.QueryRowContext(ctx,
			`SELECT id, site, url, status, attempts, created_ts_ms, last_error
			 FROM job_tasks
			 WHERE status IN (?, ?) AND backoff_until_ms <= ?
			 ORDER BY id ASC LIMIT 1`,
			StatusPending, StatusFailed, now,
		)
		cand, err := scanJobTask(row)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return fmt.Errorf("select candidate job_task: %w", err)
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE job_tasks SET status = ?, owner = ?, claimed_ts_ms = ?
			 WHERE id = ? AND status = ?`,
			StatusInProgress, owner, now, cand.ID, cand.Status,
		)
		if err != nil {
			return fmt.Errorf("claim job_task: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return nil
		}
		cand.Status = StatusInProgress
		t = cand
		return nil
	})
	return t, err
}

// ReapStuckJobTasks resets IN_PROGRESS job_tasks rows whose claim is
// older than olderThanMs back to PENDING.
func (s *Store) ReapStuckJobTasks(ctx context.Context, olderThanMs int64) (int64, error) {
	cutoff := nowMs() - olderThanMs
	res, err := s.db.ExecContext(ctx,
		`UPDATE job_tasks SET status = ?, owner = NULL, claimed_ts_ms = NULL
		 WHERE status = ? AND claimed_ts_ms <= ?`,
		StatusPending, StatusInProgress, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("reap job_tasks: %w", err)
	}
	return res.RowsAffected()
}

// CompleteJobTask marks a claimed job_tasks row DONE.
func (s *Store) CompleteJobTask(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE job_tasks SET status = ? WHERE id = ?`, StatusDone, id,
	)
	if err != nil {
		return fmt.Errorf("complete job_task: %w", err)
	}
	return nil
}

// FailJobTask records an error, bumps attempts, applies backoffMs, and
// sets status FAILED once attempts reaches maxAttempts (PENDING until
// then). FAILED is not terminal: ClaimJobTask reclaims it once its
// backoff elapses, so there is no hard retry cap.
func (s *Store) FailJobTask(ctx context.Context, id int64, errMsg string, backoffMs int64, maxAttempts int) error {
	return s.withImmediateTx(ctx, func(tx *sql.Tx) error {
		var attempts int
		if err := tx.QueryRowContext(ctx,
			`SELECT attempts FROM job_tasks WHERE id = ?`, id,
		).Scan(&attempts); err != nil {
			return fmt.Errorf("read attempts: %w", err)
		}
		attempts++

		status := StatusPending
		if attempts >= maxAttempts {
			status = StatusFailed
		}
		backoffUntil := nowMs() + backoffMs

		_, err := tx.ExecContext(ctx,
			`UPDATE job_tasks
			 SET status = ?, attempts = ?, last_error = ?, backoff_until_ms = ?, owner = NULL, claimed_ts_ms = NULL
			 WHERE id = ?`,
			status, attempts, errMsg, backoffUntil, id,
		)
		if err != nil {
			return fmt.Errorf("mark job_task failed: %w", err)
		}
		return nil
	})
}

// JobTaskStats returns a count of job_tasks rows per status.
func (s *Store) JobTaskStats(ctx context.Context) (map[string]int64, error) {
	return countByStatus(ctx, s.db, "job_tasks")
}

func scanJobTask(row *sql.Row) (*JobTask, error) {
	var (
		t         JobTask
		lastError sql.NullString
	)
	if err := row.Scan(&t.ID, &t.Site, &t.URL, &t.Status, &t.Attempts, &t.CreatedTsMs, &lastError); err != nil {
		return nil, err
	}
	t.LastError = lastError.String
	return &t, nil
}
