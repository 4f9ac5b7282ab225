package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// EnqueueDiff inserts a new diff_queue row for (site, diffHash) if one
// does not already exist. The unique index on (site, diff_hash) makes
// this safe to call repeatedly with the same inputs: a retried
// snapshot cycle that recomputes an identical diff never double
// enqueues it. Returns true if a new row was inserted.
func (s *Store) EnqueueDiff(ctx context.Context, site, diffHash string, added, removed []string) (bool, error) {
	addedJSON, err := json.Marshal(added)
	if err != nil {
		return false, fmt.Errorf("encode added: %w", err)
	}
	removedJSON, err := json.Marshal(removed)
	if err != nil {
		return false, fmt.Errorf("encode removed: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO diff_queue
			(site, diff_hash, added_json, removed_json, status, attempts, created_ts_ms)
		 VALUES (?, ?, ?, ?, ?, 0, ?)`,
		site, diffHash, string(addedJSON), string(removedJSON), StatusPending, nowMs(),
	)
	if err != nil {
		return false, fmt.Errorf("insert diff_queue: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// ClaimDiff atomically claims the oldest eligible PENDING diff_queue
// row for owner: select-then-guarded-update inside one write
// transaction, checking the affected row count to detect a lost race
// against another worker.
func (s *Store) ClaimDiff(ctx context.Context, owner string) (*Diff, error) {
	var d *Diff
	err := s.withImmediateTx(ctx, func(tx *sql.Tx) error {
		now := nowMs()
		row := tx.QueryRowContext(ctx,
			`SELECT id, site, diff_hash, added_json, removed_json, status, attempts, created_ts_ms, last_error
			 FROM diff_queue
			 WHERE status = ? AND backoff_until_ms <= ?
			 ORDER BY id ASC LIMIT 1`,
			StatusPending, now,
		)
		cand, err := scanDiff(row)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return fmt.Errorf("select candidate diff: %w", err)
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE diff_queue SET status = ?, owner = ?, claimed_ts_ms = ?
			 WHERE id = ? AND status = ?`,
			StatusInProgress, owner, now, cand.ID, StatusPending,
		)
		if err != nil {
			return fmt.Errorf("claim diff: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			// Another worker claimed it between our SELECT and UPDATE.
			return nil
		}
		cand.Status = StatusInProgress
		d = cand
		return nil
	})
	return d, err
}

// ReapStuckDiffs resets IN_PROGRESS rows whose claim is older than
// olderThanMs back to PENDING, so a crashed worker's claim is
// eventually picked up by someone else.
func (s *Store) ReapStuckDiffs(ctx context.Context, olderThanMs int64) (int64, error) {
	cutoff := nowMs() - olderThanMs
	res, err := s.db.ExecContext(ctx,
		`UPDATE diff_queue SET status = ?, owner = NULL, claimed_ts_ms = NULL
		 WHERE status = ? AND claimed_ts_ms <= ?`,
		StatusPending, StatusInProgress, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("reap diff_queue: %w", err)
	}
	return res.RowsAffected()
}

// MarkDiffDone marks a claimed diff as DONE.
func (s *Store) MarkDiffDone(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE diff_queue SET status = ? WHERE id = ?`, StatusDone, id,
	)
	if err != nil {
		return fmt.Errorf("mark diff done: %w", err)
	}
	return nil
}

// MarkDiffFailed records an error, bumps the attempt counter, and
// schedules the row for retry after backoffMs. diff_queue has no
// FAILED state: a diff always returns to PENDING so its added_urls
// eventually become job_tasks, however many attempts it takes.
func (s *Store) MarkDiffFailed(ctx context.Context, id int64, errMsg string, backoffMs int64) error {
	return s.withImmediateTx(ctx, func(tx *sql.Tx) error {
		var attempts int
		if err := tx.QueryRowContext(ctx,
			`SELECT attempts FROM diff_queue WHERE id = ?`, id,
		).Scan(&attempts); err != nil {
			return fmt.Errorf("read attempts: %w", err)
		}
		attempts++
		backoffUntil := nowMs() + backoffMs

		_, err := tx.ExecContext(ctx,
			`UPDATE diff_queue
			 SET status = ?, attempts = ?, last_error = ?, backoff_until_ms = ?, owner = NULL, claimed_ts_ms = NULL
			 WHERE id = ?`,
			StatusPending, attempts, errMsg, backoffUntil, id,
		)
		if err != nil {
			return fmt.Errorf("mark diff failed: %w", err)
		}
		return nil
	})
}

// ClearDiffQueue deletes every row from diff_queue, mirroring the
// operator's "start fresh" escape hatch.
func (s *Store) ClearDiffQueue(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM diff_queue`)
	if err != nil {
		return 0, fmt.Errorf("clear diff_queue: %w", err)
	}
	return res.RowsAffected()
}

// DiffQueueStats returns a count of rows per status, for the `queue
// stats` CLI subcommand.
func (s *Store) DiffQueueStats(ctx context.Context) (map[string]int64, error) {
	return countByStatus(ctx, s.db, "diff_queue")
}

func countByStatus(ctx context.Context, db *sql.DB, table string) (map[string]int64, error) {
	rows, err := db.QueryContext(ctx,
		fmt.Sprintf(`SELECT status, COUNT(*) FROM %s GROUP BY status`, table),
	)
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", table, err)
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}

func scanDiff(row *sql.Row) (*Diff, error) {
	var (
		d                        Diff
		addedJSON, removedJSON   string
		lastError                sql.NullString
	)
	if err := row.Scan(&d.ID, &d.Site, &d.DiffHash, &addedJSON, &removedJSON, &d.Status, &d.Attempts, &d.CreatedTsMs, &lastError); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(addedJSON), &d.Added); err != nil {
		return nil, fmt.Errorf("decode added: %w", err)
	}
	if err := json.Unmarshal([]byte(removedJSON), &d.Removed); err != nil {
		return nil, fmt.Errorf("decode removed: %w", err)
	}
	d.LastError = lastError.String
	return &d, nil
}
