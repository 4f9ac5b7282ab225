package store

import (
	"context"
	"database/sql"
	"fmt"
)

// UpsertJobDetail records (or replaces) the inference result for a
// job URL, including why it was or wasn't a digest candidate.
// discoveredTsMs is preserved across re-inference by only setting it
// on first insert.
func (s *Store) UpsertJobDetail(ctx context.Context, d JobDetail) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO job_details (site, url, title, min_years, raw_response, discovered_ts_ms, emailed_ts_ms, include_job, exclude_reason)
		 VALUES (?, ?, ?, ?, ?, ?, NULL, ?, ?)
		 ON CONFLICT(site, url) DO UPDATE SET
			title = excluded.title,
			min_years = excluded.min_years,
			raw_response = excluded.raw_response,
			include_job = excluded.include_job,
			exclude_reason = excluded.exclude_reason`,
		d.Site, d.URL, d.Title, d.MinYears, d.RawResponse, d.DiscoveredTsMs, d.IncludeJob, nullableString(d.ExcludeReason),
	)
	if err != nil {
		return fmt.Errorf("upsert job_detail: %w", err)
	}
	return nil
}

// JobsReadyForEmail returns up to limit job_details rows that have
// never been emailed and whose min_years is at most maxYears
// (inclusive; the digest passes inference.MinYearsThreshold-1), most
// recently discovered first.
func (s *Store) JobsReadyForEmail(ctx context.Context, maxYears, limit int) ([]JobDetail, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT site, url, title, min_years, raw_response, discovered_ts_ms, emailed_ts_ms, digest_id, include_job, exclude_reason
		 FROM job_details
		 WHERE emailed_ts_ms IS NULL AND min_years IS NOT NULL AND min_years <= ?
		 ORDER BY discovered_ts_ms DESC
		 LIMIT ?`,
		maxYears, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query ready jobs: %w", err)
	}
	defer rows.Close()

	var out []JobDetail
	for rows.Next() {
		d, err := scanJobDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// MarkJobsEmailed stamps emailed_ts_ms and digestID for the given
// (site, url) pairs, but only where emailed_ts_ms is still NULL. This
// guarantees a digest is recorded exactly once per job even if two
// digest runs race: whichever commits first wins, and the loser's
// UPDATE touches zero rows. Every row passed in one call ends up
// sharing the same digest_id, per the invariant that a digest_id
// groups the consistent set of rows sent in one email.
func (s *Store) MarkJobsEmailed(ctx context.Context, jobs []JobDetail, digestID string) error {
	if len(jobs) == 0 {
		return nil
	}
	return s.withImmediateTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`UPDATE job_details SET emailed_ts_ms = ?, digest_id = ?
			 WHERE site = ? AND url = ? AND emailed_ts_ms IS NULL`,
		)
		if err != nil {
			return fmt.Errorf("prepare mark emailed: %w", err)
		}
		defer stmt.Close()

		ts := nowMs()
		for _, j := range jobs {
			if _, err := stmt.ExecContext(ctx, ts, digestID, j.Site, j.URL); err != nil {
				return fmt.Errorf("mark emailed %s/%s: %w", j.Site, j.URL, err)
			}
		}
		return nil
	})
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func scanJobDetail(rows *sql.Rows) (JobDetail, error) {
	var (
		d             JobDetail
		title         sql.NullString
		minYears      sql.NullInt64
		raw           sql.NullString
		emailedTsMs   sql.NullInt64
		digestID      sql.NullString
		includeJob    bool
		excludeReason sql.NullString
	)
	if err := rows.Scan(&d.Site, &d.URL, &title, &minYears, &raw, &d.DiscoveredTsMs, &emailedTsMs, &digestID, &includeJob, &excludeReason); err != nil {
		return JobDetail{}, fmt.Errorf("scan job_detail: %w", err)
	}
	d.Title = title.String
	d.RawResponse = raw.String
	d.IncludeJob = includeJob
	d.ExcludeReason = excludeReason.String
	if minYears.Valid {
		v := int(minYears.Int64)
		d.MinYears = &v
	}
	if emailedTsMs.Valid {
		v := emailedTsMs.Int64
		d.EmailedTsMs = &v
	}
	if digestID.Valid {
		v := digestID.String
		d.DigestID = &v
	}
	return d, nil
}
