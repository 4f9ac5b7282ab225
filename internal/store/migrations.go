package store

import (
	"context"
	"database/sql"
	"fmt"
)

// migration adds one column, guarded by a PRAGMA table_info probe so it
// is safe to run on every Open: a fresh database built from schema.go
// lacks these columns and gets all of them here, and a database that
// already has a column skips its migration.
type migration struct {
	table  string
	column string
	ddl    string
}

// migrations lists every column added after the initial schema, in the
// order they must run. Ordering matters only in that later migrations
// may assume earlier ones already ran; today none depend on each other.
var migrations = []migration{
	{"diff_queue", "owner", "ALTER TABLE diff_queue ADD COLUMN owner TEXT"},
	{"diff_queue", "claimed_ts_ms", "ALTER TABLE diff_queue ADD COLUMN claimed_ts_ms INTEGER"},
	{"diff_queue", "backoff_until_ms", "ALTER TABLE diff_queue ADD COLUMN backoff_until_ms INTEGER NOT NULL DEFAULT 0"},
	{"job_tasks", "owner", "ALTER TABLE job_tasks ADD COLUMN owner TEXT"},
	{"job_tasks", "claimed_ts_ms", "ALTER TABLE job_tasks ADD COLUMN claimed_ts_ms INTEGER"},
	{"job_tasks", "backoff_until_ms", "ALTER TABLE job_tasks ADD COLUMN backoff_until_ms INTEGER NOT NULL DEFAULT 0"},
	{"job_details", "digest_id", "ALTER TABLE job_details ADD COLUMN digest_id TEXT"},
	{"job_details", "include_job", "ALTER TABLE job_details ADD COLUMN include_job INTEGER NOT NULL DEFAULT 1"},
	{"job_details", "exclude_reason", "ALTER TABLE job_details ADD COLUMN exclude_reason TEXT"},
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	for _, m := range migrations {
		has, err := hasColumn(ctx, db, m.table, m.column)
		if err != nil {
			return fmt.Errorf("probe %s.%s: %w", m.table, m.column, err)
		}
		if has {
			continue
		}
		if _, err := db.ExecContext(ctx, m.ddl); err != nil {
			return fmt.Errorf("add %s.%s: %w", m.table, m.column, err)
		}
	}
	return nil
}

func hasColumn(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			name       string
			ctype      string
			notnull    int
			dfltValue  sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
