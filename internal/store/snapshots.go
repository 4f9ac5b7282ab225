package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// CurrentLinks returns the most recently stored link list for site, or
// (nil, false, nil) if no snapshot has ever been taken.
func (s *Store) CurrentLinks(ctx context.Context, site string) ([]string, bool, error) {
	var linksJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT links_json FROM current_snapshot WHERE site = ?`, site,
	).Scan(&linksJSON)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query current snapshot: %w", err)
	}
	var links []string
	if err := json.Unmarshal([]byte(linksJSON), &links); err != nil {
		return nil, false, fmt.Errorf("decode current snapshot: %w", err)
	}
	return links, true, nil
}

// ClearCurrentSnapshot deletes every row from current_snapshot, leaving
// snapshot_history intact. Used by the seed command to repopulate a
// baseline without any row lingering from a stale target list.
func (s *Store) ClearCurrentSnapshot(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM current_snapshot`)
	if err != nil {
		return fmt.Errorf("clear current_snapshot: %w", err)
	}
	return nil
}

// UpsertSnapshot appends a row to snapshot_history and replaces the
// current_snapshot row for site in a single transaction, so a crash
// between the two never leaves history and "current" disagreeing.
func (s *Store) UpsertSnapshot(ctx context.Context, site string, links []string, hash string) error {
	linksJSON, err := json.Marshal(links)
	if err != nil {
		return fmt.Errorf("encode links: %w", err)
	}
	ts := nowMs()

	return s.withImmediateTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO snapshot_history (site, taken_ts_ms, link_count, links_json, hash)
			 VALUES (?, ?, ?, ?, ?)`,
			site, ts, len(links), string(linksJSON), hash,
		); err != nil {
			return fmt.Errorf("insert snapshot_history: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO current_snapshot (site, links_json, hash, updated_ts_ms)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT(site) DO UPDATE SET
				links_json = excluded.links_json,
				hash = excluded.hash,
				updated_ts_ms = excluded.updated_ts_ms`,
			site, string(linksJSON), hash, ts,
		); err != nil {
			return fmt.Errorf("upsert current_snapshot: %w", err)
		}
		return nil
	})
}
