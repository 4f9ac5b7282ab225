package store

// schema is applied with CREATE TABLE IF NOT EXISTS so bootstrap is
// idempotent across restarts. Columns added after the initial release
// live in migrations.go instead, so existing databases pick them up
// via ALTER TABLE rather than requiring a rebuild.
const schema = `
CREATE TABLE IF NOT EXISTS snapshot_history (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	site        TEXT    NOT NULL,
	taken_ts_ms INTEGER NOT NULL,
	link_count  INTEGER NOT NULL,
	links_json  TEXT    NOT NULL,
	hash        TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshot_history_site_ts
	ON snapshot_history(site, taken_ts_ms);

CREATE TABLE IF NOT EXISTS current_snapshot (
	site          TEXT PRIMARY KEY,
	links_json    TEXT    NOT NULL,
	hash          TEXT    NOT NULL,
	updated_ts_ms INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS diff_queue (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	site          TEXT    NOT NULL,
	diff_hash     TEXT    NOT NULL,
	added_json    TEXT    NOT NULL,
	removed_json  TEXT    NOT NULL,
	status        TEXT    NOT NULL DEFAULT 'PENDING',
	attempts      INTEGER NOT NULL DEFAULT 0,
	created_ts_ms INTEGER NOT NULL,
	last_error    TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_diff_queue_site_hash
	ON diff_queue(site, diff_hash);
CREATE INDEX IF NOT EXISTS idx_diff_queue_status
	ON diff_queue(status, id);

CREATE TABLE IF NOT EXISTS job_tasks (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	site          TEXT    NOT NULL,
	url           TEXT    NOT NULL,
	status        TEXT    NOT NULL DEFAULT 'PENDING',
	attempts      INTEGER NOT NULL DEFAULT 0,
	created_ts_ms INTEGER NOT NULL,
	last_error    TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_job_tasks_site_url
	ON job_tasks(site, url);
CREATE INDEX IF NOT EXISTS idx_job_tasks_status
	ON job_tasks(status, id);

CREATE TABLE IF NOT EXISTS job_details (
	site            TEXT    NOT NULL,
	url             TEXT    NOT NULL,
	title           TEXT,
	min_years       INTEGER,
	raw_response    TEXT,
	discovered_ts_ms INTEGER NOT NULL,
	emailed_ts_ms   INTEGER,
	PRIMARY KEY (site, url)
);
CREATE INDEX IF NOT EXISTS idx_job_details_emailed
	ON job_details(emailed_ts_ms);
`
