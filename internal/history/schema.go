package history

const schemaVersion = 2

const schema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id       TEXT    NOT NULL UNIQUE,
	suite_name   TEXT    NOT NULL,
	compiler     TEXT    NOT NULL DEFAULT '',
	started_at   TEXT    NOT NULL,
	duration_ms  INTEGER NOT NULL DEFAULT 0,
	total        INTEGER NOT NULL DEFAULT 0,
	succeeded    INTEGER NOT NULL DEFAULT 0,
	failed       INTEGER NOT NULL DEFAULT 0,
	errors       INTEGER NOT NULL DEFAULT 0,
	skipped      INTEGER NOT NULL DEFAULT 0,
	cached       INTEGER NOT NULL DEFAULT 0,
	success_rate REAL    NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_suite ON runs(suite_name, started_at DESC);

CREATE TABLE IF NOT EXISTS case_results (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	run_pk          INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	case_id         TEXT    NOT NULL,
	display_name    TEXT    NOT NULL DEFAULT '',
	status          TEXT    NOT NULL,
	duration_ms     INTEGER NOT NULL DEFAULT 0,
	exit_code       TEXT    NOT NULL DEFAULT '',
	violation_count INTEGER,
	violations      TEXT    NOT NULL DEFAULT '[]',
	cached          INTEGER NOT NULL DEFAULT 0,
	error_msg       TEXT    NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_case_results_case ON case_results(case_id, run_pk);
`

type migration struct {
	version int
	sql     string
}

// migrations upgrade databases created by older releases. Version 1 lacked
// the cached counters.
var migrations = []migration{
	{version: 2, sql: `
ALTER TABLE runs ADD COLUMN cached INTEGER NOT NULL DEFAULT 0;
ALTER TABLE case_results ADD COLUMN cached INTEGER NOT NULL DEFAULT 0;
`},
}
