// Package history keeps finished suite runs in a SQLite database so results
// can be followed across runs: per-run tallies, the history of a single case
// and cases that flip between passing and failing.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/detekt/kcheck/internal/models"

	_ "modernc.org/sqlite"
)

// timeFormat sorts lexically in chronological order.
const timeFormat = "2006-01-02T15:04:05.000Z"

// Store is a run history database.
type Store struct {
	db   *sql.DB
	path string
}

// Run is the stored tally of one suite run.
type Run struct {
	RunID       string
	SuiteName   string
	Compiler    string
	StartedAt   time.Time
	DurationMs  int64
	Total       int
	Succeeded   int
	Failed      int
	Errors      int
	Skipped     int
	Cached      int
	SuccessRate float64
}

// CaseRecord is one case's result within a stored run.
type CaseRecord struct {
	RunID       string
	StartedAt   time.Time
	CaseID      string
	DisplayName string
	Status      models.Status
	DurationMs  int64
	ExitCode    models.ExitCode
	// ViolationCount is -1 when the case produced no detekt run.
	ViolationCount int
	Violations     []string
	Cached         bool
	ErrorMsg       string
}

// FlakyCase is a case that both passed and failed within a window of runs.
type FlakyCase struct {
	CaseID string
	Runs   int
	Passed int
	Failed int
}

// Open opens (creating if needed) the history database at path and brings
// its schema up to date.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := runMigrations(db); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("migrate history db: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) Close() error {
	return s.db.Close()
}

func runMigrations(db *sql.DB) error {
	var hasSchemaTbl int
	if err := db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='schema_version'`).Scan(&hasSchemaTbl); err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if hasSchemaTbl == 0 {
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("apply base schema: %w", err)
		}
		if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("stamp schema version: %w", err)
		}
		return nil
	}

	var current int
	if err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if current > schemaVersion {
		return fmt.Errorf("history db schema v%d is newer than supported v%d", current, schemaVersion)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migration v%d begin: %w", m.version, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("migration v%d: %w", m.version, err)
		}
		if _, err := tx.Exec("UPDATE schema_version SET version = ?", m.version); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("migration v%d version update: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration v%d commit: %w", m.version, err)
		}
		current = m.version
	}

	return nil
}

// Record stores a finished run. Recording a run ID again replaces the
// earlier entry.
func (s *Store) Record(ctx context.Context, o *models.SuiteOutcome) error {
	if o.RunID == "" {
		return errors.New("run has no id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := deleteRuns(ctx, tx, "run_id = ?", o.RunID); err != nil {
		return err
	}

	d := o.Digest
	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, suite_name, compiler, started_at, duration_ms,
			total, succeeded, failed, errors, skipped, cached, success_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.RunID, o.SuiteName, o.Setup.Compiler, formatTime(o.Timestamp), d.DurationMs,
		d.TotalCases, d.Succeeded, d.Failed, d.Errors, d.Skipped, d.Cached, d.SuccessRate)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	runPK, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO case_results (run_pk, case_id, display_name, status, duration_ms,
			exit_code, violation_count, violations, cached, error_msg)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare case insert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck

	for _, c := range o.CaseOutcomes {
		var count sql.NullInt64
		violations := []string{}
		if c.Analysis != nil {
			count = sql.NullInt64{Int64: int64(len(c.Analysis.Violations)), Valid: true}
			violations = append(violations, c.Analysis.Violations...)
		}
		encoded, err := json.Marshal(violations)
		if err != nil {
			return fmt.Errorf("encode violations of %s: %w", c.CaseID, err)
		}
		if _, err := stmt.ExecContext(ctx, runPK, c.CaseID, c.DisplayName, string(c.Status), c.DurationMs,
			string(c.ExitCode), count, string(encoded), boolToInt(c.Cached), c.ErrorMsg); err != nil {
			return fmt.Errorf("insert case %s: %w", c.CaseID, err)
		}
	}

	return tx.Commit()
}

// Runs returns the most recent runs, newest first. An empty suite matches
// every suite; limit <= 0 means no limit.
func (s *Store) Runs(ctx context.Context, suite string, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, suite_name, compiler, started_at, duration_ms,
			total, succeeded, failed, errors, skipped, cached, success_rate
		FROM runs
		WHERE (? = '' OR suite_name = ?)
		ORDER BY started_at DESC, id DESC
		LIMIT ?`, suite, suite, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var runs []Run
	for rows.Next() {
		var r Run
		var started string
		if err := rows.Scan(&r.RunID, &r.SuiteName, &r.Compiler, &started, &r.DurationMs,
			&r.Total, &r.Succeeded, &r.Failed, &r.Errors, &r.Skipped, &r.Cached, &r.SuccessRate); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = parseTime(started)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// CaseHistory returns the results of one case across runs of a suite,
// newest first.
func (s *Store) CaseHistory(ctx context.Context, suite, caseID string, limit int) ([]CaseRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.run_id, r.started_at, c.case_id, c.display_name, c.status, c.duration_ms,
			c.exit_code, c.violation_count, c.violations, c.cached, c.error_msg
		FROM case_results c
		JOIN runs r ON r.id = c.run_pk
		WHERE c.case_id = ? AND (? = '' OR r.suite_name = ?)
		ORDER BY r.started_at DESC, r.id DESC
		LIMIT ?`, caseID, suite, suite, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query case history: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var records []CaseRecord
	for rows.Next() {
		var (
			rec        CaseRecord
			started    string
			status     string
			exitCode   string
			count      sql.NullInt64
			violations string
			cached     int
		)
		if err := rows.Scan(&rec.RunID, &started, &rec.CaseID, &rec.DisplayName, &status, &rec.DurationMs,
			&exitCode, &count, &violations, &cached, &rec.ErrorMsg); err != nil {
			return nil, fmt.Errorf("scan case result: %w", err)
		}
		rec.StartedAt = parseTime(started)
		rec.Status = models.Status(status)
		rec.ExitCode = models.ExitCode(exitCode)
		rec.Cached = cached != 0
		rec.ViolationCount = -1
		if count.Valid {
			rec.ViolationCount = int(count.Int64)
		}
		if err := json.Unmarshal([]byte(violations), &rec.Violations); err != nil {
			return nil, fmt.Errorf("decode violations of %s: %w", rec.CaseID, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Flaky returns the cases of suite that both passed and failed (or errored)
// within its last window runs. Skipped results are ignored.
func (s *Store) Flaky(ctx context.Context, suite string, window int) ([]FlakyCase, error) {
	rows, err := s.db.QueryContext(ctx, `
		WITH recent AS (
			SELECT id FROM runs WHERE suite_name = ?
			ORDER BY started_at DESC, id DESC
			LIMIT ?
		)
		SELECT case_id,
			COUNT(*),
			SUM(CASE WHEN status = 'passed' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status != 'passed' THEN 1 ELSE 0 END)
		FROM case_results
		WHERE run_pk IN (SELECT id FROM recent) AND status != 'skipped'
		GROUP BY case_id
		HAVING SUM(CASE WHEN status = 'passed' THEN 1 ELSE 0 END) > 0
			AND SUM(CASE WHEN status != 'passed' THEN 1 ELSE 0 END) > 0
		ORDER BY case_id`, suite, sqlLimit(window))
	if err != nil {
		return nil, fmt.Errorf("query flaky cases: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var flaky []FlakyCase
	for rows.Next() {
		var f FlakyCase
		if err := rows.Scan(&f.CaseID, &f.Runs, &f.Passed, &f.Failed); err != nil {
			return nil, fmt.Errorf("scan flaky case: %w", err)
		}
		flaky = append(flaky, f)
	}
	return flaky, rows.Err()
}

// Purge deletes runs started before the cutoff and returns how many were
// removed.
func (s *Store) Purge(ctx context.Context, before time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var n int64
	if err := tx.QueryRowContext(ctx, "SELECT count(*) FROM runs WHERE started_at < ?", formatTime(before)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	if err := deleteRuns(ctx, tx, "started_at < ?", formatTime(before)); err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

// deleteRuns removes the runs matching where along with their case results.
func deleteRuns(ctx context.Context, tx *sql.Tx, where string, arg any) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM case_results WHERE run_pk IN (SELECT id FROM runs WHERE "+where+")", arg); err != nil {
		return fmt.Errorf("delete case results: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE "+where, arg); err != nil {
		return fmt.Errorf("delete runs: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeFormat, s)
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// sqlLimit maps "no limit" to SQLite's -1.
func sqlLimit(n int) int {
	if n <= 0 {
		return -1
	}
	return n
}
