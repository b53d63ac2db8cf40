package record

import (
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS completed_jobs (
	run_id       TEXT    NOT NULL,
	step         INTEGER NOT NULL,
	job_id       TEXT    NOT NULL,
	provider_id  TEXT    NOT NULL,
	requester_id TEXT    NOT NULL,
	service_type TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_completed_jobs_run ON completed_jobs(run_id, step);

CREATE TABLE IF NOT EXISTS queue_lengths (
	run_id         TEXT    NOT NULL,
	step           INTEGER NOT NULL,
	provider_group TEXT    NOT NULL,
	provider_id    TEXT    NOT NULL,
	service_type   TEXT    NOT NULL,
	queue_length   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_queue_lengths_run ON queue_lengths(run_id, step);
`

// sqliteTables maps sink table names to SQL tables.
var sqliteTables = map[string]string{
	TableCompletedJobs: "completed_jobs",
	TableQueueLength:   "queue_lengths",
}

// SQLiteSink persists rows to a SQLite database. Every row is stamped with
// the run ID so that several runs can share one database file.
type SQLiteSink struct {
	db    *sql.DB
	runID string
	log   *logrus.Entry
}

// OpenSQLite opens (or creates) a SQLite database at path and creates the tables.
// Use ":memory:" for an in-memory database (useful in tests).
func OpenSQLite(path, runID string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// An in-memory database lives only as long as its connection.
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma wal: %w", err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite %s: %w", path, err)
	}

	return &SQLiteSink{
		db:    db,
		runID: runID,
		log:   logrus.WithFields(logrus.Fields{"component": "sqlite", "run": runID}),
	}, nil
}

// DB returns the underlying database handle.
func (s *SQLiteSink) DB() *sql.DB { return s.db }

// RunID returns the ID stamped on every row.
func (s *SQLiteSink) RunID() string { return s.runID }

// Close closes the underlying database connection.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

// Record inserts the row into the SQL table backing table.
func (s *SQLiteSink) Record(table string, row Row) error {
	if err := Validate(table, row); err != nil {
		return err
	}
	sqlTable, ok := sqliteTables[table]
	if !ok {
		return fmt.Errorf("sqlite sink: unknown table %q", table)
	}
	s.log.Tracef("insert into %s: %v", sqlTable, row)

	var err error
	switch table {
	case TableCompletedJobs:
		_, err = s.db.Exec(
			`INSERT INTO completed_jobs (run_id, step, job_id, provider_id, requester_id, service_type)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			s.runID, row.Int(ColStep), row.String(ColJobID), row.String(ColProviderID),
			row.String(ColRequesterID), row.String(ColServiceType),
		)
	case TableQueueLength:
		_, err = s.db.Exec(
			`INSERT INTO queue_lengths (run_id, step, provider_group, provider_id, service_type, queue_length)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			s.runID, row.Int(ColStep), row.String(ColProviderGroup), row.String(ColProviderID),
			row.String(ColServiceType), row.Int(ColQueueLength),
		)
	}
	if err != nil {
		return fmt.Errorf("insert %s: %w", sqlTable, err)
	}
	return nil
}

// CountRows returns the number of rows this run wrote to table.
func (s *SQLiteSink) CountRows(table string) (int, error) {
	sqlTable, ok := sqliteTables[table]
	if !ok {
		return 0, fmt.Errorf("sqlite sink: unknown table %q", table)
	}
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM `+sqlTable+` WHERE run_id = ?`, s.runID).Scan(&n)
	return n, err
}
