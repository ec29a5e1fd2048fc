// Package history keeps an SQLite log of ingest runs and the objects each run
// transferred, skipped or failed.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	// Pure-Go SQLite driver, registers as "sqlite".
	_ "modernc.org/sqlite"

	"github.com/tonimelisma/ptp-ingest/internal/ingest"
)

const (
	sqlInsertRun = `INSERT INTO runs (id, started_at) VALUES (?, ?)`

	sqlFinishRun = `UPDATE runs SET
		finished_at = ?, devices = ?, volumes = ?, objects = ?,
		transferred = ?, duplicates = ?, failed = ?, bytes = ?, error = ?
		WHERE id = ?`

	sqlInsertImport = `INSERT INTO imports
		(run_id, recorded_at, device, serial, storage_id, handle, filename,
		 path, size, captured_at, outcome, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	sqlSelectImports = `SELECT id, run_id, recorded_at, device, serial, storage_id,
		handle, filename, path, size, captured_at, outcome, error
		FROM imports`

	sqlSelectRuns = `SELECT id, started_at, finished_at, devices, volumes, objects,
		transferred, duplicates, failed, bytes, error
		FROM runs ORDER BY started_at DESC LIMIT ?`
)

// ErrUnknownRun is returned when finishing a run that was never started.
var ErrUnknownRun = errors.New("history: unknown run")

// Store is the history database. It implements ingest.Recorder.
type Store struct {
	db      *sql.DB
	logger  *slog.Logger
	nowFunc func() time.Time
}

// Import is one row of the imports table.
type Import struct {
	ID         int64
	RunID      string
	RecordedAt time.Time
	Device     string
	Serial     string
	StorageID  uint32
	Handle     uint32
	Filename   string
	Path       string
	Size       int64
	CapturedAt time.Time // zero when the date could not be parsed
	Outcome    ingest.Outcome
	Err        string
}

// Run is one row of the runs table.
type Run struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time // zero while running or after a crash
	Devices     int
	Volumes     int
	Objects     int
	Transferred int
	Duplicates  int
	Failed      int
	Bytes       int64
	Err         string
}

// Open opens (creating if needed) the database at dbPath and applies pending
// migrations.
func Open(ctx context.Context, dbPath string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("history: creating directory for %s: %w", dbPath, err)
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"+
			"&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)",
		dbPath,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: opening %s: %w", dbPath, err)
	}

	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("history database ready", slog.String("db_path", dbPath))

	return &Store{db: db, logger: logger, nowFunc: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// StartRun inserts a new run and returns its ID.
func (s *Store) StartRun(ctx context.Context) (string, error) {
	id := uuid.NewString()

	if _, err := s.db.ExecContext(ctx, sqlInsertRun, id, s.nowFunc().UnixNano()); err != nil {
		return "", fmt.Errorf("history: starting run: %w", err)
	}

	return id, nil
}

// FinishRun stores the run's totals and its terminal error, if any.
func (s *Store) FinishRun(ctx context.Context, sum *ingest.Summary, runErr error) error {
	var errText sql.NullString
	if runErr != nil {
		errText = sql.NullString{String: runErr.Error(), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, sqlFinishRun,
		s.nowFunc().UnixNano(),
		sum.Devices, sum.Volumes, sum.Objects,
		sum.Transferred, sum.Duplicates, sum.Failed, sum.Bytes,
		errText, sum.RunID,
	)
	if err != nil {
		return fmt.Errorf("history: finishing run %s: %w", sum.RunID, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownRun, sum.RunID)
	}

	return nil
}

// Record stores one processed object.
func (s *Store) Record(ctx context.Context, rec ingest.Record) error {
	var captured sql.NullInt64
	if !rec.CapturedAt.IsZero() {
		captured = sql.NullInt64{Int64: rec.CapturedAt.Unix(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, sqlInsertImport,
		rec.RunID,
		s.nowFunc().UnixNano(),
		rec.Device,
		nullString(rec.Serial),
		int64(rec.Storage),
		int64(rec.Handle),
		nullString(rec.Filename),
		nullString(rec.Path),
		rec.Size,
		captured,
		string(rec.Outcome),
		nullString(rec.Err),
	)
	if err != nil {
		return fmt.Errorf("history: recording %s: %w", rec.Filename, err)
	}

	return nil
}

// Filter narrows Imports. Limit <= 0 means no limit.
type Filter struct {
	RunID   string
	Outcome ingest.Outcome
	Limit   int
}

// Imports returns matching rows, newest first.
func (s *Store) Imports(ctx context.Context, f Filter) ([]Import, error) {
	query := sqlSelectImports
	args := []any{}

	var where []string
	if f.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, f.RunID)
	}

	if f.Outcome != "" {
		where = append(where, "outcome = ?")
		args = append(args, string(f.Outcome))
	}

	for i, w := range where {
		if i == 0 {
			query += " WHERE " + w
		} else {
			query += " AND " + w
		}
	}

	query += " ORDER BY recorded_at DESC, id DESC"

	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: querying imports: %w", err)
	}
	defer rows.Close()

	var out []Import

	for rows.Next() {
		var (
			imp                        Import
			recorded                   int64
			serial, filename, path, ee sql.NullString
			captured                   sql.NullInt64
			outcome                    string
		)

		if err := rows.Scan(&imp.ID, &imp.RunID, &recorded, &imp.Device, &serial, &imp.StorageID,
			&imp.Handle, &filename, &path, &imp.Size, &captured, &outcome, &ee); err != nil {
			return nil, fmt.Errorf("history: scanning import: %w", err)
		}

		imp.RecordedAt = time.Unix(0, recorded)
		imp.Serial = serial.String
		imp.Filename = filename.String
		imp.Path = path.String
		imp.Outcome = ingest.Outcome(outcome)
		imp.Err = ee.String

		if captured.Valid {
			imp.CapturedAt = time.Unix(captured.Int64, 0).UTC()
		}

		out = append(out, imp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterating imports: %w", err)
	}

	return out, nil
}

// Runs returns the most recent runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, sqlSelectRuns, limit)
	if err != nil {
		return nil, fmt.Errorf("history: querying runs: %w", err)
	}
	defer rows.Close()

	var out []Run

	for rows.Next() {
		var (
			r        Run
			started  int64
			finished sql.NullInt64
			errText  sql.NullString
		)

		if err := rows.Scan(&r.ID, &started, &finished, &r.Devices, &r.Volumes, &r.Objects,
			&r.Transferred, &r.Duplicates, &r.Failed, &r.Bytes, &errText); err != nil {
			return nil, fmt.Errorf("history: scanning run: %w", err)
		}

		r.StartedAt = time.Unix(0, started)
		if finished.Valid {
			r.FinishedAt = time.Unix(0, finished.Int64)
		}

		r.Err = errText.String
		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterating runs: %w", err)
	}

	return out, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}

	return sql.NullString{String: s, Valid: true}
}
