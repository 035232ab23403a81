// Package journal persists per-row progress in SQLite so an interrupted run
// can be resumed without repeating completed rows.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ukaji3/copysheet-go/pkg/copysheet/models"

	_ "modernc.org/sqlite"
)

// Entry is one completed loop step.
type Entry struct {
	// Step is the loop row the entry belongs to.
	Step int
	// Status is the step outcome.
	Status models.Status
	// Update is the cell write made by the step, nil if none.
	Update *models.CellUpdate
}

// Journal is an append-only log of completed steps, grouped by run key.
type Journal struct {
	db *sql.DB
}

// Open opens (or creates) the journal database at path.
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("journal: mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: init schema: %w", err)
	}
	return &Journal{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS steps (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		run        TEXT NOT NULL,
		step       INTEGER NOT NULL,
		status     TEXT NOT NULL,
		written    INTEGER NOT NULL DEFAULT 0,
		row_num    INTEGER NOT NULL DEFAULT 0,
		col_num    INTEGER NOT NULL DEFAULT 0,
		value      TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS steps_run ON steps(run, id)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		run         TEXT PRIMARY KEY,
		fingerprint TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	)`)
	return err
}

// Fingerprint returns the input fingerprint stored for run. ok is false when
// none has been stored.
func (j *Journal) Fingerprint(ctx context.Context, run string) (fp string, ok bool, err error) {
	err = j.db.QueryRowContext(ctx, `SELECT fingerprint FROM runs WHERE run = ?`, run).Scan(&fp)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("journal: fingerprint: %w", err)
	}
	return fp, true, nil
}

// SetFingerprint stores fp as the input fingerprint of run.
func (j *Journal) SetFingerprint(ctx context.Context, run, fp string) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (run, fingerprint, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(run) DO UPDATE SET fingerprint = excluded.fingerprint, updated_at = excluded.updated_at`,
		run, fp, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("journal: set fingerprint: %w", err)
	}
	return nil
}

// Append records a completed step for run.
func (j *Journal) Append(ctx context.Context, run string, e Entry) error {
	var written, row, col int
	var value string
	if e.Update != nil {
		written = 1
		row, col, value = e.Update.Row, e.Update.Col, e.Update.Value
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO steps (run, step, status, written, row_num, col_num, value, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run, e.Step, string(e.Status), written, row, col, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("journal: append step %d: %w", e.Step, err)
	}
	return nil
}

// Entries returns the steps recorded for run in append order.
func (j *Journal) Entries(ctx context.Context, run string) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT step, status, written, row_num, col_num, value FROM steps WHERE run = ? ORDER BY id`, run)
	if err != nil {
		return nil, fmt.Errorf("journal: query: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var status, value string
		var written, row, col int
		if err := rows.Scan(&e.Step, &status, &written, &row, &col, &value); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		e.Status = models.Status(status)
		if written != 0 {
			e.Update = &models.CellUpdate{Row: row, Col: col, Value: value}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Clear drops every step and the fingerprint recorded for run.
func (j *Journal) Clear(ctx context.Context, run string) error {
	if _, err := j.db.ExecContext(ctx, `DELETE FROM steps WHERE run = ?`, run); err != nil {
		return fmt.Errorf("journal: clear: %w", err)
	}
	if _, err := j.db.ExecContext(ctx, `DELETE FROM runs WHERE run = ?`, run); err != nil {
		return fmt.Errorf("journal: clear: %w", err)
	}
	return nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}
