// 11 Oct 2026

// Package ledger records what happened to every group of every run in
// a sqlite file, so a run can be picked apart later without the logs.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Status is where a group ended up.
type Status string

const (
	Excluded Status = "excluded" // dropped by the table filter
	Skipped  Status = "skipped"  // failed in export, alignment or parsing
	Aligned  Status = "aligned"  // part of the supermatrix
)

// Entry is one group's outcome. Seq is the group's place in the table
// order. Width and Offset only mean something for aligned groups.
type Entry struct {
	Seq    int
	Group  string
	Status Status
	Stage  string
	Reason string
	Diag   string
	Width  int
	Offset int
}

// Run is the summary row for one run.
type Run struct {
	ID       string
	Started  time.Time
	Finished time.Time
	NGroups  int
	Width    int
	OK       bool
}

type Ledger struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id   TEXT PRIMARY KEY,
	started  TEXT NOT NULL,
	finished TEXT,
	n_groups INTEGER NOT NULL DEFAULT 0,
	width    INTEGER NOT NULL DEFAULT 0,
	ok       INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS groups (
	run_id   TEXT NOT NULL,
	seq      INTEGER NOT NULL,
	group_id TEXT NOT NULL,
	status   TEXT NOT NULL,
	stage    TEXT NOT NULL DEFAULT '',
	reason   TEXT NOT NULL DEFAULT '',
	diag     TEXT NOT NULL DEFAULT '',
	width    INTEGER NOT NULL DEFAULT 0,
	"offset" INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, seq)
);`

// Open opens or creates the ledger file.
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("ledger dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create ledger tables: %w", err)
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error { return l.db.Close() }

// Begin adds the run's summary row.
func (l *Ledger) Begin(ctx context.Context, runID string, started time.Time) error {
	_, err := l.db.ExecContext(ctx, `INSERT INTO runs (run_id, started) VALUES (?, ?)`,
		runID, started.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("ledger begin %s: %w", runID, err)
	}
	return nil
}

// Record stores group outcomes in one transaction.
func (l *Ledger) Record(ctx context.Context, runID string, entries []Entry) (retErr error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO groups
		(run_id, seq, group_id, status, stage, reason, diag, width, "offset")
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, runID, e.Seq, e.Group, string(e.Status),
			e.Stage, e.Reason, e.Diag, e.Width, e.Offset); err != nil {
			return fmt.Errorf("ledger group %s: %w", e.Group, err)
		}
	}
	return tx.Commit()
}

// Finish fills in the end of the run.
func (l *Ledger) Finish(ctx context.Context, runID string, finished time.Time, nGroups, width int, ok bool) error {
	_, err := l.db.ExecContext(ctx,
		`UPDATE runs SET finished = ?, n_groups = ?, width = ?, ok = ? WHERE run_id = ?`,
		finished.UTC().Format(time.RFC3339Nano), nGroups, width, ok, runID)
	if err != nil {
		return fmt.Errorf("ledger finish %s: %w", runID, err)
	}
	return nil
}

// Entries returns a run's group outcomes in table order.
func (l *Ledger) Entries(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT seq, group_id, status, stage, reason, diag, width, "offset"
		FROM groups WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("select groups: %w", err)
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		var status string
		if err := rows.Scan(&e.Seq, &e.Group, &status, &e.Stage, &e.Reason, &e.Diag, &e.Width, &e.Offset); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		e.Status = Status(status)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetRun returns a run's summary row.
func (l *Ledger) GetRun(ctx context.Context, runID string) (Run, error) {
	var r Run
	var started string
	var finished sql.NullString
	err := l.db.QueryRowContext(ctx, `SELECT run_id, started, finished, n_groups, width, ok
		FROM runs WHERE run_id = ?`, runID).Scan(&r.ID, &started, &finished, &r.NGroups, &r.Width, &r.OK)
	if err != nil {
		return r, fmt.Errorf("run %s: %w", runID, err)
	}
	if r.Started, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return r, err
	}
	if finished.Valid {
		if r.Finished, err = time.Parse(time.RFC3339Nano, finished.String); err != nil {
			return r, err
		}
	}
	return r, nil
}
