package history

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/magebay99/multiexporter-hack/internal/apperr"
)

// RecordRun stores a run and its outcomes within a transaction. Recording
// the same run again replaces its outcomes.
func (db *DB) RecordRun(r Run, outcomes []Outcome) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("history: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO runs (id, scene, format, started_at, finished_at, total, exported, failed, skipped, attempts, cancelled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			scene       = excluded.scene,
			format      = excluded.format,
			started_at  = excluded.started_at,
			finished_at = excluded.finished_at,
			total       = excluded.total,
			exported    = excluded.exported,
			failed      = excluded.failed,
			skipped     = excluded.skipped,
			attempts    = excluded.attempts,
			cancelled   = excluded.cancelled
	`, r.ID, r.Scene, r.Format, r.Started.UTC(), r.Finished.UTC(), r.Total, r.Exported, r.Failed, r.Skipped, r.Attempts, r.Cancelled)
	if err != nil {
		return fmt.Errorf("history: upsert run: %w", err)
	}

	ftsDeleteRun(tx, r.ID)
	if _, err := tx.Exec(`DELETE FROM job_outcomes WHERE run_id = ?`, r.ID); err != nil {
		return fmt.Errorf("history: clear outcomes: %w", err)
	}
	if len(outcomes) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO job_outcomes (run_id, seq, artboard, layer, label, status, path, checksum, detail)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("history: prepare outcome insert: %w", err)
		}
		defer stmt.Close()
		for i, o := range outcomes {
			if _, err := stmt.Exec(r.ID, i, o.Artboard, o.Layer, o.Label, o.Status, o.Path, o.Checksum, o.Detail); err != nil {
				return fmt.Errorf("history: insert outcome: %w", err)
			}
			if err := ftsInsert(tx, r.ID, i, o.Label, o.Path, o.Detail); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

const runColumns = `id, scene, format, started_at, finished_at, total, exported, failed, skipped, attempts, cancelled`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var r Run
	err := s.Scan(&r.ID, &r.Scene, &r.Format, &r.Started, &r.Finished, &r.Total, &r.Exported, &r.Failed, &r.Skipped, &r.Attempts, &r.Cancelled)
	return r, err
}

// GetRun returns one run or apperr.ErrNotFound.
func (db *DB) GetRun(id string) (*Run, error) {
	r, err := scanRun(db.conn.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("history: run %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("history: get run: %w", err)
	}
	return &r, nil
}

// ListRuns returns runs newest first, with the total number of runs.
func (db *DB) ListRuns(limit, offset int) ([]Run, int, error) {
	if limit <= 0 {
		limit = 20
	}
	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM runs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("history: count runs: %w", err)
	}
	rows, err := db.conn.Query(`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("history: list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

const outcomeColumns = `run_id, seq, artboard, layer, label, status, path, checksum, detail`

func queryOutcomes(conn *sql.DB, query string, args ...any) ([]Outcome, error) {
	rows, err := conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Outcome
	for rows.Next() {
		var o Outcome
		if err := rows.Scan(&o.RunID, &o.Seq, &o.Artboard, &o.Layer, &o.Label, &o.Status, &o.Path, &o.Checksum, &o.Detail); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Outcomes returns the outcomes of a run in job order.
func (db *DB) Outcomes(runID string) ([]Outcome, error) {
	out, err := queryOutcomes(db.conn, `SELECT `+outcomeColumns+` FROM job_outcomes WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("history: outcomes: %w", err)
	}
	return out, nil
}

// ExportedFiles returns the most recent exported outcome for every path.
func (db *DB) ExportedFiles() ([]Outcome, error) {
	out, err := queryOutcomes(db.conn, `
		SELECT o.run_id, o.seq, o.artboard, o.layer, o.label, o.status, o.path, o.checksum, o.detail
		FROM job_outcomes o
		JOIN runs r ON r.id = o.run_id
		WHERE o.status = ? AND o.path != ''
		  AND r.started_at = (
			SELECT max(r2.started_at) FROM job_outcomes o2 JOIN runs r2 ON r2.id = o2.run_id
			WHERE o2.path = o.path AND o2.status = ?
		  )
		ORDER BY o.path`, StatusExported, StatusExported)
	if err != nil {
		return nil, fmt.Errorf("history: exported files: %w", err)
	}
	return out, nil
}
