//go:build sqlite_fts5

package history

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS outcomes_fts USING fts5(
			run_id UNINDEXED,
			seq UNINDEXED,
			label,
			path,
			detail,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsInsert(tx *sql.Tx, runID string, seq int, label, path, detail string) error {
	_, err := tx.Exec(`INSERT INTO outcomes_fts (run_id, seq, label, path, detail) VALUES (?, ?, ?, ?, ?)`,
		runID, seq, label, path, detail)
	if err != nil {
		return fmt.Errorf("history: insert fts: %w", err)
	}
	return nil
}

func ftsDeleteRun(tx *sql.Tx, runID string) {
	_, _ = tx.Exec(`DELETE FROM outcomes_fts WHERE run_id = ?`, runID)
}

// Search finds outcomes whose label, path or failure detail match query.
func (db *DB) Search(query string, limit int) ([]Outcome, error) {
	if limit <= 0 {
		limit = 20
	}
	out, err := queryOutcomes(db.conn, `
		SELECT o.run_id, o.seq, o.artboard, o.layer, o.label, o.status, o.path, o.checksum, o.detail
		FROM outcomes_fts f
		JOIN job_outcomes o ON o.run_id = f.run_id AND o.seq = f.seq
		WHERE outcomes_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("history: search: %w", err)
	}
	return out, nil
}
