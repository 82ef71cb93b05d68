//go:build !sqlite_fts5

package history

import (
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE on the job_outcomes columns.
	return nil
}

func ftsInsert(_ *sql.Tx, _ string, _ int, _, _, _ string) error { return nil }

func ftsDeleteRun(_ *sql.Tx, _ string) {}

// Search finds outcomes whose label, path or failure detail contain query.
func (db *DB) Search(query string, limit int) ([]Outcome, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	out, err := queryOutcomes(db.conn, `
		SELECT `+outcomeColumns+`
		FROM job_outcomes
		WHERE label LIKE ? OR path LIKE ? OR detail LIKE ?
		ORDER BY run_id, seq
		LIMIT ?
	`, like, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("history: search: %w", err)
	}
	return out, nil
}
