package index

import (
	"database/sql"
	"fmt"

	"github.com/starford/studyshelf/internal/apperr"
	"github.com/starford/studyshelf/internal/models"
	"github.com/starford/studyshelf/internal/search"
)

const selectColumns = `SELECT id, year, branch, subject, title, type, url, path FROM resources`

// Replace swaps the indexed records for records within a transaction,
// keeping their order.
func (db *DB) Replace(records []models.Record) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM resources`); err != nil {
		return fmt.Errorf("index: clear: %w", err)
	}
	if len(records) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO resources (position, id, year, branch, subject, title, type, url, path,
				year_fold, branch_fold, subject_fold, title_fold)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("index: prepare insert: %w", err)
		}
		defer stmt.Close()
		for i, r := range records {
			if _, err := stmt.Exec(i, r.ID, r.Year, r.Branch, r.Subject, r.Title, r.Type, r.URL, r.Path,
				search.Fold(r.Year), search.Fold(r.Branch), search.Fold(r.Subject), search.Fold(r.Title)); err != nil {
				return fmt.Errorf("index: insert resource: %w", err)
			}
		}
	}

	return tx.Commit()
}

// Search returns the records whose title, subject, branch or year contains
// query ignoring case, in catalog order.
func (db *DB) Search(query string) ([]models.Record, error) {
	q := search.Fold(query)
	rows, err := db.conn.Query(selectColumns+`
		WHERE instr(title_fold, ?) > 0
		   OR instr(subject_fold, ?) > 0
		   OR instr(branch_fold, ?) > 0
		   OR instr(year_fold, ?) > 0
		ORDER BY position
	`, q, q, q, q)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanRecords(rows)
}

// Get returns the record for a resource id.
func (db *DB) Get(id string) (*models.Record, error) {
	rows, err := db.conn.Query(selectColumns+` WHERE id = ? LIMIT 1`, id)
	if err != nil {
		return nil, fmt.Errorf("index: get: %w", err)
	}
	recs, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, apperr.NewNotFoundError("resource", id)
	}
	return &recs[0], nil
}

// Count returns the number of indexed records.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM resources`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}

func scanRecords(rows *sql.Rows) ([]models.Record, error) {
	defer rows.Close()
	out := []models.Record{}
	for rows.Next() {
		var r models.Record
		if err := rows.Scan(&r.ID, &r.Year, &r.Branch, &r.Subject, &r.Title, &r.Type, &r.URL, &r.Path); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
