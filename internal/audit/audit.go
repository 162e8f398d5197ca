// Package audit persists a provenance trail of recomputation
// decisions: which operation touched which record, what was decided,
// and why.
package audit

import (
	"database/sql"
	"fmt"
	"time"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS recompute_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	op          TEXT NOT NULL,
	test_id     TEXT,
	decision    TEXT NOT NULL,
	reason      TEXT,
	created_at  TEXT NOT NULL
);
`

// #endregion schema

// #region init

// Init creates the recompute_log table.
func Init(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init recompute log: %w", err)
	}
	return nil
}

// #endregion init

// #region log-decision
// LogDecision writes one entry to the recompute_log table.
func LogDecision(db *sql.DB, entry Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO recompute_log (op, test_id, decision, reason, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		entry.Op,
		nullIfEmpty(entry.TestID),
		entry.Decision,
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// #endregion log-decision

// #region tail

// Tail returns the most recent n entries, newest first.
func Tail(db *sql.DB, n int) ([]Entry, error) {
	rows, err := db.Query(
		`SELECT op, test_id, decision, reason, created_at
		 FROM recompute_log ORDER BY id DESC LIMIT ?`, n,
	)
	if err != nil {
		return nil, fmt.Errorf("tail recompute log: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var testID, reason sql.NullString
		var createdStr string
		if err := rows.Scan(&e.Op, &testID, &e.Decision, &reason, &createdStr); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.TestID = testID.String
		e.Reason = reason.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// #endregion tail

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
