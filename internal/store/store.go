package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS valid_customers (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	source_system   TEXT,
	address_line_1  TEXT,
	address_line_2  TEXT,
	city            TEXT,
	state           TEXT,
	postal_code     TEXT,
	country         TEXT,
	full_detail     TEXT NOT NULL,
	embedding       BLOB
);

CREATE TABLE IF NOT EXISTS test_customers (
	source_pkey     TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	source_system   TEXT,
	address_line_1  TEXT,
	address_line_2  TEXT,
	city            TEXT,
	state           TEXT,
	postal_code     TEXT,
	country         TEXT,
	full_detail     TEXT NOT NULL,
	embedding       BLOB
);

CREATE TABLE IF NOT EXISTS match_results (
	test_id            TEXT PRIMARY KEY,
	valid_id           TEXT NOT NULL,
	test_full_detail   TEXT NOT NULL,
	valid_full_detail  TEXT NOT NULL,
	similarity_score   REAL NOT NULL,
	match_category     TEXT NOT NULL,
	created_at         TEXT NOT NULL,
	updated_at         TEXT NOT NULL,
	FOREIGN KEY (test_id)  REFERENCES test_customers(source_pkey),
	FOREIGN KEY (valid_id) REFERENCES valid_customers(id)
);

CREATE INDEX IF NOT EXISTS idx_match_results_category
ON match_results(match_category);
`

// #endregion schema

// #region store-struct
// Store manages customer records and the match index in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. audit).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor
