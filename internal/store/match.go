package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mdmtools/matchengine/internal/classify"
)

// #region upsert-match

// UpsertMatch writes the single best-candidate row for testID,
// classifying the score under cfg. Fails with ErrNotFound when either
// identifier is absent from the record tables. The created timestamp
// is set once; the updated timestamp advances on every write.
func (s *Store) UpsertMatch(testID, validID string, score float64, cfg classify.Thresholds) error {
	test, err := s.GetTest(testID)
	if err != nil {
		return fmt.Errorf("upsert match: %w", err)
	}
	valid, err := s.GetValid(validID)
	if err != nil {
		return fmt.Errorf("upsert match: %w", err)
	}

	category := classify.Classify(score, cfg)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err = s.db.Exec(
		`INSERT INTO match_results
		 (test_id, valid_id, test_full_detail, valid_full_detail, similarity_score, match_category, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(test_id) DO UPDATE SET
		   valid_id = excluded.valid_id,
		   test_full_detail = excluded.test_full_detail,
		   valid_full_detail = excluded.valid_full_detail,
		   similarity_score = excluded.similarity_score,
		   match_category = excluded.match_category,
		   updated_at = excluded.updated_at`,
		testID, validID, test.FullDetail, valid.FullDetail, score, string(category), now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert match %s: %w", testID, err)
	}
	return nil
}

// #endregion upsert-match

// #region get-match

// GetMatch retrieves the match row for one incoming record.
func (s *Store) GetMatch(testID string) (MatchResult, error) {
	row := s.db.QueryRow(
		`SELECT test_id, valid_id, test_full_detail, valid_full_detail, similarity_score, match_category, created_at, updated_at
		 FROM match_results WHERE test_id = ?`, testID,
	)
	m, err := scanMatch(row)
	if err != nil {
		return MatchResult{}, fmt.Errorf("get match %s: %w", testID, err)
	}
	return m, nil
}

// ListMatches returns all match rows ordered by score descending.
func (s *Store) ListMatches() ([]MatchResult, error) {
	rows, err := s.db.Query(
		`SELECT test_id, valid_id, test_full_detail, valid_full_detail, similarity_score, match_category, created_at, updated_at
		 FROM match_results ORDER BY similarity_score DESC, test_id`)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var out []MatchResult
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CountMatches returns the number of match rows.
func (s *Store) CountMatches() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM match_results`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count matches: %w", err)
	}
	return n, nil
}

// #endregion get-match

// #region recategorize

// RecategorizeAll recomputes every match row's category from its
// stored score under cfg. Scores and reference ids are never touched;
// threshold edits only move labels. Runs in one transaction so a
// reader never observes a row with a score/category mix from two
// configs.
func (s *Store) RecategorizeAll(cfg classify.Thresholds) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(`SELECT test_id, similarity_score, match_category FROM match_results`)
	if err != nil {
		return fmt.Errorf("recategorize scan: %w", err)
	}

	type relabel struct {
		testID   string
		category classify.Category
	}
	var changes []relabel
	for rows.Next() {
		var testID, current string
		var score float64
		if err := rows.Scan(&testID, &score, &current); err != nil {
			rows.Close()
			return fmt.Errorf("recategorize scan row: %w", err)
		}
		next := classify.Classify(score, cfg)
		if string(next) != current {
			changes = append(changes, relabel{testID: testID, category: next})
		}
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("recategorize rows: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, ch := range changes {
		_, err := tx.Exec(
			`UPDATE match_results SET match_category = ?, updated_at = ? WHERE test_id = ?`,
			string(ch.category), now, ch.testID,
		)
		if err != nil {
			return fmt.Errorf("recategorize %s: %w", ch.testID, err)
		}
	}

	return tx.Commit()
}

// #endregion recategorize

// #region aggregate

// AggregateCounts returns the number of match rows per category. Every
// category is present in the result, zero-valued when empty.
func (s *Store) AggregateCounts() (map[classify.Category]int, error) {
	counts := make(map[classify.Category]int, len(classify.Categories))
	for _, cat := range classify.Categories {
		counts[cat] = 0
	}

	rows, err := s.db.Query(`SELECT match_category, COUNT(*) FROM match_results GROUP BY match_category`)
	if err != nil {
		return nil, fmt.Errorf("aggregate counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cat string
		var n int
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[classify.Category(cat)] = n
	}
	return counts, rows.Err()
}

// ListTestByCategory returns incoming records whose current match
// category is one of cats, for the dashboard's filtered table view.
func (s *Store) ListTestByCategory(cats []classify.Category) ([]Customer, error) {
	if len(cats) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cats)), ", ")
	args := make([]any, len(cats))
	for i, c := range cats {
		args[i] = string(c)
	}

	rows, err := s.db.Query(
		`SELECT t.source_pkey, t.name, t.source_system, t.address_line_1, t.address_line_2,
		        t.city, t.state, t.postal_code, t.country, t.full_detail, t.embedding
		 FROM test_customers t
		 JOIN match_results m ON m.test_id = t.source_pkey
		 WHERE m.match_category IN (`+placeholders+`)
		 ORDER BY t.source_pkey`, args...)
	if err != nil {
		return nil, fmt.Errorf("list by category: %w", err)
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// #endregion aggregate

// #region scan-match

func scanMatch(row rowScanner) (MatchResult, error) {
	var m MatchResult
	var category, createdStr, updatedStr string

	err := row.Scan(&m.TestID, &m.ValidID, &m.TestDetail, &m.ValidDetail, &m.Score, &category, &createdStr, &updatedStr)
	if errors.Is(err, sql.ErrNoRows) {
		return MatchResult{}, ErrNotFound
	}
	if err != nil {
		return MatchResult{}, err
	}
	m.Category = classify.Category(category)
	m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	m.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedStr)
	return m, nil
}

// #endregion scan-match
