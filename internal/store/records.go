package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// #region id-generation

// NewTestID generates a fresh incoming-record identifier in the
// TEST_<12 hex> form the source feeds use.
func NewTestID() string {
	hex := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	return "TEST_" + hex[:12]
}

// #endregion id-generation

// #region valid-customers

// UpsertValid inserts or replaces one reference record. Reference
// records are bulk-loaded and have no edit path, so full replacement
// is fine.
func (s *Store) UpsertValid(c Customer) error {
	if c.ID == "" {
		return fmt.Errorf("upsert valid: empty id")
	}
	_, err := s.db.Exec(
		`INSERT INTO valid_customers
		 (id, name, source_system, address_line_1, address_line_2, city, state, postal_code, country, full_detail, embedding)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   source_system = excluded.source_system,
		   address_line_1 = excluded.address_line_1,
		   address_line_2 = excluded.address_line_2,
		   city = excluded.city,
		   state = excluded.state,
		   postal_code = excluded.postal_code,
		   country = excluded.country,
		   full_detail = excluded.full_detail,
		   embedding = excluded.embedding`,
		c.ID, c.Name, c.SourceSystem, c.AddressLine1, c.AddressLine2,
		c.City, c.State, c.PostalCode, c.Country, c.FullDetail, EncodeVector(c.Embedding),
	)
	if err != nil {
		return fmt.Errorf("upsert valid %s: %w", c.ID, err)
	}
	return nil
}

// GetValid retrieves one reference record by id.
func (s *Store) GetValid(id string) (Customer, error) {
	row := s.db.QueryRow(
		`SELECT id, name, source_system, address_line_1, address_line_2, city, state, postal_code, country, full_detail, embedding
		 FROM valid_customers WHERE id = ?`, id,
	)
	c, err := scanCustomer(row)
	if err != nil {
		return Customer{}, fmt.Errorf("get valid %s: %w", id, err)
	}
	return c, nil
}

// ListValid returns all reference records ordered by id.
func (s *Store) ListValid() ([]Customer, error) {
	return s.listCustomers(
		`SELECT id, name, source_system, address_line_1, address_line_2, city, state, postal_code, country, full_detail, embedding
		 FROM valid_customers ORDER BY id`)
}

// CountValid returns the number of reference records.
func (s *Store) CountValid() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM valid_customers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count valid: %w", err)
	}
	return n, nil
}

// #endregion valid-customers

// #region test-customers

// UpsertTest inserts or updates one incoming record. A new identifier
// is generated when none is supplied; an existing identifier is
// preserved across edits. Returns the record's identifier.
func (s *Store) UpsertTest(c Customer) (string, error) {
	if c.ID == "" {
		c.ID = NewTestID()
	}
	_, err := s.db.Exec(
		`INSERT INTO test_customers
		 (source_pkey, name, source_system, address_line_1, address_line_2, city, state, postal_code, country, full_detail, embedding)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(source_pkey) DO UPDATE SET
		   name = excluded.name,
		   source_system = excluded.source_system,
		   address_line_1 = excluded.address_line_1,
		   address_line_2 = excluded.address_line_2,
		   city = excluded.city,
		   state = excluded.state,
		   postal_code = excluded.postal_code,
		   country = excluded.country,
		   full_detail = excluded.full_detail,
		   embedding = excluded.embedding`,
		c.ID, c.Name, c.SourceSystem, c.AddressLine1, c.AddressLine2,
		c.City, c.State, c.PostalCode, c.Country, c.FullDetail, EncodeVector(c.Embedding),
	)
	if err != nil {
		return "", fmt.Errorf("upsert test %s: %w", c.ID, err)
	}
	return c.ID, nil
}

// GetTest retrieves one incoming record by id.
func (s *Store) GetTest(id string) (Customer, error) {
	row := s.db.QueryRow(
		`SELECT source_pkey, name, source_system, address_line_1, address_line_2, city, state, postal_code, country, full_detail, embedding
		 FROM test_customers WHERE source_pkey = ?`, id,
	)
	c, err := scanCustomer(row)
	if err != nil {
		return Customer{}, fmt.Errorf("get test %s: %w", id, err)
	}
	return c, nil
}

// ListTest returns all incoming records ordered by id.
func (s *Store) ListTest() ([]Customer, error) {
	return s.listCustomers(
		`SELECT source_pkey, name, source_system, address_line_1, address_line_2, city, state, postal_code, country, full_detail, embedding
		 FROM test_customers ORDER BY source_pkey`)
}

// CountTest returns the number of incoming records.
func (s *Store) CountTest() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM test_customers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count test: %w", err)
	}
	return n, nil
}

// #endregion test-customers

// #region scan-helpers

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (Customer, error) {
	var c Customer
	var srcSys, a1, a2, city, state, postal, country sql.NullString
	var embedding []byte

	err := row.Scan(&c.ID, &c.Name, &srcSys, &a1, &a2, &city, &state, &postal, &country, &c.FullDetail, &embedding)
	if errors.Is(err, sql.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	if err != nil {
		return Customer{}, err
	}

	c.SourceSystem = srcSys.String
	c.AddressLine1 = a1.String
	c.AddressLine2 = a2.String
	c.City = city.String
	c.State = state.String
	c.PostalCode = postal.String
	c.Country = country.String
	c.Embedding = DecodeVector(embedding)
	return c, nil
}

func (s *Store) listCustomers(query string) ([]Customer, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
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

// #endregion scan-helpers
