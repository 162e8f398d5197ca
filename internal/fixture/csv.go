// Package fixture loads and generates customer record sets in the CSV
// interchange format used by the upstream MDM feeds. The generator
// produces an incoming set with a controlled similarity profile against
// a reference set, for exercising the match pipeline end to end.
package fixture

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/mdmtools/matchengine/internal/store"
)

// csvHeader is the upstream feed column order.
var csvHeader = []string{
	"SOURCE_PKEY", "NAME", "SOURCE_SYSTEM", "ADDRESS_LINE_1",
	"ADDRESS_LINE_2", "CITY", "STATE", "POSTAL_CODE", "COUNTRY",
}

// #region read

// ReadCustomers parses a customer feed. The header row is required and
// must match the upstream column order.
func ReadCustomers(r io.Reader) ([]store.Customer, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, col := range csvHeader {
		if header[i] != col {
			return nil, fmt.Errorf("unexpected column %d: got %q want %q", i, header[i], col)
		}
	}

	var out []store.Customer
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		c := store.Customer{
			ID:           row[0],
			Name:         row[1],
			SourceSystem: row[2],
			AddressLine1: row[3],
			AddressLine2: row[4],
			City:         row[5],
			State:        row[6],
			PostalCode:   row[7],
			Country:      row[8],
		}
		c.FullDetail = c.BuildFullDetail()
		out = append(out, c)
	}
	return out, nil
}

// LoadCustomers reads a customer feed from a file.
func LoadCustomers(path string) ([]store.Customer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	recs, err := ReadCustomers(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return recs, nil
}

// #endregion read

// #region write

// WriteCustomers emits a customer feed with the upstream header.
func WriteCustomers(w io.Writer, recs []store.Customer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, c := range recs {
		row := []string{
			c.ID, c.Name, c.SourceSystem, c.AddressLine1,
			c.AddressLine2, c.City, c.State, c.PostalCode, c.Country,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %s: %w", c.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCustomers writes a customer feed to a file.
func SaveCustomers(path string, recs []store.Customer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if err := WriteCustomers(f, recs); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return f.Close()
}

// #endregion write
