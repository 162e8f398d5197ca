package store

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleValid(id string) Customer {
	c := Customer{
		ID:           id,
		Name:         "Alamo Elementary School",
		SourceSystem: "mdm",
		AddressLine1: "250 23rd Ave",
		City:         "San Francisco",
		State:        "CA",
		PostalCode:   "94121",
		Country:      "US",
		Embedding:    []float32{0.1, 0.2, 0.3},
	}
	c.FullDetail = c.BuildFullDetail()
	return c
}

func TestUpsertAndGetValid(t *testing.T) {
	s := tempDB(t)
	c := sampleValid("V1")

	if err := s.UpsertValid(c); err != nil {
		t.Fatalf("UpsertValid: %v", err)
	}

	got, err := s.GetValid("V1")
	if err != nil {
		t.Fatalf("GetValid: %v", err)
	}
	if got.Name != c.Name {
		t.Fatalf("expected name %q, got %q", c.Name, got.Name)
	}
	if got.FullDetail != c.FullDetail {
		t.Fatalf("expected detail %q, got %q", c.FullDetail, got.FullDetail)
	}
	if len(got.Embedding) != 3 || got.Embedding[1] != 0.2 {
		t.Fatalf("embedding round trip failed: %v", got.Embedding)
	}
}

func TestGetValidNotFound(t *testing.T) {
	s := tempDB(t)
	_, err := s.GetValid("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsertTestGeneratesID(t *testing.T) {
	s := tempDB(t)
	c := sampleValid("")
	c.SourceSystem = "sap_hmh"

	id, err := s.UpsertTest(c)
	if err != nil {
		t.Fatalf("UpsertTest: %v", err)
	}
	if !strings.HasPrefix(id, "TEST_") || len(id) != len("TEST_")+12 {
		t.Fatalf("unexpected generated id %q", id)
	}

	got, err := s.GetTest(id)
	if err != nil {
		t.Fatalf("GetTest: %v", err)
	}
	if got.ID != id {
		t.Fatalf("expected id %s, got %s", id, got.ID)
	}
}

func TestUpsertTestPreservesID(t *testing.T) {
	s := tempDB(t)
	c := sampleValid("TEST_ABCDEF123456")

	id, err := s.UpsertTest(c)
	if err != nil {
		t.Fatalf("UpsertTest: %v", err)
	}
	if id != c.ID {
		t.Fatalf("expected preserved id %s, got %s", c.ID, id)
	}

	// Edit in place: same id, new name.
	c.Name = "Alamo Elem Sch"
	c.FullDetail = c.BuildFullDetail()
	id2, err := s.UpsertTest(c)
	if err != nil {
		t.Fatalf("UpsertTest edit: %v", err)
	}
	if id2 != id {
		t.Fatalf("edit changed id from %s to %s", id, id2)
	}

	n, err := s.CountTest()
	if err != nil {
		t.Fatalf("CountTest: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 test record, got %d", n)
	}

	got, _ := s.GetTest(id)
	if got.Name != "Alamo Elem Sch" {
		t.Fatalf("edit not applied: %q", got.Name)
	}
}

func TestNewTestIDShape(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewTestID()
		if !strings.HasPrefix(id, "TEST_") {
			t.Fatalf("missing prefix: %q", id)
		}
		if id != strings.ToUpper(id) {
			t.Fatalf("id not upper-cased: %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id generated: %q", id)
		}
		seen[id] = true
	}
}

func TestBuildFullDetailSkipsEmpty(t *testing.T) {
	c := Customer{Name: "Fayetteville Creative Pre-School", City: "Fayetteville"}
	got := c.BuildFullDetail()
	want := "Name: Fayetteville Creative Pre-School | City: Fayetteville"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestVectorRoundTrip(t *testing.T) {
	in := []float32{0, -1.5, 3.25, 0.0001}
	out := DecodeVector(EncodeVector(in))
	if len(out) != len(in) {
		t.Fatalf("length mismatch: %d vs %d", len(out), len(in))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("mismatch at %d: %v vs %v", i, in[i], out[i])
		}
	}
	if DecodeVector(nil) != nil {
		t.Fatal("expected nil for empty blob")
	}
}
