package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mdmtools/matchengine/internal/classify"
	"github.com/mdmtools/matchengine/internal/engine"
	"github.com/mdmtools/matchengine/internal/provider"
	"github.com/mdmtools/matchengine/internal/retrieval"
	"github.com/mdmtools/matchengine/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (*gin.Engine, *store.Store, *engine.Engine) {
	t.Helper()
	s, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	emb := provider.NewHashing(256)
	e, err := engine.New(s, retrieval.NewBruteForce(s, emb), emb, classify.DefaultThresholds())
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return NewServer(e, s).Router(), s, e
}

func seedRef(t *testing.T, s *store.Store, id, name string) {
	t.Helper()
	emb := provider.NewHashing(256)
	c := store.Customer{ID: id, Name: name, SourceSystem: "mdm", City: "San Francisco", Country: "US"}
	c.FullDetail = c.BuildFullDetail()
	vec, err := emb.EmbedText(context.Background(), c.FullDetail)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	c.Embedding = vec
	if err := s.UpsertValid(c); err != nil {
		t.Fatalf("UpsertValid: %v", err)
	}
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateAndFetchRecord(t *testing.T) {
	r, s, _ := newTestServer(t)
	seedRef(t, s, "V1", "Alamo Elementary School")

	w := doJSON(t, r, http.MethodPost, "/records", store.Customer{
		Name: "Alamo Elementary School", SourceSystem: "mdm", City: "San Francisco", Country: "US",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /records: %d %s", w.Code, w.Body)
	}
	var m store.MatchResult
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.ValidID != "V1" || m.Category != classify.CategoryExact {
		t.Fatalf("unexpected match: %+v", m)
	}

	w = doJSON(t, r, http.MethodGet, "/matches/"+m.TestID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /matches/%s: %d %s", m.TestID, w.Code, w.Body)
	}
}

func TestCreateRecordValidation(t *testing.T) {
	r, _, _ := newTestServer(t)
	w := doJSON(t, r, http.MethodPost, "/records", store.Customer{SourceSystem: "mdm"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing name, got %d", w.Code)
	}
}

func TestUpdateUnknownRecord(t *testing.T) {
	r, _, _ := newTestServer(t)
	w := doJSON(t, r, http.MethodPut, "/records/TEST_MISSING00000", store.Customer{
		Name: "x", SourceSystem: "mdm",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d %s", w.Code, w.Body)
	}
}

func TestMatchNotFound(t *testing.T) {
	r, _, _ := newTestServer(t)
	w := doJSON(t, r, http.MethodGet, "/matches/TEST_MISSING00000", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestTopCandidates(t *testing.T) {
	r, s, _ := newTestServer(t)
	seedRef(t, s, "V1", "Alamo Elementary School")
	seedRef(t, s, "V2", "Lakeside Community College")

	w := doJSON(t, r, http.MethodPost, "/records", store.Customer{
		Name: "Alamo Elementary School", SourceSystem: "mdm", City: "San Francisco", Country: "US",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /records: %d %s", w.Code, w.Body)
	}
	var m store.MatchResult
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode: %v", err)
	}

	w = doJSON(t, r, http.MethodGet, "/matches/"+m.TestID+"/top?k=1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET top: %d %s", w.Code, w.Body)
	}
	var top []retrieval.Candidate
	if err := json.Unmarshal(w.Body.Bytes(), &top); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(top) != 1 || top[0].ValidID != "V1" {
		t.Fatalf("unexpected candidates: %+v", top)
	}

	w = doJSON(t, r, http.MethodGet, "/matches/"+m.TestID+"/top?k=zero", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad k, got %d", w.Code)
	}
}

func TestThresholdsRoundTrip(t *testing.T) {
	r, _, e := newTestServer(t)

	next := classify.Thresholds{Exact: 0.999, VeryClose: 0.980, SomewhatClose: 0.920}
	w := doJSON(t, r, http.MethodPut, "/thresholds", next)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT /thresholds: %d %s", w.Code, w.Body)
	}
	if e.Thresholds() != next {
		t.Fatalf("thresholds not applied: %+v", e.Thresholds())
	}

	bad := classify.Thresholds{Exact: 0.5, VeryClose: 0.9, SomewhatClose: 0.2}
	w = doJSON(t, r, http.MethodPut, "/thresholds", bad)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for inverted thresholds, got %d", w.Code)
	}
	if e.Thresholds() != next {
		t.Fatalf("rejected edit mutated config: %+v", e.Thresholds())
	}
}

func TestSummaryAndFilteredRecords(t *testing.T) {
	r, s, _ := newTestServer(t)
	seedRef(t, s, "V1", "Alamo Elementary School")

	w := doJSON(t, r, http.MethodPost, "/records", store.Customer{
		Name: "Alamo Elementary School", SourceSystem: "mdm", City: "San Francisco", Country: "US",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /records: %d %s", w.Code, w.Body)
	}

	w = doJSON(t, r, http.MethodGet, "/summary", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /summary: %d %s", w.Code, w.Body)
	}
	var sum engine.Summary
	if err := json.Unmarshal(w.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sum.TotalTest != 1 || sum.TotalValid != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	w = doJSON(t, r, http.MethodGet, "/records?category=EXACT", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /records?category=EXACT: %d %s", w.Code, w.Body)
	}
	var recs []store.Customer
	if err := json.Unmarshal(w.Body.Bytes(), &recs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected one EXACT record, got %d", len(recs))
	}

	w = doJSON(t, r, http.MethodGet, "/records?category=BOGUS", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown category, got %d", w.Code)
	}
}

func TestAuditTail(t *testing.T) {
	r, s, _ := newTestServer(t)
	seedRef(t, s, "V1", "Alamo Elementary School")

	for i := 0; i < 3; i++ {
		w := doJSON(t, r, http.MethodPost, "/records", store.Customer{
			Name: fmt.Sprintf("School %d", i), SourceSystem: "mdm",
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("POST /records: %d %s", w.Code, w.Body)
		}
	}

	w := doJSON(t, r, http.MethodGet, "/audit?n=2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /audit: %d %s", w.Code, w.Body)
	}
	var entries []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
}
