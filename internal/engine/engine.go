// Package engine drives (re)computation of the match index: scoring
// incoming records against the reference set on create/edit, and
// relabeling every row when similarity thresholds change.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/mdmtools/matchengine/internal/audit"
	"github.com/mdmtools/matchengine/internal/classify"
	"github.com/mdmtools/matchengine/internal/provider"
	"github.com/mdmtools/matchengine/internal/retrieval"
	"github.com/mdmtools/matchengine/internal/store"
)

// #region engine-struct

// Comparer narrates the differences between a candidate pair. Optional;
// nil disables the analysis endpoint.
type Comparer interface {
	Compare(ctx context.Context, testJSON, validJSON string) (string, error)
}

// Engine is the recomputation orchestrator. It owns the current
// threshold configuration and serializes all writes to the match
// index; reads go straight to the store and never block.
type Engine struct {
	store    *store.Store
	scanner  retrieval.Scanner
	embedder provider.Embedder
	comparer Comparer

	mu         sync.Mutex
	thresholds classify.Thresholds

	// sweepGen orders threshold sweeps so a superseded one is skipped
	// instead of queued.
	sweepGen atomic.Int64
}

// #endregion engine-struct

// #region constructor

// New creates a fully wired engine with the given starting thresholds.
func New(s *store.Store, scanner retrieval.Scanner, embedder provider.Embedder, cfg classify.Thresholds) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := audit.Init(s.DB()); err != nil {
		return nil, err
	}
	return &Engine{
		store:      s,
		scanner:    scanner,
		embedder:   embedder,
		thresholds: cfg,
	}, nil
}

// SetComparer wires the optional narrative comparer.
func (e *Engine) SetComparer(c Comparer) {
	e.comparer = c
}

// Thresholds returns the currently active configuration.
func (e *Engine) Thresholds() classify.Thresholds {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.thresholds
}

// #endregion constructor

// #region record-changed

// OnRecordChanged rescores one incoming record against the full
// reference set and upserts its match row. Called after the record is
// created or edited. On provider failure the previous match row is
// left untouched.
func (e *Engine) OnRecordChanged(ctx context.Context, testID string) (store.MatchResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.store.GetTest(testID)
	if err != nil {
		return store.MatchResult{}, fmt.Errorf("record_changed %s: %w", testID, err)
	}
	return e.scoreLocked(ctx, audit.OpRecordChanged, rec)
}

// scoreLocked scores one record and writes its match row. Caller holds
// the write lock.
func (e *Engine) scoreLocked(ctx context.Context, op string, rec store.Customer) (store.MatchResult, error) {
	// Persist a missing embedding so later scans skip the provider.
	if len(rec.Embedding) == 0 {
		vec, err := e.embedder.EmbedText(ctx, rec.FullDetail)
		if err != nil {
			e.logDecision(audit.Entry{Op: op, TestID: rec.ID, Decision: audit.DecisionFailed, Reason: err.Error()})
			return store.MatchResult{}, fmt.Errorf("%s %s: %w", op, rec.ID, err)
		}
		rec.Embedding = vec
		if _, err := e.store.UpsertTest(rec); err != nil {
			return store.MatchResult{}, fmt.Errorf("%s %s: %w", op, rec.ID, err)
		}
	}

	best, err := e.scanner.BestMatch(ctx, rec)
	if err != nil {
		e.logDecision(audit.Entry{Op: op, TestID: rec.ID, Decision: audit.DecisionFailed, Reason: err.Error()})
		return store.MatchResult{}, fmt.Errorf("%s %s: %w", op, rec.ID, err)
	}

	if err := e.store.UpsertMatch(rec.ID, best.ValidID, best.Score, e.thresholds); err != nil {
		return store.MatchResult{}, fmt.Errorf("%s %s: %w", op, rec.ID, err)
	}
	e.logDecision(audit.Entry{
		Op:       op,
		TestID:   rec.ID,
		Decision: audit.DecisionScored,
		Reason:   fmt.Sprintf("best=%s score=%.4f", best.ValidID, best.Score),
	})

	m, err := e.store.GetMatch(rec.ID)
	if err != nil {
		return store.MatchResult{}, fmt.Errorf("%s %s: %w", op, rec.ID, err)
	}
	return m, nil
}

// #endregion record-changed

// #region thresholds-changed

// OnThresholdsChanged swaps the active configuration and relabels
// every match row from its stored score. Scores are never re-queried;
// threshold edits only move labels. A sweep that has been superseded
// by a later one while waiting is skipped.
func (e *Engine) OnThresholdsChanged(cfg classify.Thresholds) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("thresholds_changed: %w", err)
	}

	gen := e.sweepGen.Add(1)
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen < e.sweepGen.Load() {
		e.logDecision(audit.Entry{
			Op:       audit.OpThresholdsChanged,
			Decision: audit.DecisionSkipped,
			Reason:   "superseded by a later sweep",
		})
		return nil
	}

	e.thresholds = cfg
	if err := e.store.RecategorizeAll(cfg); err != nil {
		return fmt.Errorf("thresholds_changed: %w", err)
	}
	e.logDecision(audit.Entry{
		Op:       audit.OpThresholdsChanged,
		Decision: audit.DecisionRecategorized,
		Reason:   fmt.Sprintf("exact=%.3f very_close=%.3f somewhat_close=%.3f", cfg.Exact, cfg.VeryClose, cfg.SomewhatClose),
	})
	return nil
}

// #endregion thresholds-changed

// #region save-record

// SaveRecord creates or updates an incoming record and rescores it.
// The full-detail text is derived here, the embedding is refreshed
// through the provider, and the record's identifier is generated when
// absent and preserved otherwise. Nothing is written when the provider
// call fails.
func (e *Engine) SaveRecord(ctx context.Context, c store.Customer) (store.MatchResult, error) {
	if c.Name == "" {
		return store.MatchResult{}, fmt.Errorf("save record: %w: name is required", ErrInvalidRecord)
	}
	if c.SourceSystem == "" {
		return store.MatchResult{}, fmt.Errorf("save record: %w: source system is required", ErrInvalidRecord)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	c.FullDetail = c.BuildFullDetail()
	vec, err := e.embedder.EmbedText(ctx, c.FullDetail)
	if err != nil {
		e.logDecision(audit.Entry{Op: audit.OpRecordChanged, TestID: c.ID, Decision: audit.DecisionFailed, Reason: err.Error()})
		return store.MatchResult{}, fmt.Errorf("save record %s: %w", c.ID, err)
	}
	c.Embedding = vec

	id, err := e.store.UpsertTest(c)
	if err != nil {
		return store.MatchResult{}, fmt.Errorf("save record: %w", err)
	}
	c.ID = id

	return e.scoreLocked(ctx, audit.OpRecordChanged, c)
}

// #endregion save-record

// #region full-sweep

// RecomputeAll scores every incoming record from scratch. Used at
// bootstrap when the match index is empty or stale. A provider failure
// aborts the sweep at the failing record; already-written rows stand
// and the sweep is retryable.
func (e *Engine) RecomputeAll(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	recs, err := e.store.ListTest()
	if err != nil {
		return 0, fmt.Errorf("full_sweep: %w", err)
	}

	scored := 0
	for _, rec := range recs {
		if _, err := e.scoreLocked(ctx, audit.OpFullSweep, rec); err != nil {
			return scored, err
		}
		scored++
	}
	e.logDecision(audit.Entry{
		Op:       audit.OpFullSweep,
		Decision: audit.DecisionScored,
		Reason:   fmt.Sprintf("%d records scored", scored),
	})
	return scored, nil
}

// #endregion full-sweep

// #region reads

// TopK returns the k highest-scoring reference records for one
// incoming record. Computed on demand, never cached or persisted.
func (e *Engine) TopK(ctx context.Context, testID string, k int) ([]retrieval.Candidate, error) {
	rec, err := e.store.GetTest(testID)
	if err != nil {
		return nil, fmt.Errorf("top_k %s: %w", testID, err)
	}
	out, err := e.scanner.TopK(ctx, rec, k)
	if err != nil {
		return nil, fmt.Errorf("top_k %s: %w", testID, err)
	}
	return out, nil
}

// Summary returns the dashboard overview: record totals and count plus
// fraction per category, denominated by the incoming-record total.
func (e *Engine) Summary() (Summary, error) {
	totalValid, err := e.store.CountValid()
	if err != nil {
		return Summary{}, err
	}
	totalTest, err := e.store.CountTest()
	if err != nil {
		return Summary{}, err
	}
	counts, err := e.store.AggregateCounts()
	if err != nil {
		return Summary{}, err
	}

	s := Summary{TotalValid: totalValid, TotalTest: totalTest}
	for _, cat := range classify.Categories {
		cs := CategorySummary{Category: cat, Count: counts[cat]}
		if totalTest > 0 {
			cs.Fraction = float64(cs.Count) / float64(totalTest)
		}
		s.Categories = append(s.Categories, cs)
	}
	return s, nil
}

// AnalyzeMatch narrates the differences between an incoming record and
// its current best match.
func (e *Engine) AnalyzeMatch(ctx context.Context, testID string) (string, error) {
	if e.comparer == nil {
		return "", fmt.Errorf("analyze %s: no comparer configured", testID)
	}
	m, err := e.store.GetMatch(testID)
	if err != nil {
		return "", fmt.Errorf("analyze %s: %w", testID, err)
	}
	test, err := e.store.GetTest(m.TestID)
	if err != nil {
		return "", fmt.Errorf("analyze %s: %w", testID, err)
	}
	valid, err := e.store.GetValid(m.ValidID)
	if err != nil {
		return "", fmt.Errorf("analyze %s: %w", testID, err)
	}

	out, err := e.comparer.Compare(ctx, customerJSON(test), customerJSON(valid))
	if err != nil {
		return "", fmt.Errorf("analyze %s: %w", testID, err)
	}
	return out, nil
}

// #endregion reads

// #region helpers

func (e *Engine) logDecision(entry audit.Entry) {
	if err := audit.LogDecision(e.store.DB(), entry); err != nil {
		log.Printf("audit error: %v", err)
	}
}

// customerJSON renders the address fields a comparer should look at,
// leaving out embeddings and derived text.
func customerJSON(c store.Customer) string {
	b, _ := json.Marshal(map[string]string{
		"name":           c.Name,
		"address_line_1": c.AddressLine1,
		"address_line_2": c.AddressLine2,
		"city":           c.City,
		"state":          c.State,
		"postal_code":    c.PostalCode,
		"country":        c.Country,
	})
	return string(b)
}

// #endregion helpers
