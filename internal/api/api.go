// Package api exposes the match engine over HTTP for the review
// dashboard: summary counts, match rows, candidate lists, record
// edits, and threshold configuration.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mdmtools/matchengine/internal/audit"
	"github.com/mdmtools/matchengine/internal/classify"
	"github.com/mdmtools/matchengine/internal/engine"
	"github.com/mdmtools/matchengine/internal/provider"
	"github.com/mdmtools/matchengine/internal/retrieval"
	"github.com/mdmtools/matchengine/internal/store"
)

// Server wires HTTP routes to the engine and store.
type Server struct {
	engine *engine.Engine
	store  *store.Store
}

// NewServer creates the HTTP surface over an engine and its store.
func NewServer(e *engine.Engine, s *store.Store) *Server {
	return &Server{engine: e, store: s}
}

// #region routes

// Router builds the gin engine with all routes attached.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/summary", s.getSummary)

	r.GET("/matches", s.listMatches)
	r.GET("/matches/:id", s.getMatch)
	r.GET("/matches/:id/top", s.getTopCandidates)
	r.GET("/matches/:id/analysis", s.getAnalysis)

	r.GET("/records", s.listRecords)
	r.POST("/records", s.createRecord)
	r.PUT("/records/:id", s.updateRecord)

	r.GET("/thresholds", s.getThresholds)
	r.PUT("/thresholds", s.putThresholds)

	r.GET("/audit", s.getAudit)
	return r
}

// #endregion routes

// #region handlers

func (s *Server) getSummary(c *gin.Context) {
	sum, err := s.engine.Summary()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (s *Server) listMatches(c *gin.Context) {
	matches, err := s.store.ListMatches()
	if err != nil {
		fail(c, err)
		return
	}
	if matches == nil {
		matches = []store.MatchResult{}
	}
	c.JSON(http.StatusOK, matches)
}

func (s *Server) getMatch(c *gin.Context) {
	m, err := s.store.GetMatch(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (s *Server) getTopCandidates(c *gin.Context) {
	k := retrieval.DefaultTopK
	if v := c.Query("k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "k must be a positive integer"})
			return
		}
		k = n
	}

	top, err := s.engine.TopK(c.Request.Context(), c.Param("id"), k)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, top)
}

func (s *Server) getAnalysis(c *gin.Context) {
	out, err := s.engine.AnalyzeMatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analysis": out})
}

func (s *Server) listRecords(c *gin.Context) {
	raw := c.Query("category")
	if raw == "" {
		recs, err := s.store.ListTest()
		if err != nil {
			fail(c, err)
			return
		}
		if recs == nil {
			recs = []store.Customer{}
		}
		c.JSON(http.StatusOK, recs)
		return
	}

	var cats []classify.Category
	for _, part := range strings.Split(raw, ",") {
		cat := classify.Category(strings.TrimSpace(part))
		if !cat.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category: " + string(cat)})
			return
		}
		cats = append(cats, cat)
	}

	recs, err := s.store.ListTestByCategory(cats)
	if err != nil {
		fail(c, err)
		return
	}
	if recs == nil {
		recs = []store.Customer{}
	}
	c.JSON(http.StatusOK, recs)
}

func (s *Server) createRecord(c *gin.Context) {
	var rec store.Customer
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rec.ID = ""

	m, err := s.engine.SaveRecord(c.Request.Context(), rec)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (s *Server) updateRecord(c *gin.Context) {
	var rec store.Customer
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rec.ID = c.Param("id")

	// Updates touch existing records only.
	if _, err := s.store.GetTest(rec.ID); err != nil {
		fail(c, err)
		return
	}

	m, err := s.engine.SaveRecord(c.Request.Context(), rec)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (s *Server) getThresholds(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Thresholds())
}

func (s *Server) putThresholds(c *gin.Context) {
	var cfg classify.Thresholds
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.engine.OnThresholdsChanged(cfg); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.engine.Thresholds())
}

func (s *Server) getAudit(c *gin.Context) {
	n := 50
	if v := c.Query("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "n must be a positive integer"})
			return
		}
		n = parsed
	}
	entries, err := audit.Tail(s.store.DB(), n)
	if err != nil {
		fail(c, err)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	c.JSON(http.StatusOK, entries)
}

// #endregion handlers

// #region errors

// fail maps engine and store errors to HTTP statuses.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, classify.ErrInvalidThresholds), errors.Is(err, engine.ErrInvalidRecord):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, provider.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// #endregion errors
