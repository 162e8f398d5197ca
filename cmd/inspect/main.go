package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/mdmtools/matchengine/internal/audit"
	"github.com/mdmtools/matchengine/internal/classify"
	"github.com/mdmtools/matchengine/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to match_engine.db")
	last := flag.Int("last", 20, "show N highest-scoring match rows")
	id := flag.String("id", "", "show single match row detail")
	category := flag.String("category", "", "filter rows to one category")
	auditN := flag.Int("audit", 0, "show N most recent recompute log entries instead")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/match_engine.db [--last N] [--id test_id] [--category NAME] [--audit N] [--json]")
		os.Exit(2)
	}

	st, err := store.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	switch {
	case *auditN > 0:
		err = runAuditMode(st, *auditN, *jsonOut)
	case *id != "":
		err = runDetailMode(st, *id, *jsonOut)
	default:
		err = runListMode(st, *last, *category, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

func runListMode(st *store.Store, last int, category string, jsonOut bool) error {
	if category != "" && !classify.Category(category).Valid() {
		return fmt.Errorf("unknown category %q", category)
	}

	matches, err := st.ListMatches()
	if err != nil {
		return err
	}

	rows := make([]store.MatchResult, 0, len(matches))
	for _, m := range matches {
		if category != "" && string(m.Category) != category {
			continue
		}
		rows = append(rows, m)
		if len(rows) == last {
			break
		}
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stderr, "no match rows found")
		return nil
	}

	if jsonOut {
		return printJSON(rows)
	}

	counts, err := st.AggregateCounts()
	if err != nil {
		return err
	}

	fmt.Printf("%-18s  %-12s  %8s  %-15s  %s\n", "Test ID", "Valid ID", "Score", "Category", "Updated")
	fmt.Printf("%-18s  %-12s  %8s  %-15s  %s\n", "------------------", "------------", "--------", "---------------", "--------------------")
	for _, m := range rows {
		fmt.Printf("%-18s  %-12s  %8.4f  %-15s  %s\n",
			m.TestID, m.ValidID, m.Score, m.Category, m.UpdatedAt.Format("2006-01-02T15:04:05Z"))
	}

	fmt.Println()
	for _, cat := range classify.Categories {
		fmt.Printf("  %-15s %d\n", cat, counts[cat])
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

func runDetailMode(st *store.Store, id string, jsonOut bool) error {
	m, err := st.GetMatch(id)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(m)
	}

	fmt.Printf("Test ID:   %s\n", m.TestID)
	fmt.Printf("Valid ID:  %s\n", m.ValidID)
	fmt.Printf("Score:     %.6f\n", m.Score)
	fmt.Printf("Category:  %s\n", m.Category)
	fmt.Printf("Created:   %s\n", m.CreatedAt.Format("2006-01-02T15:04:05Z"))
	fmt.Printf("Updated:   %s\n", m.UpdatedAt.Format("2006-01-02T15:04:05Z"))
	fmt.Printf("Incoming:  %s\n", m.TestDetail)
	fmt.Printf("Reference: %s\n", m.ValidDetail)
	return nil
}

// #endregion detail-mode

// #region audit-mode

func runAuditMode(st *store.Store, n int, jsonOut bool) error {
	if err := audit.Init(st.DB()); err != nil {
		return err
	}
	entries, err := audit.Tail(st.DB(), n)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no recompute log entries found")
		return nil
	}
	if jsonOut {
		return printJSON(entries)
	}

	fmt.Printf("%-20s  %-18s  %-14s  %s\n", "Op", "Test ID", "Decision", "Reason")
	fmt.Printf("%-20s  %-18s  %-14s  %s\n", "--------------------", "------------------", "--------------", "--------------------")
	for _, e := range entries {
		fmt.Printf("%-20s  %-18s  %-14s  %s\n", e.Op, e.TestID, e.Decision, e.Reason)
	}
	return nil
}

// #endregion audit-mode

// #region helpers

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// #endregion helpers
