package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mdmtools/matchengine/internal/config"
	"github.com/mdmtools/matchengine/internal/engine"
	"github.com/mdmtools/matchengine/internal/fixture"
	"github.com/mdmtools/matchengine/internal/provider"
	"github.com/mdmtools/matchengine/internal/retrieval"
	"github.com/mdmtools/matchengine/internal/store"
)

// #region main
func main() {
	cfgPath := flag.String("config", os.Getenv("MATCHENGINE_CONFIG"), "path to engine TOML config")
	validPath := flag.String("valid", "valid.csv", "reference customer feed")
	testPath := flag.String("test", "test_matches.csv", "incoming customer feed")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := run(cfg, *validPath, *testPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region load

func run(cfg config.Config, validPath, testPath string) error {
	st, err := store.NewStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	client, err := provider.NewClient(provider.Config{
		BaseURL: cfg.Provider.BaseURL,
		Model:   cfg.Provider.Model,
		APIKey:  cfg.Provider.APIKey,
		Timeout: time.Duration(cfg.Provider.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("provider client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Minute)
	defer cancel()

	refs, err := fixture.LoadCustomers(validPath)
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d reference records from %s\n", len(refs), validPath)

	// Embed references up front so scans never hit the provider.
	for i, c := range refs {
		vec, err := client.EmbedText(ctx, c.FullDetail)
		if err != nil {
			return fmt.Errorf("embed reference %s: %w", c.ID, err)
		}
		c.Embedding = vec
		if err := st.UpsertValid(c); err != nil {
			return fmt.Errorf("store reference %s: %w", c.ID, err)
		}
		if (i+1)%100 == 0 {
			fmt.Printf("  embedded %d/%d references\n", i+1, len(refs))
		}
	}

	tests, err := fixture.LoadCustomers(testPath)
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d incoming records from %s\n", len(tests), testPath)

	for _, c := range tests {
		if _, err := st.UpsertTest(c); err != nil {
			return fmt.Errorf("store record %s: %w", c.ID, err)
		}
	}

	eng, err := engine.New(st, retrieval.NewBruteForce(st, client), client, cfg.Thresholds)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	fmt.Println("Scoring all incoming records...")
	n, err := eng.RecomputeAll(ctx)
	if err != nil {
		return fmt.Errorf("scored %d before failing: %w", n, err)
	}
	fmt.Printf("Scored %d records.\n", n)

	sum, err := eng.Summary()
	if err != nil {
		return err
	}
	for _, cs := range sum.Categories {
		fmt.Printf("  %-15s %5d (%.1f%%)\n", cs.Category, cs.Count, cs.Fraction*100)
	}
	return nil
}

// #endregion load
