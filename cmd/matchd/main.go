package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mdmtools/matchengine/internal/api"
	"github.com/mdmtools/matchengine/internal/config"
	"github.com/mdmtools/matchengine/internal/engine"
	"github.com/mdmtools/matchengine/internal/provider"
	"github.com/mdmtools/matchengine/internal/retrieval"
	"github.com/mdmtools/matchengine/internal/store"
)

// #region main
func main() {
	cfgPath := flag.String("config", envOr("MATCHENGINE_CONFIG", ""), "path to engine TOML config")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	st, err := store.NewStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()

	client, err := provider.NewClient(provider.Config{
		BaseURL:   cfg.Provider.BaseURL,
		Model:     cfg.Provider.Model,
		ChatModel: cfg.Provider.ChatModel,
		APIKey:    cfg.Provider.APIKey,
		Timeout:   time.Duration(cfg.Provider.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		log.Fatalf("provider client: %v", err)
	}

	scanner := retrieval.NewBruteForce(st, client)
	eng, err := engine.New(st, scanner, client, cfg.Thresholds)
	if err != nil {
		log.Fatalf("engine: %v", err)
	}
	if client.CompareEnabled() {
		eng.SetComparer(client)
	}

	if err := bootstrapSweep(eng, st); err != nil {
		log.Printf("bootstrap sweep: %v (continuing; retry via PUT /thresholds or record edits)", err)
	}

	fmt.Println("Match engine ready.")
	fmt.Printf("  DB: %s | Provider: %s | Listen: %s\n", cfg.DBPath, cfg.Provider.BaseURL, cfg.Listen)

	srv := api.NewServer(eng, st)
	if err := srv.Router().Run(cfg.Listen); err != nil {
		log.Fatalf("serve: %v", err)
	}
}

// #endregion main

// #region bootstrap

// bootstrapSweep scores every incoming record when the match index
// does not cover the record set, so a fresh or partially loaded
// database becomes fully scored at startup.
func bootstrapSweep(eng *engine.Engine, st *store.Store) error {
	matches, err := st.CountMatches()
	if err != nil {
		return err
	}
	records, err := st.CountTest()
	if err != nil {
		return err
	}
	if matches == records {
		return nil
	}

	log.Printf("match index covers %d of %d records, recomputing...", matches, records)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	n, err := eng.RecomputeAll(ctx)
	if err != nil {
		return fmt.Errorf("scored %d before failing: %w", n, err)
	}
	log.Printf("scored %d records", n)
	return nil
}

// #endregion bootstrap

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
