// Package config loads engine configuration from a TOML file with
// environment-variable overrides. Every field has a working default so
// the engine runs with no file at all.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/mdmtools/matchengine/internal/classify"
)

// #region types

// Provider configures the embedding/completion service connection.
type Provider struct {
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	ChatModel      string `toml:"chat_model"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Config is the full engine configuration.
type Config struct {
	DBPath     string              `toml:"db_path"`
	Listen     string              `toml:"listen"`
	Provider   Provider            `toml:"provider"`
	Thresholds classify.Thresholds `toml:"thresholds"`
}

// #endregion types

// #region load

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() Config {
	return Config{
		DBPath: "match_engine.db",
		Listen: ":8080",
		Provider: Provider{
			BaseURL:        "http://localhost:8081",
			Model:          "text-embedding-3-small",
			ChatModel:      "",
			TimeoutSeconds: 30,
		},
		Thresholds: classify.DefaultThresholds(),
	}
}

// Load reads the TOML file at path (skipped when path is empty or the
// file does not exist), then applies environment overrides, then
// validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Thresholds.Validate(); err != nil {
		return Config{}, fmt.Errorf("config thresholds: %w", err)
	}
	return cfg, nil
}

// applyEnv layers MATCHENGINE_* variables over the file values.
func (c *Config) applyEnv() {
	c.DBPath = envOr("MATCHENGINE_DB", c.DBPath)
	c.Listen = envOr("MATCHENGINE_LISTEN", c.Listen)
	c.Provider.BaseURL = envOr("MATCHENGINE_PROVIDER_URL", c.Provider.BaseURL)
	c.Provider.Model = envOr("MATCHENGINE_EMBED_MODEL", c.Provider.Model)
	c.Provider.ChatModel = envOr("MATCHENGINE_CHAT_MODEL", c.Provider.ChatModel)
	c.Provider.APIKey = envOr("MATCHENGINE_API_KEY", c.Provider.APIKey)

	if v := os.Getenv("MATCHENGINE_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Provider.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("MATCHENGINE_THRESHOLD_EXACT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Thresholds.Exact = f
		}
	}
	if v := os.Getenv("MATCHENGINE_THRESHOLD_VERY_CLOSE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Thresholds.VeryClose = f
		}
	}
	if v := os.Getenv("MATCHENGINE_THRESHOLD_SOMEWHAT_CLOSE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Thresholds.SomewhatClose = f
		}
	}
}

// #endregion load

// #region helpers

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
