package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/PabloGalante/mindbloss/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(config.NewViper(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != config.ModeLocal {
		t.Fatalf("unexpected mode %q", cfg.Mode)
	}
	if cfg.LLMProvider != config.LLMMock {
		t.Fatalf("expected mock provider locally, got %q", cfg.LLMProvider)
	}
	if cfg.StorageBackend != config.StorageMemory {
		t.Fatalf("unexpected backend %q", cfg.StorageBackend)
	}
	if cfg.HistoryCap != 100 {
		t.Fatalf("unexpected history cap %d", cfg.HistoryCap)
	}
	if cfg.RecapWindow != 7*24*time.Hour {
		t.Fatalf("unexpected recap window %s", cfg.RecapWindow)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSOrigins)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MINDBLOSS_LLM_PROVIDER", "openai")
	t.Setenv("MINDBLOSS_OPENAI_API_KEY", "sk-test")
	t.Setenv("MINDBLOSS_STORAGE_BACKEND", "redis")
	t.Setenv("MINDBLOSS_JOURNAL_HISTORY_CAP", "5")
	t.Setenv("MINDBLOSS_COMPLETION_TIMEOUT", "3s")
	t.Setenv("MINDBLOSS_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("MINDBLOSS_TIMEZONE", "UTC")
	t.Setenv("PORT", "9090")

	cfg, err := config.Load(config.NewViper(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLMProvider != config.LLMOpenAI || cfg.OpenAIKey != "sk-test" {
		t.Fatalf("unexpected llm config %+v", cfg)
	}
	if cfg.StorageBackend != config.StorageRedis {
		t.Fatalf("unexpected backend %q", cfg.StorageBackend)
	}
	if cfg.HistoryCap != 5 {
		t.Fatalf("unexpected cap %d", cfg.HistoryCap)
	}
	if cfg.CompletionTimeout != 3*time.Second {
		t.Fatalf("unexpected timeout %s", cfg.CompletionTimeout)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.CORSOrigins)
	}
	if cfg.Port != "9090" {
		t.Fatalf("unexpected port %q", cfg.Port)
	}
	if cfg.Location() != time.UTC {
		t.Fatalf("unexpected location %v", cfg.Location())
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mindbloss.yaml")
	data := []byte("storage:\n  backend: sqlite\nsqlite:\n  path: /tmp/j.db\njournal:\n  history_cap: 10\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := config.Load(config.NewViper(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StorageBackend != config.StorageSQLite || cfg.SQLitePath != "/tmp/j.db" || cfg.HistoryCap != 10 {
		t.Fatalf("config file not applied: %+v", cfg)
	}
}

func TestGCPModeDefaultsToVertex(t *testing.T) {
	t.Setenv("MINDBLOSS_MODE", "gcp")
	if _, err := config.Load(config.NewViper(), ""); err == nil {
		t.Fatalf("expected error without a gcp project")
	}

	t.Setenv("MINDBLOSS_GCP_PROJECT", "proj")
	cfg, err := config.Load(config.NewViper(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLMProvider != config.LLMVertex {
		t.Fatalf("expected vertex, got %q", cfg.LLMProvider)
	}
}

func TestValidate(t *testing.T) {
	base := func() *config.Config {
		return &config.Config{
			LLMProvider:    config.LLMMock,
			StorageBackend: config.StorageMemory,
			HistoryCap:     100,
			RecapWindow:    time.Hour,
			Timezone:       "UTC",
		}
	}

	cases := map[string]func(c *config.Config){
		"unknown provider":  func(c *config.Config) { c.LLMProvider = "bard" },
		"openai no key":     func(c *config.Config) { c.LLMProvider = config.LLMOpenAI },
		"unknown backend":   func(c *config.Config) { c.StorageBackend = "mongo" },
		"firestore no proj": func(c *config.Config) { c.StorageBackend = config.StorageFirestore },
		"zero cap":          func(c *config.Config) { c.HistoryCap = 0 },
		"zero window":       func(c *config.Config) { c.RecapWindow = 0 },
		"negative timeout":  func(c *config.Config) { c.CompletionTimeout = -time.Second },
		"bad timezone":      func(c *config.Config) { c.Timezone = "Mars/Olympus" },
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("base config invalid: %v", err)
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base()
			mutate(c)
			if err := c.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
