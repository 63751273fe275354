package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

const (
	LLMMock   = "mock"
	LLMOpenAI = "openai"
	LLMVertex = "vertex"

	StorageMemory    = "memory"
	StorageRedis     = "redis"
	StorageSQLite    = "sqlite"
	StorageFirestore = "firestore"
)

const envPrefix = "MINDBLOSS"

type Config struct {
	Mode Mode

	Port string

	LogMode     string
	LogLevel    string
	LogRedact   bool
	LogHashSalt string

	LLMProvider   string // "mock", "openai" or "vertex"
	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string

	GCPProjectID string
	GCPLocation  string
	ModelName    string

	StorageBackend string // "memory", "redis", "sqlite" or "firestore"
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	SessionTTL     time.Duration
	SQLitePath     string

	HistoryCap  int
	RecapWindow time.Duration

	CompletionTimeout time.Duration
	CompletionRetry   bool
	CompletionBackoff time.Duration

	Timezone    string
	CORSOrigins []string
	CatalogPath string

	location *time.Location
}

// NewViper returns a viper instance with defaults and MINDBLOSS_* env lookup.
// Nested keys map to env names with "_" (llm.provider -> MINDBLOSS_LLM_PROVIDER).
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Cloud Run style PORT still works.
	_ = v.BindEnv("port", envPrefix+"_PORT", "PORT")

	v.SetDefault("mode", string(ModeLocal))
	v.SetDefault("port", "8080")
	v.SetDefault("log.mode", "dev")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.redact", true)
	v.SetDefault("log.hash_salt", "")
	v.SetDefault("llm.provider", "")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("gcp.project", "")
	v.SetDefault("gcp.location", "us-central1")
	v.SetDefault("gcp.model", "gemini-2.5-flash")
	v.SetDefault("storage.backend", StorageMemory)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.session_ttl", 24*time.Hour)
	v.SetDefault("sqlite.path", "mindbloss.db")
	v.SetDefault("journal.history_cap", 100)
	v.SetDefault("journal.recap_window", 7*24*time.Hour)
	v.SetDefault("completion.timeout", 30*time.Second)
	v.SetDefault("completion.retry", true)
	v.SetDefault("completion.backoff", 500*time.Millisecond)
	v.SetDefault("timezone", "Local")
	v.SetDefault("cors.origins", "*")
	v.SetDefault("catalog.path", "")
	return v
}

// Load reads .env (if present), the optional config file and the environment,
// then validates the result.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}
	if v == nil {
		v = NewViper()
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}

	mode := ModeLocal
	if strings.EqualFold(v.GetString("mode"), string(ModeGCP)) {
		mode = ModeGCP
	}

	cfg := &Config{
		Mode: mode,

		Port: v.GetString("port"),

		LogMode:     v.GetString("log.mode"),
		LogLevel:    v.GetString("log.level"),
		LogRedact:   v.GetBool("log.redact"),
		LogHashSalt: v.GetString("log.hash_salt"),

		LLMProvider:   strings.ToLower(strings.TrimSpace(v.GetString("llm.provider"))),
		OpenAIKey:     v.GetString("openai.api_key"),
		OpenAIModel:   v.GetString("openai.model"),
		OpenAIBaseURL: v.GetString("openai.base_url"),

		GCPProjectID: v.GetString("gcp.project"),
		GCPLocation:  v.GetString("gcp.location"),
		ModelName:    v.GetString("gcp.model"),

		StorageBackend: strings.ToLower(strings.TrimSpace(v.GetString("storage.backend"))),
		RedisAddr:      v.GetString("redis.addr"),
		RedisPassword:  v.GetString("redis.password"),
		RedisDB:        v.GetInt("redis.db"),
		SessionTTL:     v.GetDuration("redis.session_ttl"),
		SQLitePath:     v.GetString("sqlite.path"),

		HistoryCap:  v.GetInt("journal.history_cap"),
		RecapWindow: v.GetDuration("journal.recap_window"),

		CompletionTimeout: v.GetDuration("completion.timeout"),
		CompletionRetry:   v.GetBool("completion.retry"),
		CompletionBackoff: v.GetDuration("completion.backoff"),

		Timezone:    v.GetString("timezone"),
		CORSOrigins: stringList(v.Get("cors.origins")),
		CatalogPath: v.GetString("catalog.path"),
	}

	// mock locally, Vertex on GCP, unless set explicitly
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = LLMMock
		if cfg.Mode == ModeGCP {
			cfg.LLMProvider = LLMVertex
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks provider/backend requirements and resolves the timezone.
func (c *Config) Validate() error {
	var errs []error

	switch c.LLMProvider {
	case LLMMock:
	case LLMOpenAI:
		if strings.TrimSpace(c.OpenAIKey) == "" {
			errs = append(errs, errors.New("MINDBLOSS_OPENAI_API_KEY must be set for the openai provider"))
		}
	case LLMVertex:
		if c.GCPProjectID == "" {
			errs = append(errs, errors.New("MINDBLOSS_GCP_PROJECT must be set for the vertex provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown llm provider %q", c.LLMProvider))
	}

	switch c.StorageBackend {
	case StorageMemory, StorageRedis:
	case StorageSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("MINDBLOSS_SQLITE_PATH must be set for sqlite storage"))
		}
	case StorageFirestore:
		if c.GCPProjectID == "" {
			errs = append(errs, errors.New("MINDBLOSS_GCP_PROJECT must be set for firestore storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.StorageBackend))
	}

	if c.HistoryCap <= 0 {
		errs = append(errs, fmt.Errorf("history cap must be positive, got %d", c.HistoryCap))
	}
	if c.RecapWindow <= 0 {
		errs = append(errs, fmt.Errorf("recap window must be positive, got %s", c.RecapWindow))
	}
	if c.CompletionTimeout < 0 || c.CompletionBackoff < 0 {
		errs = append(errs, errors.New("completion timeout and backoff must not be negative"))
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("timezone %q: %w", c.Timezone, err))
	} else {
		c.location = loc
	}

	return errors.Join(errs...)
}

// Location is the timezone used for the evening rule. Valid after Validate.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

func stringList(raw any) []string {
	var parts []string
	switch t := raw.(type) {
	case string:
		parts = strings.Split(t, ",")
	case []string:
		parts = t
	case []any:
		for _, p := range t {
			parts = append(parts, fmt.Sprint(p))
		}
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
