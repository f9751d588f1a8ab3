package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xxxsen/common/logger"
)

const (
	IndexBackendMemory   = "memory"
	IndexBackendPGVector = "pgvector"

	DefaultCategoryID     = 9101
	DefaultUserID         = 123
	DefaultTopK           = 5
	DefaultMaxTokens      = 1500
	DefaultTemperature    = 0.3
	DefaultSnapshotKey    = "policy_chunks.json"
	DefaultCleanupCron    = "30 3 * * *"
	DefaultMaxInputChars  = 2000
	defaultTimeoutSeconds = 60
)

type Config struct {
	Port          int                `json:"port"`
	LogConfig     logger.LogConfig   `json:"log_config"`
	Database      DatabaseConfig     `json:"database"`
	AIProvider    []AIProviderConfig `json:"ai_provider"`
	Generation    GenerationConfig   `json:"generation"`
	Embedding     EmbeddingConfig    `json:"embedding"`
	Index         IndexConfig        `json:"index"`
	Retrieval     RetrievalConfig    `json:"retrieval"`
	Categories    CategoryConfig     `json:"categories"`
	CORSAllowlist []string           `json:"cors_allowlist"`
	DefaultUserID int64              `json:"default_user_id"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

// Enabled reports whether a postgres connection is configured.
func (c DatabaseConfig) Enabled() bool {
	return strings.TrimSpace(c.DSN) != "" || strings.TrimSpace(c.Host) != ""
}

type AIProviderConfig struct {
	Name string      `json:"name"`
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type GenerationConfig struct {
	Provider       string        `json:"provider"`
	Model          string        `json:"model"`
	MaxTokens      int           `json:"max_tokens"`
	Temperature    *float32      `json:"temperature"`
	Timeout        int           `json:"timeout"`
	MaxRetries     *int          `json:"max_retries"`
	RetryBackoffMS int           `json:"retry_backoff_ms"`
	Pricing        PricingConfig `json:"pricing"`
}

// PricingConfig holds USD prices per 1K tokens.
type PricingConfig struct {
	InputPer1K  float64 `json:"input_per_1k"`
	OutputPer1K float64 `json:"output_per_1k"`
}

type EmbeddingConfig struct {
	Provider    string `json:"provider"`
	Model       string `json:"model"`
	Timeout     int    `json:"timeout"`
	LRUSize     int    `json:"lru_size"`
	LRUTTL      int    `json:"lru_ttl"`
	DBCache     bool   `json:"db_cache"`
	MaxAgeDays  int    `json:"max_age_days"`
	CleanupCron string `json:"cleanup_cron"`
	Concurrency int    `json:"concurrency"`
}

type IndexConfig struct {
	Backend     string          `json:"backend"`
	SnapshotKey string          `json:"snapshot_key"`
	FileStore   FileStoreConfig `json:"file_store"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type RetrievalConfig struct {
	TopK          int `json:"top_k"`
	MaxInputChars int `json:"max_input_chars"`
}

type CategoryConfig struct {
	DefaultID int64          `json:"default_id"`
	Rules     []CategoryRule `json:"rules"`
}

type CategoryRule struct {
	BusinessType   string `json:"business_type"`
	MessagePurpose string `json:"message_purpose"`
	CategoryID     int64  `json:"category_id"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	if c.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if c.LogConfig.Level == "" {
		c.LogConfig.Level = "info"
	}
	if len(c.AIProvider) == 0 {
		return fmt.Errorf("ai_provider is required")
	}
	names := make(map[string]struct{}, len(c.AIProvider))
	for i, item := range c.AIProvider {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			return fmt.Errorf("ai_provider[%d].name is required", i)
		}
		if strings.TrimSpace(item.Type) == "" {
			return fmt.Errorf("ai_provider[%d].type is required", i)
		}
		if _, ok := names[name]; ok {
			return fmt.Errorf("duplicate ai_provider name: %s", name)
		}
		names[name] = struct{}{}
	}
	if err := c.Generation.normalize(names); err != nil {
		return err
	}
	if err := c.Embedding.normalize(names); err != nil {
		return err
	}
	if err := c.Index.normalize(c.Database); err != nil {
		return err
	}
	if c.Embedding.DBCache && !c.Database.Enabled() {
		return fmt.Errorf("embedding.db_cache requires database")
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = DefaultTopK
	}
	if c.Retrieval.MaxInputChars <= 0 {
		c.Retrieval.MaxInputChars = DefaultMaxInputChars
	}
	if c.Categories.DefaultID == 0 {
		c.Categories.DefaultID = DefaultCategoryID
	}
	for i, rule := range c.Categories.Rules {
		if rule.CategoryID == 0 {
			return fmt.Errorf("categories.rules[%d].category_id is required", i)
		}
	}
	if c.DefaultUserID == 0 {
		c.DefaultUserID = DefaultUserID
	}
	return nil
}

func (g *GenerationConfig) normalize(providers map[string]struct{}) error {
	if _, ok := providers[strings.TrimSpace(g.Provider)]; !ok {
		return fmt.Errorf("generation.provider must name an ai_provider entry")
	}
	if strings.TrimSpace(g.Model) == "" {
		return fmt.Errorf("generation.model is required")
	}
	if g.MaxTokens <= 0 {
		g.MaxTokens = DefaultMaxTokens
	}
	if g.Temperature == nil {
		t := float32(DefaultTemperature)
		g.Temperature = &t
	}
	if *g.Temperature < 0 || *g.Temperature > 1 {
		return fmt.Errorf("generation.temperature must be within [0, 1]")
	}
	if g.Timeout <= 0 {
		g.Timeout = defaultTimeoutSeconds
	}
	if g.MaxRetries == nil {
		retries := 1
		g.MaxRetries = &retries
	}
	if *g.MaxRetries < 0 || *g.MaxRetries > 1 {
		return fmt.Errorf("generation.max_retries must be 0 or 1")
	}
	if g.RetryBackoffMS <= 0 {
		g.RetryBackoffMS = 1000
	}
	if g.Pricing.InputPer1K == 0 && g.Pricing.OutputPer1K == 0 {
		g.Pricing = PricingConfig{InputPer1K: 0.000150, OutputPer1K: 0.000600}
	}
	return nil
}

func (e *EmbeddingConfig) normalize(providers map[string]struct{}) error {
	if _, ok := providers[strings.TrimSpace(e.Provider)]; !ok {
		return fmt.Errorf("embedding.provider must name an ai_provider entry")
	}
	if strings.TrimSpace(e.Model) == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if e.Timeout <= 0 {
		e.Timeout = 30
	}
	if e.MaxAgeDays <= 0 {
		e.MaxAgeDays = 30
	}
	if e.CleanupCron == "" {
		e.CleanupCron = DefaultCleanupCron
	}
	if e.Concurrency <= 0 {
		e.Concurrency = 4
	}
	return nil
}

func (i *IndexConfig) normalize(db DatabaseConfig) error {
	if i.Backend == "" {
		i.Backend = IndexBackendMemory
	}
	switch i.Backend {
	case IndexBackendMemory:
		if i.FileStore.Type == "" {
			return fmt.Errorf("index.file_store.type is required for memory backend")
		}
	case IndexBackendPGVector:
		if !db.Enabled() {
			return fmt.Errorf("index.backend pgvector requires database")
		}
	default:
		return fmt.Errorf("index.backend must be memory or pgvector")
	}
	if i.SnapshotKey == "" {
		i.SnapshotKey = DefaultSnapshotKey
	}
	return nil
}
