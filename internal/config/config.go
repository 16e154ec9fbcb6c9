package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port        int              `json:"port"`
	LogConfig   logger.LogConfig `json:"log_config"`
	FaviconPath string           `json:"favicon_path"`
	CORSOrigins []string         `json:"cors_origins"`
	RateLimitMs int              `json:"rate_limit_ms"`
	Extract     ExtractConfig    `json:"extract"`
	Chunk       ChunkConfig      `json:"chunk"`
	Embedding   EmbeddingConfig  `json:"embedding"`
	AI          AIConfig         `json:"ai"`
	Retrieval   RetrievalConfig  `json:"retrieval"`
	Store       StoreConfig      `json:"store"`
}

type ExtractConfig struct {
	Timeout         int      `json:"timeout"`
	MaxBytes        int64    `json:"max_bytes"`
	AllowFileScheme bool     `json:"allow_file_scheme"`
	StripMarkdown   bool     `json:"strip_markdown"`
	S3              S3Config `json:"s3"`
}

type S3Config struct {
	Endpoint        string `json:"endpoint"`
	Region          string `json:"region"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	UsePathStyle    bool   `json:"use_path_style"`
}

type ChunkConfig struct {
	MaxTokens int    `json:"max_tokens"`
	Encoding  string `json:"encoding"`
}

type EmbeddingConfig struct {
	Provider        string                 `json:"provider"`
	Model           string                 `json:"model"`
	BatchSize       int                    `json:"batch_size"`
	LRUSize         int                    `json:"lru_size"`
	LRUTTLSeconds   int                    `json:"lru_ttl_seconds"`
	DBCache         bool                   `json:"db_cache"`
	CacheMaxAgeDays int                    `json:"cache_max_age_days"`
	Data            map[string]interface{} `json:"data"`
}

type ProviderRef struct {
	Provider string                 `json:"provider"`
	Model    string                 `json:"model"`
	Data     map[string]interface{} `json:"data"`
}

type AIConfig struct {
	Provider    string                 `json:"provider"`
	Model       string                 `json:"model"`
	Temperature *float32               `json:"temperature"`
	MaxTokens   int                    `json:"max_tokens"`
	Timeout     int                    `json:"timeout"`
	Fallbacks   []ProviderRef          `json:"fallbacks"`
	Data        map[string]interface{} `json:"data"`
}

type RetrievalConfig struct {
	MatchCount int `json:"match_count"`
}

type StoreConfig struct {
	Type     string         `json:"type"`
	Timeout  int            `json:"timeout"`
	Database DatabaseConfig `json:"database"`
	Supabase SupabaseConfig `json:"supabase"`
	Qdrant   QdrantConfig   `json:"qdrant"`
	Memory   MemoryConfig   `json:"memory"`
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

type SupabaseConfig struct {
	URL        string `json:"url"`
	ServiceKey string `json:"service_key"`
	Table      string `json:"table"`
	Function   string `json:"function"`
}

type QdrantConfig struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	APIKey     string `json:"api_key"`
	UseTLS     bool   `json:"use_tls"`
	Collection string `json:"collection"`
}

type MemoryConfig struct {
	Path     string `json:"path"`
	Compress bool   `json:"compress"`
}

const (
	DefaultPort          = 8000
	DefaultMaxTokens     = 500
	MinChunkTokens       = 4
	DefaultEncoding      = "cl100k_base"
	DefaultBatchSize     = 96
	DefaultMatchCount    = 5
	DefaultAITimeout     = 60
	DefaultExtractTime   = 60
	DefaultStoreTimeout  = 30
	DefaultAnswerTokens  = 512
	DefaultTemperature   = float32(0.2)
	DefaultEmbedProvider = "openai"
	DefaultAIProvider    = "openai"
)

var defaultEmbeddingModels = map[string]string{
	"openai": "text-embedding-3-small",
	"cohere": "embed-english-v3.0",
	"gemini": "gemini-embedding-001",
}

var defaultChatModels = map[string]string{
	"openai":     "gpt-4o-mini",
	"cohere":     "command-r",
	"gemini":     "gemini-2.0-flash",
	"openrouter": "openai/gpt-4o-mini",
}

var providerKeyEnv = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"cohere":     "COHERE_API_KEY",
	"gemini":     "GEMINI_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
}

// LoadDotEnv loads the given .env files into the process environment.
// Missing files are ignored.
func LoadDotEnv(files ...string) error {
	for _, file := range files {
		if file == "" {
			continue
		}
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file %s: %w", file, err)
		}
	}
	return nil
}

// Load reads the JSON config at path (optional), expands ${VAR} references,
// applies environment overrides and defaults, then validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		if err := json.Unmarshal([]byte(expandEnvVars(string(raw))), cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}
	applyEnv(cfg)
	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DOCQA_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Store.Database.DSN = v
	}
	setIfEmpty(&cfg.Store.Supabase.URL, "SUPABASE_URL")
	setIfEmpty(&cfg.Store.Supabase.ServiceKey, "SUPABASE_SERVICE_KEY")
	setIfEmpty(&cfg.Store.Qdrant.Host, "QDRANT_HOST")
	setIfEmpty(&cfg.Store.Qdrant.APIKey, "QDRANT_API_KEY")
	setIfEmpty(&cfg.Extract.S3.Endpoint, "S3_ENDPOINT")
	setIfEmpty(&cfg.Extract.S3.Region, "S3_REGION")
	setIfEmpty(&cfg.Extract.S3.AccessKeyID, "S3_ACCESS_KEY_ID")
	setIfEmpty(&cfg.Extract.S3.SecretAccessKey, "S3_SECRET_ACCESS_KEY")

	cfg.Embedding.Data = withAPIKey(cfg.Embedding.Data, providerOrDefault(cfg.Embedding.Provider, DefaultEmbedProvider))
	cfg.AI.Data = withAPIKey(cfg.AI.Data, providerOrDefault(cfg.AI.Provider, DefaultAIProvider))
	for i := range cfg.AI.Fallbacks {
		cfg.AI.Fallbacks[i].Data = withAPIKey(cfg.AI.Fallbacks[i].Data, cfg.AI.Fallbacks[i].Provider)
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.LogConfig.File == "" {
		cfg.LogConfig.Console = true
	}
	if cfg.CORSOrigins == nil {
		cfg.CORSOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Extract.Timeout <= 0 {
		cfg.Extract.Timeout = DefaultExtractTime
	}
	if cfg.Chunk.MaxTokens <= 0 {
		cfg.Chunk.MaxTokens = DefaultMaxTokens
	}
	if cfg.Chunk.Encoding == "" {
		cfg.Chunk.Encoding = DefaultEncoding
	}
	cfg.Embedding.Provider = providerOrDefault(cfg.Embedding.Provider, DefaultEmbedProvider)
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = defaultEmbeddingModels[cfg.Embedding.Provider]
	}
	if cfg.Embedding.BatchSize <= 0 {
		cfg.Embedding.BatchSize = DefaultBatchSize
	}
	if cfg.Embedding.CacheMaxAgeDays <= 0 {
		cfg.Embedding.CacheMaxAgeDays = 30
	}
	cfg.AI.Provider = providerOrDefault(cfg.AI.Provider, DefaultAIProvider)
	if cfg.AI.Model == "" {
		cfg.AI.Model = defaultChatModels[cfg.AI.Provider]
	}
	for i := range cfg.AI.Fallbacks {
		fb := &cfg.AI.Fallbacks[i]
		fb.Provider = strings.ToLower(strings.TrimSpace(fb.Provider))
		if fb.Model == "" {
			fb.Model = defaultChatModels[fb.Provider]
		}
	}
	if cfg.AI.Temperature == nil {
		t := DefaultTemperature
		cfg.AI.Temperature = &t
	}
	if cfg.AI.MaxTokens <= 0 {
		cfg.AI.MaxTokens = DefaultAnswerTokens
	}
	if cfg.AI.Timeout <= 0 {
		cfg.AI.Timeout = DefaultAITimeout
	}
	if cfg.Retrieval.MatchCount <= 0 {
		cfg.Retrieval.MatchCount = DefaultMatchCount
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = "postgres"
	}
	if cfg.Store.Timeout <= 0 {
		cfg.Store.Timeout = DefaultStoreTimeout
	}
	cfg.Store.Type = strings.ToLower(strings.TrimSpace(cfg.Store.Type))
	if cfg.Store.Supabase.Table == "" {
		cfg.Store.Supabase.Table = "documents"
	}
	if cfg.Store.Supabase.Function == "" {
		cfg.Store.Supabase.Function = "match_documents"
	}
	if cfg.Store.Qdrant.Port == 0 {
		cfg.Store.Qdrant.Port = 6334
	}
	if cfg.Store.Qdrant.Collection == "" {
		cfg.Store.Qdrant.Collection = "documents"
	}
	if cfg.Extract.S3.Region == "" {
		cfg.Extract.S3.Region = "us-east-1"
	}
}

func validate(cfg *Config) error {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("port out of range: %d", cfg.Port)
	}
	if cfg.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required for provider %s", cfg.Embedding.Provider)
	}
	if cfg.AI.Model == "" {
		return fmt.Errorf("ai.model is required for provider %s", cfg.AI.Provider)
	}
	if cfg.Chunk.MaxTokens < MinChunkTokens {
		return fmt.Errorf("chunk.max_tokens must be at least %d", MinChunkTokens)
	}
	if t := *cfg.AI.Temperature; t < 0 || t > 2 {
		return fmt.Errorf("ai.temperature must be within [0, 2]")
	}
	switch cfg.Store.Type {
	case "postgres":
		db := cfg.Store.Database
		if db.DSN == "" && db.Host == "" {
			return fmt.Errorf("store.database.dsn or store.database.host is required for postgres store")
		}
	case "supabase":
		if cfg.Store.Supabase.URL == "" || cfg.Store.Supabase.ServiceKey == "" {
			return fmt.Errorf("store.supabase url/service_key are required for supabase store")
		}
	case "qdrant":
		if cfg.Store.Qdrant.Host == "" {
			return fmt.Errorf("store.qdrant.host is required for qdrant store")
		}
	case "memory":
	default:
		return fmt.Errorf("store.type must be postgres, supabase, qdrant or memory")
	}
	if cfg.Embedding.DBCache && cfg.Store.Type != "postgres" {
		return fmt.Errorf("embedding.db_cache requires the postgres store")
	}
	return nil
}

func providerOrDefault(name, fallback string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return fallback
	}
	return name
}

func setIfEmpty(dst *string, env string) {
	if *dst != "" {
		return
	}
	*dst = os.Getenv(env)
}

func withAPIKey(data map[string]interface{}, provider string) map[string]interface{} {
	env, ok := providerKeyEnv[strings.ToLower(strings.TrimSpace(provider))]
	if !ok {
		return data
	}
	if data == nil {
		data = map[string]interface{}{}
	}
	if v, _ := data["api_key"].(string); strings.TrimSpace(v) != "" {
		return data
	}
	if key := os.Getenv(env); key != "" {
		data["api_key"] = key
	}
	return data
}
