// Package config loads service configuration from a YAML file with
// environment variable overrides. A .env file in the working directory is
// loaded first so local development and containers share one mechanism.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// Defaults match the retrieval pipeline's tuning.
const (
	DefaultChunkSize        = 500
	DefaultChunkOverlap     = 100
	DefaultTopK             = 5
	DefaultRerankTopK       = 10
	DefaultMaxContextTokens = 2000
)

// Config is the root service configuration.
type Config struct {
	Env        string `yaml:"env"` // "dev" or "prod", controls log format
	DataFolder string `yaml:"data_folder"`

	Chunking  Chunking  `yaml:"chunking"`
	Embedding Embedding `yaml:"embedding"`
	Store     Store     `yaml:"store"`
	Rerank    *Rerank   `yaml:"rerank"` // nil disables stage-2 reranking
	Retrieval Retrieval `yaml:"retrieval"`
	Generator Generator `yaml:"generator"`
	Server    Server    `yaml:"server"`
	Tracing   Tracing   `yaml:"tracing"`
}

// Chunking controls the text splitter.
type Chunking struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// Embedding selects and configures the embedding backend.
type Embedding struct {
	// Provider is "ollama", "openai", or "gemini".
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	URL       string `yaml:"url"`
	APIKey    string `yaml:"api_key"`
	Dimension int    `yaml:"dimension"`

	// CachePath enables the on-disk embedding cache when set.
	CachePath string `yaml:"cache_path"`
}

// Store selects and configures the vector index backend.
type Store struct {
	// Backend is "memory", "qdrant", "weaviate", or "pgvector".
	Backend string `yaml:"backend"`

	URL              string `yaml:"url"`
	APIKey           string `yaml:"api_key"`
	Collection       string `yaml:"collection"`
	ConnectionString string `yaml:"connection_string"`
}

// Rerank configures the cross-encoder endpoint.
type Rerank struct {
	URL     string        `yaml:"url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// Retrieval controls the two-stage query path.
type Retrieval struct {
	TopK             int `yaml:"top_k"`
	RerankTopK       int `yaml:"rerank_top_k"`
	MaxContextTokens int `yaml:"max_context_tokens"`
}

// Generator configures the answer model.
type Generator struct {
	URL         string  `yaml:"url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// Server configures the HTTP API.
type Server struct {
	Address      string        `yaml:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Tracing configures OTLP trace export.
type Tracing struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"` // OTLP gRPC, e.g. "localhost:4317"
}

// Load reads configuration from path. A missing path loads pure defaults and
// environment overrides; a present but unreadable file is an error.
func Load(path string) (*Config, error) {
	// Ignore a missing .env; it is a local development convenience.
	_ = godotenv.Load()

	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Env:        "dev",
		DataFolder: "data",
		Chunking: Chunking{
			Size:    DefaultChunkSize,
			Overlap: DefaultChunkOverlap,
		},
		Embedding: Embedding{
			Provider:  "ollama",
			Model:     "nomic-embed-text",
			Dimension: 768,
		},
		Store: Store{
			Backend:    "memory",
			Collection: "chunks",
		},
		Retrieval: Retrieval{
			TopK:             DefaultTopK,
			RerankTopK:       DefaultRerankTopK,
			MaxContextTokens: DefaultMaxContextTokens,
		},
		Generator: Generator{
			Model:       "llama3.2",
			Temperature: 0.2,
		},
		Server: Server{
			Address:      ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 120 * time.Second,
		},
	}
}

// applyEnv layers environment overrides on top of file values. Only secrets
// and deployment-specific endpoints are overridable; tuning stays in the
// file.
func applyEnv(cfg *Config) {
	setString(&cfg.Env, "PRESSRAG_ENV")
	setString(&cfg.DataFolder, "PRESSRAG_DATA_FOLDER")
	setString(&cfg.Embedding.URL, "PRESSRAG_EMBEDDING_URL")
	setString(&cfg.Embedding.APIKey, "PRESSRAG_EMBEDDING_API_KEY")
	setString(&cfg.Store.URL, "PRESSRAG_STORE_URL")
	setString(&cfg.Store.APIKey, "PRESSRAG_STORE_API_KEY")
	setString(&cfg.Store.ConnectionString, "PRESSRAG_POSTGRES_DSN")
	setString(&cfg.Generator.URL, "PRESSRAG_GENERATOR_URL")
	setString(&cfg.Server.Address, "PRESSRAG_SERVER_ADDRESS")
	setString(&cfg.Tracing.Endpoint, "PRESSRAG_OTLP_ENDPOINT")

	if v, ok := os.LookupEnv("PRESSRAG_RERANK_URL"); ok && v != "" {
		if cfg.Rerank == nil {
			cfg.Rerank = &Rerank{}
		}
		cfg.Rerank.URL = v
	}
	if v, ok := os.LookupEnv("PRESSRAG_TRACING_ENABLED"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tracing.Enabled = b
		}
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func validate(cfg *Config) error {
	if cfg.Chunking.Size <= 0 {
		return fmt.Errorf("chunking.size must be positive")
	}
	if cfg.Chunking.Overlap < 0 || cfg.Chunking.Overlap >= cfg.Chunking.Size {
		return fmt.Errorf("chunking.overlap must be in [0, size)")
	}
	if cfg.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive")
	}
	if cfg.Retrieval.RerankTopK < cfg.Retrieval.TopK {
		return fmt.Errorf("retrieval.rerank_top_k must be >= top_k")
	}
	if cfg.Retrieval.MaxContextTokens <= 0 {
		return fmt.Errorf("retrieval.max_context_tokens must be positive")
	}
	switch cfg.Embedding.Provider {
	case "ollama", "openai", "gemini":
	default:
		return fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
	switch cfg.Store.Backend {
	case "memory", "qdrant", "weaviate", "pgvector":
	default:
		return fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	if cfg.Rerank != nil && cfg.Rerank.URL == "" {
		return fmt.Errorf("rerank.url is required when rerank is configured")
	}
	return nil
}
