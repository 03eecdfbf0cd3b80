package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Chunking.Size != DefaultChunkSize || cfg.Chunking.Overlap != DefaultChunkOverlap {
		t.Errorf("chunking defaults = %+v", cfg.Chunking)
	}
	if cfg.Retrieval.TopK != DefaultTopK || cfg.Retrieval.RerankTopK != DefaultRerankTopK {
		t.Errorf("retrieval defaults = %+v", cfg.Retrieval)
	}
	if cfg.Retrieval.MaxContextTokens != DefaultMaxContextTokens {
		t.Errorf("max context tokens = %d", cfg.Retrieval.MaxContextTokens)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("store backend = %q, want memory", cfg.Store.Backend)
	}
	if cfg.Rerank != nil {
		t.Error("reranking should be disabled by default")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
env: prod
data_folder: /srv/press
chunking:
  size: 800
  overlap: 150
embedding:
  provider: openai
  model: text-embedding-3-small
  dimension: 1536
store:
  backend: qdrant
  url: http://qdrant:6334
rerank:
  url: http://reranker:8081
  model: cross-encoder
retrieval:
  top_k: 8
  rerank_top_k: 20
  max_context_tokens: 3000
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Env != "prod" || cfg.DataFolder != "/srv/press" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Chunking.Size != 800 || cfg.Chunking.Overlap != 150 {
		t.Errorf("chunking = %+v", cfg.Chunking)
	}
	if cfg.Embedding.Provider != "openai" || cfg.Embedding.Dimension != 1536 {
		t.Errorf("embedding = %+v", cfg.Embedding)
	}
	if cfg.Store.Backend != "qdrant" || cfg.Store.URL != "http://qdrant:6334" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Rerank == nil || cfg.Rerank.URL != "http://reranker:8081" {
		t.Errorf("rerank = %+v", cfg.Rerank)
	}
	if cfg.Retrieval.TopK != 8 || cfg.Retrieval.RerankTopK != 20 {
		t.Errorf("retrieval = %+v", cfg.Retrieval)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("explicit missing file should fail")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PRESSRAG_ENV", "prod")
	t.Setenv("PRESSRAG_STORE_URL", "http://override:6334")
	t.Setenv("PRESSRAG_RERANK_URL", "http://override:8081")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Env != "prod" {
		t.Errorf("Env = %q", cfg.Env)
	}
	if cfg.Store.URL != "http://override:6334" {
		t.Errorf("Store.URL = %q", cfg.Store.URL)
	}
	if cfg.Rerank == nil || cfg.Rerank.URL != "http://override:8081" {
		t.Errorf("Rerank = %+v", cfg.Rerank)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"overlap >= size", func(c *Config) { c.Chunking.Overlap = c.Chunking.Size }},
		{"zero top_k", func(c *Config) { c.Retrieval.TopK = 0 }},
		{"rerank_top_k < top_k", func(c *Config) { c.Retrieval.RerankTopK = c.Retrieval.TopK - 1 }},
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "bogus" }},
		{"unknown backend", func(c *Config) { c.Store.Backend = "bogus" }},
		{"rerank without url", func(c *Config) { c.Rerank = &Rerank{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(cfg)
			if err := validate(cfg); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}
