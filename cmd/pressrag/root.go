package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pressrag-ai/pressrag/pkg/chunk"
	"github.com/pressrag-ai/pressrag/pkg/config"
	"github.com/pressrag-ai/pressrag/pkg/embed"
	"github.com/pressrag-ai/pressrag/pkg/extract"
	"github.com/pressrag-ai/pressrag/pkg/generate"
	"github.com/pressrag-ai/pressrag/pkg/logging"
	"github.com/pressrag-ai/pressrag/pkg/observability"
	"github.com/pressrag-ai/pressrag/pkg/rerank"
	"github.com/pressrag-ai/pressrag/pkg/retrieval"
	"github.com/pressrag-ai/pressrag/pkg/vectorstore"
	"github.com/pressrag-ai/pressrag/pkg/vectorstore/memory"
	"github.com/pressrag-ai/pressrag/pkg/vectorstore/pgvector"
	"github.com/pressrag-ai/pressrag/pkg/vectorstore/qdrant"
	"github.com/pressrag-ai/pressrag/pkg/vectorstore/weaviate"
)

type rootFlags struct {
	configPath string
	logLevel   string

	dataFolder   string
	chunkSize    int
	chunkOverlap int
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "pressrag",
		Short: "Retrieval-augmented assistant over press publications",
		Long: "pressrag indexes plain-text press releases into a vector store and answers\n" +
			"questions about them with cited, retrieval-grounded responses.",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&flags.dataFolder, "data-folder", "", "override the configured data folder")
	cmd.PersistentFlags().IntVar(&flags.chunkSize, "chunk-size", 0, "override the configured chunk size")
	cmd.PersistentFlags().IntVar(&flags.chunkOverlap, "chunk-overlap", -1, "override the configured chunk overlap")

	cmd.AddCommand(
		newIngestCmd(flags),
		newQueryCmd(flags),
		newServeCmd(flags),
	)
	return cmd
}

func (f *rootFlags) load() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if f.dataFolder != "" {
		cfg.DataFolder = f.dataFolder
	}
	if f.chunkSize > 0 {
		cfg.Chunking.Size = f.chunkSize
	}
	if f.chunkOverlap >= 0 {
		cfg.Chunking.Overlap = f.chunkOverlap
	}
	return cfg, logging.New(cfg.Env, f.logLevel), nil
}

// pipeline bundles the wired components shared by the subcommands.
type pipeline struct {
	embedder  embed.Provider
	store     vectorstore.Store
	retriever *retrieval.Retriever
	ingestor  *retrieval.Ingestor
	assembler *retrieval.Assembler
	generator generate.Generator
	metrics   *observability.Metrics

	closers []func() error
}

func (p *pipeline) close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		_ = p.closers[i]()
	}
}

func buildPipeline(ctx context.Context, cfg *config.Config, log zerolog.Logger, withGenerator bool) (*pipeline, error) {
	p := &pipeline{metrics: observability.NewMetrics()}

	embedder, closer, err := buildEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}
	p.embedder = embedder
	if closer != nil {
		p.closers = append(p.closers, closer)
	}

	store, err := buildStore(ctx, cfg, embedder.Dimension())
	if err != nil {
		p.close()
		return nil, err
	}
	p.store = store
	p.closers = append(p.closers, store.Close)

	retrieverOpts := []retrieval.RetrieverOption{
		retrieval.WithTopK(cfg.Retrieval.TopK),
		retrieval.WithRerankTopK(cfg.Retrieval.RerankTopK),
		retrieval.WithRetrieverMetrics(p.metrics),
		retrieval.WithRetrieverLogger(log),
	}
	if cfg.Rerank != nil {
		reranker, err := rerank.NewHTTP(&rerank.HTTPConfig{
			BaseURL: cfg.Rerank.URL,
			Model:   cfg.Rerank.Model,
			Timeout: cfg.Rerank.Timeout,
		})
		if err != nil {
			p.close()
			return nil, err
		}
		retrieverOpts = append(retrieverOpts, retrieval.WithReranker(reranker))
	}

	p.retriever, err = retrieval.NewRetriever(embedder, store, retrieverOpts...)
	if err != nil {
		p.close()
		return nil, err
	}

	extractor := extract.New()
	chunker, err := chunk.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		p.close()
		return nil, err
	}
	p.ingestor, err = retrieval.NewIngestor(extractor, chunker, embedder, store,
		retrieval.WithIngestMetrics(p.metrics),
		retrieval.WithIngestLogger(log),
	)
	if err != nil {
		p.close()
		return nil, err
	}

	p.assembler = retrieval.NewAssembler(
		retrieval.WithMaxContextTokens(cfg.Retrieval.MaxContextTokens),
	)

	if withGenerator {
		p.generator, err = generate.NewOllama(&generate.OllamaConfig{
			URL:         cfg.Generator.URL,
			Model:       cfg.Generator.Model,
			Temperature: cfg.Generator.Temperature,
			MaxTokens:   cfg.Generator.MaxTokens,
		})
		if err != nil {
			p.close()
			return nil, err
		}
	}
	return p, nil
}

func buildEmbedder(ctx context.Context, cfg *config.Config) (embed.Provider, func() error, error) {
	var provider embed.Provider
	var err error

	switch cfg.Embedding.Provider {
	case "ollama":
		provider, err = embed.NewOllama(cfg.Embedding.Model, &embed.OllamaConfig{
			Host:      cfg.Embedding.URL,
			Dimension: cfg.Embedding.Dimension,
		})
	case "openai":
		provider, err = embed.NewOpenAI(cfg.Embedding.Model, &embed.OpenAIConfig{
			APIKey:    cfg.Embedding.APIKey,
			BaseURL:   cfg.Embedding.URL,
			Dimension: cfg.Embedding.Dimension,
		})
	case "gemini":
		provider, err = embed.NewGemini(ctx, cfg.Embedding.Model, &embed.GeminiConfig{
			APIKey:    cfg.Embedding.APIKey,
			Dimension: cfg.Embedding.Dimension,
		})
	default:
		return nil, nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
	if err != nil {
		return nil, nil, err
	}

	if cfg.Embedding.CachePath != "" {
		cached, err := embed.NewCached(provider, cfg.Embedding.CachePath)
		if err != nil {
			return nil, nil, err
		}
		return cached, cached.Close, nil
	}
	return provider, nil, nil
}

func buildStore(ctx context.Context, cfg *config.Config, dimension int) (vectorstore.Store, error) {
	switch cfg.Store.Backend {
	case "memory":
		return memory.New(), nil
	case "qdrant":
		return qdrant.New(&qdrant.Config{
			URL:            cfg.Store.URL,
			CollectionName: cfg.Store.Collection,
			APIKey:         cfg.Store.APIKey,
			VectorSize:     dimension,
		})
	case "weaviate":
		return weaviate.New(ctx, &weaviate.Config{
			URL:       cfg.Store.URL,
			ClassName: cfg.Store.Collection,
			APIKey:    cfg.Store.APIKey,
		})
	case "pgvector":
		return pgvector.New(ctx, &pgvector.Config{
			ConnectionString: cfg.Store.ConnectionString,
			TableName:        cfg.Store.Collection,
			VectorDimension:  dimension,
		})
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// initTracing is shared by commands that export spans. It returns a no-op
// shutdown when tracing is disabled.
func initTracing(ctx context.Context, cfg *config.Config, log zerolog.Logger) func(context.Context) error {
	if !cfg.Tracing.Enabled {
		return func(context.Context) error { return nil }
	}
	shutdown, err := observability.InitTracing(ctx, cfg.Tracing.Endpoint)
	if err != nil {
		log.Warn().Err(err).Msg("tracing disabled")
		return func(context.Context) error { return nil }
	}
	log.Info().Str("endpoint", cfg.Tracing.Endpoint).Msg("tracing enabled")
	return func(ctx context.Context) error {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return shutdown(shutdownCtx)
	}
}
