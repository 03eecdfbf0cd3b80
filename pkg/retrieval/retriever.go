// Package retrieval orchestrates the query path (embed, vector search,
// rerank) and the ingestion path (extract, chunk, embed, index).
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/pressrag-ai/pressrag/pkg/embed"
	"github.com/pressrag-ai/pressrag/pkg/observability"
	"github.com/pressrag-ai/pressrag/pkg/rag"
	"github.com/pressrag-ai/pressrag/pkg/rerank"
	"github.com/pressrag-ai/pressrag/pkg/vectorstore"
)

// Default retrieval parameters.
const (
	DefaultTopK       = 5
	DefaultRerankTopK = 10
)

// Retriever runs two-stage retrieval: a wide vector search followed by
// optional cross-encoder reranking of the head of the candidate list.
type Retriever struct {
	embedder embed.Provider
	store    vectorstore.Store
	reranker rerank.Reranker // nil disables stage two

	topK       int
	rerankTopK int

	metrics *observability.Metrics
	log     zerolog.Logger
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithTopK sets how many chunks a query returns.
func WithTopK(k int) RetrieverOption {
	return func(r *Retriever) {
		if k > 0 {
			r.topK = k
		}
	}
}

// WithRerankTopK sets how many stage-1 candidates are rescored.
func WithRerankTopK(k int) RetrieverOption {
	return func(r *Retriever) {
		if k > 0 {
			r.rerankTopK = k
		}
	}
}

// WithReranker enables stage-2 cross-encoder scoring.
func WithReranker(reranker rerank.Reranker) RetrieverOption {
	return func(r *Retriever) { r.reranker = reranker }
}

// WithRetrieverMetrics records stage latencies and counters.
func WithRetrieverMetrics(m *observability.Metrics) RetrieverOption {
	return func(r *Retriever) { r.metrics = m }
}

// WithRetrieverLogger sets the logger.
func WithRetrieverLogger(log zerolog.Logger) RetrieverOption {
	return func(r *Retriever) { r.log = log }
}

// NewRetriever creates a retriever over an embedding provider and a vector
// store.
func NewRetriever(embedder embed.Provider, store vectorstore.Store, opts ...RetrieverOption) (*Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedding provider is required")
	}
	if store == nil {
		return nil, fmt.Errorf("vector store is required")
	}

	r := &Retriever{
		embedder:   embedder,
		store:      store,
		topK:       DefaultTopK,
		rerankTopK: DefaultRerankTopK,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Query holds one retrieval request. TopK overrides the retriever default
// when positive.
type Query struct {
	Text   string
	TopK   int
	Filter *vectorstore.Filter
}

// Retrieve runs both stages and returns the top chunks by final ordering.
// An empty result is a valid answer, not an error. When the reranker is
// configured but unreachable, stage-1 ordering is kept and Reranked is false.
func (r *Retriever) Retrieve(ctx context.Context, query Query) (*rag.RetrievalResult, error) {
	topK := query.TopK
	if topK <= 0 {
		topK = r.topK
	}

	result := &rag.RetrievalResult{Query: query.Text}
	if query.Text == "" {
		return result, nil
	}

	start := time.Now()
	vector, err := r.embedder.EmbedQuery(ctx, query.Text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	r.observe("embed_query", time.Since(start))

	// Stage one fetches enough candidates for stage two to rescore.
	fetchK := max(topK, r.rerankTopK)
	start = time.Now()
	candidates, err := r.store.Query(ctx, vector, fetchK, query.Filter)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	r.observe("vector_search", time.Since(start))

	if len(candidates) == 0 {
		r.log.Debug().Str("query", query.Text).Msg("no chunks matched")
		return result, nil
	}

	ordered, reranked := r.rerankStage(ctx, query.Text, candidates)
	if len(ordered) > topK {
		ordered = ordered[:topK]
	}

	result.Chunks = ordered
	result.Reranked = reranked
	r.log.Debug().
		Str("query", query.Text).
		Int("candidates", len(candidates)).
		Int("returned", len(ordered)).
		Bool("reranked", reranked).
		Msg("retrieval complete")
	return result, nil
}

// rerankStage rescores the head of the candidate list with the cross-encoder.
// The sort is stable, so equal scores keep stage-1 order. Any reranker
// failure falls back to the stage-1 ordering.
func (r *Retriever) rerankStage(ctx context.Context, query string, candidates []rag.ScoredChunk) ([]rag.ScoredChunk, bool) {
	if r.reranker == nil {
		return candidates, false
	}

	head := candidates
	if len(head) > r.rerankTopK {
		head = head[:r.rerankTopK]
	}
	texts := make([]string, len(head))
	for i, c := range head {
		texts[i] = c.Chunk.Text
	}

	start := time.Now()
	scores, err := r.reranker.Score(ctx, query, texts)
	if err != nil {
		if errors.Is(err, rag.ErrModelUnavailable) {
			r.log.Warn().Err(err).Str("model", r.reranker.Model()).
				Msg("reranker unavailable, keeping vector order")
			return candidates, false
		}
		r.log.Warn().Err(err).Msg("rerank failed, keeping vector order")
		return candidates, false
	}
	r.observe("rerank", time.Since(start))

	if len(scores) != len(head) {
		r.log.Warn().Int("scores", len(scores)).Int("candidates", len(head)).
			Msg("reranker returned a mismatched score count, keeping vector order")
		return candidates, false
	}

	rescored := make([]rag.ScoredChunk, len(head))
	for i, c := range head {
		rescored[i] = rag.ScoredChunk{Chunk: c.Chunk, Score: scores[i]}
	}
	sort.SliceStable(rescored, func(i, j int) bool {
		return rescored[i].Score > rescored[j].Score
	})

	ordered := append(rescored, candidates[len(head):]...)
	return ordered, true
}

func (r *Retriever) observe(stage string, d time.Duration) {
	if r.metrics != nil {
		r.metrics.ObserveRetrievalStage(stage, d)
	}
}
