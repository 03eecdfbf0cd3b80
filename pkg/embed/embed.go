// Package embed maps text to fixed-dimension dense vectors. A Provider is a
// deterministic function from text to vector for a fixed model configuration;
// the model dimension must not change for the lifetime of an index.
//
// Backends: Ollama (local models), OpenAI, and Gemini, plus a Badger-backed
// cache decorator that skips recomputation of unchanged text.
package embed

import (
	"context"
	"fmt"

	"github.com/pressrag-ai/pressrag/pkg/rag"
)

// Provider generates embeddings for document chunks and queries.
//
// Embed is all-or-nothing: a batch either succeeds completely or fails with
// an error matching rag.ErrModelUnavailable. Callers must not assume partial
// success.
type Provider interface {
	// Embed encodes a batch of texts, one vector per input, same order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery encodes a single query string. Queries and documents share
	// one encoding path here; the method exists so an asymmetric model can
	// be swapped in without touching callers.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Model identifies the underlying embedding model.
	Model() string

	// Dimension is the configured vector width, 0 if unknown.
	Dimension() int
}

// unavailable tags a backend failure with the retrieval error taxonomy so
// callers can match rag.ErrModelUnavailable.
func unavailable(err error) error {
	return fmt.Errorf("%w: %w", rag.ErrModelUnavailable, err)
}

// embedQuery implements the shared single-text path on top of Embed.
func embedQuery(ctx context.Context, p Provider, text string) ([]float32, error) {
	vecs, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, unavailable(fmt.Errorf("expected 1 embedding, got %d", len(vecs)))
	}
	return vecs[0], nil
}
