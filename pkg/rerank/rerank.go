// Package rerank scores (query, candidate) pairs with a cross-encoder model.
// Stage-2 scoring is slower but more precise than embedding similarity;
// callers rely on relative ordering only, never on a fixed score range.
//
// Cross-encoder models are served out of process (a text-embeddings-inference
// style HTTP endpoint); the orchestrator treats any failure here as "reranker
// unavailable" and falls back to stage-1 ordering.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pressrag-ai/pressrag/pkg/rag"
)

// Reranker computes one relevance score per candidate, in input order, each
// pair scored independently. Higher is more relevant.
type Reranker interface {
	Score(ctx context.Context, query string, candidates []string) ([]float64, error)

	// Model identifies the cross-encoder for logging.
	Model() string
}

// HTTPClient calls a rerank HTTP endpoint (POST {base}/rerank with
// {"query","texts"}, response [{"index","score"}]).
type HTTPClient struct {
	baseURL string
	model   string
	http    *http.Client
}

// HTTPConfig holds rerank endpoint configuration.
type HTTPConfig struct {
	// BaseURL of the rerank service, e.g. "http://localhost:8081".
	BaseURL string

	// Model name, informational (the service is deployed with one model).
	Model string

	// Timeout per request. 0 uses 30s.
	Timeout time.Duration
}

// NewHTTP creates a rerank client for an HTTP cross-encoder service.
func NewHTTP(config *HTTPConfig) (*HTTPClient, error) {
	if config == nil || config.BaseURL == "" {
		return nil, fmt.Errorf("rerank service base URL is required")
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL: config.BaseURL,
		model:   config.Model,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

type rerankRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

type rerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Score sends all candidates in one request and maps the scores back to
// input order. Failures are tagged rag.ErrModelUnavailable.
func (c *HTTPClient) Score(ctx context.Context, query string, candidates []string) ([]float64, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(rerankRequest{Query: query, Texts: candidates})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: rerank request: %w", rag.ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: rerank service returned %s", rag.ErrModelUnavailable, resp.Status)
	}

	var results []rerankResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("%w: decode rerank response: %w", rag.ErrModelUnavailable, err)
	}
	if len(results) != len(candidates) {
		return nil, fmt.Errorf("%w: rerank returned %d scores for %d candidates", rag.ErrModelUnavailable, len(results), len(candidates))
	}

	scores := make([]float64, len(candidates))
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(scores) {
			return nil, fmt.Errorf("%w: rerank returned out-of-range index %d", rag.ErrModelUnavailable, r.Index)
		}
		scores[r.Index] = r.Score
	}
	return scores, nil
}

// Model returns the configured cross-encoder name.
func (c *HTTPClient) Model() string { return c.model }
