package embed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
)

// OllamaProvider generates embeddings with a local Ollama server.
type OllamaProvider struct {
	client    *api.Client
	model     string
	dimension int
}

// OllamaConfig holds Ollama-specific configuration.
type OllamaConfig struct {
	// Host of the Ollama server. Empty uses OLLAMA_HOST or localhost:11434.
	Host string

	// Dimension of the model's output vectors. Informational; Ollama does
	// not truncate.
	Dimension int
}

// NewOllama creates an embedding provider backed by an Ollama server.
//
// Example:
//
//	provider, err := embed.NewOllama("nomic-embed-text", nil)
func NewOllama(model string, config *OllamaConfig) (*OllamaProvider, error) {
	if model == "" {
		return nil, fmt.Errorf("ollama embedding model is required")
	}
	if config == nil {
		config = &OllamaConfig{}
	}

	var client *api.Client
	if config.Host == "" {
		c, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client from environment: %w", err)
		}
		client = c
	} else {
		u, err := url.Parse(config.Host)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama host URL: %w", err)
		}
		client = api.NewClient(u, http.DefaultClient)
	}

	return &OllamaProvider{
		client:    client,
		model:     model,
		dimension: config.Dimension,
	}, nil
}

// Embed encodes a batch of texts in a single request.
func (p *OllamaProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := p.client.Embed(ctx, &api.EmbedRequest{
		Model: p.model,
		Input: texts,
	})
	if err != nil {
		return nil, unavailable(fmt.Errorf("ollama embed: %w", err))
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, unavailable(fmt.Errorf("ollama embed: got %d embeddings for %d inputs", len(resp.Embeddings), len(texts)))
	}
	return resp.Embeddings, nil
}

// EmbedQuery encodes a single query string.
func (p *OllamaProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return embedQuery(ctx, p, text)
}

// Model returns the configured model name.
func (p *OllamaProvider) Model() string { return p.model }

// Dimension returns the configured vector width.
func (p *OllamaProvider) Dimension() int { return p.dimension }
