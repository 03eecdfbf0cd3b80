package embed

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiProvider generates embeddings with the Gemini API.
type GeminiProvider struct {
	client    *genai.Client
	model     string
	dimension int
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	// APIKey for authentication. Empty falls back to GEMINI_API_KEY via the
	// genai client.
	APIKey string

	// Dimension requests a reduced output dimensionality. 0 uses the model
	// default.
	Dimension int
}

// NewGemini creates an embedding provider backed by the Gemini API.
func NewGemini(ctx context.Context, model string, config *GeminiConfig) (*GeminiProvider, error) {
	if model == "" {
		model = "gemini-embedding-001"
	}
	if config == nil {
		config = &GeminiConfig{}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiProvider{
		client:    client,
		model:     model,
		dimension: config.Dimension,
	}, nil
}

// Embed encodes a batch of texts in a single request.
func (p *GeminiProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	config := &genai.EmbedContentConfig{}
	if p.dimension > 0 {
		config.OutputDimensionality = genai.Ptr(int32(p.dimension))
	}

	resp, err := p.client.Models.EmbedContent(ctx, p.model, contents, config)
	if err != nil {
		return nil, unavailable(fmt.Errorf("gemini embed: %w", err))
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, unavailable(fmt.Errorf("gemini embed: got %d embeddings for %d inputs", len(resp.Embeddings), len(texts)))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		vectors[i] = emb.Values
	}
	return vectors, nil
}

// EmbedQuery encodes a single query string.
func (p *GeminiProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return embedQuery(ctx, p, text)
}

// Model returns the configured model name.
func (p *GeminiProvider) Model() string { return p.model }

// Dimension returns the configured vector width.
func (p *GeminiProvider) Dimension() int { return p.dimension }
