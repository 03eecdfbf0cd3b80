package embed

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAIProvider generates embeddings with the OpenAI embeddings API.
type OpenAIProvider struct {
	client    openai.Client
	model     string
	dimension int
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	// APIKey for authentication. Empty falls back to OPENAI_API_KEY.
	APIKey string

	// BaseURL overrides the API endpoint, e.g. for OpenAI-compatible
	// gateways.
	BaseURL string

	// Dimension requests a reduced output dimensionality where the model
	// supports it (text-embedding-3-*). 0 uses the model default.
	Dimension int
}

// NewOpenAI creates an embedding provider backed by the OpenAI API.
func NewOpenAI(model string, config *OpenAIConfig) (*OpenAIProvider, error) {
	if model == "" {
		model = string(openai.EmbeddingModelTextEmbedding3Small)
	}
	if config == nil {
		config = &OpenAIConfig{}
	}

	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required (set OPENAI_API_KEY)")
	}

	clientOptions := []option.RequestOption{option.WithAPIKey(apiKey)}
	if config.BaseURL != "" {
		clientOptions = append(clientOptions, option.WithBaseURL(config.BaseURL))
	}

	return &OpenAIProvider{
		client:    openai.NewClient(clientOptions...),
		model:     model,
		dimension: config.Dimension,
	}, nil
}

// Embed encodes a batch of texts in a single request.
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(p.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	}
	if p.dimension > 0 {
		params.Dimensions = openai.Int(int64(p.dimension))
	}

	resp, err := p.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, unavailable(fmt.Errorf("openai embed: %w", err))
	}
	if len(resp.Data) != len(texts) {
		return nil, unavailable(fmt.Errorf("openai embed: got %d embeddings for %d inputs", len(resp.Data), len(texts)))
	}

	vectors := make([][]float32, len(resp.Data))
	for _, item := range resp.Data {
		vec := make([]float32, len(item.Embedding))
		for i, v := range item.Embedding {
			vec[i] = float32(v)
		}
		vectors[item.Index] = vec
	}
	return vectors, nil
}

// EmbedQuery encodes a single query string.
func (p *OpenAIProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return embedQuery(ctx, p, text)
}

// Model returns the configured model name.
func (p *OpenAIProvider) Model() string { return p.model }

// Dimension returns the configured vector width.
func (p *OpenAIProvider) Dimension() int { return p.dimension }
