// Package generate builds grounded prompts from assembled context and runs
// them against a chat model. Answers cite publication ids so they can be
// traced back to the indexed press releases.
package generate

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/pressrag-ai/pressrag/pkg/rag"
)

const systemPrompt = `You are an enterprise AI assistant for Deutsche Telekom.
Your role is to deliver accurate, well-reasoned insights grounded in the provided publications.

Guidelines:
- Base all answers on the provided context documents, but you may synthesize or infer relationships between them.
- If specific information is missing, explicitly state that it is not available.
- Maintain a confident, professional tone consistent with Deutsche Telekom communications.
- Cite publication IDs when drawing on particular sources (e.g., "(Publication 12)").
- Avoid speculation or repetition. Respond with a clear, concise, and factual summary.`

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"` // "system", "user", or "assistant"
	Content string `json:"content"`
}

// BuildMessages assembles the chat transcript for one query: the system
// prompt, a priming exchange that anchors citation behavior, any prior
// history, and finally the query with its context block.
func BuildMessages(query, contextBlock string, history []Message) []Message {
	messages := []Message{
		{Role: "system", Content: systemPrompt},
		{
			Role: "user",
			Content: "Remember: if information is absent from the provided context, " +
				"state clearly that it is unavailable. Always cite publication IDs when using sources.",
		},
		{
			Role: "assistant",
			Content: "Understood. I will base answers strictly on the provided context, " +
				"cite publication IDs when relevant, and indicate when data is missing.",
		},
	}
	messages = append(messages, history...)

	userContent := fmt.Sprintf(
		"%s\n\nContext documents:\n%s\n\n"+
			"Respond with a single, well-structured answer. "+
			"Do not restate or list the context verbatim; focus on reasoned synthesis.",
		strings.TrimSpace(query), contextBlock)
	return append(messages, Message{Role: "user", Content: userContent})
}

// Generator produces an answer from a chat transcript.
type Generator interface {
	Generate(ctx context.Context, messages []Message) (string, error)

	// Model identifies the chat model for logging.
	Model() string
}

// OllamaGenerator runs chat completion against a local Ollama server.
type OllamaGenerator struct {
	client      *api.Client
	model       string
	temperature float64
	maxTokens   int
}

// OllamaConfig holds generator configuration. URL empty means the client is
// resolved from OLLAMA_HOST.
type OllamaConfig struct {
	URL         string
	Model       string
	Temperature float64
	MaxTokens   int
}

// NewOllama creates a generator for the given chat model.
func NewOllama(config *OllamaConfig) (*OllamaGenerator, error) {
	if config == nil || config.Model == "" {
		return nil, fmt.Errorf("chat model is required")
	}

	var client *api.Client
	if config.URL == "" {
		c, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client from environment: %w", err)
		}
		client = c
	} else {
		u, err := url.Parse(config.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama URL: %w", err)
		}
		client = api.NewClient(u, http.DefaultClient)
	}

	return &OllamaGenerator{
		client:      client,
		model:       config.Model,
		temperature: config.Temperature,
		maxTokens:   config.MaxTokens,
	}, nil
}

// Generate runs the transcript through the model and collects the streamed
// response into one string.
func (g *OllamaGenerator) Generate(ctx context.Context, messages []Message) (string, error) {
	apiMessages := make([]api.Message, len(messages))
	for i, m := range messages {
		apiMessages[i] = api.Message{Role: m.Role, Content: m.Content}
	}

	req := &api.ChatRequest{
		Model:    g.model,
		Messages: apiMessages,
		Options:  map[string]any{"temperature": g.temperature},
	}
	if g.maxTokens > 0 {
		req.Options["num_predict"] = g.maxTokens
	}

	var answer strings.Builder
	err := g.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		answer.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: ollama chat with %s: %w", rag.ErrModelUnavailable, g.model, err)
	}
	return strings.TrimSpace(answer.String()), nil
}

// Model returns the configured chat model name.
func (g *OllamaGenerator) Model() string { return g.model }
