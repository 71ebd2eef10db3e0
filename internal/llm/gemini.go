package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// DefaultModelName is the Gemini model used when none is configured.
const DefaultModelName = "gemini-2.5-flash"

// Gemini is a Completer backed by the Gemini API.
type Gemini struct {
	client   *genai.Client
	model    string
	jsonMode bool
}

// GeminiOption customizes a Gemini completer.
type GeminiOption func(*Gemini)

// WithJSONResponse asks the model for application/json output.
func WithJSONResponse() GeminiOption {
	return func(g *Gemini) { g.jsonMode = true }
}

// NewGemini creates a Gemini completer. An empty apiKey lets the SDK read
// GOOGLE_API_KEY / GEMINI_API_KEY from the environment.
func NewGemini(ctx context.Context, apiKey, model string, opts ...GeminiOption) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("NewGemini: create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModelName
	}

	g := &Gemini{client: client, model: model}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Generate implements Completer.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	var cfg *genai.GenerateContentConfig
	if g.jsonMode {
		cfg = &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("Gemini.Generate: generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("Gemini.Generate: empty response from model %s", g.model)
	}
	return text, nil
}
