package provider

import (
	"context"
	"fmt"

	"github.com/natefry/muse-api/internal/domain"
	"google.golang.org/genai"
)

// GeminiID is the identifier of the Gemini adapter.
const GeminiID = "gemini"

// GeminiAdapter fulfills text generation through Google's Gemini API.
type GeminiAdapter struct {
	client       *genai.Client
	defaultModel string
}

// NewGeminiAdapter creates the adapter. When apiKey is empty the
// adapter is constructed without a client and reports itself
// unavailable; the client is never built half-configured.
func NewGeminiAdapter(ctx context.Context, apiKey, defaultModel string) (*GeminiAdapter, error) {
	adapter := &GeminiAdapter{defaultModel: defaultModel}
	if apiKey == "" {
		return adapter, nil
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}

	adapter.client = client
	return adapter, nil
}

// ID returns the adapter identifier.
func (a *GeminiAdapter) ID() string { return GeminiID }

// Available reports whether a client was configured.
func (a *GeminiAdapter) Available() bool { return a.client != nil }

// Generate sends the payload's prompt to the Gemini API and returns
// the generated text as a single artifact.
func (a *GeminiAdapter) Generate(ctx context.Context, req GenerateRequest) (*Result, error) {
	if a.client == nil {
		return nil, fmt.Errorf("gemini: adapter not configured")
	}

	prompt, _ := req.Payload["prompt"].(string)
	if prompt == "" {
		return nil, fmt.Errorf("gemini: payload has no prompt")
	}

	modelName := req.Model
	if modelName == "" {
		modelName = a.defaultModel
	}

	resp, err := a.client.Models.GenerateContent(ctx, modelName, genai.Text(prompt), nil)
	if err != nil {
		return nil, fmt.Errorf("gemini: api call failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini: no content generated")
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return nil, fmt.Errorf("gemini: content blocked by safety filters")
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("gemini: empty response text")
	}

	return &Result{
		ProviderID: GeminiID,
		Model:      modelName,
		Artifacts: []ArtifactDraft{
			{Type: domain.ArtifactTypeText, Content: text},
		},
	}, nil
}
