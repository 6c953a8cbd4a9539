package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/natefry/muse-api/internal/domain"
)

// OpenRouterID is the identifier of the OpenRouter adapter.
const OpenRouterID = "openrouter"

const (
	openRouterEndpoint     = "https://openrouter.ai/api/v1/chat/completions"
	openRouterDefaultModel = "openrouter/auto"
)

// OpenRouterAdapter fulfills text generation through the OpenRouter
// chat completions API.
type OpenRouterAdapter struct {
	apiKey  string
	client  *http.Client
	baseURL string
}

// NewOpenRouterAdapter creates the adapter. An empty apiKey leaves the
// adapter permanently unavailable.
func NewOpenRouterAdapter(apiKey string) *OpenRouterAdapter {
	return &OpenRouterAdapter{
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 120 * time.Second},
		baseURL: openRouterEndpoint,
	}
}

// ID returns the adapter identifier.
func (a *OpenRouterAdapter) ID() string { return OpenRouterID }

// Available reports whether an API key is configured.
func (a *OpenRouterAdapter) Available() bool { return a.apiKey != "" }

type openRouterRequest struct {
	Model    string              `json:"model"`
	Messages []openRouterMessage `json:"messages"`
}

type openRouterMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openRouterResponse struct {
	Choices []struct {
		Message openRouterMessage `json:"message"`
	} `json:"choices"`
	Usage map[string]interface{} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends the payload's prompt through the chat completions API
// and returns the completion as a single text artifact.
func (a *OpenRouterAdapter) Generate(ctx context.Context, req GenerateRequest) (*Result, error) {
	prompt, _ := req.Payload["prompt"].(string)
	if prompt == "" {
		return nil, fmt.Errorf("openrouter: payload has no prompt")
	}

	model := req.Model
	if model == "" {
		model = openRouterDefaultModel
	}

	body, err := json.Marshal(openRouterRequest{
		Model: model,
		Messages: []openRouterMessage{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openrouter: failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openrouter: failed to build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openrouter: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openrouter: failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openrouter: unexpected status %d", resp.StatusCode)
	}

	var parsed openRouterResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("openrouter: failed to decode response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("openrouter: api error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("openrouter: no completion returned")
	}

	return &Result{
		ProviderID: OpenRouterID,
		Model:      model,
		Artifacts: []ArtifactDraft{
			{Type: domain.ArtifactTypeText, Content: parsed.Choices[0].Message.Content},
		},
		Usage: parsed.Usage,
	}, nil
}
