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

// A2EID is the identifier of the A2E adapter.
const A2EID = "a2e"

const a2eEndpoint = "https://api.a2e.ai/v1/generations"

// A2EAdapter fulfills image and video generation through the A2E
// generations API. Results reference externally hosted content; only
// the returned URL is recorded as the artifact's object key.
type A2EAdapter struct {
	apiKey  string
	client  *http.Client
	baseURL string
}

// NewA2EAdapter creates the adapter. An empty apiKey leaves the
// adapter permanently unavailable.
func NewA2EAdapter(apiKey string) *A2EAdapter {
	return &A2EAdapter{
		apiKey: apiKey,
		// Video jobs run long; the cap is the adapter's own, nothing
		// above this layer enforces one.
		client:  &http.Client{Timeout: 10 * time.Minute},
		baseURL: a2eEndpoint,
	}
}

// ID returns the adapter identifier.
func (a *A2EAdapter) ID() string { return A2EID }

// Available reports whether an API key is configured.
func (a *A2EAdapter) Available() bool { return a.apiKey != "" }

type a2eRequest struct {
	Modality string                 `json:"modality"`
	Model    string                 `json:"model,omitempty"`
	Input    map[string]interface{} `json:"input"`
}

type a2eResponse struct {
	Model   string `json:"model"`
	Outputs []struct {
		URL      string                 `json:"url"`
		Metadata map[string]interface{} `json:"metadata"`
	} `json:"outputs"`
	Error string `json:"error"`
}

// Generate submits one generation job and maps each returned output
// URL to an artifact of the requested modality.
func (a *A2EAdapter) Generate(ctx context.Context, req GenerateRequest) (*Result, error) {
	body, err := json.Marshal(a2eRequest{
		Modality: string(req.Modality),
		Model:    req.Model,
		Input:    req.Payload,
	})
	if err != nil {
		return nil, fmt.Errorf("a2e: failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("a2e: failed to build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("a2e: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("a2e: failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("a2e: unexpected status %d", resp.StatusCode)
	}

	var parsed a2eResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("a2e: failed to decode response: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("a2e: api error: %s", parsed.Error)
	}
	if len(parsed.Outputs) == 0 {
		return nil, fmt.Errorf("a2e: no outputs returned")
	}

	artifactType := domain.ArtifactTypeImage
	if req.Modality == domain.ModalityVideo {
		artifactType = domain.ArtifactTypeVideo
	}

	artifacts := make([]ArtifactDraft, 0, len(parsed.Outputs))
	for _, out := range parsed.Outputs {
		artifacts = append(artifacts, ArtifactDraft{
			Type:     artifactType,
			URL:      out.URL,
			Metadata: out.Metadata,
		})
	}

	return &Result{
		ProviderID: A2EID,
		Model:      parsed.Model,
		Artifacts:  artifacts,
	}, nil
}
