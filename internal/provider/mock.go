package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/natefry/muse-api/internal/domain"
)

// MockID is the reserved identifier of the fallback adapter.
const MockID = "mock"

// MockAdapter is the reserved fallback backend. It reports itself
// available only when none of the real adapters is, which guarantees
// the router always has a candidate in a no-credentials deployment
// without the router special-casing it.
type MockAdapter struct {
	others []Adapter
	delay  time.Duration
}

// NewMockAdapter creates the fallback adapter shadowing the given real
// adapters.
func NewMockAdapter(others ...Adapter) *MockAdapter {
	return &MockAdapter{others: others, delay: 100 * time.Millisecond}
}

// ID returns the reserved mock identifier.
func (m *MockAdapter) ID() string { return MockID }

// Available is true only when every shadowed adapter is unavailable.
func (m *MockAdapter) Available() bool {
	for _, a := range m.others {
		if a.Available() {
			return false
		}
	}
	return true
}

// Generate returns a single canned text artifact after a short delay
// that stands in for provider latency.
func (m *MockAdapter) Generate(ctx context.Context, req GenerateRequest) (*Result, error) {
	select {
	case <-time.After(m.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	payload, _ := json.Marshal(req.Payload)
	content := fmt.Sprintf(
		"[MOCK] Demo result for tool %q.\nInput: %s\nConfigure a provider API key to get real output.",
		req.ToolID, payload,
	)

	return &Result{
		ProviderID: MockID,
		Model:      "mock-v1",
		Artifacts: []ArtifactDraft{
			{Type: domain.ArtifactTypeText, Content: content},
		},
	}, nil
}
