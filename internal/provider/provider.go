// Package provider defines the uniform capability interface over the
// interchangeable generation backends, the registry that holds them,
// and the router that picks one for a request.
package provider

import (
	"context"

	"github.com/natefry/muse-api/internal/domain"
)

// GenerateRequest is the uniform input handed to an adapter. Payload is
// the caller's tool input, opaque to the routing layer. Model may carry
// a tool-specific default; the policy's model, when present, wins.
type GenerateRequest struct {
	ToolID   string
	Modality domain.Modality
	Payload  map[string]interface{}
	Model    string
}

// ArtifactDraft is one output returned by an adapter before it is
// persisted against a task. URL references externally stored content;
// Content carries inline text.
type ArtifactDraft struct {
	Type     domain.ArtifactType
	Content  string
	URL      string
	Metadata map[string]interface{}
}

// Result is the outcome of a successful generate call.
type Result struct {
	ProviderID string
	Model      string
	Artifacts  []ArtifactDraft
	Usage      map[string]interface{}
}

// Adapter wraps one backend generation service behind a uniform
// capability. Available must be a cheap synchronous predicate (e.g.
// "is a credential configured"), never a network probe.
type Adapter interface {
	// ID returns the adapter's stable identifier.
	ID() string

	// Available reports whether the adapter can currently serve
	// requests.
	Available() bool

	// Generate performs one generation call. Errors are captured by
	// the worker and recorded on the task; they never propagate
	// further.
	Generate(ctx context.Context, req GenerateRequest) (*Result, error)
}

// Policy is an ordered preference list of providers and models
// attached to a tool.
type Policy struct {
	Providers []string `json:"providers,omitempty"`
	Models    []string `json:"models,omitempty"`
}

// Registry holds the adapters in their fixed registration order.
type Registry struct {
	adapters []Adapter
}

// NewRegistry creates a registry over the given adapters. Order
// matters: it is the preference order used when a policy names no
// providers.
func NewRegistry(adapters ...Adapter) *Registry {
	return &Registry{adapters: adapters}
}

// Available returns the currently available adapters in registration
// order.
func (r *Registry) Available() []Adapter {
	var out []Adapter
	for _, a := range r.adapters {
		if a.Available() {
			out = append(out, a)
		}
	}
	return out
}

// Get returns the adapter with the given id, or nil when unknown.
func (r *Registry) Get(id string) Adapter {
	for _, a := range r.adapters {
		if a.ID() == id {
			return a
		}
	}
	return nil
}
