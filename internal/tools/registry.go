// Package tools exposes read-only access to tool definitions: the
// declared input/output modalities, the provider policy, and the input
// schema presented to clients. The execution core only ever reads
// tools; administration of the catalog is an external concern.
package tools

import (
	"context"

	"github.com/natefry/muse-api/internal/domain"
	"github.com/natefry/muse-api/internal/provider"
)

// Tool is one named capability users can invoke.
type Tool struct {
	ID             string
	Title          string
	Description    string
	ModalityIn     []domain.Modality
	ModalityOut    []domain.Modality
	ProviderPolicy *provider.Policy
	Schema         map[string]interface{}
	Enabled        bool
}

// OutputModality returns the tool's primary output modality, defaulting
// to text when none is declared.
func (t *Tool) OutputModality() domain.Modality {
	if len(t.ModalityOut) == 0 {
		return domain.ModalityText
	}
	return t.ModalityOut[0]
}

// Registry is the read-only lookup interface over tool definitions.
type Registry interface {
	// GetTool returns the tool with the given id. Disabled or unknown
	// tools yield store.ErrToolNotFound.
	GetTool(ctx context.Context, toolID string) (*Tool, error)

	// ListTools returns all enabled tools.
	ListTools(ctx context.Context) ([]*Tool, error)
}
