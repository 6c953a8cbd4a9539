package tools

import (
	"context"

	"github.com/natefry/muse-api/internal/domain"
	"github.com/natefry/muse-api/internal/provider"
	"github.com/natefry/muse-api/internal/store"
)

// defaultTools is the built-in catalog used when no database is
// configured.
var defaultTools = []*Tool{
	{
		ID:          "text.write",
		Title:       "AI Writing",
		Description: "Turn a topic and instructions into editable text.",
		ModalityIn:  []domain.Modality{domain.ModalityText},
		ModalityOut: []domain.Modality{domain.ModalityText},
		ProviderPolicy: &provider.Policy{
			Providers: []string{provider.OpenRouterID, provider.GeminiID, provider.MockID},
		},
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"prompt": map[string]interface{}{"type": "string", "title": "Writing brief"},
				"tone":   map[string]interface{}{"type": "string", "title": "Tone", "default": "neutral"},
			},
			"required": []interface{}{"prompt"},
		},
		Enabled: true,
	},
	{
		ID:          "image.generate",
		Title:       "AI Images",
		Description: "Generate an image from a prompt.",
		ModalityIn:  []domain.Modality{domain.ModalityText},
		ModalityOut: []domain.Modality{domain.ModalityImage},
		ProviderPolicy: &provider.Policy{
			Providers: []string{provider.A2EID, provider.MockID},
		},
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"prompt": map[string]interface{}{"type": "string", "title": "Prompt"},
				"ratio":  map[string]interface{}{"type": "string", "title": "Aspect ratio", "default": "1:1"},
			},
			"required": []interface{}{"prompt"},
		},
		Enabled: true,
	},
	{
		ID:          "video.generate",
		Title:       "AI Video",
		Description: "Generate a short video from a prompt. Runs asynchronously and can take a while.",
		ModalityIn:  []domain.Modality{domain.ModalityText, domain.ModalityImage},
		ModalityOut: []domain.Modality{domain.ModalityVideo},
		ProviderPolicy: &provider.Policy{
			Providers: []string{provider.A2EID, provider.MockID},
		},
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"prompt":    map[string]interface{}{"type": "string", "title": "Prompt"},
				"seedImage": map[string]interface{}{"type": "string", "title": "Reference image (artifact id or URL)"},
			},
			"required": []interface{}{"prompt"},
		},
		Enabled: true,
	},
}

// StaticRegistry serves the built-in tool catalog.
type StaticRegistry struct {
	tools []*Tool
}

// NewStaticRegistry creates a registry over the default catalog.
func NewStaticRegistry() *StaticRegistry {
	return &StaticRegistry{tools: defaultTools}
}

// GetTool implements Registry.
func (r *StaticRegistry) GetTool(ctx context.Context, toolID string) (*Tool, error) {
	for _, t := range r.tools {
		if t.ID == toolID && t.Enabled {
			return t, nil
		}
	}
	return nil, store.ErrToolNotFound
}

// ListTools implements Registry.
func (r *StaticRegistry) ListTools(ctx context.Context) ([]*Tool, error) {
	out := make([]*Tool, 0, len(r.tools))
	for _, t := range r.tools {
		if t.Enabled {
			out = append(out, t)
		}
	}
	return out, nil
}
