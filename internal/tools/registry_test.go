package tools

import (
	"context"
	"testing"

	"github.com/natefry/muse-api/internal/domain"
	"github.com/natefry/muse-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticRegistryGetTool(t *testing.T) {
	registry := NewStaticRegistry()
	ctx := context.Background()

	tool, err := registry.GetTool(ctx, "text.write")
	require.NoError(t, err)
	assert.Equal(t, "text.write", tool.ID)
	assert.Equal(t, domain.ModalityText, tool.OutputModality())
	require.NotNil(t, tool.ProviderPolicy)
	assert.NotEmpty(t, tool.ProviderPolicy.Providers)

	_, err = registry.GetTool(ctx, "does.not.exist")
	assert.ErrorIs(t, err, store.ErrToolNotFound)
}

func TestStaticRegistryListTools(t *testing.T) {
	registry := NewStaticRegistry()

	listed, err := registry.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 3)

	ids := make([]string, 0, len(listed))
	for _, tool := range listed {
		ids = append(ids, tool.ID)
	}
	assert.Contains(t, ids, "text.write")
	assert.Contains(t, ids, "image.generate")
	assert.Contains(t, ids, "video.generate")
}

func TestOutputModalityDefaultsToText(t *testing.T) {
	tool := &Tool{ID: "bare"}
	assert.Equal(t, domain.ModalityText, tool.OutputModality())
}
