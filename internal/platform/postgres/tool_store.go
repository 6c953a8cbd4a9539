package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/natefry/muse-api/internal/provider"
	"github.com/natefry/muse-api/internal/store"
	"github.com/natefry/muse-api/internal/tools"
)

// PostgresToolRegistry implements tools.Registry over the tools table,
// for deployments that manage the catalog in the database instead of
// the built-in static set.
type PostgresToolRegistry struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresToolRegistry creates a tool registry.
func NewPostgresToolRegistry(db store.DBTX, logger *slog.Logger) *PostgresToolRegistry {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresToolRegistry{
		db:     db,
		logger: logger.With(slog.String("component", "tool_registry")),
	}
}

var _ tools.Registry = (*PostgresToolRegistry)(nil)

// GetTool implements tools.Registry.
func (r *PostgresToolRegistry) GetTool(ctx context.Context, toolID string) (*tools.Tool, error) {
	query := `
		SELECT id, title, description, modality_in, modality_out,
		       provider_policy, schema, enabled
		FROM tools
		WHERE id = $1 AND enabled = TRUE
	`
	tool, err := scanTool(r.db.QueryRowContext(ctx, query, toolID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrToolNotFound
		}
		return nil, MapError(err)
	}
	return tool, nil
}

// ListTools implements tools.Registry.
func (r *PostgresToolRegistry) ListTools(ctx context.Context) ([]*tools.Tool, error) {
	query := `
		SELECT id, title, description, modality_in, modality_out,
		       provider_policy, schema, enabled
		FROM tools
		WHERE enabled = TRUE
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []*tools.Tool
	for rows.Next() {
		tool, err := scanTool(rows)
		if err != nil {
			return nil, MapError(err)
		}
		out = append(out, tool)
	}
	return out, MapError(rows.Err())
}

func scanTool(row rowScanner) (*tools.Tool, error) {
	var tool tools.Tool
	var modalityIn, modalityOut, policy, schema []byte

	err := row.Scan(
		&tool.ID,
		&tool.Title,
		&tool.Description,
		&modalityIn,
		&modalityOut,
		&policy,
		&schema,
		&tool.Enabled,
	)
	if err != nil {
		return nil, err
	}

	if len(modalityIn) > 0 {
		if err := json.Unmarshal(modalityIn, &tool.ModalityIn); err != nil {
			return nil, fmt.Errorf("failed to unmarshal input modalities: %w", err)
		}
	}
	if len(modalityOut) > 0 {
		if err := json.Unmarshal(modalityOut, &tool.ModalityOut); err != nil {
			return nil, fmt.Errorf("failed to unmarshal output modalities: %w", err)
		}
	}
	if len(policy) > 0 {
		var p provider.Policy
		if err := json.Unmarshal(policy, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal provider policy: %w", err)
		}
		tool.ProviderPolicy = &p
	}
	if len(schema) > 0 {
		if err := json.Unmarshal(schema, &tool.Schema); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tool schema: %w", err)
		}
	}

	return &tool, nil
}
