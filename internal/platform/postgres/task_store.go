package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/natefry/muse-api/internal/domain"
	"github.com/natefry/muse-api/internal/platform/logger"
	"github.com/natefry/muse-api/internal/store"
)

// PostgresTaskStore implements store.TaskStore on PostgreSQL.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a task store over the given connection
// or transaction.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

var _ store.TaskStore = (*PostgresTaskStore)(nil)

// allStatuses enumerates every task status for transition checks.
var allStatuses = []domain.TaskStatus{
	domain.TaskStatusQueued,
	domain.TaskStatusRunning,
	domain.TaskStatusSucceeded,
	domain.TaskStatusFailed,
	domain.TaskStatusCanceled,
}

// sourcesFor returns the statuses from which `to` is reachable.
func sourcesFor(to domain.TaskStatus) []string {
	var sources []string
	for _, from := range allStatuses {
		if domain.CanTransition(from, to) {
			sources = append(sources, string(from))
		}
	}
	return sources
}

// CreateTask implements store.TaskStore.
func (s *PostgresTaskStore) CreateTask(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	payload, err := json.Marshal(task.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal task payload: %w", err)
	}

	query := `
		INSERT INTO tasks (id, user_id, tool_id, modality, status, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(ctx, query,
		task.ID,
		task.UserID,
		task.ToolID,
		task.Modality,
		task.Status,
		payload,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return store.ErrDuplicateTask
		}
		log.Error("failed to create task",
			slog.String("task_id", task.ID.String()),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	return nil
}

// GetTask implements store.TaskStore.
func (s *PostgresTaskStore) GetTask(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	query := `
		SELECT id, user_id, tool_id, modality, status, payload, provider_id, model_id,
		       error_code, error_message, created_at, updated_at
		FROM tasks
		WHERE id = $1
	`
	task, err := s.scanTask(s.db.QueryRowContext(ctx, query, taskID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, MapError(err)
	}

	if err := s.loadArtifacts(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateTaskStatus implements store.TaskStore. The transition check is
// a single conditional UPDATE whose WHERE clause only matches rows in
// a status the lifecycle allows as a source for the target; concurrent
// updaters race on the row and exactly one wins.
func (s *PostgresTaskStore) UpdateTaskStatus(
	ctx context.Context,
	taskID uuid.UUID,
	status domain.TaskStatus,
	update store.TaskUpdate,
) error {
	// Status and artifacts must land together; when we hold a plain
	// connection pool, run the update inside a transaction so readers
	// never observe a succeeded task without its artifacts.
	if db, ok := s.db.(*sql.DB); ok && len(update.Artifacts) > 0 {
		return store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
			txStore := NewPostgresTaskStore(tx, s.logger)
			return txStore.updateTaskStatus(ctx, taskID, status, update)
		})
	}
	return s.updateTaskStatus(ctx, taskID, status, update)
}

func (s *PostgresTaskStore) updateTaskStatus(
	ctx context.Context,
	taskID uuid.UUID,
	status domain.TaskStatus,
	update store.TaskUpdate,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var errCode, errMessage sql.NullString
	if update.Error != nil {
		errCode = sql.NullString{String: update.Error.Code, Valid: true}
		errMessage = sql.NullString{String: update.Error.Message, Valid: true}
	}

	query := `
		UPDATE tasks
		SET status = $2,
		    provider_id = COALESCE(NULLIF($3, ''), provider_id),
		    model_id = COALESCE(NULLIF($4, ''), model_id),
		    error_code = COALESCE($5, error_code),
		    error_message = COALESCE($6, error_message),
		    updated_at = $7
		WHERE id = $1 AND status = ANY($8)
	`
	res, err := s.db.ExecContext(ctx, query,
		taskID,
		status,
		update.ProviderID,
		update.ModelID,
		errCode,
		errMessage,
		time.Now().UTC(),
		sourcesFor(status),
	)
	if err != nil {
		log.Error("failed to update task status",
			slog.String("task_id", taskID.String()),
			slog.String("status", string(status)),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return MapError(err)
	}
	if affected == 0 {
		// Either the task is gone or it sits in a status the
		// transition does not accept.
		var exists bool
		err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)`, taskID).Scan(&exists)
		if err != nil {
			return MapError(err)
		}
		if !exists {
			return store.ErrTaskNotFound
		}
		return store.ErrInvalidTransition
	}

	for _, artifact := range update.Artifacts {
		if err := s.insertArtifact(ctx, taskID, artifact); err != nil {
			log.Error("failed to insert task artifact",
				slog.String("task_id", taskID.String()),
				slog.String("artifact_id", artifact.ID.String()),
				slog.String("error", err.Error()))
			return err
		}
	}

	return nil
}

// ListTasks implements store.TaskStore. Ordering and cursor semantics
// match the in-memory store: creation time descending, cursor is the
// RFC 3339 creation timestamp of the previous page's last item.
func (s *PostgresTaskStore) ListTasks(ctx context.Context, filter store.TaskFilter) (*store.TaskPage, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, user_id, tool_id, modality, status, payload, provider_id, model_id,
		       error_code, error_message, created_at, updated_at
		FROM tasks
		WHERE user_id = $1
	`
	args := []interface{}{filter.UserID}
	if filter.Cursor != "" {
		cursorTime, err := time.Parse(time.RFC3339Nano, filter.Cursor)
		if err != nil {
			return nil, store.ErrInvalidCursor
		}
		query += ` AND created_at < $2`
		args = append(args, cursorTime)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var items []*domain.Task
	for rows.Next() {
		task, err := s.scanTask(rows)
		if err != nil {
			return nil, MapError(err)
		}
		items = append(items, task)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	page := &store.TaskPage{}
	if len(items) > limit {
		items = items[:limit]
		page.NextCursor = items[len(items)-1].CreatedAt.Format(time.RFC3339Nano)
	}
	for _, task := range items {
		if err := s.loadArtifacts(ctx, task); err != nil {
			return nil, err
		}
	}
	page.Items = items

	return page, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *PostgresTaskStore) scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	var payload []byte
	var providerID, modelID, errCode, errMessage sql.NullString

	err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.ToolID,
		&task.Modality,
		&task.Status,
		&payload,
		&providerID,
		&modelID,
		&errCode,
		&errMessage,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &task.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal task payload: %w", err)
		}
	}
	task.ProviderID = providerID.String
	task.ModelID = modelID.String
	if errCode.Valid {
		task.Error = &domain.TaskError{Code: errCode.String, Message: errMessage.String}
	}

	return &task, nil
}

func (s *PostgresTaskStore) insertArtifact(ctx context.Context, taskID uuid.UUID, artifact domain.Artifact) error {
	metadata, err := json.Marshal(artifact.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact metadata: %w", err)
	}

	query := `
		INSERT INTO task_artifacts (id, task_id, type, object_key, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.db.ExecContext(ctx, query,
		artifact.ID,
		taskID,
		artifact.Type,
		artifact.ObjectKey,
		metadata,
		artifact.CreatedAt,
	)
	return MapError(err)
}

func (s *PostgresTaskStore) loadArtifacts(ctx context.Context, task *domain.Task) error {
	query := `
		SELECT id, task_id, type, object_key, metadata, created_at
		FROM task_artifacts
		WHERE task_id = $1
		ORDER BY created_at
	`
	rows, err := s.db.QueryContext(ctx, query, task.ID)
	if err != nil {
		return MapError(err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var artifact domain.Artifact
		var metadata []byte
		if err := rows.Scan(
			&artifact.ID,
			&artifact.TaskID,
			&artifact.Type,
			&artifact.ObjectKey,
			&metadata,
			&artifact.CreatedAt,
		); err != nil {
			return MapError(err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &artifact.Metadata); err != nil {
				return fmt.Errorf("failed to unmarshal artifact metadata: %w", err)
			}
		}
		task.Artifacts = append(task.Artifacts, artifact)
	}
	return MapError(rows.Err())
}
