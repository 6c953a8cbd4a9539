package task

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/natefry/muse-api/internal/domain"
	"github.com/natefry/muse-api/internal/provider"
	"github.com/natefry/muse-api/internal/quota"
	"github.com/natefry/muse-api/internal/redact"
	"github.com/natefry/muse-api/internal/store"
	"github.com/natefry/muse-api/internal/tools"
)

// Worker drives one task from queued to a terminal state. It is the
// only component that advances tasks past queued; both the queue
// consumer and the inline executor call into it.
type Worker struct {
	tasks  store.TaskStore
	tools  tools.Registry
	router *provider.Router
	ledger *quota.Ledger
	logger *slog.Logger
}

// NewWorker creates a worker.
func NewWorker(
	taskStore store.TaskStore,
	registry tools.Registry,
	router *provider.Router,
	ledger *quota.Ledger,
	logger *slog.Logger,
) *Worker {
	return &Worker{
		tasks:  taskStore,
		tools:  registry,
		router: router,
		ledger: ledger,
		logger: logger.With(slog.String("component", "worker")),
	}
}

// Run executes the task with the given id. Adapter and routing errors
// never escape: they are recorded on the task as its terminal failed
// state. The queued-to-running transition is the serialization point:
// when a duplicate delivery races on the same task, the loser gets
// ErrInvalidTransition from the store and backs off without touching
// the provider.
func (w *Worker) Run(ctx context.Context, taskID uuid.UUID) error {
	log := w.logger.With(slog.String("task_id", taskID.String()))

	t, err := w.tasks.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Task vanished (e.g. stale queue delivery); logged, not retried.
			log.Warn("task not found, skipping")
			return nil
		}
		return err
	}

	if t.Status == domain.TaskStatusCanceled {
		log.Info("task canceled before execution, skipping")
		return nil
	}

	err = w.tasks.UpdateTaskStatus(ctx, taskID, domain.TaskStatusRunning, store.TaskUpdate{})
	if err != nil {
		if errors.Is(err, store.ErrInvalidTransition) {
			// Someone else is executing it, or it is already terminal.
			log.Info("task not in queued state, skipping",
				slog.String("status", string(t.Status)))
			return nil
		}
		return err
	}

	log.Info("task running", slog.String("tool_id", t.ToolID))

	// Re-resolve the tool: the policy may have changed since submission
	// and the latest one wins.
	tool, err := w.tools.GetTool(ctx, t.ToolID)
	if err != nil {
		w.fail(ctx, t, domain.ErrorCodeTaskFailed, "tool no longer available")
		return nil
	}
	modality := tool.OutputModality()

	req := provider.GenerateRequest{
		ToolID:   t.ToolID,
		Modality: modality,
		Payload:  t.Payload,
	}

	adapter, model, err := w.router.Pick(req, tool.ProviderPolicy)
	if err != nil {
		log.Warn("no provider available for task", slog.String("error", err.Error()))
		w.fail(ctx, t, domain.ErrorCodeNoProviderAvailable, err.Error())
		return nil
	}
	req.Model = model

	result, err := adapter.Generate(ctx, req)
	if err != nil {
		// The single most important failure boundary: adapter errors are
		// always captured and recorded on the task.
		log.Warn("provider call failed",
			slog.String("provider_id", adapter.ID()),
			slog.String("error", err.Error()))
		w.fail(ctx, t, domain.ErrorCodeTaskFailed, err.Error())
		return nil
	}

	artifacts := buildArtifacts(t.ID, result)
	update := store.TaskUpdate{
		ProviderID: result.ProviderID,
		ModelID:    result.Model,
		Artifacts:  artifacts,
	}
	if err := w.tasks.UpdateTaskStatus(ctx, taskID, domain.TaskStatusSucceeded, update); err != nil {
		if errors.Is(err, store.ErrInvalidTransition) {
			// Canceled mid-flight; the cancel override wins.
			log.Info("task left running state during execution, dropping result")
			return nil
		}
		return err
	}

	log.Info("task succeeded",
		slog.String("provider_id", result.ProviderID),
		slog.Int("artifact_count", len(artifacts)))
	return nil
}

// fail records a terminal failure on the task and releases the quota
// reserved at submission. The task's recorded modality names the keys
// that were reserved; the current tool definition may disagree.
func (w *Worker) fail(ctx context.Context, t *domain.Task, code, message string) {
	// Provider errors can echo request URLs and credentials; the task
	// error is client-visible, so scrub it.
	update := store.TaskUpdate{
		Error: &domain.TaskError{Code: code, Message: redact.String(message)},
	}
	if err := w.tasks.UpdateTaskStatus(ctx, t.ID, domain.TaskStatusFailed, update); err != nil {
		if errors.Is(err, store.ErrInvalidTransition) {
			return
		}
		w.logger.Error("failed to record task failure",
			slog.String("task_id", t.ID.String()),
			slog.String("error", err.Error()))
		return
	}

	w.ledger.ReleaseAll(ctx, t.UserID, quota.KeysFor(t.Modality), 1)
}

// buildArtifacts maps adapter output drafts onto persisted artifacts.
// For externally stored content the object key is the provider's URL;
// inline text becomes the object key itself, mirrored into metadata
// alongside the routing decision.
func buildArtifacts(taskID uuid.UUID, result *provider.Result) []domain.Artifact {
	now := time.Now().UTC()
	artifacts := make([]domain.Artifact, 0, len(result.Artifacts))
	for _, draft := range result.Artifacts {
		objectKey := draft.URL
		if objectKey == "" {
			objectKey = draft.Content
		}

		metadata := make(map[string]interface{}, len(draft.Metadata)+2)
		for k, v := range draft.Metadata {
			metadata[k] = v
		}
		metadata["provider_id"] = result.ProviderID
		if result.Model != "" {
			metadata["model"] = result.Model
		}

		artifacts = append(artifacts, domain.Artifact{
			ID:        uuid.New(),
			TaskID:    taskID,
			Type:      draft.Type,
			ObjectKey: objectKey,
			Metadata:  metadata,
			CreatedAt: now,
		})
	}
	return artifacts
}
