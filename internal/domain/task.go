package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusQueued    TaskStatus = "queued"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusSucceeded TaskStatus = "succeeded"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCanceled  TaskStatus = "canceled"
)

// validTransitions defines the task state machine. A status not present
// as a key is terminal.
var validTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusQueued:  {TaskStatusRunning, TaskStatusCanceled},
	TaskStatusRunning: {TaskStatusSucceeded, TaskStatusFailed, TaskStatusCanceled},
}

// IsTerminal reports whether the status admits no further transitions.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusSucceeded, TaskStatusFailed, TaskStatusCanceled:
		return true
	}
	return false
}

// IsValid reports whether s is one of the known status values.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusQueued, TaskStatusRunning, TaskStatusSucceeded,
		TaskStatusFailed, TaskStatusCanceled:
		return true
	}
	return false
}

// CanTransition reports whether the task state machine permits moving
// from one status to another.
func CanTransition(from, to TaskStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Task represents one tool invocation moving through the execution
// lifecycle. Status, ProviderID, ModelID, Artifacts and Error are
// mutated only through the store's status-update operation.
type Task struct {
	// ID is the task's unique identifier
	ID uuid.UUID

	// UserID identifies the caller that submitted the task
	UserID uuid.UUID

	// ToolID references the external tool definition being invoked
	ToolID string

	// Modality is the tool's output modality at submission time. Quota
	// was reserved against it, so releases must use it even if the tool
	// definition changes before the task runs.
	Modality Modality

	// Status is the task's position in the lifecycle state machine
	Status TaskStatus

	// Payload is the caller-supplied input, opaque to the core and
	// passed through to the selected provider
	Payload map[string]interface{}

	// ProviderID and ModelID record the routing decision once a
	// provider has executed the task
	ProviderID string
	ModelID    string

	// Artifacts holds the generated outputs; non-empty only once the
	// task has succeeded
	Artifacts []Artifact

	// Error is set only when the task has failed
	Error *TaskError

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTask creates a queued task for the given caller, tool and payload.
func NewTask(userID uuid.UUID, toolID string, modality Modality, payload map[string]interface{}) *Task {
	now := time.Now().UTC()
	return &Task{
		ID:        uuid.New(),
		UserID:    userID,
		ToolID:    toolID,
		Modality:  modality,
		Status:    TaskStatusQueued,
		Payload:   payload,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
