package domain

// Error codes recorded on a failed task. They are part of the API
// surface: clients branch on Code, Message is for humans.
const (
	// ErrorCodeEnqueueFailed marks a task that could not be handed to
	// the durable queue after its record was created.
	ErrorCodeEnqueueFailed = "enqueue_failed"

	// ErrorCodeTaskFailed marks a provider or tool failure during
	// execution.
	ErrorCodeTaskFailed = "task_failed"

	// ErrorCodeNoProviderAvailable marks a task whose tool policy
	// matched no enabled provider.
	ErrorCodeNoProviderAvailable = "no_provider_available"
)

// TaskError describes why a task reached the failed status.
type TaskError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
