// Package task contains the asynchronous execution core: the
// dispatcher that accepts tool invocations and owns task creation, the
// worker that drives a task from queued to a terminal state, and the
// executor strategy that decides between durable-queue and inline
// execution.
package task
