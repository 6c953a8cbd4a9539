// Package queue provides the durable Redis-backed task queue. The
// producer side pushes task ids onto a Redis list; a pool of consumer
// goroutines blocks on the list and hands each id to a handler.
//
// Only the task id crosses the queue. The task record in the store is
// the source of truth, so a stale or duplicate delivery is harmless:
// the handler re-reads the task and skips anything no longer queued.
package queue
