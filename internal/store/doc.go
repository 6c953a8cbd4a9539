// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the application's core logic, allowing the dispatcher, worker and
// quota ledger to remain independent of whether they are backed by
// PostgreSQL or the in-memory fallback.
package store
