package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	// This is a generic version of the entity-specific not found errors.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity (e.g., a task with an existing id).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidTransition is returned when a status update would move a
	// task along an edge the lifecycle state machine does not permit.
	// Callers racing on the same task treat this as "someone else got
	// there first" and back off.
	ErrInvalidTransition = errors.New("invalid task status transition")

	// ErrInvalidCursor is returned when a listing cursor cannot be parsed.
	ErrInvalidCursor = errors.New("invalid cursor")

	// Entity-specific "not found" errors

	// ErrTaskNotFound indicates that the requested task does not exist in the store.
	ErrTaskNotFound = fmt.Errorf("%w: task", ErrNotFound)

	// ErrSubscriptionNotFound indicates that the user has no active subscription record.
	ErrSubscriptionNotFound = fmt.Errorf("%w: subscription", ErrNotFound)

	// ErrToolNotFound indicates that the requested tool does not exist or is disabled.
	ErrToolNotFound = fmt.Errorf("%w: tool", ErrNotFound)

	// Entity-specific "duplicate" errors

	// ErrDuplicateTask indicates that a task with the same id already exists.
	ErrDuplicateTask = fmt.Errorf("%w: task", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
