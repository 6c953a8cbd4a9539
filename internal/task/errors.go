package task

import (
	"errors"

	"github.com/natefry/muse-api/internal/quota"
)

// Submission errors surfaced to the caller before any task is created.
var (
	// ErrUnknownTool is returned when the tool does not exist or is
	// disabled.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrQuotaExceeded is returned when the caller's quota cannot cover
	// the submission. It is the ledger's sentinel so callers can match
	// it at either layer.
	ErrQuotaExceeded = quota.ErrQuotaExceeded
)
