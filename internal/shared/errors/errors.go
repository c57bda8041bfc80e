package errors

import "errors"

// Domain errors
var (
	// Scan errors
	ErrEmptyTarget = errors.New("target cannot be empty")
	ErrUnknownTool = errors.New("unknown tool")

	// Evidence errors
	ErrEvidenceNotFound = errors.New("evidence entry not found")

	// Registry errors
	ErrInvalidToolDefinition = errors.New("invalid tool definition")

	// AI errors
	ErrAnalystUnavailable = errors.New("local analyst endpoint unavailable")
)
