package repository

import "errors"

// Common repository errors
var (
	// ErrTaskNotFound is returned when a task is absent or not visible to the caller
	ErrTaskNotFound = errors.New("task not found")
)
