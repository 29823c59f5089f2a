package service

import "errors"

var (
	// ErrValidation marks malformed input such as an empty title.
	ErrValidation = errors.New("validation failed")
	// ErrTaskNotFound is returned for absent tasks and for tasks the caller may not see.
	ErrTaskNotFound = errors.New("task not found")
	// ErrUserNotFound is returned when a share target does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrAlreadyShared is returned when the target already collaborates on the task.
	ErrAlreadyShared = errors.New("task already shared with this user")
	// ErrStore wraps failures of the underlying task or user store.
	ErrStore = errors.New("store error")
)
