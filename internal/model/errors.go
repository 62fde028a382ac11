package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a resource already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned when a resource is not valid (missing critical items in metadata).
	ErrNotValid = errors.New("not valid")
	// ErrActionFailed is returned when an action underlying operation reports non-success.
	ErrActionFailed = errors.New("action failed")
	// ErrAlreadyRunning is returned when a task is already being executed by another process.
	ErrAlreadyRunning = errors.New("already running")
)

// ActionFailedError is the detailed error of a failed action.
type ActionFailedError struct {
	TaskID     string
	ActionKind string
	ExitCode   int
}

func (e *ActionFailedError) Error() string {
	return fmt.Sprintf("task %q action %q have failed with exit code %d", e.TaskID, e.ActionKind, e.ExitCode)
}

func (e *ActionFailedError) Unwrap() error { return ErrActionFailed }

// AlreadyRunningError is the detailed error of a task that has a live detached run.
type AlreadyRunningError struct {
	TaskID string
	PID    int
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("task %q is already running at pid %d", e.TaskID, e.PID)
}

func (e *AlreadyRunningError) Unwrap() error { return ErrAlreadyRunning }
