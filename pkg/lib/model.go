package lib

import (
	"errors"
	"time"

	"github.com/slok/tasklib/internal/model"
)

var (
	// ErrNotFound is returned when a task is not in the library.
	ErrNotFound = errors.New("not found")
	// ErrNotValid is returned when a task definition or a request is not valid.
	ErrNotValid = errors.New("not valid")
	// ErrAlreadyRunning is returned when a task has a live detached run.
	ErrAlreadyRunning = errors.New("already running")
)

// Status is the state of a task.
//
// A run moves through:
//
//	run_pre -> run_task -> run_post -> success
//
// and ends on the fail status of the first failed phase. Tasks that never ran
// are not_found.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusRunPre   Status = "run_pre"
	StatusRunTask  Status = "run_task"
	StatusRunPost  Status = "run_post"
	StatusFailPre  Status = "fail_pre"
	StatusFailTask Status = "fail_task"
	StatusFailPost Status = "fail_post"
	StatusNotFound Status = "not_found"
)

// Code returns the numeric exit code of the status, the same the CLI exits with.
func (s Status) Code() int { return model.Status(s).Code() }

// Phase is a step of a task run.
type Phase string

const (
	PhasePre  Phase = "pre"
	PhaseTask Phase = "task"
	PhasePost Phase = "post"
)

// TaskDefinition is the declarative description of a task.
type TaskDefinition struct {
	// ID is the unique task identifier.
	ID string
	// Type is the action kind of the task (shell, exec, puppet).
	Type string
	// Parameters are the action parameters.
	Parameters map[string]any
	// Pre is the optional check that runs before the task.
	Pre map[string]any
	// Post is the optional check that runs after the task.
	Post map[string]any
	// Source is the library file the task was loaded from, if any.
	Source string
}

// RunResult is the outcome of a task run.
type RunResult struct {
	// Status is the final status of the run.
	Status Status
	// Code is the numeric code of Status.
	Code int
	// Reports has the report of every phase that produced one.
	Reports map[Phase]string
}

// TaskStatus is the state of a task.
type TaskStatus struct {
	Status Status
	Code   int
	// PID is the recorded pid of the last detached run, 0 if there is none.
	PID int
	// Running is true when the detached run process is alive.
	Running bool
}

// Run is a recorded task execution.
type Run struct {
	ID         string
	TaskID     string
	Status     Status
	Detached   bool
	PID        int
	StartedAt  time.Time
	FinishedAt *time.Time
}

// --- Conversion helpers ---

func toInternalTaskDefinition(d TaskDefinition) model.TaskDefinition {
	return model.TaskDefinition{
		ID:         d.ID,
		Type:       d.Type,
		Parameters: d.Parameters,
		Pre:        d.Pre,
		Post:       d.Post,
		Source:     d.Source,
	}
}

func toInternalTaskDefinitions(ds []TaskDefinition) []model.TaskDefinition {
	result := make([]model.TaskDefinition, len(ds))
	for i, d := range ds {
		result[i] = toInternalTaskDefinition(d)
	}
	return result
}

func fromInternalTaskDefinition(d model.TaskDefinition) TaskDefinition {
	return TaskDefinition{
		ID:         d.ID,
		Type:       d.ActionType(),
		Parameters: d.Parameters,
		Pre:        d.Pre,
		Post:       d.Post,
		Source:     d.Source,
	}
}

func fromInternalRuns(rs []model.Run) []Run {
	result := make([]Run, len(rs))
	for i, r := range rs {
		result[i] = Run{
			ID:         r.ID,
			TaskID:     r.TaskID,
			Status:     Status(r.Status),
			Detached:   r.Detached,
			PID:        r.PID,
			StartedAt:  r.StartedAt,
			FinishedAt: r.FinishedAt,
		}
	}
	return result
}

func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, model.ErrNotFound):
		return joinErrors(err, ErrNotFound)
	case errors.Is(err, model.ErrAlreadyRunning):
		return joinErrors(err, ErrAlreadyRunning)
	case errors.Is(err, model.ErrNotValid):
		return joinErrors(err, ErrNotValid)
	default:
		return err
	}
}

func joinErrors(original, sentinel error) error {
	return &mappedError{original: original, sentinel: sentinel}
}

type mappedError struct {
	original error
	sentinel error
}

func (e *mappedError) Error() string { return e.original.Error() }

func (e *mappedError) Is(target error) bool {
	return target == e.sentinel
}

func (e *mappedError) Unwrap() error { return e.original }
