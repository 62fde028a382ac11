package model

// Status represents the current or last state of a task lifecycle.
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

const (
	// CodeAlreadyRunning is the exit code used when a detached run is already alive.
	CodeAlreadyRunning = 8
	// CodeError is the exit code used for invalid metadata and unexpected errors.
	CodeError = 9
)

// Code returns the numeric exit code of the status.
// Unknown statuses map to CodeError.
func (s Status) Code() int {
	switch s {
	case StatusSuccess:
		return 0
	case StatusRunPre:
		return 1
	case StatusRunTask:
		return 2
	case StatusRunPost:
		return 3
	case StatusFailPre:
		return 4
	case StatusFailTask:
		return 5
	case StatusFailPost:
		return 6
	case StatusNotFound:
		return 7
	default:
		return CodeError
	}
}

// Valid returns true if the status is one of the known statuses.
func (s Status) Valid() bool {
	return s.Code() != CodeError
}

// Statuses returns all the known statuses ordered by code.
func Statuses() []Status {
	return []Status{
		StatusSuccess, StatusRunPre, StatusRunTask, StatusRunPost,
		StatusFailPre, StatusFailTask, StatusFailPost, StatusNotFound,
	}
}
