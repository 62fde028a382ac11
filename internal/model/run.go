package model

import "time"

// Run is a single execution of a task as kept by the run history.
type Run struct {
	ID         string
	TaskID     string
	Status     Status
	Detached   bool
	PID        int
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Finished returns true if the run reached a final status.
func (r Run) Finished() bool {
	return r.FinishedAt != nil
}
