package printer

import "github.com/slok/tasklib/internal/model"

// TaskStatus is the state of a task as shown to the user.
type TaskStatus struct {
	TaskID  string
	Status  model.Status
	PID     int
	Running bool
}

// PhaseReport is the report of a single task phase.
type PhaseReport struct {
	Phase   model.Phase
	Report  string
	Present bool
}

// Printer knows how to print task information in different formats.
type Printer interface {
	PrintTaskList(tasks []model.TaskDefinition) error
	PrintStatus(status TaskStatus) error
	PrintReports(taskID string, reports []PhaseReport) error
	PrintHistory(runs []model.Run) error
	PrintMessage(msg string) error
}
