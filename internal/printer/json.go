package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/slok/tasklib/internal/model"
)

// JSONPrinter prints task information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

type taskItem struct {
	ID     string   `json:"id"`
	Type   string   `json:"type"`
	Phases []string `json:"phases"`
	Source string   `json:"source,omitempty"`
}

type statusOutput struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Code    int    `json:"code"`
	PID     int    `json:"pid,omitempty"`
	Running bool   `json:"running"`
}

type reportOutput struct {
	TaskID string  `json:"task_id"`
	Phase  string  `json:"phase"`
	Report *string `json:"report"`
}

type runOutput struct {
	ID         string     `json:"id"`
	TaskID     string     `json:"task_id"`
	Status     string     `json:"status"`
	Detached   bool       `json:"detached"`
	PID        int        `json:"pid"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
}

type messageOutput struct {
	Message string `json:"message"`
}

func (j *JSONPrinter) encode(v any) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintTaskList prints task definitions in JSON format.
func (j *JSONPrinter) PrintTaskList(tasks []model.TaskDefinition) error {
	items := make([]taskItem, len(tasks))
	for i, d := range tasks {
		phases := []string{}
		for _, p := range d.PresentPhases() {
			phases = append(phases, string(p))
		}
		items[i] = taskItem{
			ID:     d.ID,
			Type:   d.ActionType(),
			Phases: phases,
			Source: d.Source,
		}
	}

	return j.encode(items)
}

// PrintStatus prints the status of a task in JSON format.
func (j *JSONPrinter) PrintStatus(status TaskStatus) error {
	return j.encode(statusOutput{
		TaskID:  status.TaskID,
		Status:  string(status.Status),
		Code:    status.Status.Code(),
		PID:     status.PID,
		Running: status.Running,
	})
}

// PrintReports prints phase reports in JSON format, missing reports are null.
func (j *JSONPrinter) PrintReports(taskID string, reports []PhaseReport) error {
	output := make([]reportOutput, len(reports))
	for i, r := range reports {
		output[i] = reportOutput{TaskID: taskID, Phase: string(r.Phase)}
		if r.Present {
			report := r.Report
			output[i].Report = &report
		}
	}

	return j.encode(output)
}

// PrintHistory prints task runs in JSON format.
func (j *JSONPrinter) PrintHistory(runs []model.Run) error {
	output := make([]runOutput, len(runs))
	for i, r := range runs {
		output[i] = runOutput{
			ID:        r.ID,
			TaskID:    r.TaskID,
			Status:    string(r.Status),
			Detached:  r.Detached,
			PID:       r.PID,
			StartedAt: r.StartedAt.UTC(),
		}
		if r.FinishedAt != nil {
			utcTime := r.FinishedAt.UTC()
			output[i].FinishedAt = &utcTime
		}
	}

	return j.encode(output)
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	return j.encode(messageOutput{Message: msg})
}
