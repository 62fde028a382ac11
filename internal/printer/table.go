package printer

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/slok/tasklib/internal/model"
)

// TablePrinter prints task information in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintTaskList prints task definitions in a table format.
func (t *TablePrinter) PrintTaskList(tasks []model.TaskDefinition) error {
	if len(tasks) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tTYPE\tPHASES")
	for _, d := range tasks {
		phases := make([]string, 0, 3)
		for _, p := range d.PresentPhases() {
			phases = append(phases, string(p))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", d.ID, d.ActionType(), strings.Join(phases, ","))
	}

	return nil
}

// PrintStatus prints the status of a task.
func (t *TablePrinter) PrintStatus(status TaskStatus) error {
	fmt.Fprintf(t.writer, "Task:     %s\n", status.TaskID)
	fmt.Fprintf(t.writer, "Status:   %s\n", status.Status)
	fmt.Fprintf(t.writer, "Code:     %d\n", status.Status.Code())

	if status.PID > 0 {
		state := "dead"
		if status.Running {
			state = "running"
		}
		fmt.Fprintf(t.writer, "PID:      %d (%s)\n", status.PID, state)
	}

	return nil
}

// PrintReports prints phase reports. A single report is printed raw.
func (t *TablePrinter) PrintReports(taskID string, reports []PhaseReport) error {
	if len(reports) == 1 {
		if reports[0].Present {
			fmt.Fprint(t.writer, reports[0].Report)
		}
		return nil
	}

	for _, r := range reports {
		fmt.Fprintf(t.writer, "=== %s %s ===\n", taskID, r.Phase)
		if !r.Present {
			fmt.Fprintln(t.writer, "(no report)")
			continue
		}
		fmt.Fprint(t.writer, r.Report)
		if !strings.HasSuffix(r.Report, "\n") {
			fmt.Fprintln(t.writer)
		}
	}

	return nil
}

// PrintHistory prints task runs in a table format.
func (t *TablePrinter) PrintHistory(runs []model.Run) error {
	if len(runs) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tSTATUS\tMODE\tPID\tSTARTED\tDURATION")
	for _, r := range runs {
		mode := "foreground"
		if r.Detached {
			mode = "detached"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ID,
			r.Status,
			mode,
			r.PID,
			fmt.Sprintf("%s (%s)", FormatTimestamp(r.StartedAt), humanize.Time(r.StartedAt)),
			FormatDuration(r.StartedAt, r.FinishedAt),
		)
	}

	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}
