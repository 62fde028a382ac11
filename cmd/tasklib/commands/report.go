package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"
)

// ReportCommand shows the phase reports of a task.
type ReportCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	taskID string
	phase  string
	format string
}

// NewReportCommand returns the report command.
func NewReportCommand(rootCmd *RootCommand, app *kingpin.Application) *ReportCommand {
	c := &ReportCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("report", "Show the reports of the last run of a task.")
	c.Cmd.Arg("task", "Task ID.").Required().StringVar(&c.taskID)
	c.Cmd.Flag("phase", "Show only the report of a phase (pre, task, post).").StringVar(&c.phase)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c ReportCommand) Name() string { return c.Cmd.FullCommand() }

func (c ReportCommand) Run(ctx context.Context) error {
	a, closeAgent, err := c.rootCmd.newAgent(ctx, c.taskID)
	if err != nil {
		return err
	}
	defer closeAgent()

	reports, err := reportsOf(ctx, a, c.phase)
	if err != nil {
		return fmt.Errorf("could not get reports: %w", err)
	}

	p := newPrinter(c.format, c.rootCmd.Stdout)
	if err := p.PrintReports(c.taskID, reports); err != nil {
		return fmt.Errorf("could not print reports: %w", err)
	}

	return nil
}
