package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"
)

// RunCommand runs a task in the foreground.
type RunCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	taskID string
	format string
}

// NewRunCommand returns the run command.
func NewRunCommand(rootCmd *RootCommand, app *kingpin.Application) *RunCommand {
	c := &RunCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("run", "Run a task in the foreground and exit with its status code.")
	c.Cmd.Arg("task", "Task ID.").Required().StringVar(&c.taskID)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c RunCommand) Name() string { return c.Cmd.FullCommand() }

func (c RunCommand) Run(ctx context.Context) error {
	a, closeAgent, err := c.rootCmd.newAgent(ctx, c.taskID)
	if err != nil {
		return err
	}
	defer closeAgent()

	code, err := a.Run(ctx)
	if err != nil {
		return fmt.Errorf("could not run task: %w", err)
	}
	c.rootCmd.ExitCode = code

	status, err := a.Status(ctx)
	if err != nil {
		return fmt.Errorf("could not get status: %w", err)
	}
	reports, err := reportsOf(ctx, a, "")
	if err != nil {
		return fmt.Errorf("could not get reports: %w", err)
	}

	p := newPrinter(c.format, c.rootCmd.Stdout)
	if err := p.PrintStatus(taskStatus(ctx, a, c.taskID, status)); err != nil {
		return fmt.Errorf("could not print status: %w", err)
	}
	if err := p.PrintReports(c.taskID, reports); err != nil {
		return fmt.Errorf("could not print reports: %w", err)
	}

	return nil
}
