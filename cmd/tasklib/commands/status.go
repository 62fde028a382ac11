package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/tasklib/internal/agent"
	"github.com/slok/tasklib/internal/model"
	"github.com/slok/tasklib/internal/printer"
)

// StatusCommand shows the status of a task.
type StatusCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	taskID string
	format string
}

// NewStatusCommand returns the status command.
func NewStatusCommand(rootCmd *RootCommand, app *kingpin.Application) *StatusCommand {
	c := &StatusCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("status", "Show the status of a task and exit with its code.")
	c.Cmd.Arg("task", "Task ID.").Required().StringVar(&c.taskID)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c StatusCommand) Name() string { return c.Cmd.FullCommand() }

func (c StatusCommand) Run(ctx context.Context) error {
	a, closeAgent, err := c.rootCmd.newAgent(ctx, c.taskID)
	if err != nil {
		return err
	}
	defer closeAgent()

	status, err := a.Status(ctx)
	if err != nil {
		return fmt.Errorf("could not get status: %w", err)
	}
	c.rootCmd.ExitCode = status.Code()

	p := newPrinter(c.format, c.rootCmd.Stdout)
	if err := p.PrintStatus(taskStatus(ctx, a, c.taskID, status)); err != nil {
		return fmt.Errorf("could not print status: %w", err)
	}

	return nil
}

func taskStatus(ctx context.Context, a *agent.Agent, taskID string, status model.Status) printer.TaskStatus {
	ts := printer.TaskStatus{TaskID: taskID, Status: status}
	if pid, running, err := a.IsRunning(ctx); err == nil {
		ts.PID = pid
		ts.Running = running
	}
	return ts
}
