package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"
)

// ClearCommand removes the state of a task.
type ClearCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	taskID string
}

// NewClearCommand returns the clear command.
func NewClearCommand(rootCmd *RootCommand, app *kingpin.Application) *ClearCommand {
	c := &ClearCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("clear", "Remove the status, reports and pid record of a task.")
	c.Cmd.Arg("task", "Task ID.").Required().StringVar(&c.taskID)

	return c
}

func (c ClearCommand) Name() string { return c.Cmd.FullCommand() }

func (c ClearCommand) Run(ctx context.Context) error {
	a, closeAgent, err := c.rootCmd.newAgent(ctx, c.taskID)
	if err != nil {
		return err
	}
	defer closeAgent()

	if err := a.Clear(ctx); err != nil {
		return fmt.Errorf("could not clear task: %w", err)
	}

	return nil
}
