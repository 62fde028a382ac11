package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"
)

// DaemonCommand starts a detached run of a task.
type DaemonCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	taskID string
}

// NewDaemonCommand returns the daemon command.
func NewDaemonCommand(rootCmd *RootCommand, app *kingpin.Application) *DaemonCommand {
	c := &DaemonCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("daemon", "Run a task in the background.")
	c.Cmd.Arg("task", "Task ID.").Required().StringVar(&c.taskID)

	return c
}

func (c DaemonCommand) Name() string { return c.Cmd.FullCommand() }

func (c DaemonCommand) Run(ctx context.Context) error {
	a, closeAgent, err := c.rootCmd.newAgent(ctx, c.taskID)
	if err != nil {
		return err
	}
	defer closeAgent()

	pid, err := a.Daemon(ctx)
	if err != nil {
		return err
	}

	p := newPrinter("table", c.rootCmd.Stdout)
	return p.PrintMessage(fmt.Sprintf("Task %q running in the background with pid %d", c.taskID, pid))
}
