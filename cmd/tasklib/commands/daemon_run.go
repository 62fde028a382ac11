package commands

import (
	"context"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/tasklib/internal/daemon"
)

// DaemonRunCommand is the body of a detached run.
// This is an internal command spawned by the daemon command, not user-facing.
type DaemonRunCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	taskID  string
	workDir string
}

// NewDaemonRunCommand returns the internal daemon run command.
func NewDaemonRunCommand(rootCmd *RootCommand, app *kingpin.Application) *DaemonRunCommand {
	c := &DaemonRunCommand{rootCmd: rootCmd}

	c.Cmd = app.Command(daemon.RunCommand, "Run a detached task (internal).").Hidden()
	c.Cmd.Arg("task", "Task ID.").Required().StringVar(&c.taskID)
	c.Cmd.Flag("workdir", "Working directory to restore.").StringVar(&c.workDir)

	return c
}

func (c DaemonRunCommand) Name() string { return c.Cmd.FullCommand() }

func (c DaemonRunCommand) Run(ctx context.Context) error {
	a, closeAgent, err := c.rootCmd.newAgent(ctx, c.taskID)
	if err != nil {
		return err
	}
	defer closeAgent()

	c.rootCmd.ExitCode = a.RunDetached(ctx, c.workDir)
	return nil
}
