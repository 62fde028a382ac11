package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"
	"gopkg.in/yaml.v3"
)

// ShowCommand prints the definition of a task.
type ShowCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	taskID string
}

// NewShowCommand returns the show command.
func NewShowCommand(rootCmd *RootCommand, app *kingpin.Application) *ShowCommand {
	c := &ShowCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("show", "Show the definition of a task.")
	c.Cmd.Arg("task", "Task ID.").Required().StringVar(&c.taskID)

	return c
}

func (c ShowCommand) Name() string { return c.Cmd.FullCommand() }

func (c ShowCommand) Run(ctx context.Context) error {
	lib, err := c.rootCmd.newLibrary()
	if err != nil {
		return err
	}

	def, err := lib.GetTask(ctx, c.taskID)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(def)
	if err != nil {
		return fmt.Errorf("could not render task: %w", err)
	}

	fmt.Fprint(c.rootCmd.Stdout, string(data))
	return nil
}
