package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"
	"gopkg.in/yaml.v3"
)

// ConfCommand prints the effective configuration.
type ConfCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
}

// NewConfCommand returns the conf command.
func NewConfCommand(rootCmd *RootCommand, app *kingpin.Application) *ConfCommand {
	c := &ConfCommand{rootCmd: rootCmd}
	c.Cmd = app.Command("conf", "Show the effective configuration.")
	return c
}

func (c ConfCommand) Name() string { return c.Cmd.FullCommand() }

func (c ConfCommand) Run(ctx context.Context) error {
	data, err := yaml.Marshal(c.rootCmd.Config)
	if err != nil {
		return fmt.Errorf("could not render config: %w", err)
	}

	if c.rootCmd.ConfigPath != "" {
		fmt.Fprintf(c.rootCmd.Stdout, "# %s\n", c.rootCmd.ConfigPath)
	}
	fmt.Fprint(c.rootCmd.Stdout, string(data))
	return nil
}
