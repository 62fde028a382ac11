package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"
)

// HistoryCommand shows the recorded runs of a task.
type HistoryCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	taskID string
	limit  int
	format string
}

// NewHistoryCommand returns the history command.
func NewHistoryCommand(rootCmd *RootCommand, app *kingpin.Application) *HistoryCommand {
	c := &HistoryCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("history", "Show the run history of a task.")
	c.Cmd.Arg("task", "Task ID.").Required().StringVar(&c.taskID)
	c.Cmd.Flag("limit", "Maximum number of runs to show (0 for all).").Default("20").IntVar(&c.limit)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c HistoryCommand) Name() string { return c.Cmd.FullCommand() }

func (c HistoryCommand) Run(ctx context.Context) error {
	lib, err := c.rootCmd.newLibrary()
	if err != nil {
		return err
	}
	if _, err := lib.GetTask(ctx, c.taskID); err != nil {
		return err
	}

	history, closeHistory := c.rootCmd.newHistory(ctx)
	defer closeHistory()

	runs, err := history.ListRuns(ctx, c.taskID, c.limit)
	if err != nil {
		return fmt.Errorf("could not list runs: %w", err)
	}

	p := newPrinter(c.format, c.rootCmd.Stdout)
	if err := p.PrintHistory(runs); err != nil {
		return fmt.Errorf("could not print history: %w", err)
	}

	return nil
}
