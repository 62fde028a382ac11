package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/dustin/go-humanize"
)

// LogCommand prints the log file of the detached runs.
type LogCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
}

// NewLogCommand returns the log command.
func NewLogCommand(rootCmd *RootCommand, app *kingpin.Application) *LogCommand {
	c := &LogCommand{rootCmd: rootCmd}
	c.Cmd = app.Command("log", "Print the log of the detached runs.")
	return c
}

func (c LogCommand) Name() string { return c.Cmd.FullCommand() }

func (c LogCommand) Run(ctx context.Context) error {
	f, err := os.Open(c.rootCmd.Config.LogFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("could not open log file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(c.rootCmd.Stdout, f); err != nil {
		return fmt.Errorf("could not print log file: %w", err)
	}

	return nil
}

// TruncateCommand empties the log file of the detached runs.
type TruncateCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
}

// NewTruncateCommand returns the truncate command.
func NewTruncateCommand(rootCmd *RootCommand, app *kingpin.Application) *TruncateCommand {
	c := &TruncateCommand{rootCmd: rootCmd}
	c.Cmd = app.Command("truncate", "Empty the log of the detached runs.")
	return c
}

func (c TruncateCommand) Name() string { return c.Cmd.FullCommand() }

func (c TruncateCommand) Run(ctx context.Context) error {
	path := c.rootCmd.Config.LogFile
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("could not stat log file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil
	}

	if err := os.Truncate(path, 0); err != nil {
		return fmt.Errorf("could not truncate log file: %w", err)
	}
	c.rootCmd.Logger.Infof("Truncated %s (%s)", path, humanize.Bytes(uint64(info.Size())))

	return nil
}
