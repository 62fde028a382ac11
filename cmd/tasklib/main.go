package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/run"
	"github.com/sirupsen/logrus"

	"github.com/slok/tasklib/cmd/tasklib/commands"
	"github.com/slok/tasklib/internal/log"
	loglogrus "github.com/slok/tasklib/internal/log/logrus"
	"github.com/slok/tasklib/internal/model"
)

const (
	// Version is the application version (set via ldflags).
	Version = "dev"
)

// Run runs the main application and returns the process exit code.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) (code int, err error) {
	app := kingpin.New("tasklib", "Task library runner: runs tasks with pre and post checks and keeps their status and reports.")
	app.DefaultEnvars()
	rootCmd := commands.NewRootCommand(app)

	// Setup commands (registers flags).
	runCmd := commands.NewRunCommand(rootCmd, app)
	daemonCmd := commands.NewDaemonCommand(rootCmd, app)
	statusCmd := commands.NewStatusCommand(rootCmd, app)
	reportCmd := commands.NewReportCommand(rootCmd, app)
	clearCmd := commands.NewClearCommand(rootCmd, app)
	listCmd := commands.NewListCommand(rootCmd, app)
	showCmd := commands.NewShowCommand(rootCmd, app)
	confCmd := commands.NewConfCommand(rootCmd, app)
	logCmd := commands.NewLogCommand(rootCmd, app)
	truncateCmd := commands.NewTruncateCommand(rootCmd, app)
	historyCmd := commands.NewHistoryCommand(rootCmd, app)
	daemonRunCmd := commands.NewDaemonRunCommand(rootCmd, app)

	cmds := map[string]commands.Command{
		runCmd.Name():       runCmd,
		daemonCmd.Name():    daemonCmd,
		statusCmd.Name():    statusCmd,
		reportCmd.Name():    reportCmd,
		clearCmd.Name():     clearCmd,
		listCmd.Name():      listCmd,
		showCmd.Name():      showCmd,
		confCmd.Name():      confCmd,
		logCmd.Name():       logCmd,
		truncateCmd.Name():  truncateCmd,
		historyCmd.Name():   historyCmd,
		daemonRunCmd.Name(): daemonRunCmd,
	}

	// Parse command.
	cmdName, err := app.Parse(args[1:])
	if err != nil {
		return model.CodeError, fmt.Errorf("invalid command configuration: %w", err)
	}

	// Set standard input/output.
	rootCmd.Stdin = stdin
	rootCmd.Stdout = stdout
	rootCmd.Stderr = stderr

	if err := rootCmd.LoadConfig(ctx); err != nil {
		return model.CodeError, fmt.Errorf("invalid configuration: %w", err)
	}

	// Auto-suppress logging for commands that produce structured output (table/JSON)
	// to prevent log noise from mixing with printer output in the terminal.
	// Users can still enable logging with --debug.
	printerCommands := map[string]bool{
		"list":    true,
		"status":  true,
		"report":  true,
		"history": true,
		"show":    true,
		"conf":    true,
		"log":     true,
	}
	if printerCommands[cmdName] && !rootCmd.Debug {
		rootCmd.NoLog = true
	}

	// Set logger.
	rootCmd.Logger = getLogger(ctx, *rootCmd)

	var g run.Group

	// OS signals.
	{
		signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer signalCancel()

		g.Add(
			func() error {
				<-signalCtx.Done()
				rootCmd.Logger.Debugf("Termination signal received")
				return nil
			},
			func(_ error) {
				signalCancel()
			},
		)
	}

	// Execute command.
	{
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g.Add(
			func() error {
				err := cmds[cmdName].Run(ctx)
				if err != nil {
					return fmt.Errorf("%q command failed: %w", cmdName, err)
				}
				return nil
			},
			func(_ error) {
				cancel()
			},
		)
	}

	if err := g.Run(); err != nil {
		return commands.ExitCode(err), err
	}

	return rootCmd.ExitCode, nil
}

// getLogger returns the application logger.
func getLogger(ctx context.Context, config commands.RootCommand) log.Logger {
	if config.NoLog {
		return log.Noop
	}

	// If logger not disabled use logrus logger.
	logrusLog := logrus.New()
	logrusLog.Out = config.Stderr // By default logger goes to stderr (so it can split stdout prints).
	logrusLogEntry := logrus.NewEntry(logrusLog)

	if config.Debug {
		logrusLogEntry.Logger.SetLevel(logrus.DebugLevel)
	}

	// Log format.
	switch config.LoggerType {
	case commands.LoggerTypeDefault:
		logrusLogEntry.Logger.SetFormatter(&logrus.TextFormatter{
			ForceColors:   !config.NoColor,
			DisableColors: config.NoColor,
		})
	case commands.LoggerTypeJSON:
		logrusLogEntry.Logger.SetFormatter(&logrus.JSONFormatter{})
	}

	logger := loglogrus.NewLogrus(logrusLogEntry).WithValues(log.Kv{
		"version": Version,
	})

	logger.Debugf("Debug level is enabled") // Will log only when debug enabled.

	return logger
}

func main() {
	ctx := context.Background()
	code, err := Run(ctx, os.Args, os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	os.Exit(code)
}
