package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"
	"k8s.io/client-go/util/homedir"

	"github.com/slok/tasklib/internal/conventions"
	"github.com/slok/tasklib/internal/daemon"
	"github.com/slok/tasklib/internal/log"
	"github.com/slok/tasklib/internal/model"
	storageio "github.com/slok/tasklib/internal/storage/io"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug      bool
	NoLog      bool
	NoColor    bool
	LoggerType string
	ConfigPath    string
	NoConfig      bool
	TasksDir      string
	TasksPattern  string
	PuppetModules string
	PuppetOptions string
	PIDDir        string
	StatusDir     string
	ReportDir     string
	HistoryDB     string
	NoHistory     bool

	// Config is the effective configuration, ready after LoadConfig.
	Config model.Config
	// ExitCode is the process exit code the executed command asks for.
	ExitCode int

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("debug", "Enable debug mode.").Short('d').BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)
	app.Flag("config", "Path to a configuration file.").Short('c').StringVar(&c.ConfigPath)
	app.Flag("no-config", "Ignore configuration files, only defaults and flags are used.").BoolVar(&c.NoConfig)
	app.Flag("tasks-dir", "Directory of the task library files.").StringVar(&c.TasksDir)
	app.Flag("tasks-pattern", "File name glob of the task library files.").StringVar(&c.TasksPattern)
	app.Flag("puppet-modules", "Puppet modules path of the puppet actions.").StringVar(&c.PuppetModules)
	app.Flag("puppet-options", "Extra options of the puppet actions.").StringVar(&c.PuppetOptions)
	app.Flag("pid-dir", "Directory of the detached runs pid files.").StringVar(&c.PIDDir)
	app.Flag("status-dir", "Directory of the task status files.").StringVar(&c.StatusDir)
	app.Flag("report-dir", "Directory of the task phase reports.").StringVar(&c.ReportDir)
	app.Flag("history-db", "SQLite database of the run history.").StringVar(&c.HistoryDB)
	app.Flag("no-history", "Don't record the run history.").BoolVar(&c.NoHistory)

	return c
}

// LoadConfig resolves the configuration file, loads it and applies the flag overrides.
func (r *RootCommand) LoadConfig(ctx context.Context) error {
	if r.NoConfig {
		r.ConfigPath = ""
	} else {
		r.ConfigPath = ResolveConfigPath(r.ConfigPath, homedir.HomeDir(), fileExists)
	}

	cfg := model.DefaultConfig()
	if r.ConfigPath != "" {
		repo := storageio.NewConfigYAMLRepository(os.DirFS(filepath.Dir(r.ConfigPath)))
		c, err := repo.GetConfig(ctx, filepath.Base(r.ConfigPath))
		if err != nil {
			return fmt.Errorf("could not load config %q: %w", r.ConfigPath, err)
		}
		cfg = c
	}

	cfg = r.applyOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Debug {
		r.Debug = true
	}
	r.Config = cfg

	return nil
}

func (r *RootCommand) applyOverrides(cfg model.Config) model.Config {
	if r.TasksDir != "" {
		cfg.TasksDirectory = r.TasksDir
	}
	if r.TasksPattern != "" {
		cfg.TasksPattern = r.TasksPattern
	}
	if r.PuppetModules != "" {
		cfg.PuppetModules = r.PuppetModules
	}
	if r.PuppetOptions != "" {
		cfg.PuppetOptions = r.PuppetOptions
	}
	if r.PIDDir != "" {
		cfg.PIDDir = r.PIDDir
	}
	if r.StatusDir != "" {
		cfg.StatusDir = r.StatusDir
	}
	if r.ReportDir != "" {
		cfg.ReportDir = r.ReportDir
	}
	if r.HistoryDB != "" {
		cfg.HistoryDB = r.HistoryDB
	}
	if r.NoHistory {
		cfg.HistoryDB = ""
	}
	if r.Debug {
		cfg.Debug = true
	}
	return cfg
}

// ChildArgs returns the global flags a detached child needs to load the same configuration.
func (r *RootCommand) ChildArgs() []string {
	args := []string{"--no-color", "--logger", r.LoggerType}
	args = append(args, daemon.ConfigArgs(r.Config)...)
	if r.ConfigPath != "" {
		path, err := filepath.Abs(r.ConfigPath)
		if err != nil {
			path = r.ConfigPath
		}
		args = append(args, "--config", path)
	}
	if r.Debug {
		args = append(args, "--debug")
	}
	return args
}

// ResolveConfigPath returns the configuration file to load: the explicit one, else
// ./tasklib.yaml, else the user one. Empty means defaults.
func ResolveConfigPath(explicit string, home string, exists func(string) bool) string {
	if explicit != "" {
		return explicit
	}
	if exists(conventions.ConfigFile) {
		return conventions.ConfigFile
	}
	if home != "" {
		if p := conventions.UserConfigPath(home); exists(p) {
			return p
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// ExitCode maps command errors to the process exit codes.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, model.ErrNotFound):
		return model.StatusNotFound.Code()
	case errors.Is(err, model.ErrAlreadyRunning):
		return model.CodeAlreadyRunning
	default:
		return model.CodeError
	}
}
