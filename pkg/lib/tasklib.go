package lib

import (
	"context"
	"fmt"

	"github.com/slok/tasklib/internal/action"
	"github.com/slok/tasklib/internal/agent"
	"github.com/slok/tasklib/internal/daemon"
	"github.com/slok/tasklib/internal/log"
	"github.com/slok/tasklib/internal/model"
	"github.com/slok/tasklib/internal/storage"
	"github.com/slok/tasklib/internal/storage/file"
	storageio "github.com/slok/tasklib/internal/storage/io"
	"github.com/slok/tasklib/internal/storage/memory"
	"github.com/slok/tasklib/internal/storage/sqlite"
)

// Config configures the SDK client.
//
// All fields are optional. Empty directories and puppet settings use the same
// defaults as the tasklib CLI.
type Config struct {
	// TasksDirectory is the root of the task library.
	// Ignored when Tasks is set.
	TasksDirectory string
	// TasksPattern is the file name glob of the task library files.
	// Default: "*tasks.yaml".
	TasksPattern string

	// Tasks are served as the task library instead of the library directory.
	Tasks []TaskDefinition

	// InMemory keeps the task state and the run history in memory.
	InMemory bool

	// PIDDir, StatusDir and ReportDir are the state directories, shared with the CLI.
	PIDDir    string
	StatusDir string
	ReportDir string

	// HistoryDB is the SQLite database of the run history.
	// Default: empty, runs are not recorded.
	HistoryDB string

	PuppetModules string
	PuppetOptions string

	// DaemonBinary is the tasklib binary used by [Client.DaemonTask].
	// Default: empty, detached runs are not available.
	DaemonBinary string
	// DaemonLogFile receives the output of the detached runs.
	DaemonLogFile string

	// Logger receives log output from the SDK.
	// Default: noop (silent). See the log sub-package for the interface.
	Logger log.Logger
}

func (c *Config) defaults() error {
	def := model.DefaultConfig()

	if c.TasksDirectory == "" {
		c.TasksDirectory = def.TasksDirectory
	}
	if c.TasksPattern == "" {
		c.TasksPattern = def.TasksPattern
	}
	if c.PIDDir == "" {
		c.PIDDir = def.PIDDir
	}
	if c.StatusDir == "" {
		c.StatusDir = def.StatusDir
	}
	if c.ReportDir == "" {
		c.ReportDir = def.ReportDir
	}
	if c.PuppetModules == "" {
		c.PuppetModules = def.PuppetModules
	}
	if c.PuppetOptions == "" {
		c.PuppetOptions = def.PuppetOptions
	}
	if c.DaemonBinary != "" && (c.InMemory || len(c.Tasks) > 0) {
		return fmt.Errorf("detached runs can't use in memory tasks or state: %w", ErrNotValid)
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Client is the SDK entry point to run the tasks of a library.
//
// Create a Client with [New] and release its resources with [Client.Close].
type Client struct {
	library storage.LibraryRepository
	store   storage.StateRepository
	history storage.HistoryRepository
	actions *action.Registry
	spawner agent.Spawner
	logger  log.Logger
	closeFn func() error
}

// New creates a new SDK client.
//
// The caller must call [Client.Close] when done to release the history database.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	c := &Client{logger: cfg.Logger}

	registry, err := action.NewDefaultRegistry(action.RegistryConfig{
		PuppetModules: cfg.PuppetModules,
		PuppetOptions: cfg.PuppetOptions,
		Logger:        cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create actions registry: %w", err)
	}
	c.actions = registry

	var mem *memory.Repository
	if cfg.InMemory || len(cfg.Tasks) > 0 {
		m, err := memory.NewRepository(memory.RepositoryConfig{
			Tasks:  toInternalTaskDefinitions(cfg.Tasks),
			Logger: cfg.Logger,
		})
		if err != nil {
			return nil, mapError(fmt.Errorf("could not create memory repository: %w", err))
		}
		mem = m
	}

	// Library.
	if len(cfg.Tasks) > 0 {
		c.library = mem
	} else {
		lib, err := storageio.NewLibraryYAMLRepository(storageio.LibraryYAMLRepositoryConfig{
			Directory: cfg.TasksDirectory,
			Pattern:   cfg.TasksPattern,
			Kinds:     registry,
			Logger:    cfg.Logger,
		})
		if err != nil {
			return nil, mapError(fmt.Errorf("could not create task library: %w", err))
		}
		c.library = lib
	}

	// State and history.
	switch {
	case cfg.InMemory:
		c.store = mem
		c.history = mem
	default:
		store, err := file.NewRepository(file.RepositoryConfig{
			PIDDir:    cfg.PIDDir,
			StatusDir: cfg.StatusDir,
			ReportDir: cfg.ReportDir,
			Logger:    cfg.Logger,
		})
		if err != nil {
			return nil, mapError(fmt.Errorf("could not create state store: %w", err))
		}
		c.store = store
		c.history = storage.NoopHistory

		if cfg.HistoryDB != "" {
			repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
				DBPath: cfg.HistoryDB,
				Logger: cfg.Logger,
			})
			if err != nil {
				return nil, fmt.Errorf("could not create history repository: %w", err)
			}
			c.history = repo
			c.closeFn = repo.Close
		}
	}

	if cfg.DaemonBinary != "" {
		spawner, err := daemon.NewExecSpawner(daemon.ExecSpawnerConfig{
			Binary:  cfg.DaemonBinary,
			Args:    daemonArgs(cfg),
			LogFile: cfg.DaemonLogFile,
			Logger:  cfg.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create spawner: %w", err)
		}
		c.spawner = spawner
	}

	return c, nil
}

// daemonArgs are the global flags that give the detached child the client configuration,
// config files are ignored so nothing on the host can change it.
func daemonArgs(cfg Config) []string {
	args := []string{"--no-color", "--no-config"}
	return append(args, daemon.ConfigArgs(model.Config{
		TasksDirectory: cfg.TasksDirectory,
		TasksPattern:   cfg.TasksPattern,
		PuppetModules:  cfg.PuppetModules,
		PuppetOptions:  cfg.PuppetOptions,
		PIDDir:         cfg.PIDDir,
		StatusDir:      cfg.StatusDir,
		ReportDir:      cfg.ReportDir,
		HistoryDB:      cfg.HistoryDB,
	})...)
}

// Close releases resources held by the client.
// After Close returns, the client must not be used.
func (c *Client) Close() error {
	if c.closeFn != nil {
		return c.closeFn()
	}
	return nil
}

func (c *Client) newAgent(ctx context.Context, taskID string) (*agent.Agent, error) {
	a, err := agent.New(ctx, agent.Config{
		TaskID:         taskID,
		Library:        c.library,
		Store:          c.store,
		History:        c.history,
		Actions:        c.actions,
		Spawner:        c.spawner,
		ProcessChecker: daemon.SignalChecker{},
		Logger:         c.logger,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return a, nil
}

// RunTask runs a task in the foreground and returns its outcome.
//
// A task that fails on one of its phases is not an error, the failure is on the
// returned status.
func (c *Client) RunTask(ctx context.Context, taskID string) (*RunResult, error) {
	a, err := c.newAgent(ctx, taskID)
	if err != nil {
		return nil, err
	}

	code, err := a.Run(ctx)
	if err != nil {
		return nil, mapError(fmt.Errorf("could not run task: %w", err))
	}

	status, err := a.Status(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	reports := map[Phase]string{}
	for _, p := range model.Phases() {
		report, ok, err := a.Report(ctx, string(p))
		if err != nil {
			return nil, mapError(err)
		}
		if ok {
			reports[Phase(p)] = report
		}
	}

	return &RunResult{
		Status:  Status(status),
		Code:    code,
		Reports: reports,
	}, nil
}

// DaemonTask starts a detached run of a task and returns its pid.
// It requires [Config].DaemonBinary.
func (c *Client) DaemonTask(ctx context.Context, taskID string) (int, error) {
	if c.spawner == nil {
		return 0, fmt.Errorf("detached runs need a daemon binary: %w", ErrNotValid)
	}

	a, err := c.newAgent(ctx, taskID)
	if err != nil {
		return 0, err
	}

	pid, err := a.Daemon(ctx)
	if err != nil {
		return 0, mapError(err)
	}

	return pid, nil
}

// TaskStatus returns the current state of a task.
func (c *Client) TaskStatus(ctx context.Context, taskID string) (*TaskStatus, error) {
	a, err := c.newAgent(ctx, taskID)
	if err != nil {
		return nil, err
	}

	status, err := a.Status(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	pid, running, err := a.IsRunning(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	return &TaskStatus{
		Status:  Status(status),
		Code:    status.Code(),
		PID:     pid,
		Running: running,
	}, nil
}

// TaskReport returns the report of a task phase, false if the phase has no report.
func (c *Client) TaskReport(ctx context.Context, taskID string, phase Phase) (string, bool, error) {
	a, err := c.newAgent(ctx, taskID)
	if err != nil {
		return "", false, err
	}

	report, ok, err := a.Report(ctx, string(phase))
	if err != nil {
		return "", false, mapError(err)
	}

	return report, ok, nil
}

// ClearTask removes the status, reports and pid record of a task.
func (c *Client) ClearTask(ctx context.Context, taskID string) error {
	a, err := c.newAgent(ctx, taskID)
	if err != nil {
		return err
	}

	return mapError(a.Clear(ctx))
}

// GetTask returns the definition of a task.
func (c *Client) GetTask(ctx context.Context, taskID string) (*TaskDefinition, error) {
	def, err := c.library.GetTask(ctx, taskID)
	if err != nil {
		return nil, mapError(err)
	}

	d := fromInternalTaskDefinition(*def)
	return &d, nil
}

// ListTasks returns every task of the library sorted by ID.
func (c *Client) ListTasks(ctx context.Context) ([]TaskDefinition, error) {
	defs, err := c.library.ListTasks(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	result := make([]TaskDefinition, 0, len(defs))
	for _, d := range defs {
		result = append(result, fromInternalTaskDefinition(d))
	}
	return result, nil
}

// TaskHistory returns the latest runs of a task, newest first. A limit of 0 or less returns
// every run.
func (c *Client) TaskHistory(ctx context.Context, taskID string, limit int) ([]Run, error) {
	if _, err := c.library.GetTask(ctx, taskID); err != nil {
		return nil, mapError(err)
	}

	runs, err := c.history.ListRuns(ctx, taskID, limit)
	if err != nil {
		return nil, mapError(err)
	}

	return fromInternalRuns(runs), nil
}
