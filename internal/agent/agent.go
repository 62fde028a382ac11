// Package agent binds one task of the library to the runtime configuration and runs it in
// the foreground or as a detached background process that owns a pid record.
package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/slok/tasklib/internal/log"
	"github.com/slok/tasklib/internal/model"
	"github.com/slok/tasklib/internal/storage"
	"github.com/slok/tasklib/internal/task"
)

//go:generate mockery --case underscore --output agentmock --outpkg agentmock --name Spawner --structname MockSpawner
//go:generate mockery --case underscore --output agentmock --outpkg agentmock --name ProcessChecker --structname MockProcessChecker

// Spawner starts detached runs of a task.
type Spawner interface {
	// SpawnDetached starts a background process running the task with workDir restored
	// and returns its pid.
	SpawnDetached(ctx context.Context, taskID string, workDir string) (int, error)
}

// ProcessChecker knows if a process is alive.
type ProcessChecker interface {
	IsAlive(pid int) bool
}

// Config is the configuration of the agent.
type Config struct {
	TaskID         string
	Library        storage.LibraryRepository
	Store          storage.StateRepository
	History        storage.HistoryRepository
	Actions        task.ActionFactory
	Spawner        Spawner
	ProcessChecker ProcessChecker
	Logger         log.Logger
}

func (c *Config) defaults() error {
	if c.TaskID == "" {
		return fmt.Errorf("task id is required: %w", model.ErrNotValid)
	}
	if c.Library == nil {
		return fmt.Errorf("task library is required")
	}
	if c.Store == nil {
		return fmt.Errorf("state store is required")
	}
	if c.Actions == nil {
		return fmt.Errorf("actions factory is required")
	}
	if c.History == nil {
		c.History = storage.NoopHistory
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "agent.Agent", "task": c.TaskID})
	return nil
}

// Agent owns a task and the lifecycle of its detached runs.
type Agent struct {
	task    *task.Task
	store   storage.StateRepository
	spawner Spawner
	checker ProcessChecker
	workDir string
	logger  log.Logger
}

// New returns a new agent for a task of the library. Unknown tasks fail with model.ErrNotFound
// before anything is written.
func New(ctx context.Context, cfg Config) (*Agent, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	def, err := cfg.Library.GetTask(ctx, cfg.TaskID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("task %q not found in library %q: %w", cfg.TaskID, cfg.Library.Location(), model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not get task %q: %w", cfg.TaskID, err)
	}

	if i, ok := cfg.Store.(storage.Initializer); ok {
		if err := i.Init(ctx); err != nil {
			return nil, fmt.Errorf("could not initialize state store: %w", err)
		}
	}

	t, err := task.New(task.Config{
		Definition: *def,
		Actions:    cfg.Actions,
		Store:      cfg.Store,
		History:    cfg.History,
		Logger:     cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	// The daemon child restores the directory the agent was created on.
	wd, err := os.Getwd()
	if err != nil {
		cfg.Logger.Warningf("Could not get working directory: %s", err)
	}

	return &Agent{
		task:    t,
		store:   cfg.Store,
		spawner: cfg.Spawner,
		checker: cfg.ProcessChecker,
		workDir: wd,
		logger:  cfg.Logger,
	}, nil
}

// Task returns the agent task.
func (a *Agent) Task() *task.Task { return a.task }

// Run runs the task in the foreground and returns its exit code.
func (a *Agent) Run(ctx context.Context) (int, error) {
	return a.task.Run(ctx)
}

// Daemon starts a detached run of the task and returns its pid. It fails with a
// *model.AlreadyRunningError if a previous detached run is still alive.
func (a *Agent) Daemon(ctx context.Context) (int, error) {
	if a.spawner == nil {
		return 0, fmt.Errorf("detached runs are not supported: no spawner")
	}

	pid, running, err := a.IsRunning(ctx)
	if err != nil {
		return 0, err
	}
	if running {
		return 0, &model.AlreadyRunningError{TaskID: a.task.ID(), PID: pid}
	}

	pid, err = a.spawner.SpawnDetached(ctx, a.task.ID(), a.workDir)
	if err != nil {
		return 0, fmt.Errorf("could not spawn detached run: %w", err)
	}

	if err := a.store.PutValue(ctx, a.task.ID(), model.FieldPID, strconv.Itoa(pid)); err != nil {
		return 0, fmt.Errorf("could not store pid %d: %w", pid, err)
	}
	a.logger.Infof("Task detached with pid %d", pid)

	return pid, nil
}

// RunDetached is the body of a detached run. It restores workDir, runs the task and removes
// the pid record if it's still the one of this process. Failures are logged and returned
// as an exit code, never as errors or panics.
func (a *Agent) RunDetached(ctx context.Context, workDir string) (code int) {
	pid := os.Getpid()
	defer a.releasePID(ctx, pid)
	defer func() {
		if r := recover(); r != nil {
			a.logger.Errorf("Detached run panicked: %v", r)
			code = model.CodeError
		}
	}()

	if err := a.store.PutValue(ctx, a.task.ID(), model.FieldPID, strconv.Itoa(pid)); err != nil {
		a.logger.Warningf("Could not store own pid: %s", err)
	}

	err := task.WithWorkDir(workDir, func() error {
		c, err := a.task.RunDetached(ctx)
		code = c
		return err
	})
	if err != nil {
		a.logger.Errorf("Detached run failed: %s", err)
		return model.CodeError
	}

	return code
}

func (a *Agent) releasePID(ctx context.Context, pid int) {
	recorded, ok, err := a.PID(ctx)
	if err != nil {
		a.logger.Warningf("Could not read pid record: %s", err)
		return
	}
	if !ok || recorded != pid {
		return
	}
	if err := a.store.DeleteValue(ctx, a.task.ID(), model.FieldPID); err != nil {
		a.logger.Warningf("Could not remove pid record: %s", err)
	}
}

// PID returns the recorded pid of the detached run, false if there is none or it's not valid.
func (a *Agent) PID(ctx context.Context) (int, bool, error) {
	v, err := a.store.GetValue(ctx, a.task.ID(), model.FieldPID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("could not get pid: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || pid <= 0 {
		a.logger.Debugf("Ignoring invalid pid record %q", v)
		return 0, false, nil
	}

	return pid, true, nil
}

// IsRunning returns the recorded pid and true if its process is alive.
func (a *Agent) IsRunning(ctx context.Context) (int, bool, error) {
	pid, ok, err := a.PID(ctx)
	if err != nil || !ok {
		return 0, false, err
	}
	if a.checker == nil || !a.checker.IsAlive(pid) {
		return pid, false, nil
	}
	return pid, true, nil
}

// Clear removes the pid record and resets the task state.
func (a *Agent) Clear(ctx context.Context) error {
	if err := a.store.DeleteValue(ctx, a.task.ID(), model.FieldPID); err != nil {
		return fmt.Errorf("could not remove pid record: %w", err)
	}
	return a.task.Reset(ctx)
}

// Status returns the task status.
func (a *Agent) Status(ctx context.Context) (model.Status, error) {
	return a.task.Status(ctx)
}

// Report returns the report of a task phase.
func (a *Agent) Report(ctx context.Context, phase string) (string, bool, error) {
	return a.task.Report(ctx, phase)
}

// Code returns the exit code of the task status.
func (a *Agent) Code(ctx context.Context) (int, error) {
	return a.task.Code(ctx)
}
