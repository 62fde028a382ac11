// Package task implements the three phase (pre, task, post) execution of a task and its
// durable status and reports.
package task

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/tasklib/internal/action"
	"github.com/slok/tasklib/internal/log"
	"github.com/slok/tasklib/internal/model"
	"github.com/slok/tasklib/internal/storage"
)

// ActionFactory creates verified actions by kind.
type ActionFactory interface {
	New(kind string, taskID string, params map[string]any) (action.Action, error)
}

// Config is the configuration of a task.
type Config struct {
	Definition model.TaskDefinition
	Actions    ActionFactory
	Store      storage.StateRepository
	History    storage.HistoryRepository
	Logger     log.Logger
}

func (c *Config) defaults() error {
	if err := c.Definition.Validate(); err != nil {
		return err
	}
	if c.Actions == nil {
		return fmt.Errorf("actions factory is required")
	}
	if c.Store == nil {
		return fmt.Errorf("store is required")
	}
	if c.History == nil {
		c.History = storage.NoopHistory
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "task.Task", "task": c.Definition.ID})
	return nil
}

// Task is the runtime of a task definition.
//
// Status and reports set by this process are cached, everything else is read from the
// store so a task can be queried while another process runs it.
type Task struct {
	def     model.TaskDefinition
	actions map[model.Phase]action.Action
	store   storage.StateRepository
	history storage.HistoryRepository
	logger  log.Logger

	status  model.Status
	reports map[model.Phase]string
}

// New returns a new task. The definition and every phase action are verified before
// returning, invalid ones fail with model.ErrNotValid.
func New(cfg Config) (*Task, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	def := cfg.Definition
	actions := map[model.Phase]action.Action{}

	a, err := cfg.Actions.New(def.ActionType(), def.ID, def.Parameters)
	if err != nil {
		return nil, fmt.Errorf("invalid task action: %w", err)
	}
	actions[model.PhaseTask] = a

	checks := map[model.Phase]map[string]any{
		model.PhasePre:  def.Pre,
		model.PhasePost: def.Post,
	}
	for phase, check := range checks {
		// A check runs only if it has data.
		if len(check) == 0 {
			continue
		}
		a, err := cfg.Actions.New(model.CheckType(check), def.ID, check)
		if err != nil {
			return nil, fmt.Errorf("invalid %s check: %w", phase, err)
		}
		actions[phase] = a
	}

	cfg.Logger.Debugf("Task initialized")

	return &Task{
		def:     def,
		actions: actions,
		store:   cfg.Store,
		history: cfg.History,
		logger:  cfg.Logger,
		reports: map[model.Phase]string{},
	}, nil
}

// ID returns the task ID.
func (t *Task) ID() string { return t.def.ID }

// Definition returns the task definition.
func (t *Task) Definition() model.TaskDefinition { return t.def }

// Run executes the task phases in the foreground and returns the exit code of the final status.
// Action failures are not errors, they end on a fail status.
func (t *Task) Run(ctx context.Context) (int, error) {
	return t.run(ctx, false)
}

// RunDetached is like Run but records the run as a detached one.
func (t *Task) RunDetached(ctx context.Context) (int, error) {
	return t.run(ctx, true)
}

func (t *Task) run(ctx context.Context, detached bool) (int, error) {
	if err := t.Reset(ctx); err != nil {
		return model.CodeError, fmt.Errorf("could not reset task state: %w", err)
	}

	t.logger.Infof("Running task")
	runID := t.startRun(ctx, detached)

	status, err := t.runPhases(ctx)
	if err != nil {
		t.finishRun(ctx, runID, t.status)
		return model.CodeError, err
	}
	t.finishRun(ctx, runID, status)

	t.logger.Infof("Task finished with status %s", status)
	return status.Code(), nil
}

func (t *Task) runPhases(ctx context.Context) (model.Status, error) {
	for _, phase := range model.Phases() {
		a, ok := t.actions[phase]
		if !ok {
			t.logger.Debugf("No %s action, skipping", phase)
			continue
		}

		if err := t.setStatus(ctx, phase.RunStatus()); err != nil {
			return "", err
		}

		err := t.runPhase(ctx, phase, a)
		if err == nil {
			continue
		}
		if !errors.Is(err, model.ErrActionFailed) {
			return "", err
		}

		t.logger.Warningf("Phase %s failed: %s", phase, err)
		status := phase.FailStatus()
		if err := t.setStatus(ctx, status); err != nil {
			return "", err
		}
		return status, nil
	}

	if err := t.setStatus(ctx, model.StatusSuccess); err != nil {
		return "", err
	}
	return model.StatusSuccess, nil
}

// runPhase runs the action of a phase and persists its report. The report is stored
// before returning so it is durable before the status moves on.
func (t *Task) runPhase(ctx context.Context, phase model.Phase, a action.Action) error {
	t.logger.Debugf("Start phase: %s", phase)

	var runErr error
	err := WithWorkDir(t.def.WorkDir(), func() error {
		a.Reset()
		runErr = a.Run(ctx)
		return nil
	})
	if err != nil {
		return fmt.Errorf("could not run %s phase: %w", phase, err)
	}

	if report, ok := a.Report(); ok {
		if err := t.store.PutValue(ctx, t.def.ID, model.ReportField(phase), report); err != nil {
			return fmt.Errorf("could not store %s report: %w", phase, err)
		}
		t.reports[phase] = report
	}

	t.logger.Debugf("End phase: %s", phase)
	return runErr
}

func (t *Task) setStatus(ctx context.Context, status model.Status) error {
	if err := t.store.PutValue(ctx, t.def.ID, model.FieldStatus, string(status)); err != nil {
		return fmt.Errorf("could not store status: %w", err)
	}
	t.status = status
	t.logger.Debugf("Status: %s", status)
	return nil
}

func (t *Task) startRun(ctx context.Context, detached bool) string {
	run := model.Run{
		ID:        ulid.Make().String(),
		TaskID:    t.def.ID,
		Status:    model.StatusRunTask,
		Detached:  detached,
		PID:       os.Getpid(),
		StartedAt: time.Now().UTC(),
	}
	if _, ok := t.actions[model.PhasePre]; ok {
		run.Status = model.StatusRunPre
	}

	if err := t.history.CreateRun(ctx, run); err != nil {
		t.logger.Warningf("Could not record run: %s", err)
		return ""
	}
	return run.ID
}

func (t *Task) finishRun(ctx context.Context, runID string, status model.Status) {
	if runID == "" {
		return
	}
	if status == "" {
		status = model.StatusNotFound
	}
	if err := t.history.FinishRun(ctx, runID, status); err != nil {
		t.logger.Warningf("Could not record run %s result: %s", runID, err)
	}
}

// Reset clears the status and all the phase reports, cached and stored.
func (t *Task) Reset(ctx context.Context) error {
	t.status = ""
	t.reports = map[model.Phase]string{}

	fields := []model.Field{model.FieldStatus}
	for _, p := range model.Phases() {
		fields = append(fields, model.ReportField(p))
	}
	for _, f := range fields {
		if err := t.store.DeleteValue(ctx, t.def.ID, f); err != nil {
			return fmt.Errorf("could not delete %s: %w", f, err)
		}
	}

	for _, a := range t.actions {
		a.Reset()
	}

	return nil
}

// Status returns the task status, not_found when the task never ran.
func (t *Task) Status(ctx context.Context) (model.Status, error) {
	if t.status != "" {
		return t.status, nil
	}

	v, err := t.store.GetValue(ctx, t.def.ID, model.FieldStatus)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.StatusNotFound, nil
		}
		return "", fmt.Errorf("could not get status: %w", err)
	}

	status := model.Status(strings.TrimSpace(v))
	if !status.Valid() {
		return "", fmt.Errorf("unknown stored status %q: %w", v, model.ErrNotValid)
	}

	return status, nil
}

// Report returns the report of a phase, false when there is none.
func (t *Task) Report(ctx context.Context, phase string) (string, bool, error) {
	p, err := model.ParsePhase(phase)
	if err != nil {
		return "", false, err
	}

	if r, ok := t.reports[p]; ok {
		return r, true, nil
	}

	r, err := t.store.GetValue(ctx, t.def.ID, model.ReportField(p))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("could not get %s report: %w", p, err)
	}

	return r, true, nil
}

// Code returns the exit code of the current status.
func (t *Task) Code(ctx context.Context) (int, error) {
	status, err := t.Status(ctx)
	if err != nil {
		return model.CodeError, err
	}
	return status.Code(), nil
}
