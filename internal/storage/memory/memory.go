package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/slok/tasklib/internal/log"
	"github.com/slok/tasklib/internal/model"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	// Tasks are the task definitions the library will serve.
	Tasks  []model.TaskDefinition
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})
	return nil
}

type stateKey struct {
	taskID string
	field  model.Field
}

// Repository is an in-memory implementation of the storage repositories.
type Repository struct {
	states map[stateKey]string
	runs   map[string]model.Run
	tasks  map[string]model.TaskDefinition
	mu     sync.RWMutex
	logger log.Logger
}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	tasks := make(map[string]model.TaskDefinition, len(cfg.Tasks))
	for _, t := range cfg.Tasks {
		if t.ID == "" {
			return nil, fmt.Errorf("task without id: %w", model.ErrNotValid)
		}
		tasks[t.ID] = t
	}

	return &Repository{
		states: make(map[stateKey]string),
		runs:   make(map[string]model.Run),
		tasks:  tasks,
		logger: cfg.Logger,
	}, nil
}

// GetValue retrieves a task state value.
func (r *Repository) GetValue(ctx context.Context, taskID string, field model.Field) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.states[stateKey{taskID: taskID, field: field}]
	if !ok {
		return "", fmt.Errorf("task %s %s: %w", taskID, field, model.ErrNotFound)
	}

	return v, nil
}

// PutValue stores a task state value.
func (r *Repository) PutValue(ctx context.Context, taskID string, field model.Field, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.states[stateKey{taskID: taskID, field: field}] = value
	r.logger.Debugf("Stored task %s %s", taskID, field)

	return nil
}

// DeleteValue deletes a task state value.
func (r *Repository) DeleteValue(ctx context.Context, taskID string, field model.Field) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.states, stateKey{taskID: taskID, field: field})
	r.logger.Debugf("Deleted task %s %s", taskID, field)

	return nil
}

// CreateRun creates a new run in the history.
func (r *Repository) CreateRun(ctx context.Context, run model.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[run.ID]; ok {
		return fmt.Errorf("run with id %s: %w", run.ID, model.ErrAlreadyExists)
	}

	r.runs[run.ID] = run
	r.logger.Debugf("Created run in repository: %s", run.ID)

	return nil
}

// FinishRun sets the final status of a run.
func (r *Repository) FinishRun(ctx context.Context, runID string, status model.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[runID]
	if !ok {
		return fmt.Errorf("run %s: %w", runID, model.ErrNotFound)
	}

	now := time.Now().UTC()
	run.Status = status
	run.FinishedAt = &now
	r.runs[runID] = run

	return nil
}

// ListRuns returns the runs of a task, newest first.
func (r *Repository) ListRuns(ctx context.Context, taskID string, limit int) ([]model.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	runs := []model.Run{}
	for _, run := range r.runs {
		if run.TaskID == taskID {
			runs = append(runs, run)
		}
	}

	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].ID > runs[j].ID
		}
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}

	return runs, nil
}

// GetTask retrieves a task definition by ID.
func (r *Repository) GetTask(ctx context.Context, id string) (*model.TaskDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}

	taskCopy := t
	return &taskCopy, nil
}

// ListTasks returns all the task definitions sorted by ID.
func (r *Repository) ListTasks(ctx context.Context) ([]model.TaskDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make([]model.TaskDefinition, 0, len(r.tasks))
	for _, t := range r.tasks {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })

	return tasks, nil
}

// Location returns the library location.
func (r *Repository) Location() string { return "memory" }
