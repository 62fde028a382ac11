// Package action implements the pluggable units of work that run on every task phase.
//
// An action is created by a Registry from the parent task ID and the parameters of the
// phase. Actions verify their parameters before any side effect, run their payload
// returning a *model.ActionFailedError when it reports non-success, and expose a text
// report of the last run.
package action

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/slok/tasklib/internal/log"
	"github.com/slok/tasklib/internal/model"
)

// Kind is the key actions are registered and selected by.
type Kind string

const (
	KindShell  Kind = "shell"
	KindExec   Kind = "exec"
	KindPuppet Kind = "puppet"
)

// Action is a unit of work bound to a task phase.
type Action interface {
	Kind() Kind
	// Verify checks the parameters have everything the action requires.
	Verify() error
	// Run executes the action payload once.
	Run(ctx context.Context) error
	// Report returns the outcome of the last run, false when there is nothing to report.
	Report() (string, bool)
	// Reset forgets the last run result.
	Reset()
}

// Dependencies are the shared instances the actions are built with.
type Dependencies struct {
	Executor      Executor
	PuppetModules string
	PuppetOptions string
	Logger        log.Logger
}

// Factory creates a new action of a kind.
type Factory func(deps Dependencies, kind Kind, taskID string, params map[string]any) Action

// RegistryConfig is the configuration of the actions registry.
type RegistryConfig struct {
	Executor      Executor
	PuppetModules string
	PuppetOptions string
	Logger        log.Logger
}

func (c *RegistryConfig) defaults() error {
	if c.Executor == nil {
		c.Executor = NewShellExecutor()
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "action.Registry"})
	return nil
}

// Registry is the dispatch table from action kinds to their implementations.
type Registry struct {
	deps      Dependencies
	factories map[Kind]Factory
	mu        sync.RWMutex
}

// NewRegistry returns an empty registry.
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Registry{
		deps: Dependencies{
			Executor:      cfg.Executor,
			PuppetModules: cfg.PuppetModules,
			PuppetOptions: cfg.PuppetOptions,
			Logger:        cfg.Logger,
		},
		factories: map[Kind]Factory{},
	}, nil
}

// NewDefaultRegistry returns a registry with all the built-in action kinds.
func NewDefaultRegistry(cfg RegistryConfig) (*Registry, error) {
	r, err := NewRegistry(cfg)
	if err != nil {
		return nil, err
	}

	r.Register(KindShell, NewShellAction)
	r.Register(KindExec, NewShellAction)
	r.Register(KindPuppet, NewPuppetAction)

	return r, nil
}

// Register sets the factory of a kind, replacing any previous one.
func (r *Registry) Register(kind Kind, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = f
}

// Has returns true if the kind is registered.
func (r *Registry) Has(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[Kind(kind)]
	return ok
}

// Kinds returns the registered kinds sorted.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]Kind, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// New creates and verifies an action. Unknown kinds and invalid parameters fail with model.ErrNotValid.
func (r *Registry) New(kind string, taskID string, params map[string]any) (Action, error) {
	r.mu.RLock()
	f, ok := r.factories[Kind(kind)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("task %q: unknown action type %q, supported: %v: %w", taskID, kind, r.Kinds(), model.ErrNotValid)
	}

	if params == nil {
		return nil, fmt.Errorf("task %q: %s action: missing parameters: %w", taskID, kind, model.ErrNotValid)
	}

	deps := r.deps
	deps.Logger = deps.Logger.WithValues(log.Kv{"task": taskID, "action": kind})
	a := f(deps, Kind(kind), taskID, params)
	if err := a.Verify(); err != nil {
		return nil, fmt.Errorf("task %q: %w", taskID, err)
	}

	return a, nil
}
