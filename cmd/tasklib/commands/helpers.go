package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/slok/tasklib/internal/action"
	"github.com/slok/tasklib/internal/agent"
	"github.com/slok/tasklib/internal/daemon"
	"github.com/slok/tasklib/internal/model"
	"github.com/slok/tasklib/internal/printer"
	"github.com/slok/tasklib/internal/storage"
	"github.com/slok/tasklib/internal/storage/file"
	storageio "github.com/slok/tasklib/internal/storage/io"
	"github.com/slok/tasklib/internal/storage/sqlite"
)

func newPrinter(format string, w io.Writer) printer.Printer {
	switch format {
	case "json":
		return printer.NewJSONPrinter(w)
	default: // table
		return printer.NewTablePrinter(w)
	}
}

func (r *RootCommand) newRegistry() (*action.Registry, error) {
	registry, err := action.NewDefaultRegistry(action.RegistryConfig{
		PuppetModules: r.Config.PuppetModules,
		PuppetOptions: r.Config.PuppetOptions,
		Logger:        r.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create actions registry: %w", err)
	}
	return registry, nil
}

// newLibrary returns the task library, tasks of types with no action are left out.
func (r *RootCommand) newLibrary() (*storageio.LibraryYAMLRepository, error) {
	registry, err := r.newRegistry()
	if err != nil {
		return nil, err
	}

	lib, err := storageio.NewLibraryYAMLRepository(storageio.LibraryYAMLRepositoryConfig{
		Directory: r.Config.TasksDirectory,
		Pattern:   r.Config.TasksPattern,
		Kinds:     registry,
		Logger:    r.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create task library: %w", err)
	}
	return lib, nil
}

// newHistory returns the run history store. History is best effort, if the database
// can't be used runs are not recorded.
func (r *RootCommand) newHistory(ctx context.Context) (storage.HistoryRepository, func()) {
	if r.Config.HistoryDB == "" {
		return storage.NoopHistory, func() {}
	}

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: r.Config.HistoryDB,
		Logger: r.Logger,
	})
	if err != nil {
		r.Logger.Warningf("Run history disabled: %s", err)
		return storage.NoopHistory, func() {}
	}

	return repo, func() {
		if err := repo.Close(); err != nil {
			r.Logger.Warningf("Could not close run history: %s", err)
		}
	}
}

// newAgent wires an agent for a task with the effective configuration. The returned
// function releases its resources.
func (r *RootCommand) newAgent(ctx context.Context, taskID string) (*agent.Agent, func(), error) {
	lib, err := r.newLibrary()
	if err != nil {
		return nil, nil, err
	}

	store, err := file.NewRepository(file.RepositoryConfig{
		PIDDir:    r.Config.PIDDir,
		StatusDir: r.Config.StatusDir,
		ReportDir: r.Config.ReportDir,
		Logger:    r.Logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not create state store: %w", err)
	}

	registry, err := r.newRegistry()
	if err != nil {
		return nil, nil, err
	}

	spawner, err := daemon.NewExecSpawner(daemon.ExecSpawnerConfig{
		Args:    r.ChildArgs(),
		LogFile: r.Config.LogFile,
		Logger:  r.Logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not create spawner: %w", err)
	}

	// Unknown tasks must fail before the history database is created.
	if _, err := lib.GetTask(ctx, taskID); err != nil {
		return nil, nil, err
	}

	history, closeHistory := r.newHistory(ctx)

	a, err := agent.New(ctx, agent.Config{
		TaskID:         taskID,
		Library:        lib,
		Store:          store,
		History:        history,
		Actions:        registry,
		Spawner:        spawner,
		ProcessChecker: daemon.SignalChecker{},
		Logger:         r.Logger,
	})
	if err != nil {
		closeHistory()
		return nil, nil, err
	}

	return a, closeHistory, nil
}

// reportsOf returns the reports of the requested phases, every phase when none is requested.
func reportsOf(ctx context.Context, a *agent.Agent, phase string) ([]printer.PhaseReport, error) {
	phases := model.Phases()
	if phase != "" {
		p, err := model.ParsePhase(phase)
		if err != nil {
			return nil, err
		}
		phases = []model.Phase{p}
	}

	reports := make([]printer.PhaseReport, 0, len(phases))
	for _, p := range phases {
		report, ok, err := a.Report(ctx, string(p))
		if err != nil {
			return nil, err
		}
		reports = append(reports, printer.PhaseReport{Phase: p, Report: report, Present: ok})
	}

	return reports, nil
}
