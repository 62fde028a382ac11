// Package file implements the task state repository on plain text files, one value per file.
//
// The layout is:
//
//	<pid_dir>/<task-id>.pid
//	<status_dir>/<task-id>.status
//	<report_dir>/<task-id>.<phase>
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/moby/sys/atomicwriter"

	"github.com/slok/tasklib/internal/conventions"
	"github.com/slok/tasklib/internal/log"
	"github.com/slok/tasklib/internal/model"
)

// RepositoryConfig is the configuration for the file repository.
type RepositoryConfig struct {
	PIDDir    string
	StatusDir string
	ReportDir string
	Logger    log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.PIDDir == "" {
		return fmt.Errorf("pid dir is required")
	}
	if c.StatusDir == "" {
		return fmt.Errorf("status dir is required")
	}
	if c.ReportDir == "" {
		return fmt.Errorf("report dir is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.File"})
	return nil
}

// Repository is a file based implementation of storage.StateRepository.
type Repository struct {
	pidDir    string
	statusDir string
	reportDir string
	logger    log.Logger
}

// NewRepository creates a new file repository. Directories are not created until Init is called.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		pidDir:    cfg.PIDDir,
		statusDir: cfg.StatusDir,
		reportDir: cfg.ReportDir,
		logger:    cfg.Logger,
	}, nil
}

// Init creates the state directories if missing.
func (r *Repository) Init(ctx context.Context) error {
	for _, dir := range []string{r.pidDir, r.statusDir, r.reportDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("could not create directory %s: %w", dir, err)
		}
	}

	r.logger.Debugf("State directories ready")
	return nil
}

// GetValue reads the file that holds a task state value.
func (r *Repository) GetValue(ctx context.Context, taskID string, field model.Field) (string, error) {
	path, err := r.path(taskID, field)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("task %s %s: %w", taskID, field, model.ErrNotFound)
		}
		return "", fmt.Errorf("could not read %s: %w", path, err)
	}

	return string(data), nil
}

// PutValue atomically replaces the file that holds a task state value.
func (r *Repository) PutValue(ctx context.Context, taskID string, field model.Field, value string) error {
	path, err := r.path(taskID, field)
	if err != nil {
		return err
	}

	if err := atomicwriter.WriteFile(path, []byte(value), 0644); err != nil {
		return fmt.Errorf("could not write %s: %w", path, err)
	}

	r.logger.Debugf("Stored task %s %s at %s", taskID, field, path)
	return nil
}

// DeleteValue removes the file that holds a task state value.
func (r *Repository) DeleteValue(ctx context.Context, taskID string, field model.Field) error {
	path, err := r.path(taskID, field)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("could not remove %s: %w", path, err)
	}

	r.logger.Debugf("Deleted task %s %s", taskID, field)
	return nil
}

func (r *Repository) path(taskID string, field model.Field) (string, error) {
	if taskID == "" {
		return "", fmt.Errorf("task id is required: %w", model.ErrNotValid)
	}
	if taskID == "." || taskID == ".." || strings.ContainsAny(taskID, `/\`) {
		return "", fmt.Errorf("task id %q can't be used as a file name: %w", taskID, model.ErrNotValid)
	}

	switch field {
	case model.FieldPID:
		return conventions.PIDFilePath(r.pidDir, taskID), nil
	case model.FieldStatus:
		return conventions.StatusFilePath(r.statusDir, taskID), nil
	}

	phase, ok := field.Phase()
	if !ok {
		return "", fmt.Errorf("unknown field %q: %w", field, model.ErrNotValid)
	}

	return conventions.ReportFilePath(r.reportDir, taskID, phase), nil
}
