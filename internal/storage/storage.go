package storage

import (
	"context"

	"github.com/slok/tasklib/internal/model"
)

// StateRepository is the durable key-value store of the task states.
//
// Values are keyed by task ID and field (status, pid or a phase report). Missing values
// are returned as model.ErrNotFound.
type StateRepository interface {
	GetValue(ctx context.Context, taskID string, field model.Field) (string, error)
	PutValue(ctx context.Context, taskID string, field model.Field, value string) error
	// DeleteValue removes a value, deleting a missing value is not an error.
	DeleteValue(ctx context.Context, taskID string, field model.Field) error
}

// HistoryRepository keeps the record of every task run.
type HistoryRepository interface {
	CreateRun(ctx context.Context, r model.Run) error
	FinishRun(ctx context.Context, runID string, status model.Status) error
	ListRuns(ctx context.Context, taskID string, limit int) ([]model.Run, error)
}

// LibraryRepository resolves task definitions by their ID.
type LibraryRepository interface {
	GetTask(ctx context.Context, id string) (*model.TaskDefinition, error)
	ListTasks(ctx context.Context) ([]model.TaskDefinition, error)
	// Location returns where the library loads the definitions from.
	Location() string
}

// NoopHistory is a HistoryRepository that doesn't record anything.
const NoopHistory = noopHistory(0)

type noopHistory int

func (noopHistory) CreateRun(context.Context, model.Run) error                 { return nil }
func (noopHistory) FinishRun(context.Context, string, model.Status) error      { return nil }
func (noopHistory) ListRuns(context.Context, string, int) ([]model.Run, error) { return nil, nil }

// Initializer is implemented by repositories that need to prepare their layout
// (directories, schemas...) before being used.
type Initializer interface {
	Init(ctx context.Context) error
}
