package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/tasklib/internal/log"
	"github.com/slok/tasklib/internal/model"
	"github.com/slok/tasklib/internal/storage/sqlite"
)

func runFixture(id, taskID string, startedAt time.Time) model.Run {
	return model.Run{
		ID:        id,
		TaskID:    taskID,
		Status:    model.StatusRunPre,
		StartedAt: startedAt,
	}
}

func newRepo(t *testing.T) *sqlite.Repository {
	t.Helper()
	repo, err := sqlite.NewRepository(context.Background(), sqlite.RepositoryConfig{
		DBPath: filepath.Join(t.TempDir(), "test.db"),
		Logger: log.Noop,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestNewRepositoryRequiresPath(t *testing.T) {
	_, err := sqlite.NewRepository(context.Background(), sqlite.RepositoryConfig{})
	assert.Error(t, err)
}

func TestRepositoryRuns(t *testing.T) {
	t0 := time.Date(2026, 1, 30, 10, 0, 0, 0, time.UTC)

	tests := map[string]struct {
		actions func(ctx context.Context, t *testing.T, repo *sqlite.Repository)
	}{
		"Created runs should be listed newest first": {
			actions: func(ctx context.Context, t *testing.T, repo *sqlite.Repository) {
				require.NoError(t, repo.CreateRun(ctx, runFixture("01A", "t1", t0)))
				require.NoError(t, repo.CreateRun(ctx, runFixture("01B", "t1", t0.Add(time.Second))))
				require.NoError(t, repo.CreateRun(ctx, runFixture("01C", "t2", t0)))

				runs, err := repo.ListRuns(ctx, "t1", 0)
				require.NoError(t, err)
				require.Len(t, runs, 2)
				assert.Equal(t, "01B", runs[0].ID)
				assert.Equal(t, "01A", runs[1].ID)
				assert.Equal(t, t0, runs[1].StartedAt)
				assert.False(t, runs[1].Finished())
			},
		},

		"Listing should honor the limit": {
			actions: func(ctx context.Context, t *testing.T, repo *sqlite.Repository) {
				require.NoError(t, repo.CreateRun(ctx, runFixture("01A", "t1", t0)))
				require.NoError(t, repo.CreateRun(ctx, runFixture("01B", "t1", t0.Add(time.Second))))

				runs, err := repo.ListRuns(ctx, "t1", 1)
				require.NoError(t, err)
				require.Len(t, runs, 1)
				assert.Equal(t, "01B", runs[0].ID)
			},
		},

		"Finishing a run should set its status and finish time": {
			actions: func(ctx context.Context, t *testing.T, repo *sqlite.Repository) {
				run := runFixture("01A", "t1", t0)
				run.Detached = true
				run.PID = 1234
				require.NoError(t, repo.CreateRun(ctx, run))
				require.NoError(t, repo.FinishRun(ctx, "01A", model.StatusFailTask))

				runs, err := repo.ListRuns(ctx, "t1", 0)
				require.NoError(t, err)
				require.Len(t, runs, 1)
				assert.Equal(t, model.StatusFailTask, runs[0].Status)
				assert.True(t, runs[0].Finished())
				assert.True(t, runs[0].Detached)
				assert.Equal(t, 1234, runs[0].PID)
			},
		},

		"Finishing a missing run should fail with not found": {
			actions: func(ctx context.Context, t *testing.T, repo *sqlite.Repository) {
				err := repo.FinishRun(ctx, "missing", model.StatusSuccess)
				assert.True(t, errors.Is(err, model.ErrNotFound))
			},
		},

		"Duplicated runs should fail with already exists": {
			actions: func(ctx context.Context, t *testing.T, repo *sqlite.Repository) {
				require.NoError(t, repo.CreateRun(ctx, runFixture("01A", "t1", t0)))
				err := repo.CreateRun(ctx, runFixture("01A", "t1", t0))
				assert.True(t, errors.Is(err, model.ErrAlreadyExists))
			},
		},

		"Runs without task should be rejected": {
			actions: func(ctx context.Context, t *testing.T, repo *sqlite.Repository) {
				err := repo.CreateRun(ctx, model.Run{ID: "01A", StartedAt: t0})
				assert.True(t, errors.Is(err, model.ErrNotValid))
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			test.actions(context.Background(), t, newRepo(t))
		})
	}
}
