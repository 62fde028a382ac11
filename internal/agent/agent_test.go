package agent_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/tasklib/internal/action"
	"github.com/slok/tasklib/internal/agent"
	"github.com/slok/tasklib/internal/agent/agentmock"
	"github.com/slok/tasklib/internal/model"
	"github.com/slok/tasklib/internal/storage/file"
	"github.com/slok/tasklib/internal/storage/memory"
)

type panicAction struct{}

func (panicAction) Kind() action.Kind             { return "panic" }
func (panicAction) Verify() error                 { return nil }
func (panicAction) Run(ctx context.Context) error { panic("boom") }
func (panicAction) Report() (string, bool)        { return "", false }
func (panicAction) Reset()                        {}

func newRegistry(t *testing.T) *action.Registry {
	t.Helper()
	r, err := action.NewDefaultRegistry(action.RegistryConfig{})
	require.NoError(t, err)
	r.Register("panic", func(action.Dependencies, action.Kind, string, map[string]any) action.Action {
		return panicAction{}
	})
	return r
}

func newLibrary(t *testing.T) *memory.Repository {
	t.Helper()
	repo, err := memory.NewRepository(memory.RepositoryConfig{
		Tasks: []model.TaskDefinition{
			{ID: "t1", Type: "shell", Parameters: map[string]any{"cmd": "exit 0"}},
			{ID: "t2", Type: "shell", Parameters: map[string]any{"cmd": "exit 3"}},
			{ID: "invalid", Type: "shell", Parameters: map[string]any{}},
			{ID: "panic", Type: "panic", Parameters: map[string]any{}},
		},
	})
	require.NoError(t, err)
	return repo
}

func TestNew(t *testing.T) {
	tests := map[string]struct {
		taskID     string
		expErr     error
		expDirsNew bool
	}{
		"An existing task should create the agent and its state directories": {
			taskID:     "t1",
			expDirsNew: true,
		},
		"A missing task should fail before creating any directory": {
			taskID: "t99",
			expErr: model.ErrNotFound,
		},
		"An invalid task should fail": {
			taskID:     "invalid",
			expErr:     model.ErrNotValid,
			expDirsNew: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			root := t.TempDir()
			store, err := file.NewRepository(file.RepositoryConfig{
				PIDDir:    filepath.Join(root, "pid"),
				StatusDir: filepath.Join(root, "status"),
				ReportDir: filepath.Join(root, "report"),
			})
			require.NoError(err)

			a, err := agent.New(context.Background(), agent.Config{
				TaskID:  test.taskID,
				Library: newLibrary(t),
				Store:   store,
				Actions: newRegistry(t),
			})

			if test.expErr != nil {
				require.Error(err)
				require.True(errors.Is(err, test.expErr))
				require.Nil(a)
			} else {
				require.NoError(err)
				require.NotNil(a)
			}

			if test.expErr == model.ErrNotFound {
				assert.Contains(t, err.Error(), "t99")
				assert.Contains(t, err.Error(), "memory")
			}

			_, err = os.Stat(filepath.Join(root, "pid"))
			assert.Equal(t, test.expDirsNew, err == nil)
		})
	}
}

func TestRun(t *testing.T) {
	tests := map[string]struct {
		taskID    string
		expCode   int
		expStatus model.Status
	}{
		"A successful task": {
			taskID:    "t1",
			expCode:   0,
			expStatus: model.StatusSuccess,
		},
		"A failed task": {
			taskID:    "t2",
			expCode:   5,
			expStatus: model.StatusFailTask,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			ctx := context.Background()

			store, err := memory.NewRepository(memory.RepositoryConfig{})
			require.NoError(err)

			a, err := agent.New(ctx, agent.Config{
				TaskID:  test.taskID,
				Library: newLibrary(t),
				Store:   store,
				Actions: newRegistry(t),
			})
			require.NoError(err)

			code, err := a.Run(ctx)
			require.NoError(err)
			assert.Equal(t, test.expCode, code)

			status, err := a.Status(ctx)
			require.NoError(err)
			assert.Equal(t, test.expStatus, status)

			gotCode, err := a.Code(ctx)
			require.NoError(err)
			assert.Equal(t, test.expCode, gotCode)

			_, ok, err := a.Report(ctx, "task")
			require.NoError(err)
			assert.True(t, ok)
		})
	}
}

func TestDaemon(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	tests := map[string]struct {
		pidRecord   string
		mock        func(s *agentmock.MockSpawner, c *agentmock.MockProcessChecker)
		expPID      int
		expRecorded string
		expErr      error
	}{
		"Without a previous run it should spawn and record the pid": {
			mock: func(s *agentmock.MockSpawner, c *agentmock.MockProcessChecker) {
				s.On("SpawnDetached", mock.Anything, "t1", cwd).Once().Return(1234, nil)
			},
			expPID:      1234,
			expRecorded: "1234",
		},
		"With a live previous run it should fail and keep the pid": {
			pidRecord: "1000",
			mock: func(s *agentmock.MockSpawner, c *agentmock.MockProcessChecker) {
				c.On("IsAlive", 1000).Once().Return(true)
			},
			expRecorded: "1000",
			expErr:      model.ErrAlreadyRunning,
		},
		"With a dead previous run it should spawn a new one": {
			pidRecord: "1000",
			mock: func(s *agentmock.MockSpawner, c *agentmock.MockProcessChecker) {
				c.On("IsAlive", 1000).Once().Return(false)
				s.On("SpawnDetached", mock.Anything, "t1", cwd).Once().Return(1234, nil)
			},
			expPID:      1234,
			expRecorded: "1234",
		},
		"With an invalid pid record it should spawn a new one": {
			pidRecord: "not-a-pid",
			mock: func(s *agentmock.MockSpawner, c *agentmock.MockProcessChecker) {
				s.On("SpawnDetached", mock.Anything, "t1", cwd).Once().Return(1234, nil)
			},
			expPID:      1234,
			expRecorded: "1234",
		},
		"A spawn error should not record any pid": {
			mock: func(s *agentmock.MockSpawner, c *agentmock.MockProcessChecker) {
				s.On("SpawnDetached", mock.Anything, "t1", cwd).Once().Return(0, errors.New("whatever"))
			},
			expErr: errors.New("whatever"),
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			ctx := context.Background()

			store, err := memory.NewRepository(memory.RepositoryConfig{})
			require.NoError(err)
			if test.pidRecord != "" {
				require.NoError(store.PutValue(ctx, "t1", model.FieldPID, test.pidRecord))
			}

			spawner := agentmock.NewMockSpawner(t)
			checker := agentmock.NewMockProcessChecker(t)
			test.mock(spawner, checker)

			a, err := agent.New(ctx, agent.Config{
				TaskID:         "t1",
				Library:        newLibrary(t),
				Store:          store,
				Actions:        newRegistry(t),
				Spawner:        spawner,
				ProcessChecker: checker,
			})
			require.NoError(err)

			pid, err := a.Daemon(ctx)

			if test.expErr != nil {
				require.Error(err)
				if errors.Is(test.expErr, model.ErrAlreadyRunning) {
					var arErr *model.AlreadyRunningError
					require.True(errors.As(err, &arErr))
					assert.Equal(t, "t1", arErr.TaskID)
					assert.Equal(t, 1000, arErr.PID)
				}
			} else {
				require.NoError(err)
				assert.Equal(t, test.expPID, pid)
			}

			got, err := store.GetValue(ctx, "t1", model.FieldPID)
			if test.expRecorded == "" {
				assert.True(t, errors.Is(err, model.ErrNotFound))
			} else {
				require.NoError(err)
				assert.Equal(t, test.expRecorded, got)
			}
		})
	}
}

func TestDaemonTwice(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	store, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(err)

	spawner := agentmock.NewMockSpawner(t)
	spawner.On("SpawnDetached", mock.Anything, "t1", mock.Anything).Once().Return(4321, nil)
	checker := agentmock.NewMockProcessChecker(t)
	checker.On("IsAlive", 4321).Once().Return(true)

	a, err := agent.New(ctx, agent.Config{
		TaskID:         "t1",
		Library:        newLibrary(t),
		Store:          store,
		Actions:        newRegistry(t),
		Spawner:        spawner,
		ProcessChecker: checker,
	})
	require.NoError(err)

	pid, err := a.Daemon(ctx)
	require.NoError(err)
	require.Equal(4321, pid)

	_, err = a.Daemon(ctx)
	require.Error(err)
	assert.True(t, errors.Is(err, model.ErrAlreadyRunning))

	gotPID, ok, err := a.PID(ctx)
	require.NoError(err)
	assert.True(t, ok)
	assert.Equal(t, 4321, gotPID)
}

func TestRunDetached(t *testing.T) {
	ownPID := strconv.Itoa(os.Getpid())

	tests := map[string]struct {
		taskID       string
		overwritePID string
		expCode      int
		expStatus    model.Status
		expPIDRecord string
	}{
		"A finished run should remove its own pid record": {
			taskID:    "t2",
			expCode:   5,
			expStatus: model.StatusFailTask,
		},
		"A finished run should keep a pid record of another process": {
			taskID:       "t1",
			overwritePID: "999999",
			expCode:      0,
			expStatus:    model.StatusSuccess,
			expPIDRecord: "999999",
		},
		"A panic should be recovered and the pid record removed": {
			taskID:    "panic",
			expCode:   model.CodeError,
			expStatus: model.StatusRunTask,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			ctx := context.Background()

			store := &pidOverwriteStore{overwrite: test.overwritePID}
			repo, err := memory.NewRepository(memory.RepositoryConfig{})
			require.NoError(err)
			store.Repository = repo

			a, err := agent.New(ctx, agent.Config{
				TaskID:  test.taskID,
				Library: newLibrary(t),
				Store:   store,
				Actions: newRegistry(t),
			})
			require.NoError(err)

			cwd, err := os.Getwd()
			require.NoError(err)

			code := a.RunDetached(ctx, t.TempDir())
			assert.Equal(t, test.expCode, code)

			after, err := os.Getwd()
			require.NoError(err)
			assert.Equal(t, cwd, after)

			status, err := a.Status(ctx)
			require.NoError(err)
			assert.Equal(t, test.expStatus, status)

			got, err := repo.GetValue(ctx, test.taskID, model.FieldPID)
			if test.expPIDRecord == "" {
				assert.True(t, errors.Is(err, model.ErrNotFound), "pid record %q should be removed", got)
			} else {
				require.NoError(err)
				assert.Equal(t, test.expPIDRecord, got)
			}
			assert.NotEqual(t, ownPID, got)
		})
	}
}

// pidOverwriteStore replaces the pid the running process records, like a
// second detached run would do.
type pidOverwriteStore struct {
	*memory.Repository
	overwrite string
}

func (p *pidOverwriteStore) PutValue(ctx context.Context, taskID string, field model.Field, value string) error {
	if field == model.FieldPID && p.overwrite != "" {
		value = p.overwrite
	}
	return p.Repository.PutValue(ctx, taskID, field, value)
}

func TestClear(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	store, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(err)
	require.NoError(store.PutValue(ctx, "t1", model.FieldPID, "1234"))

	a, err := agent.New(ctx, agent.Config{
		TaskID:  "t1",
		Library: newLibrary(t),
		Store:   store,
		Actions: newRegistry(t),
	})
	require.NoError(err)

	_, err = a.Run(ctx)
	require.NoError(err)

	require.NoError(a.Clear(ctx))

	_, ok, err := a.PID(ctx)
	require.NoError(err)
	assert.False(t, ok)

	status, err := a.Status(ctx)
	require.NoError(err)
	assert.Equal(t, model.StatusNotFound, status)

	_, ok, err = a.Report(ctx, "task")
	require.NoError(err)
	assert.False(t, ok)
}
