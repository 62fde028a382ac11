package action_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/slok/tasklib/internal/action"
	"github.com/slok/tasklib/internal/log"
	"github.com/slok/tasklib/internal/model"
)

func newRegistry(t *testing.T, exec action.Executor) *action.Registry {
	t.Helper()
	r, err := action.NewDefaultRegistry(action.RegistryConfig{
		Executor:      exec,
		PuppetModules: "/etc/puppet/modules",
		PuppetOptions: "--verbose",
		Logger:        log.Noop,
	})
	require.NoError(t, err)
	return r
}

func decodeReport(t *testing.T, report string) action.Result {
	t.Helper()
	var res action.Result
	require.NoError(t, yaml.Unmarshal([]byte(report), &res))
	return res
}

func TestRegistryNew(t *testing.T) {
	tests := map[string]struct {
		kind    string
		params  map[string]any
		expKind action.Kind
		expErr  bool
	}{
		"A shell action with a command should be created": {
			kind:    "shell",
			params:  map[string]any{"cmd": "true"},
			expKind: action.KindShell,
		},
		"An exec action should be a shell action": {
			kind:    "exec",
			params:  map[string]any{"cmd": "true"},
			expKind: action.KindExec,
		},
		"A puppet action with a manifest should be created": {
			kind:    "puppet",
			params:  map[string]any{"puppet_manifest": "site.pp"},
			expKind: action.KindPuppet,
		},
		"A shell action without command should fail": {
			kind:   "shell",
			params: map[string]any{"cwd": "/tmp"},
			expErr: true,
		},
		"A shell action with a non string command should fail": {
			kind:   "shell",
			params: map[string]any{"cmd": 42},
			expErr: true,
		},
		"A puppet action without manifest should fail": {
			kind:   "puppet",
			params: map[string]any{"puppet_modules": "/m"},
			expErr: true,
		},
		"A non numeric timeout should fail": {
			kind:   "shell",
			params: map[string]any{"cmd": "true", "timeout": "soon"},
			expErr: true,
		},
		"A negative timeout should fail": {
			kind:   "shell",
			params: map[string]any{"cmd": "true", "timeout": -1},
			expErr: true,
		},
		"Missing parameters should fail": {
			kind:   "shell",
			expErr: true,
		},
		"Unknown kinds should fail": {
			kind:   "ansible",
			params: map[string]any{"cmd": "true"},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			a, err := newRegistry(t, nil).New(test.kind, "t1", test.params)
			if test.expErr {
				require.Error(err)
				require.True(errors.Is(err, model.ErrNotValid))
				return
			}
			require.NoError(err)
			require.Equal(test.expKind, a.Kind())
		})
	}
}

func TestRegistryRegister(t *testing.T) {
	r, err := action.NewRegistry(action.RegistryConfig{})
	require.NoError(t, err)
	assert.False(t, r.Has("shell"))

	r.Register("custom", action.NewShellAction)
	assert.True(t, r.Has("custom"))
	assert.Equal(t, []action.Kind{"custom"}, r.Kinds())

	_, err = r.New("shell", "t1", map[string]any{"cmd": "true"})
	assert.ErrorIs(t, err, model.ErrNotValid)
	assert.ErrorContains(t, err, "supported: [custom]")
}

func TestShellActionRun(t *testing.T) {
	tests := map[string]struct {
		cmd       string
		timeout   any
		expErr    bool
		expCode   int
		expReport bool
		expStdout string
		expStderr string
	}{
		"A successful command without output should report": {
			cmd:       "exit 0",
			expReport: true,
		},
		"A successful command with output should not report": {
			cmd:       "echo hello",
			expReport: false,
		},
		"A successful command with error output should report": {
			cmd:       "echo hello; echo oops >&2",
			expReport: true,
			expStdout: "hello\n",
			expStderr: "oops\n",
		},
		"A failed command should fail and report": {
			cmd:       "echo hello; exit 3",
			expErr:    true,
			expCode:   3,
			expReport: true,
			expStdout: "hello\n",
		},
		"A command exceeding its timeout should fail": {
			cmd:       "sleep 5",
			timeout:   0.2,
			expErr:    true,
			expCode:   -1,
			expReport: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			params := map[string]any{"cmd": test.cmd}
			if test.timeout != nil {
				params["timeout"] = test.timeout
			}
			a, err := newRegistry(t, nil).New("shell", "t1", params)
			require.NoError(err)

			start := time.Now()
			err = a.Run(context.Background())
			require.Less(time.Since(start), 4*time.Second)

			if test.expErr {
				var afErr *model.ActionFailedError
				require.True(errors.As(err, &afErr))
				require.True(errors.Is(err, model.ErrActionFailed))
				assert.Equal(t, "t1", afErr.TaskID)
				assert.Equal(t, "shell", afErr.ActionKind)
				assert.Equal(t, test.expCode, afErr.ExitCode)
			} else {
				require.NoError(err)
			}

			report, ok := a.Report()
			require.Equal(test.expReport, ok)
			if !ok {
				return
			}
			res := decodeReport(t, report)
			assert.Equal(t, test.cmd, res.Command)
			assert.Equal(t, test.expCode, res.Code)
			assert.Equal(t, test.expStderr, res.Stderr)
			if test.expStdout != "" {
				assert.Equal(t, test.expStdout, res.Stdout)
			}
		})
	}
}

func TestShellActionReset(t *testing.T) {
	a, err := newRegistry(t, nil).New("shell", "t1", map[string]any{"cmd": "exit 0"})
	require.NoError(t, err)

	_, ok := a.Report()
	assert.False(t, ok)

	require.NoError(t, a.Run(context.Background()))
	_, ok = a.Report()
	assert.True(t, ok)

	a.Reset()
	_, ok = a.Report()
	assert.False(t, ok)
}

func TestShellActionExecutorError(t *testing.T) {
	exec := action.ExecutorFunc(func(ctx context.Context, command string) (*action.Result, error) {
		return nil, errors.New("no shell")
	})

	a, err := newRegistry(t, exec).New("shell", "t1", map[string]any{"cmd": "true"})
	require.NoError(t, err)

	err = a.Run(context.Background())
	assert.True(t, errors.Is(err, model.ErrActionFailed))

	report, ok := a.Report()
	require.True(t, ok)
	res := decodeReport(t, report)
	assert.Equal(t, -1, res.Code)
	assert.Equal(t, "no shell", res.Stderr)
}

func TestPuppetActionRun(t *testing.T) {
	tests := map[string]struct {
		params     map[string]any
		code       int
		expCommand string
		expErr     bool
	}{
		"No changes should succeed": {
			params:     map[string]any{"puppet_manifest": "site.pp"},
			code:       0,
			expCommand: "puppet apply --modulepath=/etc/puppet/modules --verbose --detailed-exitcodes site.pp",
		},
		"Applied changes should succeed": {
			params:     map[string]any{"puppet_manifest": "site.pp", "puppet_modules": "/srv/modules"},
			code:       2,
			expCommand: "puppet apply --modulepath=/srv/modules --verbose --detailed-exitcodes site.pp",
		},
		"Failures should fail": {
			params:     map[string]any{"puppet_manifest": "site.pp"},
			code:       4,
			expCommand: "puppet apply --modulepath=/etc/puppet/modules --verbose --detailed-exitcodes site.pp",
			expErr:     true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			var gotCommand string
			exec := action.ExecutorFunc(func(ctx context.Context, command string) (*action.Result, error) {
				gotCommand = command
				return &action.Result{Command: command, Stdout: "Notice: applied", Code: test.code}, nil
			})

			a, err := newRegistry(t, exec).New("puppet", "t1", test.params)
			require.NoError(err)

			err = a.Run(context.Background())
			assert.Equal(t, test.expCommand, gotCommand)
			if test.expErr {
				require.True(errors.Is(err, model.ErrActionFailed))
			} else {
				require.NoError(err)
			}
		})
	}
}
