package tasklib

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slok/tasklib/test/integration/testutils"
)

// Config holds integration test configuration loaded from environment variables.
type Config struct {
	Binary string
}

func (c *Config) defaults() error {
	if c.Binary == "" {
		c.Binary = "tasklib"
	}

	// go test changes the CWD to the test package directory, relative paths
	// would not point to the binary.
	if !filepath.IsAbs(c.Binary) {
		return fmt.Errorf("TASKLIB_INTEGRATION_BINARY must be an absolute path, got %q", c.Binary)
	}
	if _, err := os.Stat(c.Binary); err != nil {
		return fmt.Errorf("tasklib binary not found at %q: %w", c.Binary, err)
	}

	return nil
}

// NewConfig loads integration test configuration from environment variables.
// If the config is invalid or the activation env var is not set, the test is skipped.
func NewConfig(t *testing.T) Config {
	t.Helper()

	const (
		envActivation = "TASKLIB_INTEGRATION"
		envBinary     = "TASKLIB_INTEGRATION_BINARY"
	)

	if os.Getenv(envActivation) != "true" {
		t.Skipf("Skipping integration test: %s is not set to 'true'", envActivation)
	}

	c := Config{
		Binary: os.Getenv(envBinary),
	}

	if err := c.defaults(); err != nil {
		t.Skipf("Skipping due to invalid config: %s", err)
	}

	return c
}

// Env is an isolated tasklib installation: task library, configuration and state
// directories under a temporary directory.
type Env struct {
	Config Config
	Dir    string
}

// NewEnv creates an isolated environment with a task library file holding tasksYAML.
func NewEnv(t *testing.T, config Config, tasksYAML string) Env {
	t.Helper()

	dir := t.TempDir()
	e := Env{Config: config, Dir: dir}

	require.NoError(t, os.MkdirAll(e.TasksDir(), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(e.TasksDir(), "tasks.yaml"), []byte(tasksYAML), 0644))

	cfg := fmt.Sprintf("history_db: %s\nlog_file: %s\n", e.HistoryDB(), e.LogFile())
	require.NoError(t, os.WriteFile(e.ConfigFile(), []byte(cfg), 0644))

	return e
}

func (e Env) TasksDir() string   { return filepath.Join(e.Dir, "tasks") }
func (e Env) PIDDir() string     { return filepath.Join(e.Dir, "pid") }
func (e Env) StatusDir() string  { return filepath.Join(e.Dir, "status") }
func (e Env) ReportDir() string  { return filepath.Join(e.Dir, "report") }
func (e Env) ConfigFile() string { return filepath.Join(e.Dir, "tasklib.yaml") }
func (e Env) HistoryDB() string  { return filepath.Join(e.Dir, "tasklib.db") }
func (e Env) LogFile() string    { return filepath.Join(e.Dir, "tasklib.log") }

// Run runs a tasklib command on the environment. It suppresses logging output for
// cleaner test output.
func (e Env) Run(ctx context.Context, args ...string) (stdout, stderr []byte, exitCode int, err error) {
	all := []string{
		"--config", e.ConfigFile(),
		"--tasks-dir", e.TasksDir(),
		"--pid-dir", e.PIDDir(),
		"--status-dir", e.StatusDir(),
		"--report-dir", e.ReportDir(),
	}
	all = append(all, args...)

	return testutils.RunTasklibArgs(ctx, nil, e.Config.Binary, all, true)
}

// RunTask runs a task in the foreground.
func (e Env) RunTask(ctx context.Context, taskID string) (stdout, stderr []byte, exitCode int, err error) {
	return e.Run(ctx, "run", taskID)
}

// RunDaemon starts a detached run of a task.
func (e Env) RunDaemon(ctx context.Context, taskID string) (stdout, stderr []byte, exitCode int, err error) {
	return e.Run(ctx, "daemon", taskID)
}

// RunStatus gets the status of a task in JSON format.
func (e Env) RunStatus(ctx context.Context, taskID string) (stdout, stderr []byte, exitCode int, err error) {
	return e.Run(ctx, "status", taskID, "--format", "json")
}

// RunReport gets the reports of a task in JSON format.
func (e Env) RunReport(ctx context.Context, taskID string) (stdout, stderr []byte, exitCode int, err error) {
	return e.Run(ctx, "report", taskID, "--format", "json")
}

// RunClear clears the state of a task.
func (e Env) RunClear(ctx context.Context, taskID string) (stdout, stderr []byte, exitCode int, err error) {
	return e.Run(ctx, "clear", taskID)
}

// RunHistory lists the runs of a task in JSON format.
func (e Env) RunHistory(ctx context.Context, taskID string) (stdout, stderr []byte, exitCode int, err error) {
	return e.Run(ctx, "history", taskID, "--format", "json")
}
