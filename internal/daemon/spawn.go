// Package daemon has the OS facing parts of the detached task runs: starting a background
// copy of the running binary and probing process liveness.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/slok/tasklib/internal/log"
	"github.com/slok/tasklib/internal/model"
)

// RunCommand is the hidden CLI command the detached child executes.
const RunCommand = "internal-daemon-run"

// ExecSpawnerConfig is the configuration of the exec spawner.
type ExecSpawnerConfig struct {
	// Binary is the executable to spawn, by default the running one.
	Binary string
	// Args are the global flags passed before the run command so the child
	// loads the same configuration.
	Args []string
	// LogFile receives the child output, by default it's discarded.
	LogFile string
	Logger  log.Logger
}

func (c *ExecSpawnerConfig) defaults() error {
	if c.Binary == "" {
		bin, err := os.Executable()
		if err != nil {
			return fmt.Errorf("could not find tasklib binary: %w", err)
		}
		c.Binary = bin
	}
	if c.LogFile == "" {
		c.LogFile = os.DevNull
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "daemon.ExecSpawner"})
	return nil
}

// ExecSpawner starts detached task runs by re-executing a binary on a new session.
type ExecSpawner struct {
	binary  string
	args    []string
	logFile string
	logger  log.Logger
}

// NewExecSpawner returns a new exec spawner.
func NewExecSpawner(cfg ExecSpawnerConfig) (*ExecSpawner, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &ExecSpawner{
		binary:  cfg.Binary,
		args:    cfg.Args,
		logFile: cfg.LogFile,
		logger:  cfg.Logger,
	}, nil
}

// SpawnDetached starts the background run of a task and returns its pid without waiting for it.
func (e *ExecSpawner) SpawnDetached(ctx context.Context, taskID string, workDir string) (int, error) {
	if dir := filepath.Dir(e.logFile); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 0, fmt.Errorf("could not create log directory: %w", err)
		}
	}
	logFile, err := os.OpenFile(e.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return 0, fmt.Errorf("could not open daemon log file: %w", err)
	}
	defer logFile.Close()

	// Not bound to ctx, the child must outlive the parent.
	cmd := exec.Command(e.binary, BuildArgs(e.args, taskID, workDir)...)
	cmd.Dir = workDir
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = sysProcAttr()

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("could not start detached process: %w", err)
	}
	pid := cmd.Process.Pid

	// Reap the child so a long lived parent doesn't keep it as a zombie, zombies
	// still answer the null signal.
	go func() {
		if err := cmd.Wait(); err != nil {
			e.logger.Debugf("Detached run of %s with pid %d ended: %s", taskID, pid, err)
		}
	}()

	e.logger.Debugf("Spawned detached run of %s with pid %d", taskID, pid)
	return pid, nil
}

// BuildArgs constructs the command line arguments of a detached run.
func BuildArgs(globalArgs []string, taskID string, workDir string) []string {
	args := append([]string{}, globalArgs...)
	args = append(args, RunCommand, taskID)
	if workDir != "" {
		args = append(args, "--workdir", workDir)
	}
	return args
}

// ConfigArgs returns the global flags that make a child load cfg as its effective
// configuration. Values use the --flag=value form, some start with dashes.
func ConfigArgs(cfg model.Config) []string {
	args := []string{
		"--tasks-dir=" + cfg.TasksDirectory,
		"--tasks-pattern=" + cfg.TasksPattern,
		"--puppet-modules=" + cfg.PuppetModules,
		"--puppet-options=" + cfg.PuppetOptions,
		"--pid-dir=" + cfg.PIDDir,
		"--status-dir=" + cfg.StatusDir,
		"--report-dir=" + cfg.ReportDir,
	}
	if cfg.HistoryDB == "" {
		args = append(args, "--no-history")
	} else {
		args = append(args, "--history-db="+cfg.HistoryDB)
	}
	return args
}
