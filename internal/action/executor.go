package action

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

const waitDelay = 500 * time.Millisecond

// Result is the outcome of a command execution.
type Result struct {
	Command string `yaml:"command"`
	Stdout  string `yaml:"stdout"`
	Stderr  string `yaml:"stderr"`
	Code    int    `yaml:"code"`
}

// Executor runs commands.
type Executor interface {
	// Execute runs the command, a non zero exit code is not an error.
	Execute(ctx context.Context, command string) (*Result, error)
}

// ExecutorFunc is a helper to use functions as Executors.
type ExecutorFunc func(ctx context.Context, command string) (*Result, error)

func (f ExecutorFunc) Execute(ctx context.Context, command string) (*Result, error) {
	return f(ctx, command)
}

// ShellExecutor runs commands with the system shell capturing their output.
type ShellExecutor struct {
	shell string
}

// NewShellExecutor returns a new executor using /bin/sh.
func NewShellExecutor() ShellExecutor {
	return ShellExecutor{shell: "/bin/sh"}
}

func (s ShellExecutor) Execute(ctx context.Context, command string) (*Result, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.shell, "-c", command)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Orphaned children holding the output pipes must not block a cancelled command.
	cmd.WaitDelay = waitDelay

	err := cmd.Run()
	res := &Result{
		Command: command,
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return res, fmt.Errorf("could not execute command: %w", err)
		}
		// Killed processes (e.g timeouts) report -1.
		res.Code = exitErr.ExitCode()
	}

	return res, nil
}
