package testutils

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"regexp"
	"strings"
)

var multiSpaceRegex = regexp.MustCompile(" +")

// RunTasklib executes a tasklib command with the given arguments string (split by spaces).
// Use RunTasklibArgs when arguments contain spaces that should be preserved.
func RunTasklib(ctx context.Context, env []string, binary, cmdArgs string, nolog bool) (stdout, stderr []byte, exitCode int, err error) {
	// Sanitize command.
	cmdArgs = strings.TrimSpace(cmdArgs)
	cmdArgs = multiSpaceRegex.ReplaceAllString(cmdArgs, " ")

	// Split into args.
	var args []string
	if cmdArgs != "" {
		args = strings.Split(cmdArgs, " ")
	}

	return RunTasklibArgs(ctx, env, binary, args, nolog)
}

// RunTasklibArgs executes a tasklib command with pre-split arguments.
// Non zero exits are returned as the exit code, err is only set when the binary
// could not be executed.
func RunTasklibArgs(ctx context.Context, env []string, binary string, args []string, nolog bool) (stdout, stderr []byte, exitCode int, err error) {
	var outData, errData bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = &outData
	cmd.Stderr = &errData

	// Set env: os.Environ() first, then custom env overrides on top.
	// In Go's exec.Cmd, when duplicate keys exist, the last one wins.
	newEnv := append([]string{}, os.Environ()...)
	newEnv = append(newEnv, env...)
	if nolog {
		newEnv = append(newEnv, "TASKLIB_NO_LOG=true")
	}
	cmd.Env = newEnv

	err = cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return outData.Bytes(), errData.Bytes(), exitErr.ExitCode(), nil
	}

	return outData.Bytes(), errData.Bytes(), 0, err
}
