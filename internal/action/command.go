package action

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/slok/tasklib/internal/log"
	"github.com/slok/tasklib/internal/model"
)

const paramTimeout = "timeout"

// commandAction is the base of the actions that execute a single command.
type commandAction struct {
	kind         Kind
	taskID       string
	params       map[string]any
	executor     Executor
	logger       log.Logger
	successCodes []int

	result *Result
}

func (c *commandAction) Kind() Kind { return c.kind }

func (c *commandAction) Reset() { c.result = nil }

func (c *commandAction) verify() error {
	if _, err := c.timeout(); err != nil {
		return err
	}
	return nil
}

func (c *commandAction) timeout() (time.Duration, error) {
	v, ok := c.params[paramTimeout]
	if !ok || v == nil {
		return 0, nil
	}

	var secs float64
	switch t := v.(type) {
	case int:
		secs = float64(t)
	case int64:
		secs = float64(t)
	case uint64:
		secs = float64(t)
	case float64:
		secs = t
	default:
		return 0, fmt.Errorf("%s action: timeout must be a number of seconds, got %T: %w", c.kind, v, model.ErrNotValid)
	}
	if secs < 0 {
		return 0, fmt.Errorf("%s action: timeout must be positive: %w", c.kind, model.ErrNotValid)
	}

	return time.Duration(secs * float64(time.Second)), nil
}

func (c *commandAction) run(ctx context.Context, command string) error {
	c.Reset()

	timeout, err := c.timeout()
	if err != nil {
		return err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	c.logger.Debugf("Running command: %q", command)
	res, err := c.executor.Execute(ctx, command)
	if res == nil {
		res = &Result{Command: command}
	}
	if err != nil {
		// Commands that can't be started are failed actions, the error is kept on the report.
		res.Code = -1
		if res.Stderr == "" {
			res.Stderr = err.Error()
		}
	}
	c.result = res
	c.logger.Debugf("Command finished with code %d", res.Code)

	if !c.success(res.Code) {
		return &model.ActionFailedError{TaskID: c.taskID, ActionKind: string(c.kind), ExitCode: res.Code}
	}

	return nil
}

func (c *commandAction) success(code int) bool {
	for _, sc := range c.successCodes {
		if sc == code {
			return true
		}
	}
	return false
}

// Report renders the last result as YAML. Successful runs with output and without
// errors have nothing noteworthy to report.
func (c *commandAction) Report() (string, bool) {
	if c.result == nil {
		return "", false
	}
	if c.result.Stderr == "" && c.result.Stdout != "" && c.result.Code == 0 {
		return "", false
	}

	data, err := yaml.Marshal(c.result)
	if err != nil {
		c.logger.Warningf("Could not render report: %s", err)
		return fmt.Sprintf("command: %q\ncode: %d\n", c.result.Command, c.result.Code), true
	}

	return string(data), true
}
