package action

import (
	"context"
	"fmt"

	"github.com/slok/tasklib/internal/model"
)

// ShellAction runs the `cmd` parameter with the system shell.
type ShellAction struct {
	commandAction
}

// NewShellAction is the Factory of the shell kinds.
func NewShellAction(deps Dependencies, kind Kind, taskID string, params map[string]any) Action {
	return &ShellAction{
		commandAction: commandAction{
			kind:         kind,
			taskID:       taskID,
			params:       params,
			executor:     deps.Executor,
			logger:       deps.Logger,
			successCodes: []int{0},
		},
	}
}

func (s *ShellAction) command() string {
	cmd, _ := s.params[model.ParamCommand].(string)
	return cmd
}

func (s *ShellAction) Verify() error {
	if s.command() == "" {
		return fmt.Errorf("%s action: %q parameter is required: %w", s.kind, model.ParamCommand, model.ErrNotValid)
	}
	return s.verify()
}

func (s *ShellAction) Run(ctx context.Context) error {
	return s.run(ctx, s.command())
}
