package model

import "fmt"

// Parameter keys shared by the task definitions and the actions.
const (
	ParamType    = "type"
	ParamCommand = "cmd"
	ParamCwd     = "cwd"
)

// DefaultCheckType is the action kind used by checks that set a command without type.
const DefaultCheckType = "shell"

// TaskDefinition is the declarative description of a task as loaded from the task library.
type TaskDefinition struct {
	ID         string         `yaml:"id"`
	Type       string         `yaml:"type"`
	Parameters map[string]any `yaml:"parameters,omitempty"`
	Pre        map[string]any `yaml:"test_pre,omitempty"`
	Post       map[string]any `yaml:"test_post,omitempty"`
	// Source is the library file the definition was loaded from.
	Source string `yaml:"-"`
}

// ActionType returns the task action kind, a type set on the parameters takes precedence.
func (d TaskDefinition) ActionType() string {
	if t, ok := d.Parameters[ParamType].(string); ok && t != "" {
		return t
	}
	return d.Type
}

// WorkDir returns the working directory the task phases should run on, if any.
func (d TaskDefinition) WorkDir() string {
	cwd, _ := d.Parameters[ParamCwd].(string)
	return cwd
}

// Validate checks the definition has the critical items.
func (d TaskDefinition) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("task id is required: %w", ErrNotValid)
	}
	if d.ActionType() == "" {
		return fmt.Errorf("task %q: type is required: %w", d.ID, ErrNotValid)
	}
	return nil
}

// CheckType returns the action kind of a pre or post check definition.
// Checks that only set a command are shell checks.
func CheckType(check map[string]any) string {
	t, _ := check[ParamType].(string)
	if t != "" {
		return t
	}
	if _, ok := check[ParamCommand]; ok {
		return DefaultCheckType
	}
	return ""
}

// PresentPhases returns the phases the definition would execute.
func (d TaskDefinition) PresentPhases() []Phase {
	phases := []Phase{}
	if len(d.Pre) > 0 {
		phases = append(phases, PhasePre)
	}
	phases = append(phases, PhaseTask)
	if len(d.Post) > 0 {
		phases = append(phases, PhasePost)
	}
	return phases
}
