package model

import "fmt"

// Phase is one of the steps of a task execution.
type Phase string

const (
	PhasePre  Phase = "pre"
	PhaseTask Phase = "task"
	PhasePost Phase = "post"
)

// Phases returns the phases in execution order.
func Phases() []Phase {
	return []Phase{PhasePre, PhaseTask, PhasePost}
}

// ParsePhase returns the phase of a name, failing with ErrNotValid on unknown names.
func ParsePhase(name string) (Phase, error) {
	switch p := Phase(name); p {
	case PhasePre, PhaseTask, PhasePost:
		return p, nil
	default:
		return "", fmt.Errorf("unknown phase %q: %w", name, ErrNotValid)
	}
}

// RunStatus is the status set while the phase is being executed.
func (p Phase) RunStatus() Status {
	switch p {
	case PhasePre:
		return StatusRunPre
	case PhasePost:
		return StatusRunPost
	default:
		return StatusRunTask
	}
}

// FailStatus is the status set when the phase action fails.
func (p Phase) FailStatus() Status {
	switch p {
	case PhasePre:
		return StatusFailPre
	case PhasePost:
		return StatusFailPost
	default:
		return StatusFailTask
	}
}
