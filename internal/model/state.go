package model

// Field is a persisted piece of the state of a task.
type Field string

const (
	// FieldStatus holds the task status name.
	FieldStatus Field = "status"
	// FieldPID holds the process id of the detached run.
	FieldPID Field = "pid"
)

// ReportField returns the field that holds the report of a phase.
func ReportField(p Phase) Field { return Field(p) }

// Phase returns the phase of a report field.
func (f Field) Phase() (Phase, bool) {
	p, err := ParsePhase(string(f))
	if err != nil {
		return "", false
	}
	return p, true
}
