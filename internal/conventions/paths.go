package conventions

import (
	"path/filepath"

	"github.com/slok/tasklib/internal/model"
)

const (
	// DefaultUserConfigDir is the per user configuration directory name (relative to home).
	DefaultUserConfigDir = ".tasklib"
	// ConfigFile is the configuration file name looked up on the working and user directories.
	ConfigFile = "tasklib.yaml"

	// PIDSuffix is the suffix of the pid files.
	PIDSuffix = "pid"
	// StatusSuffix is the suffix of the status files.
	StatusSuffix = "status"
)

// PIDFilePath returns the path of the pid file of a task.
func PIDFilePath(pidDir, taskID string) string {
	return filepath.Join(pidDir, taskID+"."+PIDSuffix)
}

// StatusFilePath returns the path of the status file of a task.
func StatusFilePath(statusDir, taskID string) string {
	return filepath.Join(statusDir, taskID+"."+StatusSuffix)
}

// ReportFilePath returns the path of the report file of a task phase.
func ReportFilePath(reportDir, taskID string, phase model.Phase) string {
	return filepath.Join(reportDir, taskID+"."+string(phase))
}

// UserConfigPath returns the path of the per user configuration file.
func UserConfigPath(homeDir string) string {
	return filepath.Join(homeDir, DefaultUserConfigDir, ConfigFile)
}
