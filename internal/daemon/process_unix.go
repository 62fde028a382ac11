//go:build unix

package daemon

import (
	"errors"

	"golang.org/x/sys/unix"
)

// SignalChecker checks process liveness with the null signal.
type SignalChecker struct{}

// IsAlive returns true when the process table has an entry for pid.
func (SignalChecker) IsAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	err := unix.Kill(pid, 0)
	if err == nil {
		return true
	}

	// Exists but owned by someone else.
	return errors.Is(err, unix.EPERM)
}
