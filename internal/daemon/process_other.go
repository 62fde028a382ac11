//go:build !unix

package daemon

import "os"

// SignalChecker checks process liveness by looking the process up.
type SignalChecker struct{}

// IsAlive returns true when a process with pid can be found.
func (SignalChecker) IsAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	_ = p.Release()
	return true
}
