//go:build unix

package daemon

import "syscall"

// sysProcAttr detaches the child from the parent session and terminal.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
