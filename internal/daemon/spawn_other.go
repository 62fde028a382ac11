//go:build !unix

package daemon

import "syscall"

func sysProcAttr() *syscall.SysProcAttr {
	return nil
}
