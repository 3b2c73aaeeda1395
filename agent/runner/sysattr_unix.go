//go:build unix

package runner

import "syscall"

// detachedSysProcAttr puts the child in its own process group so signals sent to the agent do not reach it.
func detachedSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}
