//go:build !unix

package runner

import "syscall"

func detachedSysProcAttr() *syscall.SysProcAttr {
	return nil
}
