//go:build windows

package proc

import "syscall"

func exitCodeFromStatus(status syscall.WaitStatus) int {
	if status.Exited() {
		return status.ExitStatus()
	}
	return 1
}
