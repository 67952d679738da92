package proc

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

func exitStatus(pid int, state *os.ProcessState, waitErr error) ExitStatus {
	status := ExitStatus{Pid: pid}
	if state == nil {
		status.Code = 1
		status.Err = waitErr
		return status
	}

	if ws, ok := state.Sys().(syscall.WaitStatus); ok {
		status.Code = exitCodeFromStatus(ws)
		if ws.Signaled() {
			status.Signal = ws.Signal().String()
		}
	} else {
		status.Code = state.ExitCode()
		if status.Code < 0 {
			status.Code = 1
		}
	}

	// An *exec.ExitError only restates the exit code; other wait errors
	// (I/O copy failures, WaitDelay expiry) are worth reporting.
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		status.Err = waitErr
	}
	return status
}
