//go:build windows

package proc

import (
	"errors"
	"os"
	"os/exec"
	"strconv"
	"syscall"

	"golang.org/x/sys/windows"
)

// taskkill exits with 128 when the PID no longer exists.
const taskkillNotFound = 128

// setProcGroup starts the child in a new process group so a console
// break event reaches only the backend.
func setProcGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: windows.CREATE_NEW_PROCESS_GROUP}
}

// interrupt delivers CTRL_BREAK to the child's process group. It fails
// when the child has no console, which callers treat as "escalate now".
func interrupt(p *os.Process, group bool) error {
	if !group {
		return errors.New("cooperative interrupt is not supported for this process")
	}
	return windows.GenerateConsoleCtrlEvent(windows.CTRL_BREAK_EVENT, uint32(p.Pid))
}

// killTree uses taskkill because Windows has no process-group signal.
func killTree(p *os.Process, _ bool) error {
	return taskkillTree(p.Pid)
}

func taskkillTree(pid int) error {
	cmd := exec.Command("taskkill", "/pid", strconv.Itoa(pid), "/t", "/f")
	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == taskkillNotFound {
		return nil
	}
	return err
}

// terminatePID kills one process through TerminateProcess.
func terminatePID(pid int) error {
	h, err := windows.OpenProcess(windows.PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		if errors.Is(err, windows.ERROR_INVALID_PARAMETER) {
			return nil
		}
		return err
	}
	defer windows.CloseHandle(h)
	return windows.TerminateProcess(h, 1)
}

func isNoSuchProcess(err error) bool {
	return errors.Is(err, windows.ERROR_INVALID_PARAMETER) || errors.Is(err, windows.ERROR_ACCESS_DENIED)
}
