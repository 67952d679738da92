//go:build !windows

package proc

import (
	"errors"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setProcGroup puts the child in its own process group so the entire
// child tree can be signalled at once.
func setProcGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// interrupt sends SIGTERM to the child's group, or to the child alone.
func interrupt(p *os.Process, group bool) error {
	if group {
		return unix.Kill(-p.Pid, unix.SIGTERM)
	}
	return p.Signal(unix.SIGTERM)
}

// killTree sends SIGKILL to the entire process group (negative PID).
func killTree(p *os.Process, group bool) error {
	if group {
		return unix.Kill(-p.Pid, unix.SIGKILL)
	}
	return p.Kill()
}

func isNoSuchProcess(err error) bool {
	return errors.Is(err, unix.ESRCH)
}
