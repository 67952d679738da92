//go:build !windows

package proc

import (
	"io"
	"os"
	"os/exec"

	"github.com/creack/pty"
)

func consoleSupported() bool { return true }

// startConsole runs the child on a PTY. pty.Start makes the child a session
// leader, which also makes it the leader of its own process group.
func startConsole(spec Spec, onExit ExitFunc) (Process, error) {
	cmd := exec.Command(spec.Command, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = append(os.Environ(), spec.Env...)

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, err
	}

	out := spec.Stdout
	if out == nil {
		out = io.Discard
	}
	copied := make(chan struct{})
	go func() {
		defer close(copied)
		// Reading the master returns EIO once the child side closes.
		_, _ = io.Copy(out, ptmx)
	}()

	p := &execProcess{
		cmd:   cmd,
		pid:   cmd.Process.Pid,
		group: true,
		done:  make(chan struct{}),
	}
	go p.wait(onExit, func() {
		_ = ptmx.Close()
		<-copied
	})
	return p, nil
}
