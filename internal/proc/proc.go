// Package proc spawns and terminates the backend process.
//
// A Launcher starts a child and attaches its exit observer before
// returning, so an exit during the startup wait is never missed. A
// Terminator, chosen once per platform, stops a child and its descendants.
package proc

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

// waitDelay bounds how long Wait keeps copying output after the child exits
// while a descendant still holds the pipes open.
const waitDelay = 5 * time.Second

// Spec describes one backend launch.
type Spec struct {
	Command string
	Args    []string
	Dir     string
	// Env entries are appended to the launcher's own environment.
	Env []string
	// Console runs the child on a pseudo-terminal when the platform
	// supports it, falling back to plain pipes.
	Console bool
	Stdout  io.Writer
	Stderr  io.Writer
}

// ExitStatus is delivered exactly once per process.
type ExitStatus struct {
	Pid int
	// Code is the exit code; signal deaths report 128+signal.
	Code int
	// Signal names the terminating signal, if any.
	Signal string
	Err    error
}

// Abnormal reports a non-zero exit.
func (s ExitStatus) Abnormal() bool { return s.Code != 0 }

func (s ExitStatus) String() string {
	if s.Signal != "" {
		return fmt.Sprintf("pid %d exited with code %d (signal %s)", s.Pid, s.Code, s.Signal)
	}
	return fmt.Sprintf("pid %d exited with code %d", s.Pid, s.Code)
}

// Process is a running child.
type Process interface {
	Pid() int
	// Done is closed after the exit observer has been called.
	Done() <-chan struct{}
	// Interrupt asks the child to stop cooperatively.
	Interrupt() error
	// KillTree forcefully kills the child and its descendants.
	KillTree() error
	// Kill forcefully kills the direct child only.
	Kill() error
}

// ExitFunc observes a process exit.
type ExitFunc func(p Process, status ExitStatus)

// Launcher starts backend processes.
type Launcher interface {
	Launch(spec Spec, onExit ExitFunc) (Process, error)
}

// ExecLauncher launches real processes through os/exec.
type ExecLauncher struct{}

// NewExecLauncher creates the production Launcher.
func NewExecLauncher() *ExecLauncher {
	return &ExecLauncher{}
}

// Launch starts spec. The exit observer runs on its own goroutine once the
// child has been reaped; it is registered before Launch returns.
func (l *ExecLauncher) Launch(spec Spec, onExit ExitFunc) (Process, error) {
	if spec.Command == "" {
		return nil, errors.New("no command provided")
	}

	if spec.Console && consoleSupported() {
		p, err := startConsole(spec, onExit)
		if err == nil {
			return p, nil
		}
		// Fall through to plain pipes when the terminal cannot be allocated.
	}

	cmd := exec.Command(spec.Command, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = append(os.Environ(), spec.Env...)
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr
	cmd.WaitDelay = waitDelay
	setProcGroup(cmd)

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &execProcess{
		cmd:   cmd,
		pid:   cmd.Process.Pid,
		group: true,
		done:  make(chan struct{}),
	}
	go p.wait(onExit, nil)
	return p, nil
}

type execProcess struct {
	cmd   *exec.Cmd
	pid   int
	group bool
	done  chan struct{}

	mu     sync.Mutex
	status ExitStatus
}

func (p *execProcess) Pid() int              { return p.pid }
func (p *execProcess) Done() <-chan struct{} { return p.done }

func (p *execProcess) Interrupt() error {
	if p.exited() {
		return nil
	}
	return ignoreGone(p, interrupt(p.cmd.Process, p.group))
}

func (p *execProcess) KillTree() error {
	if p.exited() {
		return nil
	}
	return ignoreGone(p, killTree(p.cmd.Process, p.group))
}

func (p *execProcess) Kill() error {
	if p.exited() {
		return nil
	}
	return ignoreGone(p, p.cmd.Process.Kill())
}

// Status returns the exit status once Done is closed.
func (p *execProcess) Status() ExitStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *execProcess) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *execProcess) wait(onExit ExitFunc, cleanup func()) {
	err := p.cmd.Wait()
	status := exitStatus(p.pid, p.cmd.ProcessState, err)
	if cleanup != nil {
		cleanup()
	}

	p.mu.Lock()
	p.status = status
	p.mu.Unlock()

	if onExit != nil {
		onExit(p, status)
	}
	close(p.done)
}

// ignoreGone drops errors caused by the process having already exited.
func ignoreGone(p Process, err error) error {
	if err == nil || errors.Is(err, os.ErrProcessDone) || isNoSuchProcess(err) {
		return nil
	}
	select {
	case <-p.Done():
		return nil
	default:
		return err
	}
}
