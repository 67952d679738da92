//go:build windows

package proc

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"

	"github.com/UserExistsError/conpty"
	"golang.org/x/sys/windows"
)

func consoleSupported() bool { return conpty.IsConPtyAvailable() }

// startConsole runs the child on a ConPTY pseudo console.
func startConsole(spec Spec, onExit ExitFunc) (Process, error) {
	commandLine := windows.ComposeCommandLine(append([]string{spec.Command}, spec.Args...))
	cpty, err := conpty.Start(commandLine,
		conpty.ConPtyWorkDir(spec.Dir),
		conpty.ConPtyEnv(append(os.Environ(), spec.Env...)),
	)
	if err != nil {
		return nil, err
	}

	out := spec.Stdout
	if out == nil {
		out = io.Discard
	}
	go func() {
		_, _ = io.Copy(out, cpty)
	}()

	p := &conptyProcess{cpty: cpty, pid: cpty.Pid(), done: make(chan struct{})}
	go p.wait(onExit)
	return p, nil
}

type conptyProcess struct {
	cpty *conpty.ConPty
	pid  int
	done chan struct{}

	mu     sync.Mutex
	status ExitStatus
}

func (p *conptyProcess) Pid() int              { return p.pid }
func (p *conptyProcess) Done() <-chan struct{} { return p.done }

// Interrupt is not available on a pseudo console; terminators escalate.
func (p *conptyProcess) Interrupt() error {
	return errors.New("cooperative interrupt is not supported on a pseudo console")
}

func (p *conptyProcess) KillTree() error {
	return ignoreGone(p, taskkillTree(p.pid))
}

func (p *conptyProcess) Kill() error {
	return ignoreGone(p, terminatePID(p.pid))
}

func (p *conptyProcess) wait(onExit ExitFunc) {
	code, err := p.cpty.Wait(context.Background())
	_ = p.cpty.Close()

	status := ExitStatus{Pid: p.pid, Code: int(code), Err: err}
	p.mu.Lock()
	p.status = status
	p.mu.Unlock()

	if onExit != nil {
		onExit(p, status)
	}
	close(p.done)
}
