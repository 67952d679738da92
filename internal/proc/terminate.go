package proc

import (
	"context"
	"fmt"
	"time"

	"github.com/voxstella/launcher/internal/config"
)

// settleTimeout bounds the wait for the exit observer after a forced kill.
const settleTimeout = 2 * time.Second

// Mode selects how a process is stopped.
type Mode int

const (
	// Graceful asks cooperatively first and escalates after a grace window.
	Graceful Mode = iota
	// Immediate goes straight to the forced step.
	Immediate
)

func (m Mode) String() string {
	if m == Immediate {
		return "immediate"
	}
	return "graceful"
}

// Terminator stops a running process. Terminating a process that has
// already exited, or exits mid-sequence, is not an error.
type Terminator interface {
	Terminate(ctx context.Context, p Process, mode Mode) error
	Name() string
}

// NewTerminator selects the variant for goos.
func NewTerminator(goos string, cfg config.ShutdownConfig) Terminator {
	if goos == "windows" {
		return &TreeKillTerminator{
			EscalateAfter: cfg.EscalateAfter,
			FinalAfter:    cfg.FinalAfter,
			Settle:        settleTimeout,
		}
	}
	return &SignalTerminator{Grace: cfg.Grace, Settle: settleTimeout}
}

// SignalTerminator serves platforms where a cooperative signal to the
// process group is reliable: SIGTERM, then SIGKILL to the group after Grace.
type SignalTerminator struct {
	Grace  time.Duration
	Settle time.Duration
}

func (t *SignalTerminator) Name() string { return "signal" }

func (t *SignalTerminator) Terminate(ctx context.Context, p Process, mode Mode) error {
	if exited(p) {
		return nil
	}

	if mode == Graceful {
		if err := p.Interrupt(); err == nil {
			if waitDone(ctx, p, t.Grace) {
				return nil
			}
		} else if exited(p) {
			return nil
		}
	}

	if exited(p) {
		return nil
	}
	if err := p.KillTree(); err != nil && !exited(p) {
		return fmt.Errorf("failed to kill process tree %d: %w", p.Pid(), err)
	}
	waitDone(ctx, p, t.Settle)
	return nil
}

// TreeKillTerminator serves platforms where cooperative signals do not
// reliably stop a process tree. After EscalateAfter the whole tree is
// killed; after FinalAfter the direct child is terminated outright.
type TreeKillTerminator struct {
	EscalateAfter time.Duration
	FinalAfter    time.Duration
	Settle        time.Duration
}

func (t *TreeKillTerminator) Name() string { return "tree-kill" }

func (t *TreeKillTerminator) Terminate(ctx context.Context, p Process, mode Mode) error {
	if exited(p) {
		return nil
	}

	start := time.Now()
	if mode == Graceful {
		if err := p.Interrupt(); err == nil {
			if waitDone(ctx, p, t.EscalateAfter) {
				return nil
			}
		} else if exited(p) {
			return nil
		}
	}

	if exited(p) {
		return nil
	}
	treeErr := p.KillTree()

	final := t.FinalAfter - time.Since(start)
	if mode == Immediate || final <= 0 {
		final = t.FinalAfter - t.EscalateAfter
	}
	if waitDone(ctx, p, final) {
		return nil
	}

	if err := p.Kill(); err != nil && !exited(p) {
		if treeErr != nil {
			return fmt.Errorf("failed to terminate process %d: %v (tree kill: %w)", p.Pid(), err, treeErr)
		}
		return fmt.Errorf("failed to terminate process %d: %w", p.Pid(), err)
	}
	waitDone(ctx, p, t.Settle)
	return nil
}

func exited(p Process) bool {
	select {
	case <-p.Done():
		return true
	default:
		return false
	}
}

// waitDone waits up to d for p to exit and reports whether it did.
func waitDone(ctx context.Context, p Process, d time.Duration) bool {
	if d <= 0 {
		return exited(p)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-p.Done():
		return true
	case <-timer.C:
		return exited(p)
	case <-ctx.Done():
		return exited(p)
	}
}
