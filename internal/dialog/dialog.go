// Package dialog shows blocking error messages to the user.
//
// Native dialogs are used when the platform provides one; otherwise the
// message is printed as a framed box on the console.
package dialog

import (
	"errors"
	"os/exec"
	"runtime"

	"github.com/voxstella/launcher/internal/console"
)

// ErrNoDialog is returned when no native dialog tool is available.
var ErrNoDialog = errors.New("no native dialog available")

// Notifier shows an error and returns once the user has seen it.
type Notifier interface {
	ShowError(title, message string) error
}

// Console prints errors as a framed box.
type Console struct {
	Out *console.OutputFormatter
}

func (c *Console) ShowError(title, message string) error {
	c.Out.ErrorBox(title, message)
	return nil
}

// Native shows errors in a platform dialog, falling back to Fallback when
// the dialog cannot be shown.
type Native struct {
	Fallback Notifier

	goos     string
	lookPath func(file string) (string, error)
	run      func(name string, args ...string) error
}

// NewNative creates a Native notifier for the running platform.
func NewNative(fallback Notifier) *Native {
	return &Native{
		Fallback: fallback,
		goos:     runtime.GOOS,
		lookPath: exec.LookPath,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

func (n *Native) ShowError(title, message string) error {
	err := n.show(title, message)
	if err != nil && n.Fallback != nil {
		return n.Fallback.ShowError(title, message)
	}
	return err
}

// New returns the notifier for a launcher mode. Development only writes
// to the console; a developer is expected to be watching it.
func New(development bool, out *console.OutputFormatter) Notifier {
	c := &Console{Out: out}
	if development {
		return c
	}
	return NewNative(c)
}
