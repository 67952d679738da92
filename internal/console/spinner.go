package console

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// SpinnerInterval is the time between frames.
const SpinnerInterval = 100 * time.Millisecond

var spinnerFrames = []rune{'⠋', '⠙', '⠹', '⠸', '⠼', '⠴', '⠦', '⠧', '⠇', '⠏'}

// Spinner shows progress against a startup budget, e.g.
// "⠹ Waiting for backend 0:07 / 2:00". A non-TTY writer gets a single
// line naming the budget instead.
type Spinner struct {
	label  string
	budget time.Duration
	writer io.Writer
	tty    bool

	mu      sync.Mutex
	began   time.Time
	frame   int
	running bool
	used    bool
	quit    chan struct{}
	done    chan struct{}
}

// NewSpinner creates a Spinner. A zero budget shows elapsed time only.
func NewSpinner(label string, budget time.Duration, writer io.Writer) *Spinner {
	if writer == nil {
		writer = os.Stdout
	}
	return &Spinner{
		label:  label,
		budget: budget,
		writer: writer,
		tty:    IsTerminal(writer),
		began:  time.Now(),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start begins animating. It runs at most once per Spinner.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.used {
		return
	}
	s.used = true
	s.running = true
	s.began = time.Now()

	if !s.tty {
		if s.budget > 0 {
			fmt.Fprintf(s.writer, "%s (up to %s)...\n", s.label, clock(s.budget))
		} else {
			fmt.Fprintf(s.writer, "%s...\n", s.label)
		}
		close(s.done)
		return
	}
	go s.animate()
}

// Stop ends the animation and prints final when it is not empty.
func (s *Spinner) Stop(final string) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.quit)
	<-s.done

	if s.tty {
		fmt.Fprint(s.writer, "\r\033[K")
	}
	if final != "" {
		fmt.Fprintln(s.writer, final)
	}
}

// Elapsed returns the time since Start.
func (s *Spinner) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.began)
}

// Remaining returns what is left of the budget, never below zero.
func (s *Spinner) Remaining() time.Duration {
	left := s.budget - s.Elapsed()
	if left < 0 {
		return 0
	}
	return left
}

func (s *Spinner) animate() {
	defer close(s.done)
	ticker := time.NewTicker(SpinnerInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.quit:
			return
		case <-ticker.C:
			s.mu.Lock()
			line := s.line()
			s.mu.Unlock()
			fmt.Fprint(s.writer, line)
		}
	}
}

// line renders the current frame. Callers hold s.mu.
func (s *Spinner) line() string {
	r := spinnerFrames[s.frame]
	s.frame = (s.frame + 1) % len(spinnerFrames)
	progress := clock(time.Since(s.began))
	if s.budget > 0 {
		progress += " / " + clock(s.budget)
	}
	return fmt.Sprintf("\r%s%c%s %s %s", colorGreen, r, colorReset, s.label, progress)
}

// clock formats d as M:SS.
func clock(d time.Duration) string {
	secs := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
