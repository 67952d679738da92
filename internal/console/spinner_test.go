package console

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestSpinner_NonTTYNamesBudget(t *testing.T) {
	buf := &bytes.Buffer{}
	spinner := NewSpinner("Waiting for backend", 2*time.Minute, buf)

	spinner.Start()
	time.Sleep(50 * time.Millisecond)
	spinner.Stop("Backend is ready")

	output := buf.String()
	if !strings.Contains(output, "Waiting for backend (up to 2:00)...") {
		t.Errorf("Expected static message with budget, got %q", output)
	}
	if count := strings.Count(output, "Waiting for backend"); count != 1 {
		t.Errorf("Expected message to appear once, appeared %d times", count)
	}
	if !strings.HasSuffix(output, "Backend is ready\n") {
		t.Errorf("Expected final message, got %q", output)
	}
}

func TestSpinner_NoBudget(t *testing.T) {
	buf := &bytes.Buffer{}
	spinner := NewSpinner("Waiting", 0, buf)
	spinner.Start()
	spinner.Stop("")

	if buf.String() != "Waiting...\n" {
		t.Errorf("got %q", buf.String())
	}
}

func TestSpinner_Remaining(t *testing.T) {
	spinner := NewSpinner("Waiting", 50*time.Millisecond, &bytes.Buffer{})
	spinner.Start()
	defer spinner.Stop("")

	if left := spinner.Remaining(); left <= 0 || left > 50*time.Millisecond {
		t.Errorf("Remaining right after start = %v", left)
	}
	time.Sleep(80 * time.Millisecond)
	if left := spinner.Remaining(); left != 0 {
		t.Errorf("Remaining after the budget = %v, want 0", left)
	}
}

func TestSpinner_StopIdempotent(t *testing.T) {
	buf := &bytes.Buffer{}
	spinner := NewSpinner("Waiting", time.Minute, buf)

	// Stop before Start is a no-op
	spinner.Stop("never printed")

	spinner.Start()
	spinner.Stop("")
	spinner.Stop("")

	// A stopped spinner does not start again
	spinner.Start()
	spinner.Stop("")

	if strings.Contains(buf.String(), "never printed") {
		t.Errorf("Stop without Start should not print, got %q", buf.String())
	}
	if count := strings.Count(buf.String(), "Waiting"); count != 1 {
		t.Errorf("Expected one start line, got %d", count)
	}
}

func TestSpinner_LineShowsProgressAgainstBudget(t *testing.T) {
	spinner := NewSpinner("Waiting for backend", 2*time.Minute, &bytes.Buffer{})
	spinner.began = time.Now().Add(-7 * time.Second)

	first := spinner.line()
	if !strings.Contains(first, "Waiting for backend 0:07 / 2:00") {
		t.Errorf("got %q", first)
	}
	if second := spinner.line(); second == first {
		t.Error("frames should advance between renders")
	}
}

func TestClock(t *testing.T) {
	cases := map[time.Duration]string{
		0:                                      "0:00",
		59 * time.Second:                       "0:59",
		2 * time.Minute:                        "2:00",
		125*time.Second + 400*time.Millisecond: "2:05",
	}
	for d, want := range cases {
		if got := clock(d); got != want {
			t.Errorf("clock(%v) = %q, want %q", d, got, want)
		}
	}
}
