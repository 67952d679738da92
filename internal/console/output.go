// Package console formats launcher output for a terminal.
package console

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"golang.org/x/term"
)

// OutputFormatter handles formatted console output with colors
type OutputFormatter struct {
	writer    io.Writer
	useColors bool
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

// NewOutputFormatter creates a new OutputFormatter
func NewOutputFormatter(w io.Writer) *OutputFormatter {
	if w == nil {
		w = os.Stdout
	}
	return &OutputFormatter{
		writer:    w,
		useColors: colorsEnabled(w),
	}
}

func colorsEnabled(w io.Writer) bool {
	// Windows consoles only render ANSI under Windows Terminal
	if runtime.GOOS == "windows" && os.Getenv("WT_SESSION") == "" {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return IsTerminal(w)
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Writer returns the underlying writer.
func (o *OutputFormatter) Writer() io.Writer {
	return o.writer
}

// Success prints a success message with green checkmark
func (o *OutputFormatter) Success(msg string) {
	if o.useColors {
		fmt.Fprintf(o.writer, "%s✓%s %s\n", colorGreen, colorReset, msg)
	} else {
		fmt.Fprintf(o.writer, "✓ %s\n", msg)
	}
}

// Error prints an error message with red cross
func (o *OutputFormatter) Error(msg string) {
	if o.useColors {
		fmt.Fprintf(o.writer, "%s✗%s %s\n", colorRed, colorReset, msg)
	} else {
		fmt.Fprintf(o.writer, "✗ %s\n", msg)
	}
}

// Warning prints a warning message with yellow warning sign
func (o *OutputFormatter) Warning(msg string) {
	if o.useColors {
		fmt.Fprintf(o.writer, "%s⚠️%s %s\n", colorYellow, colorReset, msg)
	} else {
		fmt.Fprintf(o.writer, "⚠️ %s\n", msg)
	}
}

// Info prints an info message
func (o *OutputFormatter) Info(msg string) {
	fmt.Fprintln(o.writer, msg)
}

// Field prints an aligned "key: value" line.
func (o *OutputFormatter) Field(key, value string) {
	fmt.Fprintf(o.writer, "  %-14s %s\n", key+":", value)
}

// Probe prints one path check, marked found or missing.
func (o *OutputFormatter) Probe(path string, found bool) {
	if found {
		fmt.Fprintf(o.writer, "  %s %s\n", o.Green("✓"), path)
		return
	}
	fmt.Fprintf(o.writer, "  %s %s\n", o.Red("✗"), path)
}

// ErrorBox prints a framed error for when no native dialog is available.
func (o *OutputFormatter) ErrorBox(title, message string) {
	lines := strings.Split(message, "\n")
	width := len([]rune(title))
	for _, l := range lines {
		if n := len([]rune(l)); n > width {
			width = n
		}
	}
	border := strings.Repeat("─", width+2)

	fmt.Fprintf(o.writer, "┌%s┐\n", border)
	fmt.Fprintf(o.writer, "│ %s │\n", o.Bold(pad(title, width)))
	fmt.Fprintf(o.writer, "├%s┤\n", border)
	for _, l := range lines {
		fmt.Fprintf(o.writer, "│ %s │\n", pad(l, width))
	}
	fmt.Fprintf(o.writer, "└%s┘\n", border)
}

func pad(s string, width int) string {
	if n := len([]rune(s)); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

// Bold returns the string wrapped in bold formatting
func (o *OutputFormatter) Bold(s string) string {
	return o.wrap(colorBold, s)
}

// Cyan returns the string wrapped in cyan formatting
func (o *OutputFormatter) Cyan(s string) string {
	return o.wrap(colorCyan, s)
}

// Green returns the string wrapped in green formatting
func (o *OutputFormatter) Green(s string) string {
	return o.wrap(colorGreen, s)
}

// Red returns the string wrapped in red formatting
func (o *OutputFormatter) Red(s string) string {
	return o.wrap(colorRed, s)
}

func (o *OutputFormatter) wrap(color, s string) string {
	if o.useColors {
		return color + s + colorReset
	}
	return s
}
