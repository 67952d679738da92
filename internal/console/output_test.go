package console

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewOutputFormatter(t *testing.T) {
	var buf bytes.Buffer
	formatter := NewOutputFormatter(&buf)

	if formatter == nil {
		t.Fatal("NewOutputFormatter returned nil")
	}
	if formatter.Writer() != &buf {
		t.Error("writer not set correctly")
	}
	if formatter.useColors {
		t.Error("a buffer is not a terminal, colors should be off")
	}
}

func TestNewOutputFormatter_NilWriter(t *testing.T) {
	formatter := NewOutputFormatter(nil)

	if formatter == nil {
		t.Fatal("NewOutputFormatter returned nil")
	}
}

func TestOutputFormatter_Messages(t *testing.T) {
	tests := []struct {
		name   string
		print  func(o *OutputFormatter)
		marker string
		text   string
	}{
		{"success", func(o *OutputFormatter) { o.Success("Backend is ready") }, "✓", "Backend is ready"},
		{"error", func(o *OutputFormatter) { o.Error("Port 5000 is already in use") }, "✗", "Port 5000 is already in use"},
		{"warning", func(o *OutputFormatter) { o.Warning("Using fallback interpreter") }, "⚠️", "Using fallback interpreter"},
		{"info", func(o *OutputFormatter) { o.Info("Starting backend") }, "", "Starting backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			formatter := &OutputFormatter{writer: &buf, useColors: false}

			tt.print(formatter)

			output := buf.String()
			if tt.marker != "" && !strings.Contains(output, tt.marker) {
				t.Errorf("Expected marker %q, got %q", tt.marker, output)
			}
			if !strings.Contains(output, tt.text) {
				t.Errorf("Expected message %q, got %q", tt.text, output)
			}
			if strings.Contains(output, "\033[") {
				t.Errorf("Expected no ANSI codes without colors, got %q", output)
			}
		})
	}
}

func TestOutputFormatter_Colors(t *testing.T) {
	var buf bytes.Buffer
	formatter := &OutputFormatter{writer: &buf, useColors: true}

	formatter.Success("ok")
	if !strings.Contains(buf.String(), colorGreen) {
		t.Errorf("Expected green color code, got %q", buf.String())
	}
	if got := formatter.Bold("x"); got != colorBold+"x"+colorReset {
		t.Errorf("Bold = %q", got)
	}

	plain := &OutputFormatter{writer: &buf}
	if got := plain.Cyan("x"); got != "x" {
		t.Errorf("Cyan without colors = %q", got)
	}
}

func TestOutputFormatter_FieldAndProbe(t *testing.T) {
	var buf bytes.Buffer
	formatter := &OutputFormatter{writer: &buf}

	formatter.Field("kind", "compiled-executable")
	formatter.Probe("/opt/backend/app.py", true)
	formatter.Probe("/opt/other/app.py", false)

	output := buf.String()
	if !strings.Contains(output, "kind:") || !strings.Contains(output, "compiled-executable") {
		t.Errorf("Field output missing, got %q", output)
	}
	if !strings.Contains(output, "✓ /opt/backend/app.py") {
		t.Errorf("Expected found probe, got %q", output)
	}
	if !strings.Contains(output, "✗ /opt/other/app.py") {
		t.Errorf("Expected missing probe, got %q", output)
	}
}

func TestOutputFormatter_ErrorBox(t *testing.T) {
	var buf bytes.Buffer
	formatter := &OutputFormatter{writer: &buf}

	formatter.ErrorBox("Backend Error", "Cannot find backend files at:\n/opt/backend/app.py")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 6 {
		t.Fatalf("Expected 6 lines, got %d: %q", len(lines), buf.String())
	}
	width := len([]rune(lines[0]))
	for i, l := range lines {
		if n := len([]rune(l)); n != width {
			t.Errorf("line %d has width %d, want %d: %q", i, n, width, l)
		}
	}
	if !strings.Contains(lines[1], "Backend Error") {
		t.Errorf("Expected title in box, got %q", lines[1])
	}
}
