// Package logging builds the launcher's zap logger.
//
// Records are written as JSON lines into a RotatingLogger. Development
// mode adds a human-readable console core on stderr.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures New.
type Options struct {
	// Level is debug, info, warn or error.
	Level string
	// Dir receives rotated JSON log files. Empty disables file logging.
	Dir string
	// Development adds a console core.
	Development bool
	// Console is the console core's destination, stderr when nil.
	Console io.Writer
}

// Logger bundles the zap logger with the files it writes.
type Logger struct {
	*zap.Logger
	file *RotatingLogger
}

// New builds a Logger from opts.
func New(opts Options) (*Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		l, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = l
	}
	enabler := zap.NewAtomicLevelAt(level)

	var cores []zapcore.Core
	var file *RotatingLogger

	if opts.Dir != "" {
		rl, err := NewRotatingLogger(opts.Dir, "voxstella")
		if err != nil {
			return nil, err
		}
		file = rl
		enc := zap.NewProductionEncoderConfig()
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(rl), enabler))
	}

	if opts.Development || len(cores) == 0 {
		w := opts.Console
		if w == nil {
			w = os.Stderr
		}
		enc := zap.NewDevelopmentEncoderConfig()
		enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(zapcore.AddSync(w)), enabler))
	}

	return &Logger{
		Logger: zap.New(zapcore.NewTee(cores...)),
		file:   file,
	}, nil
}

// FilePath returns the current log file, or "" without file logging.
func (l *Logger) FilePath() string {
	if l.file == nil {
		return ""
	}
	return l.file.FilePath()
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	_ = l.Logger.Sync()
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// MaxLineLength caps a buffered line. Longer output is logged in chunks
// marked partial.
const MaxLineLength = 64 << 10

// LineWriter turns a byte stream into one log record per line, used for
// the backend's piped stdout and stderr.
type LineWriter struct {
	logger *zap.Logger
	msg    string

	mu  sync.Mutex
	buf []byte
}

// NewLineWriter logs every line written to it as msg with a "line" field.
func NewLineWriter(logger *zap.Logger, msg string) *LineWriter {
	return &LineWriter{logger: logger, msg: msg}
}

func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.emit(w.buf[:i], false)
		w.buf = w.buf[i+1:]
	}
	for len(w.buf) >= MaxLineLength {
		w.emit(w.buf[:MaxLineLength], true)
		w.buf = w.buf[MaxLineLength:]
	}
	if len(w.buf) == 0 {
		w.buf = nil
	}
	return len(p), nil
}

// Flush logs a trailing partial line.
func (w *LineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) > 0 {
		w.emit(w.buf, false)
		w.buf = nil
	}
}

func (w *LineWriter) emit(line []byte, partial bool) {
	s := strings.TrimRight(string(line), "\r")
	if s == "" {
		return
	}
	if partial {
		w.logger.Info(w.msg, zap.String("line", s), zap.Bool("partial", true))
		return
	}
	w.logger.Info(w.msg, zap.String("line", s))
}
