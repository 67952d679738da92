// Package lock keeps two launchers from supervising the same backend.
package lock

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileName is the lock file kept in the state directory.
const FileName = "launcher.lock"

// LockInfo contains information about the lock holder
type LockInfo struct {
	PID        int       `json:"pid"`
	StartTime  time.Time `json:"start_time"`
	Hostname   string    `json:"hostname"`
	Port       int       `json:"port"`
	BackendPID int       `json:"backend_pid,omitempty"`
}

// HeldError reports a lock owned by a live launcher.
type HeldError struct {
	Info LockInfo
}

func (e *HeldError) Error() string {
	return fmt.Sprintf("another launcher is running (PID: %d, port: %d, started: %s)",
		e.Info.PID, e.Info.Port, e.Info.StartTime.Format(time.RFC3339))
}

// LockManager handles single-instance protection via lock files
type LockManager struct {
	lockFile string
	port     int
	acquired bool
	info     LockInfo
}

// ProcessAlive reports whether a process with the given PID is still running.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return processAlive(pid)
}

// NewLockManager creates a LockManager for lockFile. port is recorded in
// the lock for status reporting.
func NewLockManager(lockFile string, port int) *LockManager {
	return &LockManager{
		lockFile: lockFile,
		port:     port,
	}
}

// Path returns the lock file path.
func (l *LockManager) Path() string {
	return l.lockFile
}

// Acquire creates the lock file with O_EXCL. A lock left by a dead
// process, or one that cannot be parsed, is removed and acquisition is
// retried once.
func (l *LockManager) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.lockFile), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	for attempt := 0; ; attempt++ {
		f, err := os.OpenFile(l.lockFile, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			return l.writeNew(f)
		}
		if !os.IsExist(err) {
			return fmt.Errorf("failed to create lock file: %w", err)
		}

		info, readErr := Read(l.lockFile)
		if readErr == nil && ProcessAlive(info.PID) {
			return &HeldError{Info: *info}
		}
		if attempt > 0 {
			return errors.New("lock file exists and could not be acquired")
		}
		os.Remove(l.lockFile)
	}
}

func (l *LockManager) writeNew(f *os.File) error {
	hostname, _ := os.Hostname()
	l.info = LockInfo{
		PID:       os.Getpid(),
		StartTime: time.Now(),
		Hostname:  hostname,
		Port:      l.port,
	}

	if err := writeInfo(f, l.info); err != nil {
		f.Close()
		os.Remove(l.lockFile)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(l.lockFile)
		return fmt.Errorf("failed to close lock file: %w", err)
	}

	l.acquired = true
	return nil
}

// SetBackendPID records the supervised backend's pid, 0 when none runs.
func (l *LockManager) SetBackendPID(pid int) error {
	if !l.acquired {
		return errors.New("lock not held")
	}
	l.info.BackendPID = pid

	tmp := l.lockFile + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to update lock file: %w", err)
	}
	if err := writeInfo(f, l.info); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to update lock file: %w", err)
	}
	return os.Rename(tmp, l.lockFile)
}

// Release removes the lock file
func (l *LockManager) Release() error {
	if !l.acquired {
		return nil
	}

	if err := os.Remove(l.lockFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to release lock: %w", err)
	}

	l.acquired = false
	return nil
}

// IsStale checks if the lock file is stale (process no longer running)
func (l *LockManager) IsStale() bool {
	info, err := Read(l.lockFile)
	if err != nil {
		return false
	}
	return !ProcessAlive(info.PID)
}

// Read parses a lock file.
func Read(path string) (*LockInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func writeInfo(f *os.File, info LockInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal lock info: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write lock info: %w", err)
	}
	return nil
}
