package lock

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// deadPID returns a pid that is very unlikely to be running.
const deadPID = 999999

func TestLockManager_AcquireRelease(t *testing.T) {
	lockFile := filepath.Join(t.TempDir(), "state", FileName)

	lock := NewLockManager(lockFile, 5000)
	if err := lock.Acquire(); err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}

	info, err := Read(lockFile)
	if err != nil {
		t.Fatalf("Failed to read lock file: %v", err)
	}
	if info.PID != os.Getpid() {
		t.Errorf("Expected PID %d, got %d", os.Getpid(), info.PID)
	}
	if info.Port != 5000 {
		t.Errorf("Expected port 5000, got %d", info.Port)
	}
	if info.Hostname == "" {
		t.Error("Hostname should not be empty")
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Failed to release lock: %v", err)
	}
	if _, err := os.Stat(lockFile); !os.IsNotExist(err) {
		t.Error("Lock file should not exist after release")
	}

	// Releasing twice is a no-op
	if err := lock.Release(); err != nil {
		t.Errorf("Second release failed: %v", err)
	}
}

func TestLockManager_HeldByLiveProcess(t *testing.T) {
	lockFile := filepath.Join(t.TempDir(), FileName)

	first := NewLockManager(lockFile, 5000)
	if err := first.Acquire(); err != nil {
		t.Fatalf("First acquire failed: %v", err)
	}
	defer first.Release()

	// The holder is this (live) process
	second := NewLockManager(lockFile, 5000)
	err := second.Acquire()
	if err == nil {
		t.Fatal("Second acquire should fail while the holder is alive")
	}

	var held *HeldError
	if !errors.As(err, &held) {
		t.Fatalf("Expected *HeldError, got %T: %v", err, err)
	}
	if held.Info.PID != os.Getpid() {
		t.Errorf("Expected holder PID %d, got %d", os.Getpid(), held.Info.PID)
	}

	// A failed acquire must not remove the holder's lock
	if err := second.Release(); err != nil {
		t.Errorf("Release of an unacquired lock failed: %v", err)
	}
	if _, err := os.Stat(lockFile); err != nil {
		t.Errorf("Holder's lock file should survive: %v", err)
	}
}

func TestLockManager_StaleLockReclaimed(t *testing.T) {
	lockFile := filepath.Join(t.TempDir(), FileName)

	data, _ := json.Marshal(LockInfo{PID: deadPID, StartTime: time.Now(), Hostname: "old-host"})
	if err := os.WriteFile(lockFile, data, 0644); err != nil {
		t.Fatalf("Failed to write stale lock: %v", err)
	}

	lock := NewLockManager(lockFile, 5000)
	if !lock.IsStale() {
		t.Fatal("Lock with dead PID should be stale")
	}
	if err := lock.Acquire(); err != nil {
		t.Fatalf("Acquire should reclaim stale lock: %v", err)
	}
	defer lock.Release()

	info, _ := Read(lockFile)
	if info == nil || info.PID != os.Getpid() {
		t.Errorf("Expected lock to be rewritten with our PID, got %+v", info)
	}
}

func TestLockManager_CorruptLockReclaimed(t *testing.T) {
	lockFile := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(lockFile, []byte("not json"), 0644); err != nil {
		t.Fatalf("Failed to write corrupt lock: %v", err)
	}

	lock := NewLockManager(lockFile, 5000)
	if lock.IsStale() {
		t.Error("Unreadable lock is not reported as stale")
	}
	if err := lock.Acquire(); err != nil {
		t.Fatalf("Acquire should replace corrupt lock: %v", err)
	}
	lock.Release()
}

func TestLockManager_SetBackendPID(t *testing.T) {
	lockFile := filepath.Join(t.TempDir(), FileName)
	lock := NewLockManager(lockFile, 5000)

	if err := lock.SetBackendPID(42); err == nil {
		t.Error("SetBackendPID should fail before Acquire")
	}

	if err := lock.Acquire(); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer lock.Release()

	if err := lock.SetBackendPID(4242); err != nil {
		t.Fatalf("SetBackendPID failed: %v", err)
	}
	info, err := Read(lockFile)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if info.BackendPID != 4242 {
		t.Errorf("Expected backend PID 4242, got %d", info.BackendPID)
	}
	if info.PID != os.Getpid() {
		t.Errorf("Holder PID should be preserved, got %d", info.PID)
	}
}

func TestProcessAlive(t *testing.T) {
	if !ProcessAlive(os.Getpid()) {
		t.Error("Current process should be alive")
	}
	if ProcessAlive(0) || ProcessAlive(-1) {
		t.Error("Non-positive PIDs are never alive")
	}
	if ProcessAlive(deadPID) {
		t.Skip("pid 999999 happens to be running")
	}
}
