package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"
)

// RunLock is the lock file format used to keep scheduled runs from
// overlapping. While the lock is present, a second invocation refuses to
// start.
type RunLock struct {
	Holder    string    `json:"holder"`
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartedAt time.Time `json:"started_at"`
}

// maxRunDuration bounds how long a run may plausibly hold the lock. A
// lock older than this is presumed abandoned even when the PID check is
// inconclusive (e.g. the lock was taken on another host).
const maxRunDuration = 2 * time.Hour

// AcquireRunLock claims the run lock at lockPath. It fails when another
// live run holds the lock, and silently takes over a stale one (dead
// process, or held past the maximum runtime).
func AcquireRunLock(lockPath, holder string) error {
	if data, err := os.ReadFile(lockPath); err == nil {
		var existing RunLock
		if json.Unmarshal(data, &existing) == nil {
			age := time.Since(existing.StartedAt)
			if age < maxRunDuration && isProcessAlive(existing.PID, existing.Hostname) {
				return fmt.Errorf("another run is already in progress (PID %d on %s, started %s)",
					existing.PID, existing.Hostname, existing.StartedAt.Format(time.RFC3339))
			}
			// Stale lock, take over.
		}
	}

	hostname, err := os.Hostname()
	if err != nil {
		return fmt.Errorf("failed to get hostname: %w", err)
	}

	lock := RunLock{
		Holder:    holder,
		PID:       os.Getpid(),
		Hostname:  hostname,
		StartedAt: time.Now(),
	}

	data, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run lock: %w", err)
	}
	if err := os.WriteFile(lockPath, data, 0644); err != nil {
		return fmt.Errorf("failed to create run lock: %w", err)
	}
	return nil
}

// ReleaseRunLock removes the lock file. Safe to defer: a lock that is
// already gone is not an error.
func ReleaseRunLock(lockPath string) error {
	if lockPath == "" {
		return nil
	}
	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove run lock: %w", err)
	}
	return nil
}

// isProcessAlive checks whether the lock-holding process still exists.
// For a lock taken on another host the answer is unknowable, so the
// caller's max-runtime timeout decides staleness there.
func isProcessAlive(pid int, hostname string) bool {
	currentHost, err := os.Hostname()
	if err != nil {
		return true
	}
	if !strings.EqualFold(hostname, currentHost) {
		// Remote host, cannot check. Assume alive.
		return true
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Signal 0 probes existence without sending anything.
	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	// EPERM means the process exists but belongs to someone else.
	return err == syscall.EPERM
}
