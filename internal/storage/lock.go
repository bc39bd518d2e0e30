package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// WatchLock is the lock file that gives one `rdscout watch` process exclusive
// ownership of a workspace inbox. Two watchers on the same inbox would each
// start an incremental run for the same arrivals.
type WatchLock struct {
	Holder    string    `json:"holder"`
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	Dir       string    `json:"dir"`
	StartedAt time.Time `json:"started_at"`
	Version   string    `json:"version"`
}

// AcquireWatchLock creates the watch lock in the workspace of dbPath.
// A lock left by a dead process on this host is taken over.
// Returns the lock file path for cleanup on shutdown.
func AcquireWatchLock(dbPath, watchDir, version string) (lockPath string, err error) {
	root, err := GetWorkspaceRoot(dbPath)
	if err != nil {
		return "", fmt.Errorf("invalid database path: %w", err)
	}
	lockPath = filepath.Join(root, WorkspaceDir, ".watch-lock")

	if data, err := os.ReadFile(lockPath); err == nil {
		var existing WatchLock
		if json.Unmarshal(data, &existing) == nil && isProcessAlive(existing.PID, existing.Hostname) {
			return "", fmt.Errorf("another watcher is already running (PID %d on %s, watching %s since %s)",
				existing.PID, existing.Hostname, existing.Dir, existing.StartedAt.Format(time.RFC3339))
		}
	}

	hostname, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("failed to get hostname: %w", err)
	}

	data, err := json.MarshalIndent(WatchLock{
		Holder:    "rdscout-watch",
		PID:       os.Getpid(),
		Hostname:  hostname,
		Dir:       watchDir,
		StartedAt: time.Now(),
		Version:   version,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal lock: %w", err)
	}

	if err := os.WriteFile(lockPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to create watch lock: %w", err)
	}
	return lockPath, nil
}

// ReleaseWatchLock removes the watch lock file.
func ReleaseWatchLock(lockPath string) error {
	if lockPath == "" {
		return nil
	}
	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove watch lock: %w", err)
	}
	return nil
}

// isProcessAlive reports whether pid exists on hostname. Remote hosts and
// permission errors count as alive.
func isProcessAlive(pid int, hostname string) bool {
	currentHost, err := os.Hostname()
	if err != nil {
		return true
	}
	if !strings.EqualFold(hostname, currentHost) {
		return true
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return err == syscall.EPERM
}
