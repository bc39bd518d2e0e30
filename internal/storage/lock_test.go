package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorkspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, WorkspaceDir), 0755))
	return filepath.Join(root, WorkspaceDir, "rdscout.db")
}

func TestWatchLock_AcquireRelease(t *testing.T) {
	dbPath := newWorkspace(t)

	lockPath, err := AcquireWatchLock(dbPath, "/inbox", "test")
	require.NoError(t, err)
	assert.FileExists(t, lockPath)

	data, err := os.ReadFile(lockPath)
	require.NoError(t, err)
	var lock WatchLock
	require.NoError(t, json.Unmarshal(data, &lock))
	assert.Equal(t, os.Getpid(), lock.PID)
	assert.Equal(t, "/inbox", lock.Dir)

	// This process is alive, so a second acquire must fail
	_, err = AcquireWatchLock(dbPath, "/inbox", "test")
	assert.ErrorContains(t, err, "already running")

	require.NoError(t, ReleaseWatchLock(lockPath))
	assert.NoFileExists(t, lockPath)
	assert.NoError(t, ReleaseWatchLock(lockPath), "releasing twice is harmless")
}

func TestWatchLock_TakesOverStaleLock(t *testing.T) {
	dbPath := newWorkspace(t)
	hostname, err := os.Hostname()
	require.NoError(t, err)

	stale, err := json.Marshal(WatchLock{
		Holder:    "rdscout-watch",
		PID:       999999999,
		Hostname:  hostname,
		Dir:       "/old",
		StartedAt: time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)
	lockFile := filepath.Join(filepath.Dir(dbPath), ".watch-lock")
	require.NoError(t, os.WriteFile(lockFile, stale, 0644))

	lockPath, err := AcquireWatchLock(dbPath, "/new", "test")
	require.NoError(t, err)
	assert.Equal(t, lockFile, lockPath)
}

func TestWatchLock_RejectsBadDatabasePath(t *testing.T) {
	_, err := AcquireWatchLock(filepath.Join(t.TempDir(), "rdscout.db"), "/inbox", "test")
	assert.ErrorContains(t, err, "invalid database path")
}
