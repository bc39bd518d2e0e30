package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDiscoverDatabaseInDir_CurrentDirOnly verifies that discovery only checks
// the given directory and never walks up into a parent workspace.
func TestDiscoverDatabaseInDir_CurrentDirOnly(t *testing.T) {
	tmpRoot := t.TempDir()
	parentDir := filepath.Join(tmpRoot, "parent")
	childDir := filepath.Join(parentDir, "child")

	wsDir := filepath.Join(parentDir, WorkspaceDir)
	require.NoError(t, os.MkdirAll(wsDir, 0755))
	parentDB := filepath.Join(wsDir, "rdscout.db")
	require.NoError(t, os.WriteFile(parentDB, []byte(""), 0644))
	require.NoError(t, os.MkdirAll(childDir, 0755))

	_, err := discoverDatabaseInDir(childDir)
	assert.Error(t, err, "child directory must not find the parent database")

	dbPath, err := discoverDatabaseInDir(parentDir)
	require.NoError(t, err)
	assert.Equal(t, parentDB, dbPath)
}

func TestDiscoverDatabaseInDir_IgnoresOtherFiles(t *testing.T) {
	tmpDir := t.TempDir()
	wsDir := filepath.Join(tmpDir, WorkspaceDir)
	require.NoError(t, os.MkdirAll(filepath.Join(wsDir, "inbox"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(wsDir, "config.yaml"), []byte("workers: 2\n"), 0644))

	_, err := discoverDatabaseInDir(tmpDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rdscout init")
}

func TestDiscoverDatabase_EnvOverride(t *testing.T) {
	t.Setenv(DatabasePathEnv, ":memory:")
	path, err := DiscoverDatabase()
	require.NoError(t, err)
	assert.Equal(t, ":memory:", path)

	t.Setenv(DatabasePathEnv, "/tmp/scout-test.db")
	path, err = DiscoverDatabase()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/scout-test.db", path)
}

func TestGetWorkspaceRoot(t *testing.T) {
	root := t.TempDir()

	got, err := GetWorkspaceRoot(filepath.Join(root, WorkspaceDir, "rdscout.db"))
	require.NoError(t, err)
	assert.Equal(t, root, got)

	_, err = GetWorkspaceRoot(filepath.Join(root, "elsewhere", "rdscout.db"))
	assert.Error(t, err)
}

func TestInitWorkspace(t *testing.T) {
	root := t.TempDir()

	dbPath, err := InitWorkspace(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, WorkspaceDir, "rdscout.db"), dbPath)
	assert.DirExists(t, filepath.Join(root, WorkspaceDir, "inbox"))

	// A second init refuses to clobber an existing database
	require.NoError(t, os.WriteFile(dbPath, []byte(""), 0644))
	_, err = InitWorkspace(root)
	assert.ErrorContains(t, err, "already exists")

	_, err = InitWorkspace(filepath.Join(root, "missing"))
	assert.Error(t, err)
}
