package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Workspace layout
const (
	WorkspaceDir        = ".rdscout"
	DefaultDatabasePath = ".rdscout/rdscout.db"

	// DatabasePathEnv overrides discovery, mainly for test isolation
	DatabasePathEnv = "RDSCOUT_DB_PATH"
)

// DiscoverDatabase looks for .rdscout/*.db in the current directory only.
// Returns the absolute path to the database file, or an error if not found.
// RDSCOUT_DB_PATH, when set, is returned as-is without discovery.
func DiscoverDatabase() (string, error) {
	if dbPath := os.Getenv(DatabasePathEnv); dbPath != "" {
		return dbPath, nil
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	return discoverDatabaseInDir(dir)
}

// discoverDatabaseInDir checks for .rdscout/*.db in the specified directory
// without walking up the tree, so a nested workspace never picks up its
// parent's database
func discoverDatabaseInDir(dir string) (string, error) {
	wsDir := filepath.Join(dir, WorkspaceDir)

	if info, err := os.Stat(wsDir); err == nil && info.IsDir() {
		entries, err := os.ReadDir(wsDir)
		if err == nil {
			for _, entry := range entries {
				if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".db") {
					absPath, err := filepath.Abs(filepath.Join(wsDir, entry.Name()))
					if err != nil {
						return "", fmt.Errorf("failed to get absolute path: %w", err)
					}
					return absPath, nil
				}
			}
		}
	}

	return "", fmt.Errorf(
		"no %s/*.db found in %s\n"+
			"  Run 'rdscout init' to initialize a workspace in this directory\n"+
			"  Or use --db flag to specify database path explicitly",
		WorkspaceDir, dir)
}

// GetWorkspaceRoot returns the directory containing the .rdscout/ directory
// that holds dbPath.
func GetWorkspaceRoot(dbPath string) (string, error) {
	absPath, err := filepath.Abs(dbPath)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	dbDir := filepath.Dir(absPath)
	if filepath.Base(dbDir) != WorkspaceDir {
		return "", fmt.Errorf("database must be in a %s/ directory, got: %s", WorkspaceDir, dbPath)
	}
	return filepath.Dir(dbDir), nil
}

// InitWorkspace creates a .rdscout directory with an inbox for incoming
// documents. Returns the path the database should be created at.
func InitWorkspace(dir string) (string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return "", fmt.Errorf("workspace directory does not exist: %s", dir)
	}

	wsDir := filepath.Join(dir, WorkspaceDir)
	if err := os.MkdirAll(filepath.Join(wsDir, "inbox"), 0755); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", WorkspaceDir, err)
	}

	dbPath := filepath.Join(wsDir, "rdscout.db")
	if _, err := os.Stat(dbPath); err == nil {
		return "", fmt.Errorf("database already exists: %s", dbPath)
	}

	// Database will be created on first connection
	return dbPath, nil
}
