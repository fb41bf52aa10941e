// Package pathutil provides centralized path management for the gateway's
// local data directories.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// PathResolver manages paths for staged downloads, report exports and the
// processing history database.
type PathResolver struct {
	dataRoot     string
	databasePath string
}

// Config represents the configuration for PathResolver.
type Config struct {
	// DataRoot is the root directory for local working data (e.g., ./data)
	DataRoot string
	// DatabasePath is the path to the SQLite database file for processing history
	DatabasePath string
}

// New creates a new PathResolver with the given configuration.
// If DatabasePath is empty, it defaults to {DataRoot}/.history/edi.db
func New(config Config) *PathResolver {
	dbPath := config.DatabasePath
	if dbPath == "" {
		dbPath = filepath.Join(config.DataRoot, ".history", "edi.db")
	}

	return &PathResolver{
		dataRoot:     config.DataRoot,
		databasePath: dbPath,
	}
}

// FromEnv creates a PathResolver from environment variables.
// Expected environment variables:
//   - EDI_DATA_ROOT: Root directory for local working data (required)
//   - EDI_DB_PATH: Database file path (optional)
func FromEnv() (*PathResolver, error) {
	dataRoot := os.Getenv("EDI_DATA_ROOT")
	if dataRoot == "" {
		return nil, fmt.Errorf("EDI_DATA_ROOT environment variable is required")
	}

	return New(Config{
		DataRoot:     dataRoot,
		DatabasePath: os.Getenv("EDI_DB_PATH"),
	}), nil
}

// GetDataRoot returns the data root directory.
func (p *PathResolver) GetDataRoot() string {
	return p.dataRoot
}

// GetDatabasePath returns the database file path.
func (p *PathResolver) GetDatabasePath() string {
	return p.databasePath
}

// GetStagingDir returns the directory downloads and outgoing
// acknowledgments are staged in.
// Example: ./data/staging
func (p *PathResolver) GetStagingDir() string {
	return filepath.Join(p.dataRoot, "staging")
}

// ResolveDir resolves a configured directory name against the data root.
// Absolute paths pass through unchanged.
// Example: exports -> ./data/exports
func (p *PathResolver) ResolveDir(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(p.dataRoot, dir)
}

// EnsureDir creates a directory if it doesn't exist.
// It creates all parent directories as needed (like mkdir -p).
func (p *PathResolver) EnsureDir(dirPath string) error {
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dirPath, err)
	}
	return nil
}

// EnsureParentDir ensures the parent directory of a file exists.
func (p *PathResolver) EnsureParentDir(filePath string) error {
	dir := filepath.Dir(filePath)
	return p.EnsureDir(dir)
}

// FileExists checks if a file exists.
func (p *PathResolver) FileExists(filePath string) bool {
	_, err := os.Stat(filePath)
	return err == nil
}

// IsDir checks if a path is a directory.
func (p *PathResolver) IsDir(dirPath string) bool {
	info, err := os.Stat(dirPath)
	if err != nil {
		return false
	}
	return info.IsDir()
}
