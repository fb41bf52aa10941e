// Package transfer moves EDI documents between the local workspace and a
// trading partner file store.
package transfer

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

// ErrPathEscape is returned when a requested path would resolve outside the
// store's home directory.
var ErrPathEscape = errors.New("path escapes home directory")

// FileInfo describes one regular file in a store folder.
type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Store is the file transfer interface the processing pipeline depends on.
// Paths are interpreted relative to the store's home directory.
type Store interface {
	// List returns the regular files in a folder
	List(dir string) ([]FileInfo, error)

	// Download copies a remote file to a local path
	Download(remotePath, localPath string) error

	// Upload copies a local file into the store, creating the parent
	// folder when missing
	Upload(localPath, remotePath string) error

	// Move renames a file inside the store, creating the destination
	// folder when missing
	Move(src, dst string) error

	// Close releases the underlying connection
	Close() error
}

// ValidatePath joins p with the home directory and normalizes the result,
// rejecting any path that resolves outside home.
func ValidatePath(home, p string) (string, error) {
	home = strings.TrimSuffix(home, "/")
	rel := strings.TrimPrefix(p, "/")

	normalized := path.Clean(path.Join(home, rel))
	if !strings.HasPrefix(normalized, home) {
		return "", fmt.Errorf("access denied: %s: %w", p, ErrPathEscape)
	}
	return normalized, nil
}
