package transfer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore is a filesystem implementation of Store, used for local
// folder processing and in tests. It applies the same home directory
// scoping as the SFTP store.
type LocalStore struct {
	home string
}

// NewLocalStore creates a LocalStore rooted at home.
func NewLocalStore(home string) *LocalStore {
	return &LocalStore{home: strings.TrimSuffix(home, "/")}
}

// List returns the regular files in dir.
func (l *LocalStore) List(dir string) ([]FileInfo, error) {
	p, err := ValidatePath(l.home, dir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(p)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, FileInfo{
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return files, nil
}

// Download copies a file out of the store.
func (l *LocalStore) Download(remotePath, localPath string) error {
	p, err := ValidatePath(l.home, remotePath)
	if err != nil {
		return err
	}
	return copyFile(p, localPath)
}

// Upload copies a file into the store, creating the parent folder when
// missing.
func (l *LocalStore) Upload(localPath, remotePath string) error {
	p, err := ValidatePath(l.home, remotePath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", remotePath, err)
	}
	return copyFile(localPath, p)
}

// Move renames a file inside the store, creating the destination folder
// when missing.
func (l *LocalStore) Move(src, dst string) error {
	from, err := ValidatePath(l.home, src)
	if err != nil {
		return err
	}
	to, err := ValidatePath(l.home, dst)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(to), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", dst, err)
	}
	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("failed to move %s: %w", src, err)
	}
	return nil
}

// Close is a no-op for the local store.
func (l *LocalStore) Close() error {
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy to %s: %w", dst, err)
	}
	return nil
}
