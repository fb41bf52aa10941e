package transfer

import (
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// SFTPConfig represents the connection settings for an SFTP store.
type SFTPConfig struct {
	Host     string
	Port     int    // Default: 22
	User     string
	Password string
	HomeDir  string
	Timeout  time.Duration // Default: 30 seconds
}

// SFTPStore is the SFTP implementation of Store.
type SFTPStore struct {
	conn   *ssh.Client
	client *sftp.Client
	home   string
}

// DialSFTP connects to the trading partner endpoint and opens an SFTP
// session.
func DialSFTP(config SFTPConfig) (*SFTPStore, error) {
	port := config.Port
	if port == 0 {
		port = 22
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	sshConfig := &ssh.ClientConfig{
		User:            config.User,
		Auth:            []ssh.AuthMethod{ssh.Password(config.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}

	addr := net.JoinHostPort(config.Host, strconv.Itoa(port))
	conn, err := ssh.Dial("tcp", addr, sshConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SFTP server: %w", err)
	}

	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open SFTP session: %w", err)
	}

	return &SFTPStore{conn: conn, client: client, home: config.HomeDir}, nil
}

// List returns the regular files in dir, directories and links skipped.
func (s *SFTPStore) List(dir string) ([]FileInfo, error) {
	p, err := ValidatePath(s.home, dir)
	if err != nil {
		return nil, err
	}

	entries, err := s.client.ReadDir(p)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if !entry.Mode().IsRegular() {
			continue
		}
		files = append(files, FileInfo{
			Name:    entry.Name(),
			Size:    entry.Size(),
			ModTime: entry.ModTime(),
		})
	}
	return files, nil
}

// Download copies a remote file to localPath.
func (s *SFTPStore) Download(remotePath, localPath string) error {
	p, err := ValidatePath(s.home, remotePath)
	if err != nil {
		return err
	}

	src, err := s.client.Open(p)
	if err != nil {
		return fmt.Errorf("failed to open remote file %s: %w", remotePath, err)
	}
	defer src.Close()

	dst, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", localPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to download %s: %w", remotePath, err)
	}
	return nil
}

// Upload copies a local file to remotePath, creating the destination
// folder when missing.
func (s *SFTPStore) Upload(localPath, remotePath string) error {
	p, err := ValidatePath(s.home, remotePath)
	if err != nil {
		return err
	}
	if err := s.ensureDir(path.Dir(p)); err != nil {
		return err
	}

	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open local file %s: %w", localPath, err)
	}
	defer src.Close()

	dst, err := s.client.Create(p)
	if err != nil {
		return fmt.Errorf("failed to create remote file %s: %w", remotePath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to upload %s: %w", remotePath, err)
	}
	return nil
}

// Move renames a remote file, falling back to copy and delete when the
// server does not support rename between the involved paths.
func (s *SFTPStore) Move(src, dst string) error {
	from, err := ValidatePath(s.home, src)
	if err != nil {
		return err
	}
	to, err := ValidatePath(s.home, dst)
	if err != nil {
		return err
	}
	if err := s.ensureDir(path.Dir(to)); err != nil {
		return err
	}

	if err := s.client.PosixRename(from, to); err == nil {
		return nil
	}
	if err := s.client.Rename(from, to); err == nil {
		return nil
	}

	srcFile, err := s.client.Open(from)
	if err != nil {
		return fmt.Errorf("failed to move %s: %w", src, err)
	}
	dstFile, err := s.client.Create(to)
	if err != nil {
		srcFile.Close()
		return fmt.Errorf("failed to move %s: %w", src, err)
	}
	_, err = io.Copy(dstFile, srcFile)
	srcFile.Close()
	dstFile.Close()
	if err != nil {
		return fmt.Errorf("failed to move %s: %w", src, err)
	}

	if err := s.client.Remove(from); err != nil {
		return fmt.Errorf("failed to remove %s after copy: %w", src, err)
	}
	return nil
}

// Close closes the SFTP session and the SSH connection.
func (s *SFTPStore) Close() error {
	var firstErr error
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			firstErr = err
		}
		s.client = nil
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.conn = nil
	}
	return firstErr
}

// ensureDir creates dir on the server when it does not exist. Paths here
// are already validated.
func (s *SFTPStore) ensureDir(dir string) error {
	if dir == "" || dir == "." || dir == "/" {
		return nil
	}
	if _, err := s.client.Stat(dir); err == nil {
		return nil
	}
	if err := s.client.MkdirAll(dir); err != nil {
		return fmt.Errorf("failed to create remote directory %s: %w", dir, err)
	}
	return nil
}
