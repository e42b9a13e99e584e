package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	tempDir      = "temp_uploads"
	encryptedDir = "encrypted"
)

// ErrNotFound is returned when a blob does not exist on disk.
var ErrNotFound = errors.New("blob not found")

// Store keeps all blobs under a single data root: partial uploads in a flat
// temp directory and encrypted artifacts in date-partitioned subdirectories.
type Store struct {
	root string
}

func New(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(abs, tempDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	return &Store{root: abs}, nil
}

// TempPath returns the on-disk location of a partial upload. The upload id is
// reduced to a basename so a crafted id cannot escape the temp directory.
func (s *Store) TempPath(uploadID string) string {
	return filepath.Join(s.root, tempDir, filepath.Base(uploadID))
}

// WriteChunk writes data at the given byte position of the temp file for
// uploadID, creating the file on first use. Writes are positional, so retried
// or out-of-order chunks land in the right place.
func (s *Store) WriteChunk(uploadID string, offset int64, data []byte) error {
	f, err := os.OpenFile(s.TempPath(uploadID), os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open temp file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteAt(data, offset); err != nil {
		return fmt.Errorf("failed to write chunk: %w", err)
	}
	return nil
}

// ReadTemp reads the whole partial upload into memory.
func (s *Store) ReadTemp(uploadID string) ([]byte, error) {
	data, err := os.ReadFile(s.TempPath(uploadID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read temp file: %w", err)
	}
	return data, nil
}

// RemoveTemp deletes the temp file. A missing file is not an error.
func (s *Store) RemoveTemp(uploadID string) error {
	err := os.Remove(s.TempPath(uploadID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove temp file: %w", err)
	}
	return nil
}

// SaveEncrypted persists an encrypted artifact under encrypted/YYYY/MM/DD/
// and returns its path relative to the data root.
func (s *Store) SaveEncrypted(name string, data []byte) (string, error) {
	now := time.Now()
	relDir := filepath.Join(encryptedDir, fmt.Sprintf("%d/%02d/%02d", now.Year(), now.Month(), now.Day()))
	if err := os.MkdirAll(filepath.Join(s.root, relDir), 0o755); err != nil {
		return "", fmt.Errorf("failed to create encrypted dir: %w", err)
	}

	relPath := filepath.Join(relDir, filepath.Base(name))
	if err := os.WriteFile(filepath.Join(s.root, relPath), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write encrypted file: %w", err)
	}
	return relPath, nil
}

// Read loads a stored artifact by the relative path recorded in the database.
func (s *Store) Read(relPath string) ([]byte, error) {
	abs, err := s.resolve(relPath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// Remove deletes a stored artifact. A missing file is not an error.
func (s *Store) Remove(relPath string) error {
	abs, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}

// resolve rejects relative paths that would escape the data root.
func (s *Store) resolve(relPath string) (string, error) {
	abs := filepath.Join(s.root, filepath.Clean("/"+relPath))
	if !strings.HasPrefix(abs, s.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid storage path")
	}
	return abs, nil
}
