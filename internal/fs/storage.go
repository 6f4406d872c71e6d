package fs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pavel-fokin/rdf-cubes/internal/artifacts"
)

// Storage implements artifacts.Storage using the filesystem
type Storage struct {
	dataDir string
}

// NewStorage creates a new filesystem storage
func NewStorage(dataDir string) *Storage {
	return &Storage{
		dataDir: dataDir,
	}
}

// Save writes the artifact content under id and returns the number of bytes written
func (s *Storage) Save(id string, content io.Reader) (int64, error) {
	filePath := filepath.Join(s.dataDir, id)

	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create data directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	size, err := io.Copy(file, content)
	if err != nil {
		// Clean up file if copy fails
		os.Remove(filePath)
		return 0, fmt.Errorf("failed to write file content: %w", err)
	}

	return size, nil
}

// Delete removes an artifact by ID
func (s *Storage) Delete(id string) error {
	filePath := filepath.Join(s.dataDir, id)

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return nil // File already deleted
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

// Exists checks if an artifact exists
func (s *Storage) Exists(id string) bool {
	filePath := filepath.Join(s.dataDir, id)
	_, err := os.Stat(filePath)
	return !os.IsNotExist(err)
}

// GetContent returns a reader for the artifact content
func (s *Storage) GetContent(id string) (io.ReadCloser, error) {
	filePath := filepath.Join(s.dataDir, id)

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, artifacts.ErrNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}
