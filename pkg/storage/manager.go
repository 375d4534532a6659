// Package storage handles the photo output directory: deterministic
// file naming, skip-if-exists checks and atomic writes.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Manager owns the output directory. Files are only ever created or
// left untouched, never rewritten.
type Manager struct {
	outputDir string
}

// NewManager creates a storage manager, creating the output directory
// if needed.
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Manager{outputDir: outputDir}, nil
}

// PathFor returns the canonical photo path for a (date, id, ext) triple
func (m *Manager) PathFor(date, id, ext string) string {
	return filepath.Join(m.outputDir, fmt.Sprintf("%s_%s.%s", date, id, ext))
}

// Exists reports whether a file already exists at path
func (m *Manager) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Save writes data to path atomically via a temp file and rename
func (m *Manager) Save(path string, data []byte) error {
	tempFile := path + ".tmp"

	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

// SetTimes sets the file's access and modification times
func (m *Manager) SetTimes(path string, t time.Time) error {
	return os.Chtimes(path, t, t)
}

// ListByDate returns photo paths whose names carry the given
// YYYY-MM-DD date prefix, sorted by directory order.
func (m *Manager) ListByDate(date string) ([]string, error) {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name(), date+"_") {
			paths = append(paths, filepath.Join(m.outputDir, entry.Name()))
		}
	}

	return paths, nil
}

// OutputDir returns the output directory path
func (m *Manager) OutputDir() string {
	return m.outputDir
}
