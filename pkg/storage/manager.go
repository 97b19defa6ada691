package storage

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Manager writes report files and downloaded media into one output directory
type Manager struct {
	outputDir string
	written   map[string]bool
	mu        sync.RWMutex
}

// NewManager creates the output directory (with parents) if needed
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{
		outputDir: outputDir,
		written:   make(map[string]bool),
	}, nil
}

// Path returns the absolute location of name inside the output directory
func (m *Manager) Path(name string) string {
	return filepath.Join(m.outputDir, name)
}

// Exists reports whether name is already present on disk
func (m *Manager) Exists(name string) bool {
	m.mu.RLock()
	done := m.written[name]
	m.mu.RUnlock()
	if done {
		return true
	}

	_, err := os.Stat(m.Path(name))
	return err == nil
}

// WriteFile replaces name with data
func (m *Manager) WriteFile(name string, data []byte) (string, error) {
	return m.Save(name, bytes.NewReader(data))
}

// Save streams r into name. The content lands in a temporary file first and
// is renamed into place, so a failed write never leaves a truncated file and
// an existing file is replaced whole.
func (m *Manager) Save(name string, r io.Reader) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	filename := m.Path(name)

	out, err := os.CreateTemp(m.outputDir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempFile := out.Name()

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to close %s: %w", name, closeErr)
	}

	if err := os.Chmod(tempFile, 0644); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to set permissions on %s: %w", name, err)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.mu.Lock()
	m.written[name] = true
	m.mu.Unlock()

	return filename, nil
}

// Dir returns the output directory path
func (m *Manager) Dir() string {
	return m.outputDir
}
