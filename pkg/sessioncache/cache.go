package sessioncache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"osintgram/pkg/instagram"
	"osintgram/pkg/logger"
)

// Entry is the on-disk session document
type Entry struct {
	Session   instagram.Session `json:"session"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Version   int               `json:"version"`
}

// Cache persists the caller's login session between runs
type Cache struct {
	path   string
	logger logger.Logger
}

// New creates a cache backed by path. The file is created on first Save.
func New(path string, log logger.Logger) *Cache {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Cache{path: path, logger: log}
}

// Path returns the cache file location
func (c *Cache) Path() string {
	return c.path
}

// Load returns the cached session, or nil when the file is missing, empty,
// cleared, or holds a session that can no longer authenticate.
func (c *Cache) Load() (*instagram.Session, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session cache: %w", err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("{}")) {
		return nil, nil
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode session cache: %w", err)
	}
	if !entry.Session.Valid() {
		return nil, nil
	}

	c.logger.DebugWithFields("Session loaded", map[string]interface{}{
		"username":   entry.Session.Username,
		"updated_at": entry.UpdatedAt,
	})

	s := entry.Session
	return &s, nil
}

// Save writes the session atomically
func (c *Cache) Save(s *instagram.Session) error {
	if !s.Valid() {
		return fmt.Errorf("refusing to cache a session without a session id")
	}

	now := time.Now()
	entry := Entry{Session: *s, CreatedAt: now, UpdatedAt: now, Version: 1}
	if prev, err := c.readEntry(); err == nil && prev != nil && prev.Session.Username == s.Username {
		entry.CreatedAt = prev.CreatedAt
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := c.write(append(data, '\n')); err != nil {
		return err
	}

	c.logger.DebugWithFields("Session saved", map[string]interface{}{
		"username": s.Username,
		"path":     c.path,
	})
	return nil
}

// Clear truncates the cache to an empty document
func (c *Cache) Clear() error {
	if err := c.write([]byte("{}")); err != nil {
		return err
	}
	c.logger.Info("Session cache cleared")
	return nil
}

// Exists reports whether a usable session is cached
func (c *Cache) Exists() bool {
	s, err := c.Load()
	return err == nil && s != nil
}

func (c *Cache) readEntry() (*Entry, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, err
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *Cache) write(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return fmt.Errorf("failed to create session cache directory: %w", err)
	}

	tempPath := c.path + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create temporary session file: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write session file: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync session file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close session file: %w", err)
	}

	if err := os.Rename(tempPath, c.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}
