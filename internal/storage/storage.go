package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nikbrunner/deskmark/internal/model"
)

// Storage defines the interface for persisting the item tree. Both
// operations work on the whole tree.
type Storage interface {
	Load() (model.Items, error)
	Save(items model.Items) error
}

// Backend names a storage implementation.
type Backend string

const (
	BackendAuto   Backend = ""
	BackendJSON   Backend = "json"
	BackendSQLite Backend = "sqlite"
)

// JSONStorage implements Storage using a JSON document file.
type JSONStorage struct {
	path string
}

// NewJSONStorage creates a new JSONStorage with the given file path.
func NewJSONStorage(path string) *JSONStorage {
	return &JSONStorage{path: path}
}

// Path returns the storage file path.
func (s *JSONStorage) Path() string {
	return s.path
}

// Load reads the tree from the JSON file.
// Returns an empty tree if the file doesn't exist.
func (s *JSONStorage) Load() (model.Items, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.Items{}, nil
		}
		return nil, err
	}

	items, err := model.ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.path, err)
	}
	return items, nil
}

// Save writes the tree to the JSON file.
// Creates the directory if it doesn't exist.
func (s *JSONStorage) Save(items model.Items) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := model.EncodeDocument(items)
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0644)
}

// DefaultDir returns ~/.config/deskmark.
func DefaultDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "deskmark"), nil
}

// DefaultJSONPath returns the default document path: ~/.config/deskmark/desktop.json
func DefaultJSONPath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "desktop.json"), nil
}

// OpenStorage opens the requested backend at path. An empty path uses the
// backend's default location. BackendAuto picks the backend from the
// extension of an explicit path; without one it prefers SQLite if the
// default database file exists, otherwise falls back to JSON.
func OpenStorage(backend Backend, path string) (Storage, error) {
	switch backend {
	case BackendSQLite:
		if path == "" {
			var err error
			if path, err = DefaultSQLitePath(); err != nil {
				return nil, err
			}
		}
		return NewSQLiteStorage(path)

	case BackendJSON:
		if path == "" {
			var err error
			if path, err = DefaultJSONPath(); err != nil {
				return nil, err
			}
		}
		return NewJSONStorage(path), nil

	case BackendAuto:
		if path != "" {
			if isSQLitePath(path) {
				return NewSQLiteStorage(path)
			}
			return NewJSONStorage(path), nil
		}
		sqlitePath, err := DefaultSQLitePath()
		if err != nil {
			return nil, err
		}
		// If SQLite database exists, use it
		if _, err := os.Stat(sqlitePath); err == nil {
			return NewSQLiteStorage(sqlitePath)
		}
		return OpenStorage(BackendJSON, path)
	}
	return nil, fmt.Errorf("unknown storage backend %q", backend)
}

// isSQLitePath reports whether path names a SQLite database by extension.
func isSQLitePath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}
