// Package recent keeps the most recently opened bookmarks, newest first.
package recent

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/nikbrunner/deskmark/internal/model"
)

// Capacity is the maximum number of entries kept.
const Capacity = 20

// Entry is one opened bookmark.
type Entry struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	URL      string    `json:"url"`
	LastUsed time.Time `json:"lastUsed"`
}

// Store persists the recent list.
type Store interface {
	Get() ([]Entry, error)
	Put(b model.Bookmark, at time.Time) error
}

// Push moves b to the front of entries, dropping any older entry with the
// same ID and anything past Capacity.
func Push(entries []Entry, b model.Bookmark, at time.Time) []Entry {
	out := make([]Entry, 0, min(len(entries)+1, Capacity))
	out = append(out, Entry{ID: b.ID, Name: b.Name, URL: b.URL, LastUsed: at})
	for _, e := range entries {
		if len(out) == Capacity {
			break
		}
		if e.ID != b.ID {
			out = append(out, e)
		}
	}
	return out
}

// Memory is an in-process Store.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Get() ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.entries), nil
}

func (m *Memory) Put(b model.Bookmark, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = Push(m.entries, b, at)
	return nil
}

// File is a Store backed by a JSON file.
type File struct {
	path string
}

// NewFile creates a File store at path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the file path.
func (f *File) Path() string {
	return f.path
}

// Get reads the list. A missing file is an empty list.
func (f *File) Get() ([]Entry, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, err
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse recent items: %w", err)
	}
	if len(entries) > Capacity {
		entries = entries[:Capacity]
	}
	return entries, nil
}

// Put records b and rewrites the file.
func (f *File) Put(b model.Bookmark, at time.Time) error {
	entries, err := f.Get()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(Push(entries, b, at), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0644)
}

// DefaultPath returns ~/.config/deskmark/recent.json.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "deskmark", "recent.json"), nil
}
