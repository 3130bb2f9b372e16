package storage_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/nikbrunner/deskmark/internal/model"
	"github.com/nikbrunner/deskmark/internal/storage"
)

func bookmark(id, name string, x, y float64) model.Bookmark {
	return model.Bookmark{
		Meta: model.Meta{ID: id, Name: name, Position: model.Position{X: x, Y: y}},
		URL:  "https://" + id + ".example.com",
	}
}

func folder(id, name string, children ...model.Item) model.Folder {
	if children == nil {
		children = model.Items{}
	}
	return model.Folder{
		Meta:     model.Meta{ID: id, Name: name, Position: model.Position{X: 10, Y: 80}},
		Children: children,
	}
}

func sampleTree() model.Items {
	noted := bookmark("b2", "Go Docs", 150.5, 212.25)
	noted.Notes = "language reference"
	return model.Items{
		bookmark("b1", "GitHub", 100, 100),
		folder("f1", "Development",
			noted,
			folder("f2", "React", bookmark("b3", "React Docs", 50, 80)),
			folder("f3", "Empty"),
		),
		bookmark("b4", "Hacker News", 400, 300),
	}
}

func TestJSONStorage_SaveAndLoad(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "desktop.json")
	s := storage.NewJSONStorage(configPath)

	if err := s.Save(sampleTree()); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	// Verify file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatal("document file was not created")
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	assert.DeepEqual(t, loaded, sampleTree())
}

func TestJSONStorage_LoadNonexistent(t *testing.T) {
	s := storage.NewJSONStorage(filepath.Join(t.TempDir(), "nonexistent.json"))

	items, err := s.Load()
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Error("expected empty tree for missing file")
	}
}

func TestJSONStorage_CreatesDirectory(t *testing.T) {
	// Nested directory that doesn't exist
	configPath := filepath.Join(t.TempDir(), "nested", "dir", "desktop.json")
	s := storage.NewJSONStorage(configPath)

	if err := s.Save(nil); err != nil {
		t.Fatalf("failed to save with nested dir: %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("document file was not created in nested directory: %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("expected empty array, got %q", data)
	}
}

func TestJSONStorage_RejectsInvalidDocument(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "desktop.json")
	doc := `[{"id":"a","type":"bookmark","name":"A","position":{"x":0,"y":0}}]`
	if err := os.WriteFile(configPath, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := storage.NewJSONStorage(configPath).Load()
	if !errors.Is(err, model.ErrInvalidDocument) {
		t.Errorf("expected ErrInvalidDocument, got %v", err)
	}
}

func TestOpenStorage(t *testing.T) {
	dir := t.TempDir()

	s, err := storage.OpenStorage(storage.BackendJSON, filepath.Join(dir, "d.json"))
	assert.NilError(t, err)
	_, ok := s.(*storage.JSONStorage)
	assert.Assert(t, ok)

	s, err = storage.OpenStorage(storage.BackendSQLite, filepath.Join(dir, "d.db"))
	assert.NilError(t, err)
	db, ok := s.(*storage.SQLiteStorage)
	assert.Assert(t, ok)
	assert.NilError(t, db.Close())

	_, err = storage.OpenStorage("yaml", "")
	assert.ErrorContains(t, err, "unknown storage backend")
}

func TestOpenStorage_AutoUsesExplicitPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	// A default database must not win over an explicit path.
	defaultDB, err := storage.DefaultSQLitePath()
	assert.NilError(t, err)
	db, err := storage.NewSQLiteStorage(defaultDB)
	assert.NilError(t, err)
	assert.NilError(t, db.Close())

	jsonPath := filepath.Join(home, "elsewhere", "desk.json")
	s, err := storage.OpenStorage(storage.BackendAuto, jsonPath)
	assert.NilError(t, err)
	js, ok := s.(*storage.JSONStorage)
	assert.Assert(t, ok, "got %T", s)
	assert.Equal(t, js.Path(), jsonPath)

	for _, name := range []string{"desk.db", "desk.SQLITE", "desk.sqlite3"} {
		dbPath := filepath.Join(home, "elsewhere", name)
		s, err := storage.OpenStorage(storage.BackendAuto, dbPath)
		assert.NilError(t, err)
		sq, ok := s.(*storage.SQLiteStorage)
		assert.Assert(t, ok, "%s: got %T", name, s)
		assert.Equal(t, sq.Path(), dbPath)
		assert.NilError(t, sq.Close())
	}
}
