package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nikbrunner/deskmark/internal/model"
	"github.com/nikbrunner/deskmark/internal/recent"
)

const currentSchemaVersion = 2

// SQLiteStorage implements Storage using a SQLite database. It also keeps
// the recent items list, implementing recent.Store.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

var _ recent.Store = (*SQLiteStorage)(nil)

// NewSQLiteStorage creates a new SQLiteStorage with the given database path.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	s := &SQLiteStorage{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// SchemaVersion returns the schema version recorded in the database.
func (s *SQLiteStorage) SchemaVersion() (int, error) {
	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	return version, err
}

// migrate runs database migrations.
func (s *SQLiteStorage) migrate() error {
	version, err := s.SchemaVersion()
	if err != nil {
		// Table doesn't exist or is empty, start fresh
		version = 0
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	if version < currentSchemaVersion {
		if err := s.migrateV2(); err != nil {
			return err
		}
	}

	return nil
}

// migrateV1 creates the item tree schema. Each row points at its parent
// folder; sort_order keeps sibling order.
func (s *SQLiteStorage) migrateV1() error {
	schema := `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY NOT NULL,
			parent_id TEXT,
			kind TEXT NOT NULL CHECK (kind IN ('bookmark', 'folder')),
			name TEXT NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			url TEXT,
			x REAL NOT NULL DEFAULT 0,
			y REAL NOT NULL DEFAULT 0,
			sort_order INTEGER NOT NULL,
			FOREIGN KEY (parent_id) REFERENCES items(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_items_parent ON items(parent_id, sort_order);

		INSERT OR REPLACE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// migrateV2 adds the recent items table.
func (s *SQLiteStorage) migrateV2() error {
	migration := `
		CREATE TABLE IF NOT EXISTS recent_items (
			id TEXT PRIMARY KEY NOT NULL,
			name TEXT NOT NULL,
			url TEXT NOT NULL,
			last_used TEXT NOT NULL,
			rank INTEGER NOT NULL
		);
		UPDATE schema_version SET version = 2;
	`
	_, err := s.db.Exec(migration)
	return err
}

type itemRow struct {
	id       string
	parentID sql.NullString
	kind     model.Kind
	name     string
	notes    string
	url      sql.NullString
	pos      model.Position
}

// Load reads the tree from the SQLite database.
func (s *SQLiteStorage) Load() (model.Items, error) {
	rows, err := s.db.Query(`
		SELECT id, parent_id, kind, name, notes, url, x, y
		FROM items
		ORDER BY sort_order
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	children := make(map[string][]itemRow)
	total := 0
	for rows.Next() {
		var r itemRow
		if err := rows.Scan(&r.id, &r.parentID, &r.kind, &r.name, &r.notes, &r.url, &r.pos.X, &r.pos.Y); err != nil {
			return nil, err
		}
		children[r.parentID.String] = append(children[r.parentID.String], r)
		total++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	items, err := build(children, "")
	if err != nil {
		return nil, err
	}
	if n := model.Count(items); n != total {
		return nil, fmt.Errorf("%w: %d of %d items are not reachable from the root", model.ErrInvalidDocument, total-n, total)
	}
	if err := model.Check(items); err != nil {
		return nil, err
	}
	return items, nil
}

// build assembles the sibling set under parentID ("" is the root).
func build(children map[string][]itemRow, parentID string) (model.Items, error) {
	rows := children[parentID]
	items := make(model.Items, 0, len(rows))
	for _, r := range rows {
		meta := model.Meta{ID: r.id, Name: r.name, Notes: r.notes, Position: r.pos}
		switch r.kind {
		case model.KindBookmark:
			items = append(items, model.Bookmark{Meta: meta, URL: r.url.String})
		case model.KindFolder:
			kids, err := build(children, r.id)
			if err != nil {
				return nil, err
			}
			items = append(items, model.Folder{Meta: meta, Children: kids})
		default:
			return nil, fmt.Errorf("%w: item %q has unknown kind %q", model.ErrInvalidDocument, r.id, r.kind)
		}
	}
	return items, nil
}

// Save writes the tree to the SQLite database.
// Uses a transaction for atomicity - all or nothing.
func (s *SQLiteStorage) Save(items model.Items) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Clear existing data
	if _, err := tx.Exec("DELETE FROM items"); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO items (id, parent_id, kind, name, notes, url, x, y, sort_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	// Pre-order walk inserts every parent before its children.
	order := make(map[string]int)
	model.Walk(items, func(parentID string, item model.Item) bool {
		m := item.Base()
		var url sql.NullString
		switch it := item.(type) {
		case model.Bookmark:
			url = sql.NullString{String: it.URL, Valid: true}
		case model.Folder:
		}
		parent := sql.NullString{String: parentID, Valid: parentID != ""}

		_, err = stmt.Exec(m.ID, parent, string(item.Kind()), m.Name, m.Notes, url, m.Position.X, m.Position.Y, order[parentID])
		order[parentID]++
		return err == nil
	})
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Get returns the recent items, newest first.
func (s *SQLiteStorage) Get() ([]recent.Entry, error) {
	rows, err := s.db.Query(`
		SELECT id, name, url, last_used
		FROM recent_items
		ORDER BY rank
		LIMIT ?
	`, recent.Capacity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []recent.Entry{}
	for rows.Next() {
		var e recent.Entry
		var lastUsed string
		if err := rows.Scan(&e.ID, &e.Name, &e.URL, &lastUsed); err != nil {
			return nil, err
		}
		e.LastUsed, _ = time.Parse(time.RFC3339Nano, lastUsed)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Put moves b to the front of the recent items.
func (s *SQLiteStorage) Put(b model.Bookmark, at time.Time) error {
	entries, err := s.Get()
	if err != nil {
		return err
	}
	entries = recent.Push(entries, b, at)

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM recent_items"); err != nil {
		return err
	}
	for rank, e := range entries {
		if _, err := tx.Exec(
			"INSERT INTO recent_items (id, name, url, last_used, rank) VALUES (?, ?, ?, ?, ?)",
			e.ID, e.Name, e.URL, e.LastUsed.Format(time.RFC3339Nano), rank,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DefaultSQLitePath returns the default SQLite database path: ~/.config/deskmark/desktop.db
func DefaultSQLitePath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "desktop.db"), nil
}
