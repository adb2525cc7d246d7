package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// StateStore persists serialized package state in SQLite.
type StateStore struct {
	db *sql.DB
}

// NewStateStore opens/creates the database at dbPath.
func NewStateStore(dbPath string) (*StateStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	store := &StateStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *StateStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS package_state (
		name TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *StateStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save upserts the serialized state for a package.
func (s *StateStore) Save(name string, state json.RawMessage) error {
	if name == "" {
		return errors.New("package name required")
	}
	if !json.Valid(state) {
		return fmt.Errorf("state for %s is not valid json", name)
	}
	_, err := s.db.Exec(`
	INSERT INTO package_state (name, state, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(name) DO UPDATE SET
		state=excluded.state,
		updated_at=excluded.updated_at
	`, name, string(state), time.Now().UTC())
	return err
}

// Load returns the stored state. The bool is false when nothing was saved.
func (s *StateStore) Load(name string) (json.RawMessage, bool, error) {
	var state string
	err := s.db.QueryRow(`SELECT state FROM package_state WHERE name = ?`, name).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return json.RawMessage(state), true, nil
}

// Delete removes the stored state for a package.
func (s *StateStore) Delete(name string) error {
	_, err := s.db.Exec(`DELETE FROM package_state WHERE name = ?`, name)
	return err
}

// Names lists packages with stored state.
func (s *StateStore) Names() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM package_state ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
