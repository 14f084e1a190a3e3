package config

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/supabridge/supabridge/internal/supabase"
)

// Profile is a named set of backend credentials saved by the CLI.
type Profile struct {
	Name       string    `db:"name"`
	Host       string    `db:"host"`
	ServiceKey string    `db:"service_key"`
	Schema     string    `db:"schema_name"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// Credentials converts a profile into client credentials.
func (p Profile) Credentials() supabase.Credentials {
	return supabase.Credentials{Host: p.Host, ServiceKey: p.ServiceKey, Schema: p.Schema}
}

// Store persists backend profiles in SQLite. Pass an empty dataDir for an
// in-memory store (tests).
type Store struct {
	db *sqlx.DB
}

// NewStore opens (and migrates) the profile store.
func NewStore(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == "" {
		dsn = ":memory:?_journal_mode=WAL"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		dsn = filepath.Join(dataDir, "supabridge.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open profile database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate profile database: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS profiles (
			name        TEXT PRIMARY KEY,
			host        TEXT NOT NULL,
			service_key TEXT NOT NULL,
			schema_name TEXT NOT NULL DEFAULT 'public',
			created_at  TIMESTAMP NOT NULL,
			updated_at  TIMESTAMP NOT NULL
		)`)
	return err
}

// SaveProfile inserts or replaces a profile by name.
func (s *Store) SaveProfile(p Profile) error {
	if p.Name == "" {
		return fmt.Errorf("profile name is required")
	}
	if p.Schema == "" {
		p.Schema = "public"
	}
	now := time.Now().UTC()
	_, err := s.db.Exec(`
		INSERT INTO profiles (name, host, service_key, schema_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			host = excluded.host,
			service_key = excluded.service_key,
			schema_name = excluded.schema_name,
			updated_at = excluded.updated_at`,
		p.Name, p.Host, p.ServiceKey, p.Schema, now, now)
	if err != nil {
		return fmt.Errorf("save profile %q: %w", p.Name, err)
	}
	return nil
}

// GetProfile fetches a profile by name.
func (s *Store) GetProfile(name string) (*Profile, error) {
	var p Profile
	err := s.db.Get(&p, `SELECT name, host, service_key, schema_name, created_at, updated_at
		FROM profiles WHERE name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %q not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("get profile %q: %w", name, err)
	}
	return &p, nil
}

// ListProfiles returns every saved profile ordered by name.
func (s *Store) ListProfiles() ([]Profile, error) {
	var profiles []Profile
	err := s.db.Select(&profiles, `SELECT name, host, service_key, schema_name, created_at, updated_at
		FROM profiles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return profiles, nil
}

// DeleteProfile removes a profile by name.
func (s *Store) DeleteProfile(name string) error {
	res, err := s.db.Exec(`DELETE FROM profiles WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete profile %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("profile %q not found", name)
	}
	return nil
}
