// Package sqlite implements storage.Store on a single embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sirosfoundation/glados-registry/internal/storage"
)

// Store implements storage.Store backed by SQLite
type Store struct {
	db *sql.DB

	servers *ServerStore
	configs *PortalConfigStore
	portals *PortalStore
}

// Open opens the database at path, creating the file, its parent directory and
// the schema if they do not exist.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate sqlite database: %w", err)
	}

	s := &Store{db: db}
	s.servers = &ServerStore{db: db, w: &writer{db: db}}
	s.configs = &PortalConfigStore{db: db, w: &writer{db: db}}
	s.portals = &PortalStore{db: db, w: &writer{db: db}}
	return s, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS servers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			ip TEXT NOT NULL,
			port INTEGER NOT NULL,
			UNIQUE(ip, port)
		);`,
		`CREATE TABLE IF NOT EXISTS portal_configs (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			destination TEXT NOT NULL DEFAULT '',
			enabled INTEGER NOT NULL DEFAULT 1
		);`,
		`CREATE TABLE IF NOT EXISTS portals (
			idx INTEGER NOT NULL UNIQUE,
			frame_block_id INTEGER NOT NULL,
			light_with_item_id INTEGER NOT NULL,
			color_b INTEGER NOT NULL,
			color_g INTEGER NOT NULL,
			color_r INTEGER NOT NULL,
			config_id TEXT NOT NULL,
			FOREIGN KEY(config_id) REFERENCES portal_configs(id) ON DELETE RESTRICT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_portals_config ON portals(config_id);`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Servers() storage.ServerStore             { return s.servers }
func (s *Store) PortalConfigs() storage.PortalConfigStore { return s.configs }
func (s *Store) Portals() storage.PortalStore             { return s.portals }

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// writer serialises the mutations of one record kind so that SQLite never
// has to arbitrate between in-process writers.
type writer struct {
	mu sync.Mutex
	db *sql.DB
}

// exec runs a mutation and reports the number of affected rows
func (w *writer) exec(ctx context.Context, query string, args ...any) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	res, err := w.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", storage.ErrDatabase, err)
	}
	return n, nil
}

// classify translates SQLite constraint violations into storage sentinels.
func classify(err error) error {
	var sqlErr *sqlite.Error
	if !errors.As(err, &sqlErr) {
		return fmt.Errorf("%w: %v", storage.ErrDatabase, err)
	}

	switch sqlErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return fmt.Errorf("%w: %v", storage.ErrConflict, err)
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return fmt.Errorf("%w: %v", storage.ErrReferentialConflict, err)
	}

	// Without extended result codes only the base code is reported
	if sqlErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		msg := sqlErr.Error()
		switch {
		case strings.Contains(msg, "FOREIGN KEY"):
			return fmt.Errorf("%w: %v", storage.ErrReferentialConflict, err)
		case strings.Contains(msg, "UNIQUE"):
			return fmt.Errorf("%w: %v", storage.ErrConflict, err)
		}
	}
	return fmt.Errorf("%w: %v", storage.ErrDatabase, err)
}

func queryError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	return fmt.Errorf("%w: %v", storage.ErrDatabase, err)
}
