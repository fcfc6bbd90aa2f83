// Package sqlite keeps the active transport configuration in a SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/reviewlink/pkg/domain"
	"github.com/aretw0/reviewlink/pkg/ports"

	_ "modernc.org/sqlite"
)

// Store implements ports.ConfigStore with a single-row table.
type Store struct {
	db *sql.DB
}

var _ ports.ConfigStore = (*Store)(nil)

// Open opens (or creates) the database at dbPath and applies the schema.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return store, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS transport_config (
		id               INTEGER PRIMARY KEY CHECK (id = 1),
		active_transport TEXT NOT NULL,
		last_target_id   TEXT,
		updated_at       DATETIME NOT NULL
	)`)
	return err
}

// Save upserts the single config row.
func (s *Store) Save(ctx context.Context, cfg domain.ActiveConfig) error {
	var target sql.NullString
	if cfg.LastTargetID != nil {
		target = sql.NullString{String: *cfg.LastTargetID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transport_config (id, active_transport, last_target_id, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			active_transport = excluded.active_transport,
			last_target_id   = excluded.last_target_id,
			updated_at       = excluded.updated_at`,
		string(cfg.ActiveTransport), target, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (domain.ActiveConfig, error) {
	var (
		kind   string
		target sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT active_transport, last_target_id FROM transport_config WHERE id = 1`,
	).Scan(&kind, &target)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ActiveConfig{}, domain.ErrConfigNotFound
	}
	if err != nil {
		return domain.ActiveConfig{}, fmt.Errorf("failed to load config: %w", err)
	}

	cfg := domain.ActiveConfig{ActiveTransport: domain.Kind(kind)}
	if target.Valid {
		id := target.String
		cfg.LastTargetID = &id
	}
	return cfg, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
