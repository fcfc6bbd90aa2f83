// Package file keeps the active transport configuration in a JSON file.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/reviewlink/pkg/domain"
	"github.com/aretw0/reviewlink/pkg/ports"
)

// DefaultPath is used when New is given an empty path.
var DefaultPath = filepath.Join(".reviewlink", "transport.json")

// Store implements ports.ConfigStore on the local filesystem.
type Store struct {
	Path string
}

var _ ports.ConfigStore = (*Store)(nil)

// New creates a Store writing to path.
func New(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{Path: path}
}

// Save writes the config atomically: temp file in the same directory, fsync,
// then rename over the destination.
func (s *Store) Save(ctx context.Context, cfg domain.ActiveConfig) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to ensure config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "tmp-transport-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.Path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (domain.ActiveConfig, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.ActiveConfig{}, domain.ErrConfigNotFound
		}
		return domain.ActiveConfig{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg domain.ActiveConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return domain.ActiveConfig{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}
