package memory

import (
	"context"
	"sync"

	"github.com/aretw0/reviewlink/pkg/domain"
)

// Store implements ports.ConfigStore in memory.
// Safe for concurrent use.
type Store struct {
	cfg *domain.ActiveConfig
	mu  sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{}
}

// Save persists the config in memory.
func (s *Store) Save(ctx context.Context, cfg domain.ActiveConfig) error {
	// Deep copy to ensure isolation, similar to serialization
	copied := copyConfig(cfg)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = &copied
	return nil
}

// Load retrieves the config from memory.
func (s *Store) Load(ctx context.Context) (domain.ActiveConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cfg == nil {
		return domain.ActiveConfig{}, domain.ErrConfigNotFound
	}

	// Copy on read so caller can't mutate store state directly by pointer
	return copyConfig(*s.cfg), nil
}

func copyConfig(cfg domain.ActiveConfig) domain.ActiveConfig {
	if cfg.LastTargetID != nil {
		id := *cfg.LastTargetID
		cfg.LastTargetID = &id
	}
	return cfg
}
