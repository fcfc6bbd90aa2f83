package ports_test

import (
	"context"
	"sync"
	"testing"

	"github.com/aretw0/reviewlink/pkg/domain"
	"github.com/aretw0/reviewlink/pkg/ports"
)

// MockStore is an in-memory implementation of ConfigStore for testing purposes.
type MockStore struct {
	mu  sync.Mutex
	cfg *domain.ActiveConfig
}

func (m *MockStore) Load(ctx context.Context) (domain.ActiveConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cfg == nil {
		return domain.ActiveConfig{}, domain.ErrConfigNotFound
	}
	return copyConfig(*m.cfg), nil
}

func (m *MockStore) Save(ctx context.Context, cfg domain.ActiveConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := copyConfig(cfg)
	m.cfg = &c
	return nil
}

// Deep copy to simulate serialization
func copyConfig(cfg domain.ActiveConfig) domain.ActiveConfig {
	if cfg.LastTargetID != nil {
		id := *cfg.LastTargetID
		cfg.LastTargetID = &id
	}
	return cfg
}

func TestConfigStore_Contract(t *testing.T) {
	// The mock doubles as a reference for adapter implementations.
	ports.RunConfigStoreContract(t, &MockStore{})
}
