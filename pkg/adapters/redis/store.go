// Package redis keeps the active transport configuration in Redis and relays
// live events between replicas over Redis pub/sub.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/reviewlink/pkg/domain"
	"github.com/aretw0/reviewlink/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key and channel.
const DefaultPrefix = "reviewlink:"

// Store implements ports.ConfigStore using Redis.
type Store struct {
	client *backend.Client
	prefix string
}

type Option func(*Store)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

var _ ports.ConfigStore = (*Store)(nil)

// Client exposes the underlying client so a Relay can share it.
func (s *Store) Client() *backend.Client { return s.client }

func (s *Store) key() string {
	return s.prefix + "transport:active"
}

// Save persists the config. Last write wins.
func (s *Store) Save(ctx context.Context, cfg domain.ActiveConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := s.client.Set(ctx, s.key(), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves the config from Redis.
func (s *Store) Load(ctx context.Context) (domain.ActiveConfig, error) {
	val, err := s.client.Get(ctx, s.key()).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return domain.ActiveConfig{}, domain.ErrConfigNotFound
		}
		return domain.ActiveConfig{}, fmt.Errorf("failed to load from redis: %w", err)
	}

	var cfg domain.ActiveConfig
	if err := json.Unmarshal([]byte(val), &cfg); err != nil {
		return domain.ActiveConfig{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
