package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/reviewlink/pkg/domain"
	"github.com/aretw0/reviewlink/pkg/ports"
)

// Registry is a fixed table of channels keyed by kind plus the active pointer.
// The table is immutable after construction; only the pointer moves.
type Registry struct {
	channels map[domain.Kind]*serialized

	mu     sync.RWMutex
	active domain.Kind
}

// NewRegistry builds the table. Every channel must have a distinct, known
// kind, and the fallback kind must be present.
func NewRegistry(channels ...ports.Transport) (*Registry, error) {
	r := &Registry{
		channels: make(map[domain.Kind]*serialized, len(channels)),
		active:   domain.DefaultKind,
	}
	for _, ch := range channels {
		kind := ch.Kind()
		if !kind.Valid() {
			return nil, fmt.Errorf("%w: unknown transport %q", domain.ErrValidation, kind)
		}
		if _, dup := r.channels[kind]; dup {
			return nil, fmt.Errorf("%w: transport %q registered twice", domain.ErrValidation, kind)
		}
		r.channels[kind] = newSerialized(ch)
	}
	if _, ok := r.channels[domain.DefaultKind]; !ok {
		return nil, fmt.Errorf("%w: fallback transport %q is required", domain.ErrValidation, domain.DefaultKind)
	}
	return r, nil
}

// Get returns the channel registered for kind.
func (r *Registry) Get(kind domain.Kind) (ports.Transport, error) {
	ch, ok := r.channels[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown transport %q", domain.ErrValidation, kind)
	}
	return ch, nil
}

// All returns the registered channels in domain.Kinds() order.
func (r *Registry) All() []ports.Transport {
	out := make([]ports.Transport, 0, len(r.channels))
	for _, kind := range domain.Kinds() {
		if ch, ok := r.channels[kind]; ok {
			out = append(out, ch)
		}
	}
	return out
}

// SetActive moves the active pointer. Unknown kinds are rejected.
func (r *Registry) SetActive(kind domain.Kind) error {
	if _, ok := r.channels[kind]; !ok {
		return fmt.Errorf("%w: unknown transport %q", domain.ErrValidation, kind)
	}
	r.mu.Lock()
	r.active = kind
	r.mu.Unlock()
	return nil
}

// ActiveKind returns the active kind (domain.DefaultKind until set).
func (r *Registry) ActiveKind() domain.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Active returns the active channel.
func (r *Registry) Active() ports.Transport {
	return r.channels[r.ActiveKind()]
}

// serialized makes discovery and delivery on one channel mutually exclusive.
// Probes (IsAvailable, Status) are read-only and stay concurrent.
// Waiting for the channel honours the caller's deadline.
type serialized struct {
	ports.Transport
	sem chan struct{}
}

func newSerialized(t ports.Transport) *serialized {
	return &serialized{Transport: t, sem: make(chan struct{}, 1)}
}

func (s *serialized) acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return domain.NewChannelError(s.Kind(), "channel busy", ctx.Err())
	}
}

func (s *serialized) release() { <-s.sem }

func (s *serialized) ListTargets(ctx context.Context) ([]domain.Target, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()
	return s.Transport.ListTargets(ctx)
}

func (s *serialized) SendComments(ctx context.Context, targetID string, payloads []domain.CommentPayload) (domain.SendResult, error) {
	if err := s.acquire(ctx); err != nil {
		return domain.SendResult{}, err
	}
	defer s.release()
	return s.Transport.SendComments(ctx, targetID, payloads)
}
