package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/reviewlink/internal/logging"
	"github.com/aretw0/reviewlink/pkg/domain"
	"github.com/aretw0/reviewlink/pkg/observability"
	"github.com/aretw0/reviewlink/pkg/ports"
	"golang.org/x/sync/errgroup"
)

const (
	// ProbeTimeout bounds IsAvailable/Status probes inside each channel.
	ProbeTimeout = 2 * time.Second
	// DefaultDiscoveryTimeout bounds one ListTargets call.
	DefaultDiscoveryTimeout = 5 * time.Second
	// DefaultSendTimeout bounds one SendComments call.
	DefaultSendTimeout = 10 * time.Second
)

// ChannelError is a per-channel discovery failure in a partial listing.
type ChannelError struct {
	Transport domain.Kind `json:"transport"`
	Error     string      `json:"error"`
}

// TargetListing is the result of discovery across every channel.
type TargetListing struct {
	Targets []domain.Target `json:"targets"`
	Errors  []ChannelError  `json:"errors,omitempty"`
}

// Service is the channel-agnostic facade over the Registry and the ConfigStore.
type Service struct {
	registry *Registry
	store    ports.ConfigStore
	logger   *slog.Logger
	metrics  *observability.Metrics

	discoveryTimeout time.Duration
	sendTimeout      time.Duration
}

// Option configures the Service.
type Option func(*Service)

// WithLogger configures a logger for the Service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics records deliveries and discovery failures.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTimeouts overrides the discovery and send bounds. Zero keeps the default.
func WithTimeouts(discovery, send time.Duration) Option {
	return func(s *Service) {
		if discovery > 0 {
			s.discoveryTimeout = discovery
		}
		if send > 0 {
			s.sendTimeout = send
		}
	}
}

// NewService creates the orchestration service.
func NewService(registry *Registry, store ports.ConfigStore, opts ...Option) *Service {
	s := &Service{
		registry:         registry,
		store:            store,
		logger:           logging.NewNop(),
		discoveryTimeout: DefaultDiscoveryTimeout,
		sendTimeout:      DefaultSendTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the underlying channel table.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Load reads the persisted config and activates its channel.
// A store that was never written to yields domain.DefaultConfig().
func (s *Service) Load(ctx context.Context) (domain.ActiveConfig, error) {
	cfg, err := s.current(ctx)
	if err != nil {
		return domain.ActiveConfig{}, err
	}
	s.logger.Info("Transport config loaded", "transport", cfg.ActiveTransport, "target_id", cfg.TargetID())
	return cfg, nil
}

// ActiveConfig returns the persisted config (default when never saved).
func (s *Service) ActiveConfig(ctx context.Context) (domain.ActiveConfig, error) {
	return s.readStore(ctx)
}

// SaveActiveConfig validates kind against the registry, persists, then
// activates it. A nil or empty targetID clears the saved target.
func (s *Service) SaveActiveConfig(ctx context.Context, kind domain.Kind, targetID *string) (domain.ActiveConfig, error) {
	if _, err := s.registry.Get(kind); err != nil {
		return domain.ActiveConfig{}, err
	}

	cfg := domain.ActiveConfig{ActiveTransport: kind}
	if targetID != nil && *targetID != "" {
		id := *targetID
		cfg.LastTargetID = &id
	}

	if err := s.store.Save(ctx, cfg); err != nil {
		return domain.ActiveConfig{}, fmt.Errorf("failed to save transport config: %w", err)
	}
	if err := s.registry.SetActive(kind); err != nil {
		return domain.ActiveConfig{}, err
	}

	s.logger.Info("Transport config saved", "transport", kind, "target_id", cfg.TargetID())
	return cfg, nil
}

// ListAllTargets runs discovery on every channel concurrently. A failing
// channel is reported in Errors and never hides the others' targets.
func (s *Service) ListAllTargets(ctx context.Context) TargetListing {
	channels := s.registry.All()
	found := make([][]domain.Target, len(channels))
	failed := make([]error, len(channels))

	var g errgroup.Group
	for i, ch := range channels {
		g.Go(func() error {
			dctx, cancel := context.WithTimeout(ctx, s.discoveryTimeout)
			defer cancel()

			targets, err := ch.ListTargets(dctx)
			if err != nil {
				failed[i] = err
				return nil
			}
			for j := range targets {
				targets[j].Transport = ch.Kind()
			}
			found[i] = targets
			return nil
		})
	}
	_ = g.Wait()

	listing := TargetListing{Targets: []domain.Target{}}
	for i, ch := range channels {
		if err := failed[i]; err != nil {
			s.metrics.DiscoveryFailed(string(ch.Kind()))
			s.logger.Warn("Target discovery failed", "transport", ch.Kind(), "error", err)
			listing.Errors = append(listing.Errors, ChannelError{
				Transport: ch.Kind(),
				Error:     domain.UserMessage(err),
			})
			continue
		}
		listing.Targets = append(listing.Targets, found[i]...)
	}
	return listing
}

// AllStatus reports every channel in fixed kind order.
func (s *Service) AllStatus(ctx context.Context) []domain.TransportStatus {
	channels := s.registry.All()
	out := make([]domain.TransportStatus, len(channels))

	var wg sync.WaitGroup
	for i, ch := range channels {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out[i] = ch.Status(ctx)
		}()
	}
	wg.Wait()
	return out
}

// SendComments delivers the batch through the saved channel to the saved
// target. The store is read on every call so instances sharing it agree.
// Failures are returned as-is; there is no retry at this layer.
func (s *Service) SendComments(ctx context.Context, payloads []domain.CommentPayload) (domain.SendResult, error) {
	if len(payloads) == 0 {
		s.metrics.ObserveDelivery(string(s.registry.ActiveKind()), observability.OutcomeValidation, 0)
		return domain.SendResult{}, fmt.Errorf("%w: no comments to send", domain.ErrValidation)
	}

	cfg, err := s.current(ctx)
	if err != nil {
		return domain.SendResult{}, err
	}
	active, err := s.registry.Get(cfg.ActiveTransport)
	if err != nil {
		return domain.SendResult{}, err
	}
	kind := string(active.Kind())

	targetID := cfg.TargetID()
	if targetID == "" {
		s.metrics.ObserveDelivery(kind, observability.OutcomeValidation, 0)
		return domain.SendResult{}, fmt.Errorf("%w: no target selected for transport %q", domain.ErrValidation, active.Kind())
	}

	sctx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	start := time.Now()
	result, err := active.SendComments(sctx, targetID, domain.ClonePayloads(payloads))
	took := time.Since(start)

	switch {
	case err == nil:
		s.metrics.ObserveDelivery(kind, observability.OutcomeSuccess, took)
		s.logger.Info("Comments delivered",
			"transport", kind,
			"target_id", targetID,
			"count", len(payloads),
			"duration", took,
		)
		return result, nil
	case errors.Is(err, domain.ErrTransportUnavailable):
		s.metrics.ObserveDelivery(kind, observability.OutcomeUnavailable, took)
	default:
		s.metrics.ObserveDelivery(kind, observability.OutcomeError, took)
	}
	s.logger.Error("Comment delivery failed",
		"transport", kind,
		"target_id", targetID,
		"count", len(payloads),
		"error", err,
	)
	return domain.SendResult{}, err
}

// current reads the store and activates the saved channel, falling back to
// the default kind when the saved one is not registered.
func (s *Service) current(ctx context.Context) (domain.ActiveConfig, error) {
	cfg, err := s.readStore(ctx)
	if err != nil {
		return domain.ActiveConfig{}, err
	}
	if err := s.registry.SetActive(cfg.ActiveTransport); err != nil {
		// A config written by a build that knew more transports; keep the fallback.
		s.logger.Warn("Persisted transport is not registered, using fallback",
			"transport", cfg.ActiveTransport,
			"fallback", domain.DefaultKind,
		)
		cfg = domain.DefaultConfig()
		if err := s.registry.SetActive(cfg.ActiveTransport); err != nil {
			return domain.ActiveConfig{}, err
		}
	}
	return cfg, nil
}

func (s *Service) readStore(ctx context.Context) (domain.ActiveConfig, error) {
	cfg, err := s.store.Load(ctx)
	if errors.Is(err, domain.ErrConfigNotFound) {
		return domain.DefaultConfig(), nil
	}
	if err != nil {
		return domain.ActiveConfig{}, fmt.Errorf("failed to load transport config: %w", err)
	}
	return cfg, nil
}
