package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aretw0/reviewlink/internal/logging"
	"github.com/aretw0/reviewlink/pkg/domain"
	"github.com/aretw0/reviewlink/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// Fanout is the local delivery the relay feeds, usually a live.Broadcaster.
type Fanout interface {
	Fanout(sessionID string, event domain.Event) int
}

// envelope is the message on the wire.
type envelope struct {
	SessionID string       `json:"session_id"`
	Event     domain.Event `json:"event"`
}

// Relay publishes events to every replica subscribed to the same channel.
// Each replica runs Run so its own subscribers see events published anywhere.
type Relay struct {
	client  *backend.Client
	channel string
	local   Fanout
	logger  *slog.Logger
}

// RelayOption configures the Relay.
type RelayOption func(*Relay)

// WithRelayLogger configures a logger for the Relay.
func WithRelayLogger(logger *slog.Logger) RelayOption {
	return func(r *Relay) {
		r.logger = logger
	}
}

// WithChannel overrides the pub/sub channel name.
func WithChannel(name string) RelayOption {
	return func(r *Relay) {
		r.channel = name
	}
}

func NewRelay(client *backend.Client, local Fanout, opts ...RelayOption) *Relay {
	r := &Relay{
		client:  client,
		channel: DefaultPrefix + "events",
		local:   local,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ ports.EventPublisher = (*Relay)(nil)

// Publish implements ports.EventPublisher. Delivery to local subscribers
// happens when the message comes back through Run.
func (r *Relay) Publish(ctx context.Context, sessionID string, event domain.Event) error {
	data, err := json.Marshal(envelope{SessionID: sessionID, Event: event})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Run subscribes to the channel and feeds the local fan-out until ctx ends.
// ready, if not nil, is closed once the subscription is confirmed.
func (r *Relay) Run(ctx context.Context, ready chan<- struct{}) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}
	if ready != nil {
		close(ready)
	}
	r.logger.Info("Event relay subscribed", "channel", r.channel)

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				r.logger.Warn("Dropping malformed relay message", "error", err)
				continue
			}
			n := r.local.Fanout(env.SessionID, env.Event)
			r.logger.Debug("Relayed event", "session", env.SessionID, "type", env.Event.Type, "delivered", n)
		}
	}
}
