package live

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/reviewlink/internal/logging"
	"github.com/aretw0/reviewlink/pkg/domain"
	"github.com/aretw0/reviewlink/pkg/observability"
	"github.com/aretw0/reviewlink/pkg/ports"
)

// DefaultHeartbeatInterval keeps half-open connections from lingering.
const DefaultHeartbeatInterval = 30 * time.Second

// Broadcaster delivers events to the connections of a session.
type Broadcaster struct {
	registry  *Registry
	heartbeat time.Duration
	logger    *slog.Logger
	metrics   *observability.Metrics
	now       func() time.Time
}

// Option configures the Broadcaster.
type Option func(*Broadcaster)

// WithLogger configures a logger for the Broadcaster.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Broadcaster) {
		b.logger = logger
	}
}

// WithMetrics records connection and event counters.
func WithMetrics(m *observability.Metrics) Option {
	return func(b *Broadcaster) {
		b.metrics = m
	}
}

// WithHeartbeat sets the heartbeat interval. Non-positive values are ignored.
func WithHeartbeat(d time.Duration) Option {
	return func(b *Broadcaster) {
		if d > 0 {
			b.heartbeat = d
		}
	}
}

// WithRegistry shares a registry between broadcasters.
func WithRegistry(r *Registry) Option {
	return func(b *Broadcaster) {
		b.registry = r
	}
}

func NewBroadcaster(opts ...Option) *Broadcaster {
	b := &Broadcaster{
		heartbeat: DefaultHeartbeatInterval,
		logger:    logging.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.registry == nil {
		b.registry = NewRegistry()
	}
	return b
}

var _ ports.EventPublisher = (*Broadcaster)(nil)

func (b *Broadcaster) Registry() *Registry { return b.registry }

// Serve subscribes sink to a session and blocks until ctx is cancelled or the
// connection fails. The subscriber receives a connected event first, then
// published events and heartbeats. Deregistration runs on every return path.
func (b *Broadcaster) Serve(ctx context.Context, sessionID string, sink Sink) error {
	conn := NewConnection(sessionID, sink)
	logger := b.logger.With("session", sessionID, "conn", conn.ID())

	if err := conn.Write(domain.NewConnectedEvent(sessionID)); err != nil {
		return err
	}
	b.metrics.EventsWritten(string(domain.EventConnected), 1)

	b.registry.Add(sessionID, conn)
	b.metrics.ConnectionOpened()
	logger.Debug("Subscriber connected")
	defer func() {
		conn.Close()
		b.registry.Remove(sessionID, conn.ID())
		b.metrics.ConnectionClosed()
		logger.Debug("Subscriber disconnected")
	}()

	ticker := time.NewTicker(b.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-conn.Done():
			return ErrConnectionClosed
		case <-ticker.C:
			if err := conn.Write(domain.NewHeartbeatEvent(b.now().UTC())); err != nil {
				logger.Debug("Heartbeat failed", "error", err)
				return err
			}
			b.metrics.EventsWritten(string(domain.EventHeartbeat), 1)
		}
	}
}

// Publish implements ports.EventPublisher.
func (b *Broadcaster) Publish(ctx context.Context, sessionID string, event domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.Fanout(sessionID, event)
	return nil
}

// Fanout writes event to every connection registered for the session at call
// time and returns how many received it. A connection whose write fails is
// closed and removed; its siblings are unaffected.
func (b *Broadcaster) Fanout(sessionID string, event domain.Event) int {
	s := b.registry.lookup(sessionID)
	if s == nil {
		return 0
	}
	s.publish.Lock()
	defer s.publish.Unlock()

	delivered := 0
	for _, conn := range s.snapshot() {
		if err := conn.Write(event); err != nil {
			conn.Close()
			if b.registry.Remove(sessionID, conn.ID()) {
				b.metrics.ConnectionDropped()
			}
			b.logger.Debug("Dropped subscriber", "session", sessionID, "conn", conn.ID(), "error", err)
			continue
		}
		delivered++
	}
	b.metrics.EventsWritten(string(event.Type), delivered)
	return delivered
}

// CommentUpdated publishes a comment-update event.
func (b *Broadcaster) CommentUpdated(sessionID, commentID string, action domain.CommentAction) int {
	return b.Fanout(sessionID, domain.NewCommentUpdateEvent(sessionID, commentID, action))
}

// SnapshotCaptured publishes a snapshot event.
func (b *Broadcaster) SnapshotCaptured(summary domain.SnapshotSummary) int {
	return b.Fanout(summary.SessionID, domain.NewSnapshotEvent(summary))
}

// WatcherChanged publishes a watcher-status event.
func (b *Broadcaster) WatcherChanged(sessionID string, enabled bool) int {
	return b.Fanout(sessionID, domain.NewWatcherStatusEvent(sessionID, enabled))
}
