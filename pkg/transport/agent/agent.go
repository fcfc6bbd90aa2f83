// Package agent implements the agent-protocol channel: batches are handed to
// a connected agent session through an ports.AgentEndpoint.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/reviewlink/internal/logging"
	"github.com/aretw0/reviewlink/pkg/domain"
	"github.com/aretw0/reviewlink/pkg/ports"
	"github.com/aretw0/reviewlink/pkg/transport"
)

// Channel implements ports.Transport over an agent endpoint.
type Channel struct {
	endpoint ports.AgentEndpoint
	logger   *slog.Logger
}

// Option configures the Channel.
type Option func(*Channel)

// WithLogger configures a logger for the Channel.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Channel) {
		c.logger = logger
	}
}

func New(endpoint ports.AgentEndpoint, opts ...Option) *Channel {
	c := &Channel{endpoint: endpoint, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ ports.Transport = (*Channel)(nil)

func (c *Channel) Kind() domain.Kind { return domain.KindMCP }

// IsAvailable is true while the endpoint runs and at least one agent is connected.
func (c *Channel) IsAvailable(ctx context.Context) bool {
	return c.unavailableReason() == ""
}

func (c *Channel) Status(ctx context.Context) domain.TransportStatus {
	st := domain.TransportStatus{Transport: domain.KindMCP, Available: true}
	if r := c.unavailableReason(); r != "" {
		st.Available = false
		st.Error = r
	}
	return st
}

func (c *Channel) unavailableReason() string {
	if !c.endpoint.Running() {
		return "agent endpoint is not running"
	}
	if len(c.endpoint.Sessions()) == 0 {
		return "no agent connected"
	}
	return ""
}

func (c *Channel) ListTargets(ctx context.Context) ([]domain.Target, error) {
	targets := []domain.Target{}
	if !c.endpoint.Running() {
		return targets, nil
	}
	for _, s := range c.endpoint.Sessions() {
		label := s.ClientName
		if label == "" {
			label = "agent"
		}
		if s.Version != "" {
			label += " " + s.Version
		}
		targets = append(targets, domain.Target{
			ID:        s.ID,
			Label:     fmt.Sprintf("%s (%s)", label, shortID(s.ID)),
			Transport: domain.KindMCP,
			Metadata: map[string]string{
				"client":  s.ClientName,
				"version": s.Version,
			},
		})
	}
	return targets, nil
}

func (c *Channel) SendComments(ctx context.Context, targetID string, payloads []domain.CommentPayload) (domain.SendResult, error) {
	if !c.endpoint.Running() {
		return domain.SendResult{}, domain.NewUnavailableError(domain.KindMCP, "agent endpoint is not running", nil)
	}
	if !hasSession(c.endpoint.Sessions(), targetID) {
		return domain.SendResult{}, domain.NewUnavailableError(domain.KindMCP, "agent session is no longer connected", nil)
	}

	text := transport.Format(payloads)
	batch := ports.AgentBatch{CommentIDs: transport.CommentIDs(payloads), Text: text}
	if err := c.endpoint.Deliver(ctx, targetID, batch); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return domain.SendResult{}, domain.NewChannelError(domain.KindMCP, "agent did not accept comments in time", err)
		}
		return domain.SendResult{}, domain.NewChannelError(domain.KindMCP, "could not hand comments to agent", err)
	}
	c.logger.Debug("Comments handed to agent", "session", targetID, "count", len(payloads))
	return domain.SendResult{Success: true, FormattedText: text}, nil
}

func hasSession(sessions []ports.AgentSession, id string) bool {
	for _, s := range sessions {
		if s.ID == id {
			return true
		}
	}
	return false
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
