// Package manual implements the manual-copy channel. The formatted batch is
// written to a copy sink and returned so the reviewer can paste it anywhere.
// It is the fallback channel and is always available.
package manual

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/reviewlink/internal/logging"
	"github.com/aretw0/reviewlink/pkg/domain"
	"github.com/aretw0/reviewlink/pkg/ports"
	"github.com/aretw0/reviewlink/pkg/transport"
)

// Channel implements ports.Transport over a set of clipboard sinks.
type Channel struct {
	sinks  []ports.ClipboardSink
	logger *slog.Logger
}

// Option configures the Channel.
type Option func(*Channel)

// WithLogger configures a logger for the Channel.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Channel) {
		c.logger = logger
	}
}

// New creates the channel. Sinks are listed in the given order.
func New(sinks []ports.ClipboardSink, opts ...Option) *Channel {
	c := &Channel{sinks: sinks, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ ports.Transport = (*Channel)(nil)

func (c *Channel) Kind() domain.Kind { return domain.KindClipboard }

func (c *Channel) IsAvailable(ctx context.Context) bool { return true }

func (c *Channel) Status(ctx context.Context) domain.TransportStatus {
	return domain.TransportStatus{Transport: domain.KindClipboard, Available: true}
}

// ListTargets lists the sinks usable right now.
func (c *Channel) ListTargets(ctx context.Context) ([]domain.Target, error) {
	targets := make([]domain.Target, 0, len(c.sinks))
	for _, s := range c.sinks {
		if err := s.Available(ctx); err != nil {
			c.logger.Debug("Copy sink unavailable", "sink", s.Name(), "error", err)
			continue
		}
		targets = append(targets, domain.Target{
			ID:        s.Name(),
			Label:     s.Label(),
			Transport: domain.KindClipboard,
		})
	}
	return targets, nil
}

// SendComments writes the whole batch in one sink write.
func (c *Channel) SendComments(ctx context.Context, targetID string, payloads []domain.CommentPayload) (domain.SendResult, error) {
	sink := c.sink(targetID)
	if sink == nil {
		return domain.SendResult{}, domain.NewUnavailableError(domain.KindClipboard, fmt.Sprintf("no copy target %q", targetID), nil)
	}
	if err := sink.Available(ctx); err != nil {
		return domain.SendResult{}, domain.NewUnavailableError(domain.KindClipboard, sink.Label()+" is not available", err)
	}

	text := transport.Format(payloads)
	if err := sink.Write(ctx, text); err != nil {
		return domain.SendResult{}, domain.NewChannelError(domain.KindClipboard, "could not copy comments", err)
	}
	c.logger.Debug("Comments copied", "sink", sink.Name(), "count", len(payloads))
	return domain.SendResult{Success: true, FormattedText: text}, nil
}

func (c *Channel) sink(name string) ports.ClipboardSink {
	for _, s := range c.sinks {
		if s.Name() == name {
			return s
		}
	}
	return nil
}
