// Package review ties comment storage, delivery and live updates together.
package review

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

// Sender delivers a batch through the active channel.
type Sender interface {
	SendComments(ctx context.Context, payloads []domain.CommentPayload) (domain.SendResult, error)
}

var _ Sender = (*transport.Service)(nil)

// Dispatcher sends a session's comments to the agent.
type Dispatcher struct {
	comments  ports.CommentRepository
	sender    Sender
	publisher ports.EventPublisher
	logger    *slog.Logger
}

// Option configures the Dispatcher.
type Option func(*Dispatcher)

// WithLogger configures a logger for the Dispatcher.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func NewDispatcher(comments ports.CommentRepository, sender Sender, publisher ports.EventPublisher, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		comments:  comments,
		sender:    sender,
		publisher: publisher,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Send delivers the given comments, or every draft of the session when ids is
// empty. On success the comments are marked sent and one comment-update event
// per comment is published. If marking fails after delivery, the SendResult is
// returned together with the error: the agent has the comments but storage
// does not know it.
func (d *Dispatcher) Send(ctx context.Context, sessionID string, ids []string) (domain.SendResult, error) {
	if sessionID == "" {
		return domain.SendResult{}, fmt.Errorf("%w: session id is required", domain.ErrValidation)
	}

	payloads, err := d.comments.Comments(ctx, sessionID, ids)
	if err != nil {
		return domain.SendResult{}, fmt.Errorf("loading comments: %w", err)
	}
	if len(payloads) == 0 {
		return domain.SendResult{}, fmt.Errorf("%w: no draft comments to send", domain.ErrValidation)
	}

	res, err := d.sender.SendComments(ctx, payloads)
	if err != nil {
		return domain.SendResult{}, err
	}

	sent := transport.CommentIDs(payloads)
	if err := d.comments.MarkSent(ctx, sessionID, sent); err != nil {
		d.logger.Error("Comments delivered but not marked sent", "session", sessionID, "comments", sent, "error", err)
		return res, fmt.Errorf("comments delivered but not marked sent: %w", err)
	}

	var publishErrs []error
	for _, id := range sent {
		event := domain.NewCommentUpdateEvent(sessionID, id, domain.ActionSent)
		if err := d.publisher.Publish(ctx, sessionID, event); err != nil {
			publishErrs = append(publishErrs, err)
		}
	}
	if err := errors.Join(publishErrs...); err != nil {
		// Subscribers catch up on reconnect; the delivery itself succeeded.
		d.logger.Warn("Could not publish comment updates", "session", sessionID, "error", err)
	}

	d.logger.Info("Comments sent", "session", sessionID, "count", len(sent))
	return res, nil
}
