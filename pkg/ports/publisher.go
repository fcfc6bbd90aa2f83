package ports

import (
	"context"

	"github.com/aretw0/reviewlink/pkg/domain"
)

// EventPublisher delivers a live update to every subscriber of a session.
// Delivery to subscribers is best effort; an error means the event could
// not be handed off at all.
type EventPublisher interface {
	Publish(ctx context.Context, sessionID string, event domain.Event) error
}
