package ports

import (
	"context"

	"github.com/aretw0/reviewlink/pkg/domain"
)

// Transport is the contract shared by every delivery channel.
type Transport interface {
	// Kind identifies the channel.
	Kind() domain.Kind

	// IsAvailable probes the channel's medium. It never fails: probe errors
	// are reported as false. Implementations bound the probe with a short timeout.
	IsAvailable(ctx context.Context) bool

	// ListTargets discovers destinations. No targets is an empty slice, not an error.
	// A failing discovery returns an error matching domain.ErrChannel.
	ListTargets(ctx context.Context) ([]domain.Target, error)

	// SendComments formats and delivers the whole batch to targetID.
	// Errors match domain.ErrChannel or domain.ErrTransportUnavailable.
	// On error the medium must not be left half-written, with one exception:
	// a terminal channel that pasted the text but could not submit it leaves
	// the text in the prompt and reports ErrChannel saying so.
	SendComments(ctx context.Context, targetID string, payloads []domain.CommentPayload) (domain.SendResult, error)

	// Status wraps IsAvailable with a reason. It never fails.
	Status(ctx context.Context) domain.TransportStatus
}
