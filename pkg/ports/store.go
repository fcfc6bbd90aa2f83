package ports

import (
	"context"

	"github.com/aretw0/reviewlink/pkg/domain"
)

// ConfigStore persists the process-wide ActiveConfig.
// Writers race last-write-wins; this is user-driven configuration.
type ConfigStore interface {
	// Load returns the persisted config.
	// Returns domain.ErrConfigNotFound if nothing was ever saved.
	Load(ctx context.Context) (domain.ActiveConfig, error)

	// Save replaces the persisted config.
	Save(ctx context.Context, cfg domain.ActiveConfig) error
}

// CommentRepository is owned by the storage layer. The core reads payloads
// from it and reports successful deliveries back.
type CommentRepository interface {
	// Comments returns the payloads with the given ids for a session.
	// With no ids it returns every draft of the session.
	Comments(ctx context.Context, sessionID string, ids []string) ([]domain.CommentPayload, error)

	// MarkSent records the draft -> sent transition.
	MarkSent(ctx context.Context, sessionID string, ids []string) error
}
