package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/reviewlink/pkg/domain"
)

// Comments implements ports.CommentRepository in memory.
// It backs the development server and tests; production deployments plug
// in the relational storage layer instead.
type Comments struct {
	mu       sync.RWMutex
	sessions map[string]map[string]domain.CommentPayload
	order    map[string][]string // insertion order per session
}

// NewComments creates an empty repository.
func NewComments() *Comments {
	return &Comments{
		sessions: make(map[string]map[string]domain.CommentPayload),
		order:    make(map[string][]string),
	}
}

// Put inserts or replaces a comment.
func (c *Comments) Put(sessionID string, payload domain.CommentPayload) {
	c.mu.Lock()
	defer c.mu.Unlock()

	byID, ok := c.sessions[sessionID]
	if !ok {
		byID = make(map[string]domain.CommentPayload)
		c.sessions[sessionID] = byID
	}
	if _, exists := byID[payload.ID]; !exists {
		c.order[sessionID] = append(c.order[sessionID], payload.ID)
	}
	if payload.Status == "" {
		payload.Status = domain.StatusDraft
	}
	byID[payload.ID] = payload.Clone()
}

// Get returns one comment.
func (c *Comments) Get(sessionID, id string) (domain.CommentPayload, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.sessions[sessionID][id]
	if !ok {
		return domain.CommentPayload{}, fmt.Errorf("%w: comment %q in session %q", domain.ErrNotFound, id, sessionID)
	}
	return p.Clone(), nil
}

// Comments returns the requested payloads, or every draft when ids is empty.
func (c *Comments) Comments(ctx context.Context, sessionID string, ids []string) ([]domain.CommentPayload, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	byID := c.sessions[sessionID]
	out := []domain.CommentPayload{}

	if len(ids) == 0 {
		for _, id := range c.order[sessionID] {
			if p := byID[id]; p.Status == domain.StatusDraft {
				out = append(out, p.Clone())
			}
		}
		return out, nil
	}

	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: comment %q in session %q", domain.ErrNotFound, id, sessionID)
		}
		out = append(out, p.Clone())
	}
	return out, nil
}

// MarkSent moves drafts to sent. Comments already past draft are left as they are;
// the lifecycle only moves forward.
func (c *Comments) MarkSent(ctx context.Context, sessionID string, ids []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	byID := c.sessions[sessionID]
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return fmt.Errorf("%w: comment %q in session %q", domain.ErrNotFound, id, sessionID)
		}
	}
	for _, id := range ids {
		p := byID[id]
		if p.Status == domain.StatusDraft {
			p.Status = domain.StatusSent
			byID[id] = p
		}
	}
	return nil
}

// Sessions lists session ids holding comments, sorted.
func (c *Comments) Sessions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.sessions))
	for id := range c.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
