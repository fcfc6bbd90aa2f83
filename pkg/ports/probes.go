package ports

import (
	"context"
)

// Pane is one terminal pane reported by a multiplexer.
type Pane struct {
	ID      string // Unique pane id, e.g. "%3".
	Session string
	Window  int
	Index   int
	Command string // Foreground command running in the pane.
	Path    string // Current working directory.
}

// Multiplexer is the control surface of a terminal multiplexer (tmux).
type Multiplexer interface {
	// Ping returns nil when a server is reachable.
	Ping(ctx context.Context) error
	// ListPanes lists every pane of every session.
	ListPanes(ctx context.Context) ([]Pane, error)
	// LoadBuffer stores text in a named paste buffer without touching any pane.
	LoadBuffer(ctx context.Context, buffer, text string) error
	// PasteBuffer pastes and deletes the named buffer into a pane.
	PasteBuffer(ctx context.Context, buffer, paneID string) error
	// DeleteBuffer discards a buffer that was loaded but never pasted.
	DeleteBuffer(ctx context.Context, buffer string) error
	// SendKeys sends key names (e.g. "Enter") to a pane.
	SendKeys(ctx context.Context, paneID string, keys ...string) error
}

// AgentSession is an agent connected over the agent protocol.
type AgentSession struct {
	ID         string
	ClientName string
	Version    string
}

// AgentEndpoint is the server side of the agent protocol.
type AgentEndpoint interface {
	// Running reports whether the endpoint accepts agent connections.
	Running() bool
	// Sessions lists connected and initialized agent sessions.
	Sessions() []AgentSession
	// Deliver hands a formatted batch to one session. It either queues the
	// batch and notifies the agent, or leaves nothing behind.
	Deliver(ctx context.Context, sessionID string, batch AgentBatch) error
}

// AgentBatch is what an agent receives for one delivery.
type AgentBatch struct {
	CommentIDs []string `json:"comment_ids"`
	Text       string   `json:"text"`
}

// ClipboardSink receives the manual-copy text.
type ClipboardSink interface {
	// Name is the target id the sink is listed under.
	Name() string
	// Label is shown to the reviewer.
	Label() string
	// Available reports whether the sink can be written right now.
	Available(ctx context.Context) error
	// Write replaces the sink content with text in one operation.
	Write(ctx context.Context, text string) error
}
