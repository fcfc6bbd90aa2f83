// Package mcp exposes reviewlink to coding agents over the Model Context Protocol.
//
// The Hub tracks connected agent sessions, queues review batches per session
// and nudges the agent with a notification. Agents drain their queue with the
// fetch_review_comments tool.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/aretw0/reviewlink/internal/logging"
	"github.com/aretw0/reviewlink/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	// NotificationMethod is pushed to an agent when a batch is queued for it.
	NotificationMethod = "notifications/review_comments"
	// FetchTool drains the calling session's queue.
	FetchTool = "fetch_review_comments"
)

// ErrSessionGone is returned by Deliver when the agent session is not connected.
var ErrSessionGone = errors.New("agent session not connected")

// Hub wraps an MCP server and implements ports.AgentEndpoint.
type Hub struct {
	srv     *server.MCPServer
	logger  *slog.Logger
	running atomic.Bool

	mu       sync.Mutex
	sessions map[string]server.ClientSession
	clients  map[string]mcp.Implementation
	queues   map[string][]queued
	seq      uint64

	// notify sends a notification to one session.
	notify func(sessionID, method string, params map[string]any) error
}

// queued is one batch waiting for its agent. A batch is in flight until its
// notification went out; Drain leaves in-flight batches alone so a failed
// notification can still withdraw them.
type queued struct {
	seq      uint64
	batch    ports.AgentBatch
	inFlight bool
}

// Option configures the Hub.
type Option func(*Hub)

// WithLogger configures a logger for the Hub.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		h.logger = logger
	}
}

// NewHub creates the MCP server and registers the review tool.
func NewHub(name, version string, opts ...Option) *Hub {
	h := &Hub{
		logger:   logging.NewNop(),
		sessions: make(map[string]server.ClientSession),
		clients:  make(map[string]mcp.Implementation),
		queues:   make(map[string][]queued),
	}
	for _, opt := range opts {
		opt(h)
	}

	hooks := &server.Hooks{}
	hooks.AddOnRegisterSession(h.onRegister)
	hooks.AddOnUnregisterSession(h.onUnregister)
	hooks.AddAfterInitialize(h.afterInitialize)

	h.srv = server.NewMCPServer(name, strings.TrimSpace(version),
		server.WithHooks(hooks),
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Call "+FetchTool+" when you receive "+NotificationMethod+" to read the reviewer's comments."),
	)
	h.notify = h.srv.SendNotificationToSpecificClient
	h.registerTools()
	return h
}

var _ ports.AgentEndpoint = (*Hub)(nil)

// Server returns the underlying MCP server.
func (h *Hub) Server() *server.MCPServer { return h.srv }

// Handlers returns the SSE and message handlers to mount on an HTTP router.
// The hub counts as running from this point on.
func (h *Hub) Handlers(baseURL, ssePath, messagePath string) (sse, message http.Handler) {
	s := server.NewSSEServer(h.srv,
		server.WithBaseURL(baseURL),
		server.WithSSEEndpoint(ssePath),
		server.WithMessageEndpoint(messagePath),
	)
	h.running.Store(true)
	return s.SSEHandler(), s.MessageHandler()
}

// SetRunning marks the endpoint as reachable or not.
func (h *Hub) SetRunning(v bool) { h.running.Store(v) }

func (h *Hub) Running() bool { return h.running.Load() }

// Sessions lists initialized agent sessions ordered by id.
func (h *Hub) Sessions() []ports.AgentSession {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]ports.AgentSession, 0, len(h.sessions))
	for id, s := range h.sessions {
		if !s.Initialized() {
			continue
		}
		info := h.clientInfo(id, s)
		out = append(out, ports.AgentSession{ID: id, ClientName: info.Name, Version: info.Version})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Deliver queues the batch for the session and notifies the agent. If the
// notification cannot be sent the batch is withdrawn so the agent never sees
// comments the caller believes undelivered.
func (h *Hub) Deliver(ctx context.Context, sessionID string, batch ports.AgentBatch) error {
	h.mu.Lock()
	s, ok := h.sessions[sessionID]
	if !ok || !s.Initialized() {
		h.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSessionGone, sessionID)
	}
	h.seq++
	seq := h.seq
	h.queues[sessionID] = append(h.queues[sessionID], queued{seq: seq, batch: batch, inFlight: true})
	pending := len(h.queues[sessionID])
	h.mu.Unlock()

	err := h.notify(sessionID, NotificationMethod, map[string]any{
		"comment_ids": batch.CommentIDs,
		"pending":     pending,
	})
	if err != nil {
		h.settle(sessionID, seq, false)
		return fmt.Errorf("notifying agent %s: %w", sessionID, err)
	}
	h.settle(sessionID, seq, true)
	h.logger.Debug("Batch queued for agent", "session", sessionID, "comments", len(batch.CommentIDs))
	return nil
}

// Pending reports how many batches the session can fetch.
func (h *Hub) Pending(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, q := range h.queues[sessionID] {
		if !q.inFlight {
			n++
		}
	}
	return n
}

// Drain removes and returns every fetchable batch of the session in queue
// order. Batches whose notification is still in flight stay queued.
func (h *Hub) Drain(sessionID string) []ports.AgentBatch {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []ports.AgentBatch
	var kept []queued
	for _, q := range h.queues[sessionID] {
		if q.inFlight {
			kept = append(kept, q)
			continue
		}
		out = append(out, q.batch)
	}
	h.store(sessionID, kept)
	return out
}

// settle ends the in-flight state of a batch: kept when the notification
// went out, removed otherwise.
func (h *Hub) settle(sessionID string, seq uint64, delivered bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	q := h.queues[sessionID]
	for i := range q {
		if q[i].seq != seq {
			continue
		}
		if delivered {
			q[i].inFlight = false
		} else {
			q = append(q[:i], q[i+1:]...)
		}
		break
	}
	h.store(sessionID, q)
}

// store must be called with h.mu held.
func (h *Hub) store(sessionID string, q []queued) {
	if len(q) == 0 {
		delete(h.queues, sessionID)
		return
	}
	h.queues[sessionID] = q
}

// clientInfo must be called with h.mu held.
func (h *Hub) clientInfo(id string, s server.ClientSession) mcp.Implementation {
	if info, ok := h.clients[id]; ok && info.Name != "" {
		return info
	}
	if withInfo, ok := s.(interface{ GetClientInfo() mcp.Implementation }); ok {
		return withInfo.GetClientInfo()
	}
	return mcp.Implementation{}
}

func (h *Hub) onRegister(ctx context.Context, s server.ClientSession) {
	h.mu.Lock()
	h.sessions[s.SessionID()] = s
	h.mu.Unlock()
	h.logger.Info("Agent connected", "session", s.SessionID())
}

func (h *Hub) onUnregister(ctx context.Context, s server.ClientSession) {
	id := s.SessionID()
	h.mu.Lock()
	delete(h.sessions, id)
	delete(h.clients, id)
	dropped := len(h.queues[id])
	delete(h.queues, id)
	h.mu.Unlock()
	h.logger.Info("Agent disconnected", "session", id, "dropped_batches", dropped)
}

func (h *Hub) afterInitialize(ctx context.Context, id any, req *mcp.InitializeRequest, res *mcp.InitializeResult) {
	s := server.ClientSessionFromContext(ctx)
	if s == nil || req == nil {
		return
	}
	h.mu.Lock()
	h.clients[s.SessionID()] = req.Params.ClientInfo
	h.mu.Unlock()
}

func (h *Hub) registerTools() {
	h.srv.AddTool(mcp.NewTool(FetchTool,
		mcp.WithDescription("Fetch the review comments queued for this agent session. Each call drains the queue."),
	), h.handleFetch)
}

func (h *Hub) handleFetch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s := server.ClientSessionFromContext(ctx)
	if s == nil {
		return mcp.NewToolResultError("no agent session on this connection"), nil
	}
	batches := h.Drain(s.SessionID())
	if len(batches) == 0 {
		return mcp.NewToolResultText("No pending review comments."), nil
	}
	texts := make([]string, 0, len(batches))
	for _, b := range batches {
		texts = append(texts, b.Text)
	}
	return mcp.NewToolResultText(strings.Join(texts, "\n\n---\n\n")), nil
}
