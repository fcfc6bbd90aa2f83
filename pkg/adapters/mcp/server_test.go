package mcp_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	reviewmcp "github.com/aretw0/reviewlink/pkg/adapters/mcp"
	"github.com/aretw0/reviewlink/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	id          string
	initialized bool
	ch          chan mcp.JSONRPCNotification
	info        mcp.Implementation
}

func newSession(id string, buffer int) *fakeSession {
	return &fakeSession{id: id, initialized: true, ch: make(chan mcp.JSONRPCNotification, buffer)}
}

func (f *fakeSession) Initialize()                                         {}
func (f *fakeSession) Initialized() bool                                   { return f.initialized }
func (f *fakeSession) NotificationChannel() chan<- mcp.JSONRPCNotification { return f.ch }
func (f *fakeSession) SessionID() string                                   { return f.id }
func (f *fakeSession) GetClientInfo() mcp.Implementation                   { return f.info }

func register(t *testing.T, hub *reviewmcp.Hub, s *fakeSession) {
	t.Helper()
	require.NoError(t, hub.Server().RegisterSession(context.Background(), s))
}

func TestHub_Sessions(t *testing.T) {
	hub := reviewmcp.NewHub("reviewlink", "test")

	b := newSession("b", 1)
	b.info = mcp.Implementation{Name: "claude-code", Version: "2.0"}
	register(t, hub, b)
	register(t, hub, newSession("a", 1))
	pending := newSession("c", 1)
	pending.initialized = false
	register(t, hub, pending)

	sessions := hub.Sessions()
	require.Len(t, sessions, 2, "uninitialized sessions are not targets")
	assert.Equal(t, "a", sessions[0].ID)
	assert.Equal(t, ports.AgentSession{ID: "b", ClientName: "claude-code", Version: "2.0"}, sessions[1])

	hub.Server().UnregisterSession(context.Background(), "a")
	assert.Len(t, hub.Sessions(), 1)
}

func TestHub_DeliverNotifies(t *testing.T) {
	hub := reviewmcp.NewHub("reviewlink", "test")
	s := newSession("agent-1", 1)
	register(t, hub, s)

	err := hub.Deliver(context.Background(), "agent-1", ports.AgentBatch{CommentIDs: []string{"c1"}, Text: "fix it"})
	require.NoError(t, err)
	assert.Equal(t, 1, hub.Pending("agent-1"))

	select {
	case n := <-s.ch:
		assert.Equal(t, reviewmcp.NotificationMethod, n.Method)
	default:
		t.Fatal("expected a notification")
	}
}

func TestHub_DeliverWithdrawsOnNotifyFailure(t *testing.T) {
	hub := reviewmcp.NewHub("reviewlink", "test")
	// Unbuffered with no reader: the notification cannot be handed over.
	register(t, hub, newSession("agent-1", 0))

	err := hub.Deliver(context.Background(), "agent-1", ports.AgentBatch{CommentIDs: []string{"c1"}, Text: "fix it"})
	require.Error(t, err)
	assert.Equal(t, 0, hub.Pending("agent-1"))
}

func TestHub_DrainSkipsBatchUntilNotified(t *testing.T) {
	hub := reviewmcp.NewHub("reviewlink", "test")
	register(t, hub, newSession("agent-1", 4))

	var midFlight []ports.AgentBatch
	hub.SetNotifier(func(sessionID, method string, params map[string]any) error {
		midFlight = hub.Drain(sessionID)
		return errors.New("transport closed")
	})

	err := hub.Deliver(context.Background(), "agent-1", ports.AgentBatch{CommentIDs: []string{"c1"}, Text: "fix it"})
	require.Error(t, err)
	assert.Empty(t, midFlight, "a fetch racing the notification must not see the batch")
	assert.Equal(t, 0, hub.Pending("agent-1"))
	assert.Empty(t, hub.Drain("agent-1"), "failed batch withdrawn")
}

func TestHub_DrainKeepsInFlightBatchForLaterFetch(t *testing.T) {
	hub := reviewmcp.NewHub("reviewlink", "test")
	register(t, hub, newSession("agent-1", 4))
	require.NoError(t, hub.Deliver(context.Background(), "agent-1", ports.AgentBatch{CommentIDs: []string{"c1"}, Text: "first"}))

	var midFlight []ports.AgentBatch
	hub.SetNotifier(func(sessionID, method string, params map[string]any) error {
		midFlight = hub.Drain(sessionID)
		return nil
	})
	require.NoError(t, hub.Deliver(context.Background(), "agent-1", ports.AgentBatch{CommentIDs: []string{"c2"}, Text: "second"}))

	require.Len(t, midFlight, 1)
	assert.Equal(t, "first", midFlight[0].Text)

	rest := hub.Drain("agent-1")
	require.Len(t, rest, 1)
	assert.Equal(t, "second", rest[0].Text)
}

func TestHub_DeliverUnknownSession(t *testing.T) {
	hub := reviewmcp.NewHub("reviewlink", "test")
	err := hub.Deliver(context.Background(), "ghost", ports.AgentBatch{Text: "x"})
	assert.ErrorIs(t, err, reviewmcp.ErrSessionGone)
}

func TestHub_UnregisterDropsQueue(t *testing.T) {
	hub := reviewmcp.NewHub("reviewlink", "test")
	register(t, hub, newSession("agent-1", 4))
	require.NoError(t, hub.Deliver(context.Background(), "agent-1", ports.AgentBatch{Text: "x"}))

	hub.Server().UnregisterSession(context.Background(), "agent-1")
	assert.Equal(t, 0, hub.Pending("agent-1"))
}

func TestHub_FetchToolDrainsQueue(t *testing.T) {
	hub := reviewmcp.NewHub("reviewlink", "test")
	s := newSession("agent-1", 4)
	register(t, hub, s)
	require.NoError(t, hub.Deliver(context.Background(), "agent-1", ports.AgentBatch{CommentIDs: []string{"c1"}, Text: "Rename this"}))
	require.NoError(t, hub.Deliver(context.Background(), "agent-1", ports.AgentBatch{CommentIDs: []string{"c2"}, Text: "Add a test"}))

	ctx := hub.Server().WithContext(context.Background(), s)
	call := json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"fetch_review_comments","arguments":{}}}`)

	raw, err := json.Marshal(hub.Server().HandleMessage(ctx, call))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Rename this")
	assert.Contains(t, string(raw), "Add a test")
	assert.Equal(t, 0, hub.Pending("agent-1"))

	raw, err = json.Marshal(hub.Server().HandleMessage(ctx, call))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "No pending review comments.")
}

func TestHub_Running(t *testing.T) {
	hub := reviewmcp.NewHub("reviewlink", "test")
	assert.False(t, hub.Running())

	sse, msg := hub.Handlers("http://localhost:8080", "/mcp/sse", "/mcp/message")
	assert.NotNil(t, sse)
	assert.NotNil(t, msg)
	assert.True(t, hub.Running())
}
