package agent_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/reviewlink/pkg/domain"
	"github.com/aretw0/reviewlink/pkg/ports"
	"github.com/aretw0/reviewlink/pkg/ports/tests"
	"github.com/aretw0/reviewlink/pkg/transport/agent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockEndpoint struct {
	running    bool
	sessions   []ports.AgentSession
	deliverErr error
	delivered  map[string][]ports.AgentBatch
}

func newEndpoint(sessions ...ports.AgentSession) *mockEndpoint {
	return &mockEndpoint{running: true, sessions: sessions, delivered: map[string][]ports.AgentBatch{}}
}

func (m *mockEndpoint) Running() bool                   { return m.running }
func (m *mockEndpoint) Sessions() []ports.AgentSession { return m.sessions }

func (m *mockEndpoint) Deliver(ctx context.Context, sessionID string, batch ports.AgentBatch) error {
	if m.deliverErr != nil {
		return m.deliverErr
	}
	m.delivered[sessionID] = append(m.delivered[sessionID], batch)
	return nil
}

var payloads = []domain.CommentPayload{
	{ID: "c1", FilePath: "a.go", Content: "one", Status: domain.StatusDraft, Author: domain.AuthorHuman},
	{ID: "c2", FilePath: "b.go", Content: "two", Status: domain.StatusDraft, Author: domain.AuthorHuman},
}

func TestChannel_Contract(t *testing.T) {
	tests.TransportContractTest(t, agent.New(newEndpoint(ports.AgentSession{ID: "s1"})), "ghost")
}

func TestChannel_Contract_NoAgents(t *testing.T) {
	tests.TransportContractTest(t, agent.New(newEndpoint()), "ghost")
}

func TestChannel_ListTargets(t *testing.T) {
	ep := newEndpoint(
		ports.AgentSession{ID: "0123456789abcdef", ClientName: "claude-code", Version: "2.0"},
		ports.AgentSession{ID: "s2"},
	)
	targets, err := agent.New(ep).ListTargets(context.Background())
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, "claude-code 2.0 (01234567)", targets[0].Label)
	assert.Equal(t, "agent (s2)", targets[1].Label)
	assert.Equal(t, domain.KindMCP, targets[1].Transport)

	ep.running = false
	targets, err = agent.New(ep).ListTargets(context.Background())
	require.NoError(t, err)
	assert.Empty(t, targets)
}

func TestChannel_Send(t *testing.T) {
	ep := newEndpoint(ports.AgentSession{ID: "s1"})
	res, err := agent.New(ep).SendComments(context.Background(), "s1", payloads)
	require.NoError(t, err)
	assert.True(t, res.Success)

	require.Len(t, ep.delivered["s1"], 1)
	batch := ep.delivered["s1"][0]
	assert.Equal(t, []string{"c1", "c2"}, batch.CommentIDs)
	assert.Equal(t, res.FormattedText, batch.Text)
}

func TestChannel_Send_Failures(t *testing.T) {
	t.Run("Not running", func(t *testing.T) {
		ep := newEndpoint(ports.AgentSession{ID: "s1"})
		ep.running = false
		_, err := agent.New(ep).SendComments(context.Background(), "s1", payloads)
		assert.ErrorIs(t, err, domain.ErrTransportUnavailable)
	})

	t.Run("Session gone", func(t *testing.T) {
		_, err := agent.New(newEndpoint()).SendComments(context.Background(), "s1", payloads)
		assert.ErrorIs(t, err, domain.ErrTransportUnavailable)
	})

	t.Run("Deliver fails", func(t *testing.T) {
		ep := newEndpoint(ports.AgentSession{ID: "s1"})
		ep.deliverErr = errors.New("notification channel blocked")
		_, err := agent.New(ep).SendComments(context.Background(), "s1", payloads)
		assert.ErrorIs(t, err, domain.ErrChannel)
		assert.Equal(t, "mcp: could not hand comments to agent", domain.UserMessage(err))
	})
}

func TestChannel_Status(t *testing.T) {
	ep := newEndpoint()
	st := agent.New(ep).Status(context.Background())
	assert.False(t, st.Available)
	assert.Equal(t, "no agent connected", st.Error)

	ep.sessions = []ports.AgentSession{{ID: "s1"}}
	assert.True(t, agent.New(ep).Status(context.Background()).Available)
}
