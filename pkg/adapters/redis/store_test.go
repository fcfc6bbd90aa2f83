package redis_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/reviewlink/pkg/adapters/redis"
	"github.com/aretw0/reviewlink/pkg/domain"
	"github.com/aretw0/reviewlink/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunConfigStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_Layout(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithPrefix("test:"))

	target := "%3"
	require.NoError(t, store.Save(context.Background(), domain.ActiveConfig{ActiveTransport: domain.KindTmux, LastTargetID: &target}))

	raw, err := mr.Get("test:transport:active")
	require.NoError(t, err)
	assert.JSONEq(t, `{"active_transport":"tmux","last_target_id":"%3"}`, raw)
}

func TestRedisStore_CorruptValue(t *testing.T) {
	mr, client := newClient(t)
	require.NoError(t, mr.Set(redis.DefaultPrefix+"transport:active", "{not json"))

	_, err := redis.NewFromClient(client).Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrConfigNotFound)
}

type recordingFanout struct {
	mu     sync.Mutex
	got    map[string][]domain.Event
	signal chan struct{}
}

func (r *recordingFanout) Fanout(sessionID string, event domain.Event) int {
	r.mu.Lock()
	r.got[sessionID] = append(r.got[sessionID], event)
	r.mu.Unlock()
	r.signal <- struct{}{}
	return 1
}

func TestRelay_RoundTrip(t *testing.T) {
	_, client := newClient(t)
	local := &recordingFanout{got: map[string][]domain.Event{}, signal: make(chan struct{}, 8)}
	relay := redis.NewRelay(client, local)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx, ready) }()

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not subscribe")
	}

	require.NoError(t, relay.Publish(ctx, "S1", domain.NewCommentUpdateEvent("S1", "C1", domain.ActionResolved)))

	select {
	case <-local.signal:
	case <-time.After(2 * time.Second):
		t.Fatal("event not relayed")
	}

	local.mu.Lock()
	require.Len(t, local.got["S1"], 1)
	data, ok := local.got["S1"][0].Data.(domain.CommentUpdateData)
	local.mu.Unlock()
	require.True(t, ok, "typed data restored after the round trip")
	assert.Equal(t, domain.ActionResolved, data.Action)

	cancel()
	require.NoError(t, <-done)
}
