package live_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/reviewlink/pkg/domain"
	"github.com/aretw0/reviewlink/pkg/live"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink stores every event; it fails every write once broken.
type recordingSink struct {
	mu     sync.Mutex
	events []domain.Event
	broken bool
	wrote  chan domain.EventType
}

func newSink() *recordingSink {
	return &recordingSink{wrote: make(chan domain.EventType, 64)}
}

func (s *recordingSink) WriteEvent(e domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.broken {
		return errors.New("broken pipe")
	}
	s.events = append(s.events, e)
	select {
	case s.wrote <- e.Type:
	default:
	}
	return nil
}

func (s *recordingSink) fail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broken = true
}

func (s *recordingSink) ofType(t domain.EventType) []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Event
	for _, e := range s.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (s *recordingSink) await(t *testing.T, want domain.EventType) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case got := <-s.wrote:
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestRegistry_CountMatchesAddsMinusRemoves(t *testing.T) {
	r := live.NewRegistry()
	rng := rand.New(rand.NewSource(42))
	sessions := []string{"s1", "s2", "s3"}
	open := map[string][]*live.Connection{}

	for i := 0; i < 500; i++ {
		sid := sessions[rng.Intn(len(sessions))]
		if rng.Intn(2) == 0 || len(open[sid]) == 0 {
			c := live.NewConnection(sid, newSink())
			r.Add(sid, c)
			open[sid] = append(open[sid], c)
		} else {
			idx := rng.Intn(len(open[sid]))
			require.True(t, r.Remove(sid, open[sid][idx].ID()))
			open[sid] = append(open[sid][:idx], open[sid][idx+1:]...)
		}

		for _, s := range sessions {
			require.Equal(t, len(open[s]), r.Count(s), "session %s after step %d", s, i)
			assert.Equal(t, len(open[s]) > 0, contains(r.Sessions(), s), "session %s presence after step %d", s, i)
		}
	}
}

func TestRegistry_PrunesEmptySession(t *testing.T) {
	r := live.NewRegistry()
	c := live.NewConnection("s1", newSink())
	r.Add("s1", c)
	assert.Equal(t, []string{"s1"}, r.Sessions())

	assert.True(t, r.Remove("s1", c.ID()))
	assert.Empty(t, r.Sessions())
	assert.Nil(t, r.Snapshot("s1"))
	assert.False(t, r.Remove("s1", c.ID()), "second remove is a no-op")
}

func TestRegistry_ConcurrentAddRemove(t *testing.T) {
	r := live.NewRegistry()
	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			sid := fmt.Sprintf("s%d", g%2)
			for i := 0; i < 200; i++ {
				c := live.NewConnection(sid, newSink())
				r.Add(sid, c)
				r.Remove(sid, c.ID())
			}
		}(g)
	}
	wg.Wait()
	assert.Zero(t, r.Count("s0"))
	assert.Zero(t, r.Count("s1"))
	assert.Empty(t, r.Sessions())
}

func TestConnection_NoWriteAfterClose(t *testing.T) {
	sink := newSink()
	c := live.NewConnection("s1", sink)
	require.NoError(t, c.Write(domain.NewConnectedEvent("s1")))

	c.Close()
	c.Close()
	assert.True(t, c.Closed())
	assert.ErrorIs(t, c.Write(domain.NewConnectedEvent("s1")), live.ErrConnectionClosed)
	assert.Len(t, sink.events, 1)

	select {
	case <-c.Done():
	default:
		t.Fatal("Done not closed")
	}
}

func subscribe(b *live.Broadcaster, sid string, sink live.Sink) *live.Connection {
	c := live.NewConnection(sid, sink)
	b.Registry().Add(sid, c)
	return c
}

func TestBroadcaster_PublishScenario(t *testing.T) {
	b := live.NewBroadcaster()
	a1, a2, other := newSink(), newSink(), newSink()
	subscribe(b, "S1", a1)
	subscribe(b, "S1", a2)
	subscribe(b, "S2", other)

	event := domain.NewCommentUpdateEvent("S1", "C1", domain.ActionResolved)
	require.NoError(t, b.Publish(context.Background(), "S1", event))

	for _, sink := range []*recordingSink{a1, a2} {
		got := sink.ofType(domain.EventCommentUpdate)
		require.Len(t, got, 1)
		data := got[0].Data.(domain.CommentUpdateData)
		assert.Equal(t, domain.ActionResolved, data.Action)
		assert.Equal(t, "C1", data.CommentID)
	}
	assert.Empty(t, other.events)
}

func TestBroadcaster_FailureRemovesOnlyFailingConnection(t *testing.T) {
	b := live.NewBroadcaster()
	good, bad := newSink(), newSink()
	subscribe(b, "S1", good)
	badConn := subscribe(b, "S1", bad)
	bad.fail()

	delivered := b.CommentUpdated("S1", "C1", domain.ActionSent)
	assert.Equal(t, 1, delivered)
	assert.Len(t, good.ofType(domain.EventCommentUpdate), 1)
	assert.Equal(t, 1, b.Registry().Count("S1"))
	assert.True(t, badConn.Closed())

	assert.Equal(t, 1, b.WatcherChanged("S1", true))
}

func TestBroadcaster_PerConnectionOrder(t *testing.T) {
	b := live.NewBroadcaster()
	sink := newSink()
	subscribe(b, "S1", sink)

	for i := 0; i < 50; i++ {
		b.CommentUpdated("S1", fmt.Sprintf("C%02d", i), domain.ActionUpdated)
	}
	got := sink.ofType(domain.EventCommentUpdate)
	require.Len(t, got, 50)
	for i, e := range got {
		assert.Equal(t, fmt.Sprintf("C%02d", i), e.Data.(domain.CommentUpdateData).CommentID)
	}
}

func TestBroadcaster_SnapshotRoutesBySession(t *testing.T) {
	b := live.NewBroadcaster()
	sink := newSink()
	subscribe(b, "S1", sink)

	n := b.SnapshotCaptured(domain.SnapshotSummary{ID: "snap-1", SessionID: "S1", FilesChanged: 2})
	assert.Equal(t, 1, n)
	assert.Zero(t, b.SnapshotCaptured(domain.SnapshotSummary{ID: "snap-2", SessionID: "S9"}))
}

func TestBroadcaster_PublishHonoursCancelledContext(t *testing.T) {
	b := live.NewBroadcaster()
	sink := newSink()
	subscribe(b, "S1", sink)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, b.Publish(ctx, "S1", domain.NewWatcherStatusEvent("S1", false)), context.Canceled)
	assert.Empty(t, sink.events)
}

func TestBroadcaster_Serve(t *testing.T) {
	b := live.NewBroadcaster(live.WithHeartbeat(10 * time.Millisecond))
	sink := newSink()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- b.Serve(ctx, "S1", sink) }()

	sink.await(t, domain.EventConnected)
	sink.await(t, domain.EventHeartbeat)
	assert.Eventually(t, func() bool { return b.Registry().Count("S1") == 1 }, time.Second, 5*time.Millisecond)

	b.CommentUpdated("S1", "C1", domain.ActionCreated)
	sink.await(t, domain.EventCommentUpdate)

	cancel()
	require.NoError(t, <-done)
	assert.Zero(t, b.Registry().Count("S1"), "deregistered on cancel")
	assert.Empty(t, b.Registry().Sessions())

	first := sink.events[0]
	assert.Equal(t, domain.EventConnected, first.Type)
	assert.Equal(t, "S1", first.Data.(domain.ConnectedData).SessionID)
}

func TestBroadcaster_ServeExitsWhenConnectionFails(t *testing.T) {
	b := live.NewBroadcaster(live.WithHeartbeat(5 * time.Millisecond))
	sink := newSink()

	done := make(chan error, 1)
	go func() { done <- b.Serve(context.Background(), "S1", sink) }()
	sink.await(t, domain.EventConnected)
	sink.fail()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after sink failure")
	}
	assert.Zero(t, b.Registry().Count("S1"))
}

func TestBroadcaster_ServeConnectedFailure(t *testing.T) {
	b := live.NewBroadcaster()
	sink := newSink()
	sink.fail()
	assert.Error(t, b.Serve(context.Background(), "S1", sink))
	assert.Zero(t, b.Registry().Count("S1"))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
