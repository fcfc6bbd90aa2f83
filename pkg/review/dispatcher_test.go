package review_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/reviewlink/pkg/adapters/clipboard"
	"github.com/aretw0/reviewlink/pkg/adapters/memory"
	"github.com/aretw0/reviewlink/pkg/domain"
	"github.com/aretw0/reviewlink/pkg/live"
	"github.com/aretw0/reviewlink/pkg/ports"
	"github.com/aretw0/reviewlink/pkg/review"
	"github.com/aretw0/reviewlink/pkg/transport"
	"github.com/aretw0/reviewlink/pkg/transport/manual"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct{ events []domain.Event }

func (c *captureSink) WriteEvent(e domain.Event) error {
	c.events = append(c.events, e)
	return nil
}

type failingMarks struct {
	ports.CommentRepository
}

func (f failingMarks) MarkSent(ctx context.Context, sessionID string, ids []string) error {
	return errors.New("database is locked")
}

type fixture struct {
	comments *memory.Comments
	buffer   *clipboard.Buffer
	service  *transport.Service
	bcast    *live.Broadcaster
	sink     *captureSink
}

func newFixture(t *testing.T, withTarget bool) *fixture {
	t.Helper()
	f := &fixture{
		comments: memory.NewComments(),
		buffer:   clipboard.NewBuffer(),
		bcast:    live.NewBroadcaster(),
		sink:     &captureSink{},
	}
	reg, err := transport.NewRegistry(manual.New([]ports.ClipboardSink{f.buffer}))
	require.NoError(t, err)
	f.service = transport.NewService(reg, memory.NewStore())
	if withTarget {
		target := "buffer"
		_, err := f.service.SaveActiveConfig(context.Background(), domain.KindClipboard, &target)
		require.NoError(t, err)
	}
	f.bcast.Registry().Add("S1", live.NewConnection("S1", f.sink))

	f.comments.Put("S1", domain.CommentPayload{ID: "c1", FilePath: "a.go", Content: "first", Status: domain.StatusDraft, Author: domain.AuthorHuman})
	f.comments.Put("S1", domain.CommentPayload{ID: "c2", FilePath: "b.go", Content: "second", Status: domain.StatusDraft, Author: domain.AuthorHuman})
	f.comments.Put("S1", domain.CommentPayload{ID: "c3", FilePath: "c.go", Content: "done", Status: domain.StatusResolved, Author: domain.AuthorHuman})
	return f
}

func TestDispatcher_SendsDrafts(t *testing.T) {
	f := newFixture(t, true)
	d := review.NewDispatcher(f.comments, f.service, f.bcast)

	res, err := d.Send(context.Background(), "S1", nil)
	require.NoError(t, err)
	assert.True(t, res.Success)

	text, _, ok := f.buffer.Latest()
	require.True(t, ok)
	assert.Contains(t, text, "first")
	assert.Contains(t, text, "second")
	assert.NotContains(t, text, "done")

	for _, id := range []string{"c1", "c2"} {
		p, err := f.comments.Get("S1", id)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusSent, p.Status)
	}

	require.Len(t, f.sink.events, 2)
	for i, id := range []string{"c1", "c2"} {
		data := f.sink.events[i].Data.(domain.CommentUpdateData)
		assert.Equal(t, id, data.CommentID)
		assert.Equal(t, domain.ActionSent, data.Action)
	}
}

func TestDispatcher_NothingToSend(t *testing.T) {
	f := newFixture(t, true)
	d := review.NewDispatcher(f.comments, f.service, f.bcast)

	_, err := d.Send(context.Background(), "S1", nil)
	require.NoError(t, err)

	_, err = d.Send(context.Background(), "S1", nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = d.Send(context.Background(), "", nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDispatcher_UnknownComment(t *testing.T) {
	f := newFixture(t, true)
	_, err := review.NewDispatcher(f.comments, f.service, f.bcast).Send(context.Background(), "S1", []string{"nope"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDispatcher_DeliveryFailureLeavesDrafts(t *testing.T) {
	f := newFixture(t, false)
	d := review.NewDispatcher(f.comments, f.service, f.bcast)

	_, err := d.Send(context.Background(), "S1", []string{"c1"})
	assert.ErrorIs(t, err, domain.ErrValidation, "no target configured")

	p, err := f.comments.Get("S1", "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, p.Status)
	assert.Empty(t, f.sink.events)
}

func TestDispatcher_MarkFailureAfterDelivery(t *testing.T) {
	f := newFixture(t, true)
	d := review.NewDispatcher(failingMarks{f.comments}, f.service, f.bcast)

	res, err := d.Send(context.Background(), "S1", []string{"c1"})
	require.Error(t, err)
	assert.True(t, res.Success, "delivery result is still reported")
	assert.Empty(t, f.sink.events)
}
