package manual_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/reviewlink/pkg/adapters/clipboard"
	"github.com/aretw0/reviewlink/pkg/domain"
	"github.com/aretw0/reviewlink/pkg/ports"
	"github.com/aretw0/reviewlink/pkg/ports/tests"
	"github.com/aretw0/reviewlink/pkg/transport/manual"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenSink struct {
	availErr error
	writeErr error
	writes   int
}

func (b *brokenSink) Name() string                        { return "broken" }
func (b *brokenSink) Label() string                       { return "Broken sink" }
func (b *brokenSink) Available(ctx context.Context) error { return b.availErr }
func (b *brokenSink) Write(ctx context.Context, text string) error {
	b.writes++
	return b.writeErr
}

var payloads = []domain.CommentPayload{{ID: "c1", FilePath: "x.go", Content: "nit", Status: domain.StatusDraft, Author: domain.AuthorHuman}}

func TestChannel_Contract(t *testing.T) {
	tests.TransportContractTest(t, manual.New([]ports.ClipboardSink{clipboard.NewBuffer()}), "nowhere")
}

func TestChannel_AlwaysAvailable(t *testing.T) {
	ch := manual.New(nil)
	assert.True(t, ch.IsAvailable(context.Background()))
	assert.True(t, ch.Status(context.Background()).Available)

	targets, err := ch.ListTargets(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, targets)
	assert.Empty(t, targets)
}

func TestChannel_ListTargets_SkipsUnavailable(t *testing.T) {
	ch := manual.New([]ports.ClipboardSink{
		clipboard.NewBuffer(),
		&brokenSink{availErr: errors.New("no display")},
	})
	targets, err := ch.ListTargets(context.Background())
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "buffer", targets[0].ID)
	assert.Equal(t, domain.KindClipboard, targets[0].Transport)
}

func TestChannel_Send(t *testing.T) {
	buf := clipboard.NewBuffer()
	res, err := manual.New([]ports.ClipboardSink{buf}).SendComments(context.Background(), "buffer", payloads)
	require.NoError(t, err)
	assert.True(t, res.Success)

	text, _, ok := buf.Latest()
	require.True(t, ok)
	assert.Equal(t, res.FormattedText, text)
	assert.Contains(t, text, "nit")
}

func TestChannel_Send_Failures(t *testing.T) {
	t.Run("Sink unavailable", func(t *testing.T) {
		sink := &brokenSink{availErr: errors.New("no display")}
		_, err := manual.New([]ports.ClipboardSink{sink}).SendComments(context.Background(), "broken", payloads)
		assert.ErrorIs(t, err, domain.ErrTransportUnavailable)
		assert.Zero(t, sink.writes)
	})

	t.Run("Write fails", func(t *testing.T) {
		sink := &brokenSink{writeErr: errors.New("xclip: exit status 1")}
		_, err := manual.New([]ports.ClipboardSink{sink}).SendComments(context.Background(), "broken", payloads)
		assert.ErrorIs(t, err, domain.ErrChannel)
		assert.Equal(t, 1, sink.writes)
	})
}
