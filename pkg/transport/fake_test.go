package transport_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/reviewlink/pkg/domain"
)

// fakeTransport is a scriptable channel that records every call.
type fakeTransport struct {
	kind      domain.Kind
	available bool
	targets   []domain.Target
	listErr   error
	sendErr   error
	delay     time.Duration

	listCalls atomic.Int32
	sendCalls atomic.Int32
	inFlight  atomic.Int32
	maxFlight atomic.Int32

	mu       sync.Mutex
	lastSent []domain.CommentPayload
	lastTo   string
}

func (f *fakeTransport) Kind() domain.Kind { return f.kind }

func (f *fakeTransport) IsAvailable(ctx context.Context) bool { return f.available }

func (f *fakeTransport) Status(ctx context.Context) domain.TransportStatus {
	st := domain.TransportStatus{Transport: f.kind, Available: f.available}
	if !f.available {
		st.Error = "fake is down"
	}
	return st
}

func (f *fakeTransport) enter() func() {
	n := f.inFlight.Add(1)
	for {
		max := f.maxFlight.Load()
		if n <= max || f.maxFlight.CompareAndSwap(max, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return func() { f.inFlight.Add(-1) }
}

func (f *fakeTransport) ListTargets(ctx context.Context) ([]domain.Target, error) {
	f.listCalls.Add(1)
	defer f.enter()()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.Target, len(f.targets))
	copy(out, f.targets)
	return out, nil
}

func (f *fakeTransport) SendComments(ctx context.Context, targetID string, payloads []domain.CommentPayload) (domain.SendResult, error) {
	f.sendCalls.Add(1)
	defer f.enter()()
	if f.sendErr != nil {
		return domain.SendResult{}, f.sendErr
	}
	f.mu.Lock()
	f.lastSent = payloads
	f.lastTo = targetID
	f.mu.Unlock()
	return domain.SendResult{Success: true, FormattedText: "sent"}, nil
}

func newFakes() (tmux, mcp, clip *fakeTransport) {
	tmux = &fakeTransport{kind: domain.KindTmux, available: true, targets: []domain.Target{{ID: "%1", Label: "main:0.0 (claude)"}}}
	mcp = &fakeTransport{kind: domain.KindMCP, available: true, targets: []domain.Target{{ID: "sess-a", Label: "claude-code"}}}
	clip = &fakeTransport{kind: domain.KindClipboard, available: true, targets: []domain.Target{{ID: "buffer", Label: "Copy buffer"}}}
	return
}
