// Package terminal implements the terminal-injection channel: comments are
// pasted into the tmux pane where the agent's interactive session runs.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/aretw0/reviewlink/internal/logging"
	"github.com/aretw0/reviewlink/pkg/adapters/tmux"
	"github.com/aretw0/reviewlink/pkg/domain"
	"github.com/aretw0/reviewlink/pkg/ports"
	"github.com/aretw0/reviewlink/pkg/transport"
)

// AgentCommands are foreground commands recognised as coding agents.
// Panes running one of them are listed first and flagged in metadata.
var AgentCommands = []string{"claude", "codex", "aider", "gemini", "opencode"}

// Channel implements ports.Transport over a tmux server.
type Channel struct {
	mux    ports.Multiplexer
	logger *slog.Logger
	seq    atomic.Uint64
}

// Option configures the Channel.
type Option func(*Channel)

// WithLogger configures a logger for the Channel.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Channel) {
		c.logger = logger
	}
}

// New creates the channel around a multiplexer probe.
func New(mux ports.Multiplexer, opts ...Option) *Channel {
	c := &Channel{mux: mux, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ ports.Transport = (*Channel)(nil)

func (c *Channel) Kind() domain.Kind { return domain.KindTmux }

func (c *Channel) IsAvailable(ctx context.Context) bool {
	return c.probe(ctx) == nil
}

func (c *Channel) Status(ctx context.Context) domain.TransportStatus {
	st := domain.TransportStatus{Transport: domain.KindTmux, Available: true}
	if err := c.probe(ctx); err != nil {
		st.Available = false
		st.Error = reason(err)
	}
	return st
}

func (c *Channel) probe(ctx context.Context) error {
	pctx, cancel := context.WithTimeout(ctx, transport.ProbeTimeout)
	defer cancel()
	return c.mux.Ping(pctx)
}

// ListTargets lists every pane; agent panes first, then by session/window/pane.
// No running server means no targets, not a failure.
func (c *Channel) ListTargets(ctx context.Context) ([]domain.Target, error) {
	panes, err := c.mux.ListPanes(ctx)
	if err != nil {
		if errors.Is(err, tmux.ErrNoServer) || errors.Is(err, tmux.ErrNotInstalled) {
			return []domain.Target{}, nil
		}
		return nil, domain.NewChannelError(domain.KindTmux, "could not list terminal panes", err)
	}

	sort.SliceStable(panes, func(i, j int) bool {
		ai, aj := isAgent(panes[i].Command), isAgent(panes[j].Command)
		if ai != aj {
			return ai
		}
		if panes[i].Session != panes[j].Session {
			return panes[i].Session < panes[j].Session
		}
		if panes[i].Window != panes[j].Window {
			return panes[i].Window < panes[j].Window
		}
		return panes[i].Index < panes[j].Index
	})

	targets := make([]domain.Target, 0, len(panes))
	for _, p := range panes {
		targets = append(targets, domain.Target{
			ID:        p.ID,
			Label:     fmt.Sprintf("%s:%d.%d (%s)", p.Session, p.Window, p.Index, p.Command),
			Transport: domain.KindTmux,
			Metadata: map[string]string{
				"session": p.Session,
				"window":  strconv.Itoa(p.Window),
				"pane":    strconv.Itoa(p.Index),
				"command": p.Command,
				"path":    p.Path,
				"agent":   strconv.FormatBool(isAgent(p.Command)),
			},
		})
	}
	return targets, nil
}

// SendComments pastes the formatted batch into the pane and submits it.
// The text is staged in a private buffer first; if staging or pasting fails
// nothing reaches the pane. A failed Enter after a successful paste leaves the
// text unsubmitted in the prompt: tmux cannot take a paste back, so the error
// says so and the reviewer submits or clears it by hand.
func (c *Channel) SendComments(ctx context.Context, targetID string, payloads []domain.CommentPayload) (domain.SendResult, error) {
	panes, err := c.mux.ListPanes(ctx)
	if err != nil {
		if errors.Is(err, tmux.ErrNoServer) || errors.Is(err, tmux.ErrNotInstalled) {
			return domain.SendResult{}, domain.NewUnavailableError(domain.KindTmux, "tmux is not running", err)
		}
		return domain.SendResult{}, domain.NewChannelError(domain.KindTmux, "could not inspect terminal panes", err)
	}
	if !hasPane(panes, targetID) {
		return domain.SendResult{}, domain.NewUnavailableError(domain.KindTmux, fmt.Sprintf("no terminal pane %s", targetID), nil)
	}

	text := transport.Format(payloads)
	buffer := fmt.Sprintf("reviewlink-%d", c.seq.Add(1))

	if err := c.mux.LoadBuffer(ctx, buffer, text); err != nil {
		// Buffer never made it to tmux; drop any partial remains.
		_ = c.mux.DeleteBuffer(context.WithoutCancel(ctx), buffer)
		return domain.SendResult{}, domain.NewChannelError(domain.KindTmux, "could not stage comments", err)
	}
	if err := c.mux.PasteBuffer(ctx, buffer, targetID); err != nil {
		_ = c.mux.DeleteBuffer(context.WithoutCancel(ctx), buffer)
		return domain.SendResult{}, domain.NewChannelError(domain.KindTmux, "could not paste comments", err)
	}
	if err := c.mux.SendKeys(ctx, targetID, "Enter"); err != nil {
		// The text is in the prompt; the reviewer can still submit by hand.
		return domain.SendResult{}, domain.NewChannelError(domain.KindTmux, "comments pasted but not submitted", err)
	}

	c.logger.Debug("Comments pasted into pane", "pane", targetID, "count", len(payloads), "bytes", len(text))
	return domain.SendResult{Success: true, FormattedText: text}, nil
}

func hasPane(panes []ports.Pane, id string) bool {
	for _, p := range panes {
		if p.ID == id {
			return true
		}
	}
	return false
}

func isAgent(command string) bool {
	base := strings.ToLower(path.Base(command))
	for _, a := range AgentCommands {
		if base == a || strings.HasPrefix(base, a+"-") {
			return true
		}
	}
	return false
}

func reason(err error) string {
	switch {
	case errors.Is(err, tmux.ErrNotInstalled):
		return "tmux is not installed"
	case errors.Is(err, tmux.ErrNoServer):
		return "no tmux server running"
	case errors.Is(err, context.DeadlineExceeded):
		return "tmux did not answer in time"
	default:
		return "tmux probe failed"
	}
}
