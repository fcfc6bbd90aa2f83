// Package tmux drives a tmux server through its command line client.
//
// Every command goes through Client.run, which prepends the socket flag when
// one is configured, binds the call to a context, and folds tmux's own
// diagnostic output into the returned error.
package tmux

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/aretw0/reviewlink/pkg/ports"
)

// ErrNoServer is returned when no tmux server is running on the socket.
var ErrNoServer = errors.New("no tmux server running")

// ErrNotInstalled is returned when the tmux binary cannot be found.
var ErrNotInstalled = errors.New("tmux not installed")

// paneFormat is the list-panes format: tab separated id, session, window,
// pane index, current command, current path.
const paneFormat = "#{pane_id}\t#{session_name}\t#{window_index}\t#{pane_index}\t#{pane_current_command}\t#{pane_current_path}"

// Client implements ports.Multiplexer.
type Client struct {
	binary     string
	socketPath string
}

// Option configures the Client.
type Option func(*Client)

// WithSocket targets a specific server socket (tmux -S). Empty means the
// user's default server, which is what an agent started in a terminal uses.
func WithSocket(path string) Option {
	return func(c *Client) {
		c.socketPath = path
	}
}

// WithBinary overrides the tmux executable.
func WithBinary(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.binary = path
		}
	}
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{binary: "tmux"}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ ports.Multiplexer = (*Client)(nil)

// Ping checks the server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.run(ctx, nil, "list-sessions", "-F", "#{session_name}")
	return err
}

// ListPanes lists every pane across all sessions.
func (c *Client) ListPanes(ctx context.Context) ([]ports.Pane, error) {
	out, err := c.run(ctx, nil, "list-panes", "-a", "-F", paneFormat)
	if err != nil {
		return nil, err
	}
	return parsePanes(out)
}

// LoadBuffer reads text from stdin into a named buffer.
func (c *Client) LoadBuffer(ctx context.Context, buffer, text string) error {
	_, err := c.run(ctx, strings.NewReader(text), "load-buffer", "-b", buffer, "-")
	return err
}

// PasteBuffer pastes the buffer with bracketed paste (-p) and deletes it (-d).
// Bracketed paste keeps interactive agents from submitting on embedded newlines.
func (c *Client) PasteBuffer(ctx context.Context, buffer, paneID string) error {
	_, err := c.run(ctx, nil, "paste-buffer", "-p", "-d", "-b", buffer, "-t", paneID)
	return err
}

// DeleteBuffer removes a buffer. A buffer that is already gone is not an error.
func (c *Client) DeleteBuffer(ctx context.Context, buffer string) error {
	_, err := c.run(ctx, nil, "delete-buffer", "-b", buffer)
	if err != nil && strings.Contains(err.Error(), "no buffer") {
		return nil
	}
	return err
}

// SendKeys sends key names to a pane.
func (c *Client) SendKeys(ctx context.Context, paneID string, keys ...string) error {
	args := append([]string{"send-keys", "-t", paneID}, keys...)
	_, err := c.run(ctx, nil, args...)
	return err
}

func (c *Client) run(ctx context.Context, stdin *strings.Reader, args ...string) (string, error) {
	var full []string
	if c.socketPath != "" {
		full = append(full, "-S", c.socketPath)
	}
	full = append(full, args...)

	cmd := exec.CommandContext(ctx, c.binary, full...)
	if stdin != nil {
		cmd.Stdin = stdin
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", ErrNotInstalled
		}
		msg := strings.TrimSpace(stderr.String())
		// "no server running" and "error connecting to" both mean nothing listens on the socket.
		if strings.Contains(msg, "no server running") || strings.Contains(msg, "error connecting to") {
			return "", fmt.Errorf("%w: %s", ErrNoServer, msg)
		}
		return "", fmt.Errorf("tmux %s: %w (%s)", args[0], err, msg)
	}
	return stdout.String(), nil
}

// parsePanes parses list-panes output produced with paneFormat.
func parsePanes(output string) ([]ports.Pane, error) {
	panes := []ports.Pane{}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 6)
		if len(parts) != 6 {
			return nil, fmt.Errorf("unexpected list-panes output (expected 6 fields): %q", line)
		}

		window, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil, fmt.Errorf("parsing window index %q: %w", parts[2], err)
		}
		index, err := strconv.Atoi(parts[3])
		if err != nil {
			return nil, fmt.Errorf("parsing pane index %q: %w", parts[3], err)
		}

		panes = append(panes, ports.Pane{
			ID:      parts[0],
			Session: parts[1],
			Window:  window,
			Index:   index,
			Command: parts[4],
			Path:    parts[5],
		})
	}
	return panes, nil
}
