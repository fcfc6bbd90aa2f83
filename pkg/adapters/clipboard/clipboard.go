// Package clipboard provides the sinks behind the manual-copy channel.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/reviewlink/pkg/ports"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// ErrNoTool is returned when no system clipboard command is usable.
var ErrNoTool = errors.New("no clipboard tool found")

// ErrNotTerminal is returned by the OSC52 sink when output is not a TTY.
var ErrNotTerminal = errors.New("output is not a terminal")

// Buffer keeps the last copied text in memory so the UI can offer it.
type Buffer struct {
	mu   sync.RWMutex
	text string
	at   time.Time
}

var _ ports.ClipboardSink = (*Buffer)(nil)

func NewBuffer() *Buffer { return &Buffer{} }

func (b *Buffer) Name() string                        { return "buffer" }
func (b *Buffer) Label() string                       { return "Copy buffer (review UI)" }
func (b *Buffer) Available(ctx context.Context) error { return nil }

func (b *Buffer) Write(ctx context.Context, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text = text
	b.at = time.Now().UTC()
	return nil
}

// Latest returns the last written text and when it was written.
func (b *Buffer) Latest() (string, time.Time, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.text, b.at, !b.at.IsZero()
}

// tool is a clipboard command and the environment it needs.
type tool struct {
	bin  string
	args []string
	env  string
}

var tools = []tool{
	{bin: "pbcopy"},
	{bin: "wl-copy", env: "WAYLAND_DISPLAY"},
	{bin: "xclip", args: []string{"-selection", "clipboard"}, env: "DISPLAY"},
	{bin: "xsel", args: []string{"--clipboard", "--input"}, env: "DISPLAY"},
	{bin: "clip.exe"},
}

// System pipes text into the first usable OS clipboard command.
type System struct {
	lookPath func(string) (string, error)
	getenv   func(string) string
}

var _ ports.ClipboardSink = (*System)(nil)

// SystemOption configures the System sink.
type SystemOption func(*System)

// WithLookPath replaces exec.LookPath, mainly for tests.
func WithLookPath(fn func(string) (string, error)) SystemOption {
	return func(s *System) { s.lookPath = fn }
}

// WithGetenv replaces os.Getenv, mainly for tests.
func WithGetenv(fn func(string) string) SystemOption {
	return func(s *System) { s.getenv = fn }
}

func NewSystem(opts ...SystemOption) *System {
	s := &System{lookPath: exec.LookPath, getenv: os.Getenv}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *System) Name() string  { return "system" }
func (s *System) Label() string { return "System clipboard" }

func (s *System) Available(ctx context.Context) error {
	_, _, err := s.find()
	return err
}

func (s *System) Write(ctx context.Context, text string) error {
	path, t, err := s.find()
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, path, t.args...)
	cmd.Stdin = strings.NewReader(text)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w (%s)", t.bin, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (s *System) find() (string, tool, error) {
	for _, t := range tools {
		if t.env != "" && s.getenv(t.env) == "" {
			continue
		}
		if path, err := s.lookPath(t.bin); err == nil {
			return path, t, nil
		}
	}
	return "", tool{}, ErrNoTool
}

// OSC52 asks the attached terminal emulator to set its clipboard. Works over
// SSH and inside tmux when the terminal supports it.
type OSC52 struct {
	out    io.Writer
	isTerm func() bool
}

var _ ports.ClipboardSink = (*OSC52)(nil)

// NewOSC52 writes to out; the sink is available only when out is a terminal.
func NewOSC52(out io.Writer) *OSC52 {
	o := &OSC52{out: out}
	o.isTerm = func() bool {
		f, ok := out.(interface{ Fd() uintptr })
		return ok && term.IsTerminal(int(f.Fd()))
	}
	return o
}

// NewOSC52Forced treats out as a terminal regardless of what it is.
func NewOSC52Forced(out io.Writer) *OSC52 {
	return &OSC52{out: out, isTerm: func() bool { return true }}
}

func (o *OSC52) Name() string  { return "terminal" }
func (o *OSC52) Label() string { return "Terminal clipboard (OSC 52)" }

func (o *OSC52) Available(ctx context.Context) error {
	if !o.isTerm() {
		return ErrNotTerminal
	}
	return nil
}

func (o *OSC52) Write(ctx context.Context, text string) error {
	if !o.isTerm() {
		return ErrNotTerminal
	}
	termenv.NewOutput(o.out).Copy(text)
	return nil
}
