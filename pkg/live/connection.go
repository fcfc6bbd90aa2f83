package live

import (
	"errors"
	"sync"

	"github.com/aretw0/reviewlink/pkg/domain"
	"github.com/google/uuid"
)

// ErrConnectionClosed is returned when writing to a closed connection.
var ErrConnectionClosed = errors.New("connection closed")

// Sink is the transport below a connection, typically an SSE response.
type Sink interface {
	WriteEvent(event domain.Event) error
}

// Connection is one subscriber of one session. It is open until Close is
// called or a write fails; a closed connection never writes again.
type Connection struct {
	id        string
	sessionID string
	sink      Sink

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewConnection wraps sink with a fresh connection id.
func NewConnection(sessionID string, sink Sink) *Connection {
	return &Connection{
		id:        uuid.NewString(),
		sessionID: sessionID,
		sink:      sink,
		done:      make(chan struct{}),
	}
}

func (c *Connection) ID() string        { return c.id }
func (c *Connection) SessionID() string { return c.sessionID }

// Done is closed when the connection closes.
func (c *Connection) Done() <-chan struct{} { return c.done }

// Write sends one event. A sink failure closes the connection.
func (c *Connection) Write(event domain.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnectionClosed
	}
	if err := c.sink.WriteEvent(event); err != nil {
		c.closeLocked()
		return err
	}
	return nil
}

// Close is idempotent.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Connection) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Connection) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}
