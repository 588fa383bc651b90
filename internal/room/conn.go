package room

import (
	"errors"
	"sync"
)

// Role distinguishes human participants from the room's synthetic one.
type Role string

const (
	RoleHuman     Role = "human"
	RoleSynthetic Role = "synthetic"
)

var (
	ErrConnClosed   = errors.New("connection closed")
	ErrBackpressure = errors.New("backpressure")
)

// Conn is a registered realtime connection. Outbound messages go through
// a single buffered channel drained by one writer goroutine, which keeps
// delivery to a given connection in emission order.
type Conn struct {
	ID     string
	RoomID string
	Role   Role

	send chan any

	mu     sync.RWMutex
	closed bool
}

func NewConn(id string, buffer int) *Conn {
	if buffer <= 0 {
		buffer = 64
	}
	return &Conn{
		ID:   id,
		send: make(chan any, buffer),
	}
}

// TrySend enqueues an outbound message without blocking. A saturated
// queue drops the message rather than stalling the sender's handler.
func (c *Conn) TrySend(v any) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- v:
		return nil
	default:
		return ErrBackpressure
	}
}

// Outbound exposes the send queue to the connection's writer goroutine.
func (c *Conn) Outbound() <-chan any { return c.send }

// Connected reports whether the connection can still receive messages.
func (c *Conn) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed
}

// Close marks the connection disconnected and closes its send queue.
// Safe to call more than once.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
