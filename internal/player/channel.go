package player

import (
	"context"
	"sync"
)

// Channel is an in-process EventSource. Several producers may publish into
// the same Channel.
type Channel struct {
	mu     sync.RWMutex
	ch     chan Event
	closed bool
}

// NewChannel returns a Channel with the given buffer size.
func NewChannel(buffer int) *Channel {
	if buffer < 0 {
		buffer = 0
	}
	return &Channel{ch: make(chan Event, buffer)}
}

// Events implements EventSource.
func (c *Channel) Events() <-chan Event {
	return c.ch
}

// Publish enqueues event, blocking until there is room or ctx is done.
func (c *Channel) Publish(ctx context.Context, event Event) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the source. Consumers see the events channel close.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.ch)
}
