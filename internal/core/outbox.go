package core

import (
	"errors"
	"sync"
)

const (
	// TunnelQueueLimit drops further tunneled voice once this many frames wait.
	TunnelQueueLimit = 25
	// QueueLimit drops any further frame once this many wait.
	QueueLimit = 150
)

var (
	ErrQueueFull    = errors.New("outbound queue full")
	ErrOutboxClosed = errors.New("outbox closed")
)

// Outbox is the FIFO of frames waiting for a session's writer.
type Outbox struct {
	ch chan Frame

	mu     sync.RWMutex
	closed bool
}

func NewOutbox() *Outbox {
	return &Outbox{ch: make(chan Frame, QueueLimit+1)}
}

// Push enqueues f. Tunneled voice gets the smaller limit.
func (o *Outbox) Push(f Frame, tunnel bool) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return ErrOutboxClosed
	}
	n := len(o.ch)
	if (tunnel && n > TunnelQueueLimit) || n > QueueLimit {
		return ErrQueueFull
	}
	select {
	case o.ch <- f:
	default:
		return ErrQueueFull
	}
	return nil
}

// C is drained by the adapter's write pump. It is closed by Close.
func (o *Outbox) C() <-chan Frame { return o.ch }

func (o *Outbox) Len() int { return len(o.ch) }

func (o *Outbox) Closed() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.closed
}

// Close stops accepting frames. Frames already queued stay readable, so a
// final rejection still reaches the peer.
func (o *Outbox) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	close(o.ch)
}

// Discard closes the outbox and releases whatever is still queued.
func (o *Outbox) Discard() int {
	o.Close()
	n := 0
	for range o.ch {
		n++
	}
	return n
}
