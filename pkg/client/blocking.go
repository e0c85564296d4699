package client

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/atlassian/megatron/pkg/stats"
	"github.com/atlassian/megatron/pkg/transport"
)

// Blocking delivers lines on the goroutine calling Send.  Deliveries are serialized.
//
// Close only flips a flag: a delivery in flight completes, and the sender is released by whoever
// holds it last.
type Blocking struct {
	sender   transport.Sender
	logger   logrus.FieldLogger
	counters *stats.Counters

	closed int32 // atomic

	mu       sync.Mutex // serializes access to sender
	released bool
}

// NewBlocking creates a client writing through sender synchronously.
func NewBlocking(sender transport.Sender, opts Options) *Blocking {
	opts = opts.withDefaults()
	logger := opts.Logger.WithFields(logrus.Fields{
		"client":      opts.Name,
		"destination": sender.String(),
	})
	logger.Info("created blocking client")
	return &Blocking{
		sender:   sender,
		logger:   logger,
		counters: opts.Counters,
	}
}

// Send delivers lines before returning.  It is a no-op once the client is closed.
func (c *Blocking) Send(lines []string) {
	if len(lines) == 0 || c.isClosed() {
		return
	}
	c.mu.Lock()
	defer func() {
		c.mu.Unlock()
		c.tryRelease()
	}()
	if c.isClosed() {
		return
	}
	c.counters.Queued.Add(float64(len(lines)))
	deliver(c.sender, c.logger, c.counters, lines)
}

// Close stops accepting lines without waiting for a delivery in flight.  It is idempotent.
func (c *Blocking) Close() {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return
	}
	c.tryRelease()
}

// tryRelease closes the sender unless a Send holds it.  Every Send calls it again after unlocking,
// so the last one out releases the sender once the client is closed.
func (c *Blocking) tryRelease() {
	if !c.isClosed() || !c.mu.TryLock() {
		return
	}
	defer c.mu.Unlock()
	c.releaseIfClosed()
}

// releaseIfClosed closes the sender once.  c.mu must be held.
func (c *Blocking) releaseIfClosed() {
	if c.released || !c.isClosed() {
		return
	}
	c.released = true
	if err := c.sender.Close(); err != nil {
		c.logger.WithError(err).Warn("failed to close sender")
	}
}

func (c *Blocking) isClosed() bool {
	return atomic.LoadInt32(&c.closed) != 0
}

// State returns StateOpen or StateClosed.
func (c *Blocking) State() State {
	if c.isClosed() {
		return StateClosed
	}
	return StateOpen
}
