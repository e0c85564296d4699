package client

import (
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tilinna/clock"
	"golang.org/x/time/rate"

	"github.com/atlassian/megatron/pkg/stats"
	"github.com/atlassian/megatron/pkg/transport"
)

// NonBlocking queues lines and delivers them from a single background goroutine.  Send never
// blocks: when the queue is full the line is dropped.
//
// Lines are delivered in the order they were queued.  Every line queued before Close is called is
// delivered (or its delivery attempted) before Close returns.
type NonBlocking struct {
	sender       transport.Sender
	logger       logrus.FieldLogger
	counters     *stats.Counters
	clock        clock.Clock
	pollInterval time.Duration
	dropLimiter  *rate.Limiter

	queue chan string
	state int32 // State

	stop    chan struct{} // closed by Close to stop the background sender
	stopped chan struct{} // closed when the background sender has exited
	closed  chan struct{} // closed when Close has completed
}

// NewNonBlocking creates a client and starts its background sender through opts.Starter.
func NewNonBlocking(sender transport.Sender, opts Options) *NonBlocking {
	opts = opts.withDefaults()
	logger := opts.Logger.WithFields(logrus.Fields{
		"client":      opts.Name,
		"destination": sender.String(),
	})
	c := &NonBlocking{
		sender:       sender,
		logger:       logger,
		counters:     opts.Counters,
		clock:        opts.Clock,
		pollInterval: opts.PollInterval,
		dropLimiter:  rate.NewLimiter(rate.Every(opts.DropWarningInterval), 1),
		queue:        make(chan string, opts.QueueSize),
		stop:         make(chan struct{}),
		stopped:      make(chan struct{}),
		closed:       make(chan struct{}),
	}
	opts.Starter.Start(func() {
		defer close(c.stopped)
		c.run()
	})
	logger.WithField("queue-size", opts.QueueSize).Info("created non-blocking client")
	return c
}

// Send queues lines for delivery.  It is a no-op once the client is closing.
func (c *NonBlocking) Send(lines []string) {
	for _, line := range lines {
		if c.State() != StateOpen {
			return
		}
		select {
		case c.queue <- line:
			c.counters.Queued.Inc()
		default:
			c.counters.Dropped.Inc()
			if c.dropLimiter.Allow() {
				c.logger.WithField("queue-size", cap(c.queue)).Warn("queue full, dropping lines")
			}
		}
	}
}

// Close stops accepting lines, delivers everything already queued and closes the sender.  It is
// idempotent, and concurrent callers all return once the client is closed.
func (c *NonBlocking) Close() {
	if !atomic.CompareAndSwapInt32(&c.state, int32(StateOpen), int32(StateClosing)) {
		<-c.closed
		return
	}
	close(c.stop)
	<-c.stopped
	// Lines queued between the state change and the sender observing the stop signal.
	c.drainAndSend(nil)
	if err := c.sender.Close(); err != nil {
		c.logger.WithError(err).Warn("failed to close sender")
	}
	atomic.StoreInt32(&c.state, int32(StateClosed))
	close(c.closed)
	c.logger.Debug("closed client")
}

// State returns the lifecycle state of the client.
func (c *NonBlocking) State() State {
	return State(atomic.LoadInt32(&c.state))
}

func (c *NonBlocking) run() {
	ticker := c.clock.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			atomic.StoreInt32(&c.state, int32(StateDraining))
			c.drainAndSend(nil)
			return
		case line := <-c.queue:
			c.drainAndSend([]string{line})
		case <-ticker.C:
			// idle
		}
	}
}

// drainAndSend appends to batch every line queued at the time of the call, and delivers the result
// as one batch.
func (c *NonBlocking) drainAndSend(batch []string) {
	n := len(c.queue)
drain:
	for ; n > 0; n-- {
		select {
		case line := <-c.queue:
			batch = append(batch, line)
		default:
			break drain
		}
	}
	if len(batch) > 0 {
		deliver(c.sender, c.logger, c.counters, batch)
	}
}
