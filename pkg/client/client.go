package client

import (
	"context"
	"time"

	"github.com/ash2k/stager/wait"
	"github.com/sirupsen/logrus"
	"github.com/tilinna/clock"

	"github.com/atlassian/megatron"
	"github.com/atlassian/megatron/pkg/stats"
	"github.com/atlassian/megatron/pkg/transport"
)

const (
	// DefaultQueueSize is the queue capacity used when none is configured.  It is large enough to
	// never fill up under normal telemetry volumes.
	DefaultQueueSize = 65536
	// DefaultPollInterval is how long the background sender waits for a line before looping.
	DefaultPollInterval = 1 * time.Second
	// DefaultDropWarningInterval is the minimum interval between two "queue full" warnings.
	DefaultDropWarningInterval = 10 * time.Second
)

// State is the lifecycle state of a client.  Transitions are one-way.
type State int32

const (
	StateOpen State = iota
	StateClosing
	StateDraining
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Options configures a client.  Zero values select the defaults.
type Options struct {
	// Name identifies the client in logs and metrics.
	Name string
	// QueueSize is the capacity of the NonBlocking queue, <= 0 meaning DefaultQueueSize.
	QueueSize int
	// PollInterval is how long the NonBlocking sender waits for a line before looping.
	PollInterval time.Duration
	// DropWarningInterval rate limits the warning logged when the queue is full.
	DropWarningInterval time.Duration
	// Starter launches the NonBlocking background sender.  Defaults to a new wait.Group.
	Starter  megatron.GoroutineStarter
	Clock    clock.Clock
	Logger   logrus.FieldLogger
	Counters *stats.Counters
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = DefaultQueueSize
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.DropWarningInterval <= 0 {
		o.DropWarningInterval = DefaultDropWarningInterval
	}
	if o.Starter == nil {
		o.Starter = &wait.Group{}
	}
	if o.Clock == nil {
		o.Clock = clock.Realtime()
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	if o.Counters == nil {
		o.Counters = stats.NewCounters()
	}
	return o
}

// New creates a NonBlocking client if async is set, and a Blocking client otherwise.  The client
// owns sender and closes it when closed.
func New(sender transport.Sender, async bool, opts Options) megatron.Client {
	if async {
		return NewNonBlocking(sender, opts)
	}
	return NewBlocking(sender, opts)
}

// deliver hands one batch to the sender.  Failures are logged and the batch is abandoned.
func deliver(sender transport.Sender, logger logrus.FieldLogger, counters *stats.Counters, lines []string) {
	counters.Batches.Inc()
	if err := sender.Send(context.Background(), lines); err != nil {
		counters.Errors.Inc()
		logger.WithError(err).WithField("lines", len(lines)).Warn("failed to send lines")
		return
	}
	counters.Sent.Add(float64(len(lines)))
	logger.WithField("lines", len(lines)).Debug("sent lines")
}
