package megatron

import (
	"context"
)

// Runnable is a long running function intended to be launched in a goroutine.
type Runnable func(context.Context)

// Runner exposes a Runnable through an interface
type Runner interface {
	Run(context.Context)
}

func MaybeAppendRunnable(runnables []Runnable, maybeRunner interface{}) []Runnable {
	if r, ok := maybeRunner.(Runner); ok {
		runnables = append(runnables, r.Run)
	}
	return runnables
}

// GoroutineStarter launches long running functions on behalf of a component, letting the embedding
// program decide how they are tracked.  *wait.Group from github.com/ash2k/stager/wait satisfies it.
type GoroutineStarter interface {
	Start(f func())
}

// Client delivers pre-formatted lines to a monitoring backend.
//
// Send never blocks on a NonBlocking client, and never reports transport failures: they are logged
// and the lines are abandoned.  Send on a closed Client is a no-op.
//
// Close is idempotent.  It stops accepting lines, flushes whatever was accepted and releases the
// underlying socket or connection before returning.
type Client interface {
	Send(lines []string)
	Close()
}

// EventListener receives notifications and statistics from the cluster.
type EventListener interface {
	// OnNotifications is called when new cluster notifications arrive.
	OnNotifications(notifications []*Notification)
	// OnStatistics is called when a new set of statistics has been collected.
	OnStatistics(statistics []*ContextualStatistics)
}

// EventSource produces events for a listener until the context is cancelled or the source is exhausted.
type EventSource interface {
	Run(ctx context.Context, listener EventListener) error
}

// Plugin ships events to one monitoring system.
type Plugin interface {
	EventListener
	// Name returns the name of the plugin.
	Name() string
	// Close flushes pending data and releases resources.
	Close()
}
