package transport

import (
	"context"
)

// Sender delivers a batch of pre-formatted lines over one protocol binding.  Implementations are
// not required to be safe for concurrent use; clients serialize calls to Send.
type Sender interface {
	// Send delivers lines, returning the first failure.  A failed batch is abandoned.
	Send(ctx context.Context, lines []string) error
	// Close releases the socket or connections held by the sender.
	Close() error
	// String describes the destination, for logging.
	String() string
}
