package fixtures

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// MockSender implements transport.Sender from github.com/atlassian/megatron/pkg/transport, recording
// every batch it is given.
type MockSender struct {
	TB testing.TB

	// FnSend, if set, decides the outcome of a Send after the batch is recorded.
	FnSend func(ctx context.Context, lines []string) error

	mu      sync.Mutex
	batches [][]string
	closed  int
}

func (m *MockSender) Send(ctx context.Context, lines []string) error {
	m.mu.Lock()
	if m.closed > 0 {
		assert.Fail(m.TB, "Sender.Send must not be called after Close")
	}
	m.batches = append(m.batches, append([]string(nil), lines...))
	m.mu.Unlock()
	if m.FnSend != nil {
		return m.FnSend(ctx, lines)
	}
	return nil
}

func (m *MockSender) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

func (m *MockSender) String() string {
	return "mock"
}

// Batches returns a copy of every batch received so far.
func (m *MockSender) Batches() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]string(nil), m.batches...)
}

// Lines returns every line received so far, in order.
func (m *MockSender) Lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var lines []string
	for _, b := range m.batches {
		lines = append(lines, b...)
	}
	return lines
}

// Closed returns how many times Close was called.
func (m *MockSender) Closed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// CapturingClient implements megatron.Client, collecting lines in memory.
type CapturingClient struct {
	mu     sync.Mutex
	lines  []string
	closed bool
}

func (c *CapturingClient) Send(lines []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.lines = append(c.lines, lines...)
	}
}

func (c *CapturingClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Lines returns the lines sent so far.
func (c *CapturingClient) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

// IsClosed reports whether Close was called.
func (c *CapturingClient) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
