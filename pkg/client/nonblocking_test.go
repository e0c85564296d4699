package client

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/ash2k/stager/wait"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlassian/megatron/internal/fixtures"
	"github.com/atlassian/megatron/pkg/stats"
)

func makeLines(prefix string, n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = prefix + strconv.Itoa(i)
	}
	return lines
}

func newTestNonBlocking(t *testing.T, sender *fixtures.MockSender, queueSize int) (*NonBlocking, *wait.Group, *stats.Counters) {
	var wg wait.Group
	counters := stats.NewCounters()
	c := NewNonBlocking(sender, Options{
		Name:      "test",
		QueueSize: queueSize,
		Starter:   &wg,
		Clock:     fixtures.NewMockClock(),
		Logger:    fixtures.NewTestLogger(t),
		Counters:  counters,
	})
	return c, &wg, counters
}

func TestNonBlockingCloseDrainsEverything(t *testing.T) {
	t.Parallel()
	sender := &fixtures.MockSender{TB: t}
	c, wg, counters := newTestNonBlocking(t, sender, 0)

	lines := makeLines("line", 1000)
	for i := 0; i < len(lines); i += 10 {
		c.Send(lines[i : i+10])
	}
	c.Close()
	wg.Wait()

	assert.Equal(t, lines, sender.Lines())
	assert.Equal(t, 1, sender.Closed())
	assert.Equal(t, StateClosed, c.State())
	assert.Equal(t, 1000.0, testutil.ToFloat64(counters.Queued))
	assert.Equal(t, 1000.0, testutil.ToFloat64(counters.Sent))
	assert.Equal(t, 0.0, testutil.ToFloat64(counters.Dropped))
}

func TestNonBlockingFIFOConcurrentProducers(t *testing.T) {
	t.Parallel()
	sender := &fixtures.MockSender{TB: t}
	c, wg, _ := newTestNonBlocking(t, sender, 0)

	var producers sync.WaitGroup
	for p := 0; p < 4; p++ {
		producers.Add(1)
		go func(p int) {
			defer producers.Done()
			for i := 0; i < 100; i++ {
				c.Send([]string{strconv.Itoa(p) + ":" + strconv.Itoa(i)})
			}
		}(p)
	}
	producers.Wait()
	c.Close()
	wg.Wait()

	received := sender.Lines()
	require.Len(t, received, 400)
	// Each producer's lines arrive in the order they were sent.
	next := map[string]int{}
	for _, line := range received {
		p, i := line[:1], line[2:]
		assert.Equal(t, strconv.Itoa(next[p]), i, line)
		next[p]++
	}
}

func TestNonBlockingFullQueueNeverBlocks(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	sender := &fixtures.MockSender{
		TB: t,
		FnSend: func(ctx context.Context, lines []string) error {
			select {
			case entered <- struct{}{}:
			default:
			}
			<-release
			return nil
		},
	}
	c, wg, counters := newTestNonBlocking(t, sender, 1)

	c.Send([]string{"first"})
	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "sender never called")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Send(makeLines("x", 100))
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "Send blocked on a full queue")
	}
	assert.Equal(t, 99.0, testutil.ToFloat64(counters.Dropped))

	close(release)
	c.Close()
	wg.Wait()
	assert.Equal(t, []string{"first", "x0"}, sender.Lines())
}

func TestNonBlockingDoubleClose(t *testing.T) {
	t.Parallel()
	sender := &fixtures.MockSender{TB: t}
	c, wg, _ := newTestNonBlocking(t, sender, 0)
	c.Send([]string{"a"})

	var closers sync.WaitGroup
	for i := 0; i < 10; i++ {
		closers.Add(1)
		go func() {
			defer closers.Done()
			c.Close()
			assert.Equal(t, StateClosed, c.State())
		}()
	}
	closers.Wait()
	c.Close()
	wg.Wait()

	assert.Equal(t, 1, sender.Closed())
	assert.Equal(t, []string{"a"}, sender.Lines())
}

func TestNonBlockingSendAfterClose(t *testing.T) {
	t.Parallel()
	sender := &fixtures.MockSender{TB: t}
	c, wg, counters := newTestNonBlocking(t, sender, 0)
	c.Close()
	wg.Wait()

	c.Send([]string{"late"})
	assert.Empty(t, sender.Lines())
	assert.Equal(t, 0.0, testutil.ToFloat64(counters.Queued))
}

func TestNonBlockingFailingSenderStaysUsable(t *testing.T) {
	t.Parallel()
	var calls int
	var mu sync.Mutex
	sender := &fixtures.MockSender{
		TB: t,
		FnSend: func(ctx context.Context, lines []string) error {
			mu.Lock()
			defer mu.Unlock()
			calls++
			if calls == 1 {
				return errors.New("connection refused")
			}
			return nil
		},
	}
	c, wg, counters := newTestNonBlocking(t, sender, 0)

	c.Send([]string{"lost"})
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(counters.Errors) == 1
	}, 5*time.Second, time.Millisecond)

	c.Send([]string{"kept"})
	c.Close()
	wg.Wait()

	assert.Equal(t, []string{"lost", "kept"}, sender.Lines())
	assert.Equal(t, 1.0, testutil.ToFloat64(counters.Sent))
}

func TestNonBlockingIdlePoll(t *testing.T) {
	t.Parallel()
	sender := &fixtures.MockSender{TB: t}
	clk := fixtures.NewMockClock()
	var wg wait.Group
	c := NewNonBlocking(sender, Options{
		Starter:      &wg,
		Clock:        clk,
		PollInterval: time.Second,
		Logger:       fixtures.NewTestLogger(t),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := 0; i < 3; i++ {
		fixtures.NextStep(ctx, clk)
	}
	require.NoError(t, ctx.Err())

	c.Send([]string{"after-idle"})
	c.Close()
	wg.Wait()
	assert.Equal(t, []string{"after-idle"}, sender.Lines())
}

func TestNew(t *testing.T) {
	t.Parallel()
	sender := &fixtures.MockSender{TB: t}
	c := New(sender, true, Options{Logger: fixtures.NewTestLogger(t)})
	require.IsType(t, &NonBlocking{}, c)
	c.Close()

	sender = &fixtures.MockSender{TB: t}
	c = New(sender, false, Options{Logger: fixtures.NewTestLogger(t)})
	require.IsType(t, &Blocking{}, c)
	c.Close()
}

func TestStateString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "closing", StateClosing.String())
	assert.Equal(t, "draining", StateDraining.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "unknown", State(42).String())
}
