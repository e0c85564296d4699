package fixtures

import (
	"net"
	"testing"
	"time"

	"github.com/libp2p/go-reuseport"
	"github.com/stretchr/testify/require"
)

// UDPCapture is a loopback UDP server recording every datagram it receives.
type UDPCapture struct {
	conn      net.PacketConn
	datagrams chan string
}

// NewUDPCapture starts a capture on an ephemeral loopback port.  It is closed when the test ends.
func NewUDPCapture(tb testing.TB) *UDPCapture {
	conn, err := reuseport.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(tb, err)
	c := &UDPCapture{
		conn:      conn,
		datagrams: make(chan string, 1024),
	}
	go c.read()
	tb.Cleanup(func() {
		_ = conn.Close()
	})
	return c
}

func (c *UDPCapture) read() {
	buf := make([]byte, 65536)
	for {
		n, _, err := c.conn.ReadFrom(buf)
		if err != nil {
			close(c.datagrams)
			return
		}
		c.datagrams <- string(buf[:n])
	}
}

// Addr returns the host:port the capture listens on.
func (c *UDPCapture) Addr() string {
	return c.conn.LocalAddr().String()
}

// Collect waits for n datagrams, failing the test if they do not arrive in time.
func (c *UDPCapture) Collect(tb testing.TB, n int) []string {
	result := make([]string, 0, n)
	timeout := time.After(5 * time.Second)
	for len(result) < n {
		select {
		case d, ok := <-c.datagrams:
			require.True(tb, ok, "capture closed")
			result = append(result, d)
		case <-timeout:
			require.FailNow(tb, "timed out waiting for datagrams", "received %d of %d: %q", len(result), n, result)
		}
	}
	return result
}
