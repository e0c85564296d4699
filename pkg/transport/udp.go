package transport

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

const udpNetwork = "udp"

// UDPSender writes every line as its own datagram, terminated by a newline.  Delivery is fire and
// forget.  The destination is resolved on first use and the resolution cached.
type UDPSender struct {
	logger  logrus.FieldLogger
	address string
	conn    net.PacketConn

	resolved atomic.Value // *net.UDPAddr
	buf      []byte
}

// NewUDPSender opens the local socket used to reach address (host:port).
func NewUDPSender(logger logrus.FieldLogger, address string) (*UDPSender, error) {
	if _, _, err := net.SplitHostPort(address); err != nil {
		return nil, fmt.Errorf("invalid UDP address %q: %v", address, err)
	}
	conn, err := net.ListenPacket(udpNetwork, ":0")
	if err != nil {
		return nil, fmt.Errorf("failed to open UDP socket: %v", err)
	}
	logger.WithField("address", address).Info("created UDP sender")
	return &UDPSender{
		logger:  logger,
		address: address,
		conn:    conn,
	}, nil
}

func (s *UDPSender) resolve() (*net.UDPAddr, error) {
	if addr, ok := s.resolved.Load().(*net.UDPAddr); ok {
		return addr, nil
	}
	addr, err := net.ResolveUDPAddr(udpNetwork, s.address)
	if err != nil {
		return nil, err
	}
	s.resolved.Store(addr)
	return addr, nil
}

// Send writes one datagram per line.  Lines that fail to be written are counted and the rest are
// still attempted.
func (s *UDPSender) Send(ctx context.Context, lines []string) error {
	addr, err := s.resolve()
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %v", s.address, err)
	}
	var failed int
	var firstErr error
	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.buf = append(append(s.buf[:0], line...), '\n')
		if _, err := s.conn.WriteTo(s.buf, addr); err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		return fmt.Errorf("failed to send %d of %d datagrams to %s: %v", failed, len(lines), s.address, firstErr)
	}
	return nil
}

func (s *UDPSender) Close() error {
	return s.conn.Close()
}

func (s *UDPSender) String() string {
	return "udp://" + s.address
}
