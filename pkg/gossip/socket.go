package gossip

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"syscall"

	"github.com/runinator/runinator/pkg/log"
	"github.com/runinator/runinator/pkg/metrics"
	"github.com/runinator/runinator/pkg/types"
)

// Socket is a bound UDP broadcast endpoint: it can send datagrams to the
// configured broadcast address and receive whatever arrives on its local
// port, including its own broadcasts (callers dedupe by comparing
// worker_id/service_id against their own).
type Socket struct {
	conn      *net.UDPConn
	broadcast *net.UDPAddr
}

// Bind opens a UDP socket on localAddr (":7946" style) and enables the
// SO_BROADCAST socket option, which Go's net package does not set by
// default — sending to a broadcast address otherwise fails with EACCES.
// broadcastAddr is the destination used by Send, typically the subnet's
// broadcast IP on the same port.
func Bind(localAddr, broadcastAddr string) (*Socket, error) {
	laddr, err := net.ResolveUDPAddr("udp4", localAddr)
	if err != nil {
		return nil, fmt.Errorf("gossip: resolve local addr %q: %w", localAddr, err)
	}

	conn, err := net.ListenUDP("udp4", laddr)
	if err != nil {
		return nil, fmt.Errorf("gossip: listen %q: %w", localAddr, err)
	}

	if err := enableBroadcast(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("gossip: enable broadcast: %w", err)
	}

	baddr, err := net.ResolveUDPAddr("udp4", broadcastAddr)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("gossip: resolve broadcast addr %q: %w", broadcastAddr, err)
	}

	return &Socket{conn: conn, broadcast: baddr}, nil
}

func enableBroadcast(conn *net.UDPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	if err := raw.Control(func(fd uintptr) {
		sockErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1)
	}); err != nil {
		return err
	}
	return sockErr
}

// Close releases the underlying UDP socket.
func (s *Socket) Close() error {
	return s.conn.Close()
}

// LocalAddr returns the bound local address.
func (s *Socket) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

// Send broadcasts one gossip message to the configured broadcast address.
func (s *Socket) Send(msg types.GossipMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("gossip: marshal: %w", err)
	}
	if _, err := s.conn.WriteToUDP(data, s.broadcast); err != nil {
		return fmt.Errorf("gossip: send: %w", err)
	}
	metrics.GossipMessagesSentTotal.WithLabelValues(string(msg.Type)).Inc()
	return nil
}

// maxDatagramSize comfortably bounds a WorkerAnnouncement with a modest
// known_peers list; gossip messages are never fragmented across reads.
const maxDatagramSize = 8192

// Listen reads datagrams until the socket is closed, handing each
// successfully decoded message to handle. Malformed datagrams (bad JSON,
// or JSON that doesn't match the tagged union) are logged and skipped —
// a single corrupt or adversarial packet must never bring down discovery.
// ICMP port-unreachable responses bouncing back from a dead peer surface
// here as ordinary read errors on some platforms and are likewise
// swallowed rather than treated as fatal.
func (s *Socket) Listen(handle func(types.GossipMessage, net.Addr)) error {
	buf := make([]byte, maxDatagramSize)
	for {
		n, addr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.WithComponent("gossip").Warn().Err(err).Msg("gossip read error, continuing")
			continue
		}

		msg, err := types.DecodeGossipMessage(buf[:n])
		if err != nil {
			metrics.GossipMessagesReceivedTotal.WithLabelValues("unknown", "decode_error").Inc()
			log.WithComponent("gossip").Debug().Err(err).Str("peer", addr.String()).Msg("dropping malformed gossip datagram")
			continue
		}

		metrics.GossipMessagesReceivedTotal.WithLabelValues(string(msg.Type), "ok").Inc()
		handle(msg, addr)
	}
}

