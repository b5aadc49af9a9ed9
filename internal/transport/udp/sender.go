// SPDX-License-Identifier: MIT

// Package udp streams binary metric packets to an external visualizer
// over UDP.
package udp

import (
	"fmt"
	"net"
	"sync"

	applog "micscope/internal/log"
)

// Sender transmits raw packets to a fixed UDP target.
type Sender struct {
	conn   *net.UDPConn
	mu     sync.Mutex // Protects conn against concurrent Close
	closed bool
}

// NewSender creates a Sender targeting the given "host:port" address.
func NewSender(targetAddress string) (*Sender, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP target address '%s': %w", targetAddress, err)
	}

	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial UDP for target '%s': %w", targetAddress, err)
	}

	applog.Infof("UDP sender: connected to %s", conn.RemoteAddr())
	return &Sender{conn: conn}, nil
}

// Send transmits data as one UDP packet. Safe for concurrent use.
func (s *Sender) Send(data []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("UDP sender is closed")
	}
	_, err := s.conn.Write(data)
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to send UDP packet: %w", err)
	}
	return nil
}

// Close closes the underlying connection. Idempotent.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		if err != nil {
			return fmt.Errorf("failed to close UDP connection: %w", err)
		}
	}
	return nil
}
