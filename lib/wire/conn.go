// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"bytes"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"
)

// Conn is the byte-stream connection a Framer drives. Implementations
// are used by a single goroutine at a time and are reconnected for
// every exchange.
type Conn interface {
	// Connect opens the stream to host. When host carries no port,
	// port is used.
	Connect(host string, port int) error

	// Write sends p on the open stream.
	Write(p []byte) (int, error)

	// ReadAvailable copies already-received bytes into p without
	// blocking. It returns (0, nil) when nothing has arrived yet and
	// io.EOF once the peer has closed the stream and every buffered
	// byte has been consumed.
	ReadAvailable(p []byte) (int, error)

	// Close tears the stream down. Closing a closed Conn is a no-op.
	Close() error
}

// DefaultDialTimeout bounds the TCP connect plus TLS handshake of a
// TLSConn.
const DefaultDialTimeout = 10 * time.Second

// TLSConn is a Conn over crypto/tls. A background goroutine started by
// Connect reads the socket into a buffer; ReadAvailable drains that
// buffer.
type TLSConn struct {
	config      *tls.Config
	dialTimeout time.Duration

	mu      sync.Mutex
	conn    net.Conn
	buffer  bytes.Buffer
	readErr error
	done    chan struct{}
}

// NewTLSConn returns a TLSConn that handshakes with config. A nil
// config verifies the server against the system roots. ServerName is
// filled in from the host passed to Connect when config leaves it
// empty.
func NewTLSConn(config *tls.Config) *TLSConn {
	return &TLSConn{config: config, dialTimeout: DefaultDialTimeout}
}

// SetDialTimeout overrides DefaultDialTimeout.
func (c *TLSConn) SetDialTimeout(timeout time.Duration) {
	c.dialTimeout = timeout
}

// Connect dials host and completes the TLS handshake.
func (c *TLSConn) Connect(host string, port int) error {
	c.Close()

	address := host
	if _, _, err := net.SplitHostPort(host); err != nil {
		address = net.JoinHostPort(host, strconv.Itoa(port))
	}

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: c.dialTimeout},
		Config:    c.config,
	}
	conn, err := dialer.Dial("tcp", address)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", address, err)
	}

	done := make(chan struct{})
	c.mu.Lock()
	c.conn = conn
	c.buffer.Reset()
	c.readErr = nil
	c.done = done
	c.mu.Unlock()

	go c.readLoop(conn, done)
	return nil
}

func (c *TLSConn) readLoop(conn net.Conn, done chan struct{}) {
	defer close(done)
	chunk := make([]byte, 4096)
	for {
		n, err := conn.Read(chunk)
		c.mu.Lock()
		c.buffer.Write(chunk[:n])
		if err != nil {
			c.readErr = err
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
	}
}

// Write sends p on the TLS stream.
func (c *TLSConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return 0, net.ErrClosed
	}
	return conn.Write(p)
}

// ReadAvailable drains bytes received by the background reader.
func (c *TLSConn) ReadAvailable(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.buffer.Len() > 0 {
		return c.buffer.Read(p)
	}
	if c.conn == nil {
		return 0, io.EOF
	}
	if c.readErr != nil {
		if errors.Is(c.readErr, io.EOF) {
			return 0, io.EOF
		}
		return 0, c.readErr
	}
	return 0, nil
}

// Close closes the socket and waits for the background reader to exit.
func (c *TLSConn) Close() error {
	c.mu.Lock()
	conn := c.conn
	done := c.done
	c.conn = nil
	c.done = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	err := conn.Close()
	<-done

	c.mu.Lock()
	c.buffer.Reset()
	c.readErr = nil
	c.mu.Unlock()
	return err
}
