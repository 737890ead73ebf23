// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package wiretest provides a scripted [wire.Conn] for tests of code
// that talks to a homeserver through a [wire.Framer].
//
// Each Connect starts a new recorded request and dequeues the next
// scripted [Reply]. Replies are delivered in full by ReadAvailable and
// followed by io.EOF, as a server closing the connection would. When the
// script runs out, the connection stays silent, so the framer runs out
// of read budget and reports wire.ErrNoResponse.
package wiretest

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
)

// Reply is one scripted server response.
type Reply struct {
	// Raw is the complete response byte stream.
	Raw []byte
	// ConnectErr makes Connect fail instead of delivering Raw.
	ConnectErr error
	// Silent delivers nothing and never closes.
	Silent bool
	// HoldOpen delivers Raw and then keeps reporting no data without
	// closing, exercising the quiet-interval completion rule.
	HoldOpen bool
}

// JSON builds a reply with the given status and JSON body.
func JSON(status int, body string) Reply {
	return Reply{Raw: Response(status, body)}
}

// Response renders a minimal HTTP/1.1 response with a JSON body.
func Response(status int, body string) []byte {
	var buffer bytes.Buffer
	fmt.Fprintf(&buffer, "HTTP/1.1 %d %s\r\n", status, http.StatusText(status))
	buffer.WriteString("Content-Type: application/json\r\n")
	buffer.WriteString("Content-Length: " + strconv.Itoa(len(body)) + "\r\n")
	buffer.WriteString("\r\n")
	buffer.WriteString(body)
	return buffer.Bytes()
}

// Request is everything the client sent during one connection.
type Request struct {
	Host   string
	Port   int
	Raw    []byte
	Writes int
}

// Parse decodes the recorded bytes as an HTTP/1.1 request.
func (r Request) Parse() (*http.Request, []byte, error) {
	request, err := http.ReadRequest(bufio.NewReader(bytes.NewReader(r.Raw)))
	if err != nil {
		return nil, nil, err
	}
	body, err := io.ReadAll(request.Body)
	if err != nil {
		return nil, nil, err
	}
	return request, body, nil
}

// Conn is a scripted wire.Conn. It is safe for concurrent use.
type Conn struct {
	// ChunkSize bounds each ReadAvailable result. Zero delivers up to
	// len(p).
	ChunkSize int

	mu        sync.Mutex
	replies   []Reply
	requests  []Request
	current   Reply
	pending   []byte
	connected bool
	closes    int
}

// New returns a Conn that will answer connections with replies in order.
func New(replies ...Reply) *Conn {
	return &Conn{replies: replies}
}

// Enqueue appends replies to the script.
func (c *Conn) Enqueue(replies ...Reply) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, replies...)
}

// Requests returns a copy of every request recorded so far.
func (c *Conn) Requests() []Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	requests := make([]Request, len(c.requests))
	copy(requests, c.requests)
	return requests
}

// Remaining reports how many scripted replies have not been consumed.
func (c *Conn) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.replies)
}

// Closes reports how many times Close was called.
func (c *Conn) Closes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

// Connect implements wire.Conn.
func (c *Conn) Connect(host string, port int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	reply := Reply{Silent: true}
	if len(c.replies) > 0 {
		reply = c.replies[0]
		c.replies = c.replies[1:]
	}
	if reply.ConnectErr != nil {
		return reply.ConnectErr
	}
	c.requests = append(c.requests, Request{Host: host, Port: port})
	c.current = reply
	c.pending = append([]byte(nil), reply.Raw...)
	c.connected = true
	return nil
}

// Write implements wire.Conn.
func (c *Conn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return 0, fmt.Errorf("wiretest: write on closed connection")
	}
	last := &c.requests[len(c.requests)-1]
	last.Raw = append(last.Raw, p...)
	last.Writes++
	return len(p), nil
}

// ReadAvailable implements wire.Conn.
func (c *Conn) ReadAvailable(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return 0, io.EOF
	}
	if len(c.pending) == 0 {
		if c.current.Silent || c.current.HoldOpen {
			return 0, nil
		}
		return 0, io.EOF
	}
	limit := len(p)
	if c.ChunkSize > 0 && c.ChunkSize < limit {
		limit = c.ChunkSize
	}
	n := copy(p[:limit], c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

// Close implements wire.Conn.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.pending = nil
	c.closes++
	return nil
}
