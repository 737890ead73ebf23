// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bureau-foundation/matrixwire/lib/clock"
	"github.com/bureau-foundation/matrixwire/lib/envelope"
	"github.com/bureau-foundation/matrixwire/lib/version"
)

const (
	// DefaultPort is the fixed secure port every exchange connects to.
	DefaultPort = 443

	// DefaultPollInterval is how often the read loop polls the
	// connection, and how long the response must stay quiet before
	// it is considered complete.
	DefaultPollInterval = 10 * time.Millisecond

	// DefaultMaxResponseLength bounds the stored response body.
	DefaultMaxResponseLength = 256 << 10

	// WriteChunkSize is the largest single Write issued for a request
	// body, bounding the transport's peak buffer for media uploads.
	WriteChunkSize = 1024

	// ContentTypeJSON is sent unless a request names another type.
	ContentTypeJSON = "application/json"
)

// Config configures a Framer.
type Config struct {
	// Conn is the connection reused for every exchange. Required.
	Conn Conn
	// Clock drives the read budget and poll interval. Nil uses clock.Real().
	Clock clock.Clock
	// Logger receives debug records per exchange. Nil uses slog.Default().
	Logger *slog.Logger
	// Port is used when a URL host carries no port. Zero uses DefaultPort.
	Port int
	// SyncTimeout is the server-side long-poll timeout the caller may
	// request; it is part of every exchange's read budget.
	SyncTimeout time.Duration
	// ResponseGrace is added to SyncTimeout to form the read budget.
	ResponseGrace time.Duration
	// PollInterval is the connection polling period. Zero uses
	// DefaultPollInterval.
	PollInterval time.Duration
	// MaxResponseLength caps the stored body. Zero uses
	// DefaultMaxResponseLength; negative disables the cap.
	MaxResponseLength int
	// UserAgent overrides the fixed "matrixwire/<version>" agent.
	UserAgent string
	// Observer, if set, is told about every exchange.
	Observer Observer
}

// Request is a single HTTP exchange to frame.
type Request struct {
	Method string
	// URL is an absolute "scheme://host/path" URL.
	URL  string
	Body []byte
	// ContentType defaults to ContentTypeJSON.
	ContentType string
	// AccessToken, when non-empty, is sent as a bearer Authorization
	// header.
	AccessToken string
}

// Response is the framed result of an exchange.
type Response struct {
	// Headers is the raw header block including the status line.
	Headers string
	// Body is the envelope-extracted body.
	Body []byte
	// Truncated reports that body bytes beyond MaxResponseLength were
	// discarded.
	Truncated bool
}

// StatusCode returns the HTTP status from the header block, or 0 when
// the status line is missing.
func (r *Response) StatusCode() int {
	return StatusCode(r.Headers)
}

// Exchange describes one completed (or failed) Do call for observers.
// It deliberately omits the request body and the access token.
type Exchange struct {
	Method    string
	Host      string
	Path      string
	StartedAt time.Time
	Duration  time.Duration
	// StatusCode is 0 when no status line was received.
	StatusCode int
	// BytesRead counts every response byte received, including
	// discarded ones.
	BytesRead int
	// Headers and Body are the raw header block and the stored
	// (pre-extraction) body.
	Headers string
	Body    []byte
	Err     error
}

// Observer receives an Exchange after every Do call.
type Observer interface {
	ObserveExchange(exchange Exchange)
}

// Observers fans an Exchange out to several observers. Nil entries are
// skipped.
type Observers []Observer

// ObserveExchange implements Observer.
func (o Observers) ObserveExchange(exchange Exchange) {
	for _, observer := range o {
		if observer != nil {
			observer.ObserveExchange(exchange)
		}
	}
}

// Framer performs exchanges over one Conn, strictly sequentially.
// A Framer is not safe for concurrent use.
type Framer struct {
	conn              Conn
	clock             clock.Clock
	logger            *slog.Logger
	port              int
	syncTimeout       time.Duration
	responseGrace     time.Duration
	pollInterval      time.Duration
	maxResponseLength int
	userAgent         string
	observer          Observer
}

// NewFramer validates config and returns a Framer.
func NewFramer(config Config) (*Framer, error) {
	if config.Conn == nil {
		return nil, fmt.Errorf("wire: Conn is required")
	}
	framer := &Framer{
		conn:              config.Conn,
		clock:             config.Clock,
		logger:            config.Logger,
		port:              config.Port,
		syncTimeout:       config.SyncTimeout,
		responseGrace:     config.ResponseGrace,
		pollInterval:      config.PollInterval,
		maxResponseLength: config.MaxResponseLength,
		userAgent:         config.UserAgent,
		observer:          config.Observer,
	}
	if framer.clock == nil {
		framer.clock = clock.Real()
	}
	if framer.logger == nil {
		framer.logger = slog.Default()
	}
	if framer.port == 0 {
		framer.port = DefaultPort
	}
	if framer.pollInterval <= 0 {
		framer.pollInterval = DefaultPollInterval
	}
	if framer.maxResponseLength == 0 {
		framer.maxResponseLength = DefaultMaxResponseLength
	}
	if framer.userAgent == "" {
		framer.userAgent = version.UserAgent()
	}
	return framer, nil
}

// SetSyncTimeout changes the long-poll timeout component of the read
// budget.
func (f *Framer) SetSyncTimeout(timeout time.Duration) { f.syncTimeout = timeout }

// SyncTimeout returns the long-poll timeout component of the read budget.
func (f *Framer) SyncTimeout() time.Duration { return f.syncTimeout }

// Do performs one exchange: connect, write, read, close.
func (f *Framer) Do(ctx context.Context, request Request) (*Response, error) {
	host, path, err := SplitURL(request.URL)
	if err != nil {
		return nil, err
	}

	exchange := Exchange{
		Method:    request.Method,
		Host:      host,
		Path:      path,
		StartedAt: f.clock.Now(),
	}
	response, accumulated, err := f.exchange(ctx, host, path, request)
	exchange.Duration = f.clock.Now().Sub(exchange.StartedAt)
	exchange.Err = err
	if accumulated != nil {
		exchange.Headers = accumulated.headerText()
		exchange.Body = accumulated.body.Bytes()
		exchange.StatusCode = StatusCode(exchange.Headers)
		exchange.BytesRead = accumulated.received
	}
	if f.observer != nil {
		f.observer.ObserveExchange(exchange)
	}

	if err != nil {
		f.logger.Debug("matrix exchange failed",
			"method", request.Method,
			"host", host,
			"path", path,
			"error", err,
		)
		return nil, err
	}
	f.logger.Debug("matrix exchange completed",
		"method", request.Method,
		"host", host,
		"path", path,
		"status", exchange.StatusCode,
		"bytes", exchange.BytesRead,
		"truncated", response.Truncated,
		"duration", exchange.Duration,
	)
	return response, nil
}

func (f *Framer) exchange(ctx context.Context, host, path string, request Request) (*Response, *responseAccumulator, error) {
	if err := f.conn.Connect(host, f.port); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, host, err)
	}
	defer func() {
		if closeErr := f.conn.Close(); closeErr != nil {
			f.logger.Debug("closing matrix connection", "host", host, "error", closeErr)
		}
	}()

	if err := f.writeRequest(host, path, request); err != nil {
		return nil, nil, fmt.Errorf("%w: writing request to %s: %w", ErrConnectionFailed, host, err)
	}

	accumulated, err := f.readResponse(ctx)
	if err != nil {
		return nil, accumulated, err
	}
	return &Response{
		Headers:   accumulated.headerText(),
		Body:      envelope.Extract(accumulated.body.Bytes()),
		Truncated: accumulated.discarded > 0,
	}, accumulated, nil
}

func (f *Framer) writeRequest(host, path string, request Request) error {
	contentType := request.ContentType
	if contentType == "" {
		contentType = ContentTypeJSON
	}
	isGet := request.Method == http.MethodGet

	var header strings.Builder
	header.WriteString(request.Method + " " + path + " HTTP/1.1\r\n")
	header.WriteString("Host: " + host + "\r\n")
	header.WriteString("User-Agent: " + f.userAgent + "\r\n")
	header.WriteString("Content-Type: " + contentType + "\r\n")
	if request.AccessToken != "" {
		header.WriteString("Authorization: Bearer " + request.AccessToken + "\r\n")
	}
	if !isGet {
		header.WriteString("Content-Length: " + strconv.Itoa(len(request.Body)) + "\r\n")
	}
	header.WriteString("\r\n")

	if _, err := f.conn.Write([]byte(header.String())); err != nil {
		return err
	}
	if isGet {
		return nil
	}
	for offset := 0; offset < len(request.Body); offset += WriteChunkSize {
		end := min(offset+WriteChunkSize, len(request.Body))
		if _, err := f.conn.Write(request.Body[offset:end]); err != nil {
			return err
		}
	}
	return nil
}

// readResponse polls the connection until the response is complete by
// the quiet-interval heuristic, the peer closes the stream, or the read
// budget runs out.
func (f *Framer) readResponse(ctx context.Context) (*responseAccumulator, error) {
	accumulated := newResponseAccumulator(f.maxResponseLength)
	budget := f.syncTimeout + f.responseGrace
	start := f.clock.Now()
	chunk := make([]byte, 512)
	observed := false

	for {
		if err := ctx.Err(); err != nil {
			return accumulated, fmt.Errorf("%w: %w", ErrNoResponse, err)
		}

		received, readErr := f.drain(chunk, accumulated)
		if received > 0 {
			observed = true
		}
		if readErr != nil {
			if observed {
				if !errors.Is(readErr, io.EOF) {
					f.logger.Debug("matrix connection read ended with error", "error", readErr)
				}
				break
			}
			if errors.Is(readErr, io.EOF) {
				return accumulated, fmt.Errorf("%w: connection closed before any data", ErrNoResponse)
			}
			return accumulated, fmt.Errorf("%w: %w", ErrNoResponse, readErr)
		}
		if received == 0 && observed {
			break
		}
		if f.clock.Now().Sub(start) >= budget {
			if !observed {
				return accumulated, fmt.Errorf("%w: nothing received within %v", ErrNoResponse, budget)
			}
			break
		}
		f.clock.Sleep(f.pollInterval)
	}
	return accumulated, nil
}

// drain copies everything currently available into the accumulator.
func (f *Framer) drain(chunk []byte, accumulated *responseAccumulator) (int, error) {
	total := 0
	for {
		n, err := f.conn.ReadAvailable(chunk)
		if n > 0 {
			accumulated.write(chunk[:n])
			total += n
		}
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, nil
		}
	}
}
