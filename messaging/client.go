// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/matrixwire/lib/clock"
	"github.com/bureau-foundation/matrixwire/lib/envelope"
	"github.com/bureau-foundation/matrixwire/lib/wire"
)

const (
	// DefaultSyncTimeout is the long-poll timeout requested by
	// streaming syncs.
	DefaultSyncTimeout = 5 * time.Second

	// DefaultResponseGrace is added to the sync timeout to bound every
	// exchange.
	DefaultResponseGrace = time.Second
)

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// Conn is the byte-stream connection every exchange runs over.
	// Required.
	Conn wire.Conn

	// Clock drives token expiry, transaction IDs and the read budget.
	// If nil, clock.Real() is used.
	Clock clock.Clock

	// Logger receives the client's records. If nil, slog.Default() is
	// used. Use NewSinkLogger to route records to a LogSink.
	Logger *slog.Logger

	// LogLevel is the client's severity filter. The zero value is
	// SeverityInfo.
	LogLevel Severity

	// SyncTimeout is the long-poll timeout sent with streaming syncs.
	// Zero uses DefaultSyncTimeout.
	SyncTimeout time.Duration

	// ResponseGrace extends each exchange's read budget past
	// SyncTimeout. Zero uses DefaultResponseGrace.
	ResponseGrace time.Duration

	// PollInterval and MaxResponseLength tune the transport read loop;
	// zero uses the wire package defaults.
	PollInterval      time.Duration
	MaxResponseLength int

	// DeviceID is sent with login. Use lib/deviceid to obtain a
	// persisted one. Required for Login.
	DeviceID string

	// DeviceDisplayName, if set, names the device on first login.
	DeviceDisplayName string

	// Port overrides the secure port (443). Intended for tests.
	Port int

	// Metrics, if set, records sync, refresh, login and room action
	// outcomes. If it also implements wire.Observer it sees every
	// exchange.
	Metrics Recorder

	// Observer, if set, sees every exchange.
	Observer wire.Observer
}

// Recorder receives operation outcomes. lib/metrics provides the
// Prometheus implementation.
type Recorder interface {
	ObserveSync(initial bool, events int, err error)
	ObserveRefresh(err error)
	ObserveLogin(err error)
	ObserveAction(action string, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveSync(bool, int, error) {}
func (nopRecorder) ObserveRefresh(error)         {}
func (nopRecorder) ObserveLogin(error)           {}
func (nopRecorder) ObserveAction(string, error)  {}

// Client is a Matrix client session driven by explicit calls: Login
// seeds the session, Sync is polled by the caller, and room actions
// run one exchange each (plus at most one token refresh).
//
// A Client is not safe for concurrent use. Callers must serialize all
// calls, including DrainEvents.
type Client struct {
	framer   *wire.Framer
	clock    clock.Clock
	logger   *slog.Logger
	level    *slog.LevelVar
	recorder Recorder

	deviceID          string
	deviceDisplayName string

	session session
	pending []RoomEvent

	transactionCounter uint64
	uploads            map[[32]byte]string
}

// NewClient creates an unauthenticated client. Call Login or Restore
// before any authenticated operation.
func NewClient(config ClientConfig) (*Client, error) {
	if config.Conn == nil {
		return nil, fmt.Errorf("messaging: Conn is required")
	}

	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}

	baseLogger := config.Logger
	if baseLogger == nil {
		baseLogger = slog.Default()
	}
	level := new(slog.LevelVar)
	level.Set(config.LogLevel.Level())
	logger := slog.New(&levelHandler{level: level, handler: baseLogger.Handler()})

	recorder := config.Metrics
	if recorder == nil {
		recorder = nopRecorder{}
	}

	observers := wire.Observers{config.Observer}
	if observer, ok := config.Metrics.(wire.Observer); ok {
		observers = append(observers, observer)
	}

	syncTimeout := config.SyncTimeout
	if syncTimeout == 0 {
		syncTimeout = DefaultSyncTimeout
	}
	responseGrace := config.ResponseGrace
	if responseGrace == 0 {
		responseGrace = DefaultResponseGrace
	}

	framer, err := wire.NewFramer(wire.Config{
		Conn:              config.Conn,
		Clock:             clk,
		Logger:            logger,
		Port:              config.Port,
		SyncTimeout:       syncTimeout,
		ResponseGrace:     responseGrace,
		PollInterval:      config.PollInterval,
		MaxResponseLength: config.MaxResponseLength,
		Observer:          observers,
	})
	if err != nil {
		return nil, fmt.Errorf("messaging: %w", err)
	}

	return &Client{
		framer:            framer,
		clock:             clk,
		logger:            logger,
		level:             level,
		recorder:          recorder,
		deviceID:          config.DeviceID,
		deviceDisplayName: config.DeviceDisplayName,
		uploads:           make(map[[32]byte]string),
	}, nil
}

// Close releases the protected memory holding the session's tokens.
// The client is unauthenticated afterwards.
func (c *Client) Close() error {
	return c.session.clear()
}

// SetLogLevel changes this client's severity filter.
func (c *Client) SetLogLevel(severity Severity) {
	c.level.Set(severity.Level())
}

// Logger returns the client's filtered logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// SetSyncTimeout changes the long-poll timeout sent with streaming
// syncs, which also widens every exchange's read budget.
func (c *Client) SetSyncTimeout(timeout time.Duration) {
	c.framer.SetSyncTimeout(timeout)
}

// SetMasterUserID sets the user SendDMToMaster addresses. Changing it
// forgets the cached direct-message room.
func (c *Client) SetMasterUserID(userID string) {
	if userID != c.session.masterUserID {
		c.session.masterRoomID = ""
	}
	c.session.masterUserID = userID
}

// MasterUserID returns the configured master user.
func (c *Client) MasterUserID() string { return c.session.masterUserID }

// MasterRoomID returns the cached direct-message room, if any.
func (c *Client) MasterRoomID() string { return c.session.masterRoomID }

// HomeserverURL returns the base URL requests go to.
func (c *Client) HomeserverURL() string { return c.session.homeserverURL }

// UserID returns the user the session belongs to.
func (c *Client) UserID() string { return c.session.userID }

// DeviceID returns the device the session belongs to.
func (c *Client) DeviceID() string {
	if c.session.deviceID != "" {
		return c.session.deviceID
	}
	return c.deviceID
}

// SyncCursor returns the next_batch token of the last sync, empty
// before the first successful sync.
func (c *Client) SyncCursor() string { return c.session.syncCursor }

// IsAuthenticated reports whether the client holds an access token.
func (c *Client) IsAuthenticated() bool { return c.session.accessToken.Len() > 0 }

// TokenExpiry returns when the access token expires. The zero time
// means the token does not expire.
func (c *Client) TokenExpiry() time.Time { return c.session.tokenExpiryAt }

// call performs one exchange against the homeserver. The payload is
// JSON-encoded unless it is already a []byte.
func (c *Client) call(ctx context.Context, request callRequest) (*reply, error) {
	var body []byte
	switch payload := request.payload.(type) {
	case nil:
	case []byte:
		body = payload
	default:
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("messaging: encoding request body: %w", err)
		}
		body = encoded
	}

	wireRequest := wire.Request{
		Method:      request.method,
		URL:         request.url,
		Body:        body,
		ContentType: request.contentType,
	}
	if request.authenticated {
		wireRequest.AccessToken = c.session.accessToken.String()
	}

	response, err := c.framer.Do(ctx, wireRequest)
	if err != nil {
		return nil, err
	}
	result := &reply{response: response}
	result.document, result.parseErr = envelope.Parse(response.Body)
	return result, nil
}

type callRequest struct {
	method        string
	url           string
	payload       any
	contentType   string
	authenticated bool
}

// reply is a framed response with its body parsed. document is nil when
// the body is not JSON; parseErr says why.
type reply struct {
	response *wire.Response
	document *envelope.Document
	parseErr error
}

// field returns the string at path, or "" when the body did not parse
// or lacks it.
func (r *reply) field(path ...string) string {
	if r.document == nil {
		return ""
	}
	return r.document.String("", path...)
}

// failure builds the error for a reply that lacked a required field.
func (r *reply) failure(sentinel error, operation, field string) error {
	return responseFailure(sentinel, operation, field, r.response, r.document, r.parseErr)
}

// matrixError returns the Matrix error the reply carries, if any.
func (r *reply) matrixError() *MatrixError {
	return matrixErrorFrom(r.response, r.document)
}
