// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/matrixwire/lib/clock"
	"github.com/bureau-foundation/matrixwire/lib/wire"
	"github.com/bureau-foundation/matrixwire/lib/wire/wiretest"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const (
	testHomeserver = "https://matrix.example.org"
	testUserID     = "@bot:example.org"
	testDeviceID   = "0A1B2C3D4E5F"
)

// newTestClient creates an unauthenticated client over a scripted
// connection. The fake clock only moves when the framer sleeps or the
// test advances it.
func newTestClient(t *testing.T, replies ...wiretest.Reply) (*Client, *wiretest.Conn, *clock.FakeClock) {
	t.Helper()
	conn := wiretest.New(replies...)
	fakeClock := clock.FakeAutoAdvance(epoch)
	client, err := NewClient(ClientConfig{
		Conn:     conn,
		Clock:    fakeClock,
		Logger:   NewSinkLogger(func(Severity, string) {}),
		DeviceID: testDeviceID,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client, conn, fakeClock
}

// restoreSession seeds client with an access token, a refresh token and
// the given expiry (zero for none), as if it had logged in earlier.
func restoreSession(t *testing.T, client *Client, expiry time.Time, cursor string) {
	t.Helper()
	snapshot := &Snapshot{
		HomeserverURL: testHomeserver,
		UserID:        testUserID,
		DeviceID:      testDeviceID,
		AccessToken:   []byte("T1"),
		RefreshToken:  []byte("R1"),
		SyncCursor:    cursor,
	}
	if !expiry.IsZero() {
		snapshot.TokenExpiryMillis = expiry.UnixMilli()
	}
	if err := client.Restore(snapshot); err != nil {
		t.Fatalf("Restore: %v", err)
	}
}

// newSessionClient is newTestClient plus restoreSession with a token
// that does not expire and the given cursor.
func newSessionClient(t *testing.T, cursor string, replies ...wiretest.Reply) (*Client, *wiretest.Conn, *clock.FakeClock) {
	t.Helper()
	client, conn, fakeClock := newTestClient(t, replies...)
	restoreSession(t, client, time.Time{}, cursor)
	return client, conn, fakeClock
}

// parseRequest decodes the index'th recorded request and its JSON body
// (nil when the body is empty).
func parseRequest(t *testing.T, conn *wiretest.Conn, index int) (*http.Request, map[string]any) {
	t.Helper()
	requests := conn.Requests()
	if index >= len(requests) {
		t.Fatalf("request %d not recorded (have %d)", index, len(requests))
	}
	request, body, err := requests[index].Parse()
	if err != nil {
		t.Fatalf("parsing request %d: %v", index, err)
	}
	if len(body) == 0 {
		return request, nil
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("request %d body is not a JSON object: %v\n%s", index, err, body)
	}
	return request, decoded
}

func assertAuth(t *testing.T, request *http.Request, token string) {
	t.Helper()
	want := "Bearer " + token
	if token == "" {
		want = ""
	}
	if got := request.Header.Get("Authorization"); got != want {
		t.Errorf("Authorization = %q, want %q", got, want)
	}
}

func assertRequestCount(t *testing.T, conn *wiretest.Conn, want int) {
	t.Helper()
	if got := len(conn.Requests()); got != want {
		t.Fatalf("recorded %d requests, want %d", got, want)
	}
}

// recordingSink collects log lines for assertions.
type recordingSink struct {
	mu    sync.Mutex
	lines []string
}

func (s *recordingSink) sink(severity Severity, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, string(severity)+" "+message)
}

func (s *recordingSink) contains(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, line := range s.lines {
		if strings.Contains(line, text) {
			return true
		}
	}
	return false
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

// recordingRecorder is a Recorder and wire.Observer that counts calls.
type recordingRecorder struct {
	syncs     []syncObservation
	refreshes []error
	logins    []error
	actions   map[string]int
	exchanges []wire.Exchange
}

type syncObservation struct {
	initial bool
	events  int
	err     error
}

func newRecordingRecorder() *recordingRecorder {
	return &recordingRecorder{actions: make(map[string]int)}
}

func (r *recordingRecorder) ObserveSync(initial bool, events int, err error) {
	r.syncs = append(r.syncs, syncObservation{initial: initial, events: events, err: err})
}

func (r *recordingRecorder) ObserveRefresh(err error) { r.refreshes = append(r.refreshes, err) }
func (r *recordingRecorder) ObserveLogin(err error)   { r.logins = append(r.logins, err) }
func (r *recordingRecorder) ObserveAction(action string, err error) {
	r.actions[action]++
}

func (r *recordingRecorder) ObserveExchange(exchange wire.Exchange) {
	r.exchanges = append(r.exchanges, exchange)
}
