// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bureau-foundation/matrixwire/lib/wire"
	"github.com/bureau-foundation/matrixwire/messaging"
)

var (
	_ messaging.Recorder = (*Collector)(nil)
	_ wire.Observer      = (*Collector)(nil)
)

func TestEndpoint(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/.well-known/matrix/client", "well_known"},
		{"/_matrix/client/v3/login", "login"},
		{"/_matrix/client/v3/refresh", "refresh"},
		{"/_matrix/client/v3/sync?since=s1&timeout=5000", "sync"},
		{"/_matrix/client/v3/createRoom", "create_room"},
		{"/_matrix/client/v3/join/%21room:example.org", "join"},
		{"/_matrix/client/v3/rooms/%21room:example.org/send/m.room.message/txn1", "send"},
		{"/_matrix/client/v3/rooms/%21room:example.org/receipt/m.read/$e", "receipt"},
		{"/_matrix/media/v3/upload?filename=a.png", "upload"},
		{"/_matrix/client/v3/rooms/%21room:example.org/state", "other"},
	}
	for _, test := range tests {
		if got := Endpoint(test.path); got != test.want {
			t.Errorf("Endpoint(%q) = %q, want %q", test.path, got, test.want)
		}
	}
}

func TestCollectorCounts(t *testing.T) {
	collector := NewCollector()

	collector.ObserveSync(true, 0, nil)
	collector.ObserveSync(false, 3, nil)
	collector.ObserveSync(false, 2, nil)
	collector.ObserveSync(false, 0, errors.New("no response"))
	collector.ObserveRefresh(nil)
	collector.ObserveRefresh(errors.New("refresh failed"))
	collector.ObserveLogin(nil)
	collector.ObserveAction(messaging.ActionSendMessage, nil)
	collector.ObserveAction(messaging.ActionSendMessage, errors.New("no event_id"))
	collector.ObserveExchange(wire.Exchange{
		Method:    "GET",
		Path:      "/_matrix/client/v3/sync?since=s1",
		Duration:  300 * time.Millisecond,
		BytesRead: 4096,
	})
	collector.ObserveExchange(wire.Exchange{Method: "PUT", Path: "/_matrix/client/v3/rooms/x/send/m.room.message/1", Err: errors.New("refused")})

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"initial syncs", testutil.ToFloat64(collector.syncs.WithLabelValues("initial", OutcomeSuccess)), 1},
		{"streaming syncs", testutil.ToFloat64(collector.syncs.WithLabelValues("streaming", OutcomeSuccess)), 2},
		{"failed syncs", testutil.ToFloat64(collector.syncs.WithLabelValues("streaming", OutcomeFailure)), 1},
		{"sync events", testutil.ToFloat64(collector.syncEvents), 5},
		{"refresh success", testutil.ToFloat64(collector.refreshes.WithLabelValues(OutcomeSuccess)), 1},
		{"refresh failure", testutil.ToFloat64(collector.refreshes.WithLabelValues(OutcomeFailure)), 1},
		{"logins", testutil.ToFloat64(collector.logins.WithLabelValues(OutcomeSuccess)), 1},
		{"sends ok", testutil.ToFloat64(collector.actions.WithLabelValues(messaging.ActionSendMessage, OutcomeSuccess)), 1},
		{"sends failed", testutil.ToFloat64(collector.actions.WithLabelValues(messaging.ActionSendMessage, OutcomeFailure)), 1},
		{"sync exchanges", testutil.ToFloat64(collector.exchanges.WithLabelValues("GET", "sync", OutcomeSuccess)), 1},
		{"send exchanges", testutil.ToFloat64(collector.exchanges.WithLabelValues("PUT", "send", OutcomeFailure)), 1},
	}
	for _, check := range checks {
		if check.got != check.want {
			t.Errorf("%s = %v, want %v", check.name, check.got, check.want)
		}
	}

	// Failed exchanges with no bytes are not observed as a size.
	if count := testutil.CollectAndCount(collector.responseBytes); count != 1 {
		t.Errorf("response size series = %d, want 1", count)
	}
}

func TestServerExposesRegistry(t *testing.T) {
	collector := NewCollector()
	collector.ObserveSync(true, 0, nil)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	server := NewServer(listener.Addr().String(), collector, nil)
	served := make(chan error, 1)
	go func() { served <- server.Serve(listener) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			t.Errorf("Shutdown: %v", err)
		}
		if err := <-served; err != nil {
			t.Errorf("Serve: %v", err)
		}
	})

	base := "http://" + listener.Addr().String()
	for path, want := range map[string]string{
		"/metrics": `matrixwire_syncs_total{kind="initial",outcome="success"} 1`,
		"/health":  `{"status":"ok"}`,
	} {
		response, err := http.Get(base + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		body, err := io.ReadAll(response.Body)
		response.Body.Close()
		if err != nil {
			t.Fatalf("reading %s: %v", path, err)
		}
		if response.StatusCode != http.StatusOK || !strings.Contains(string(body), want) {
			t.Errorf("GET %s = %d, body lacks %q:\n%s", path, response.StatusCode, want, body)
		}
	}
}
