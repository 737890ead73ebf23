// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/bureau-foundation/matrixwire/lib/wire"
)

const namespace = "matrixwire"

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Collector holds the engine's metrics.
type Collector struct {
	registry *prometheus.Registry

	exchanges        *prometheus.CounterVec
	exchangeDuration *prometheus.HistogramVec
	responseBytes    prometheus.Histogram
	syncs            *prometheus.CounterVec
	syncEvents       prometheus.Counter
	refreshes        *prometheus.CounterVec
	logins           *prometheus.CounterVec
	actions          *prometheus.CounterVec
}

// NewCollector creates a Collector registered in a fresh registry,
// together with the Go runtime and process collectors.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	collector := &Collector{
		registry: registry,
		exchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchanges_total",
			Help:      "Homeserver exchanges by method, endpoint and outcome.",
		}, []string{"method", "endpoint", "outcome"}),
		exchangeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "exchange_duration_seconds",
			Help:      "Wall time of homeserver exchanges, connect to close.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),
		responseBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "response_bytes",
			Help:      "Raw response sizes, headers included.",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
		}),
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "syncs_total",
			Help:      "Sync calls by kind (initial or streaming) and outcome.",
		}, []string{"kind", "outcome"}),
		syncEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_events_total",
			Help:      "Room events queued by sync.",
		}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refreshes_total",
			Help:      "Access token refreshes by outcome.",
		}, []string{"outcome"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Password logins by outcome.",
		}, []string{"outcome"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "room_actions_total",
			Help:      "Room actions by action and outcome.",
		}, []string{"action", "outcome"}),
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collector.exchanges,
		collector.exchangeDuration,
		collector.responseBytes,
		collector.syncs,
		collector.syncEvents,
		collector.refreshes,
		collector.logins,
		collector.actions,
	)
	return collector
}

// Registry returns the registry the metrics live in.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// ObserveExchange implements wire.Observer.
func (c *Collector) ObserveExchange(exchange wire.Exchange) {
	endpoint := Endpoint(exchange.Path)
	c.exchanges.WithLabelValues(exchange.Method, endpoint, outcome(exchange.Err)).Inc()
	c.exchangeDuration.WithLabelValues(endpoint).Observe(exchange.Duration.Seconds())
	if exchange.BytesRead > 0 {
		c.responseBytes.Observe(float64(exchange.BytesRead))
	}
}

// ObserveSync records one Sync call.
func (c *Collector) ObserveSync(initial bool, events int, err error) {
	kind := "streaming"
	if initial {
		kind = "initial"
	}
	c.syncs.WithLabelValues(kind, outcome(err)).Inc()
	c.syncEvents.Add(float64(events))
}

// ObserveRefresh records one token refresh attempt.
func (c *Collector) ObserveRefresh(err error) {
	c.refreshes.WithLabelValues(outcome(err)).Inc()
}

// ObserveLogin records one login attempt.
func (c *Collector) ObserveLogin(err error) {
	c.logins.WithLabelValues(outcome(err)).Inc()
}

// ObserveAction records one room action.
func (c *Collector) ObserveAction(action string, err error) {
	c.actions.WithLabelValues(action, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

// endpoints maps path prefixes to bounded label values. Room IDs, event
// IDs and transaction IDs must never become label values.
var endpoints = []struct {
	prefix string
	name   string
}{
	{"/.well-known/matrix/client", "well_known"},
	{"/_matrix/client/v3/login", "login"},
	{"/_matrix/client/v3/refresh", "refresh"},
	{"/_matrix/client/v3/sync", "sync"},
	{"/_matrix/client/v3/createRoom", "create_room"},
	{"/_matrix/client/v3/join/", "join"},
	{"/_matrix/media/v3/upload", "upload"},
}

// Endpoint returns the bounded endpoint label for a request path.
func Endpoint(path string) string {
	for _, endpoint := range endpoints {
		if strings.HasPrefix(path, endpoint.prefix) {
			return endpoint.name
		}
	}
	if strings.HasPrefix(path, "/_matrix/client/v3/rooms/") {
		switch {
		case strings.Contains(path, "/send/"):
			return "send"
		case strings.Contains(path, "/receipt/"):
			return "receipt"
		}
	}
	return "other"
}
