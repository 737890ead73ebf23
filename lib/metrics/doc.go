// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics instruments the Matrix engine with Prometheus.
//
// [Collector] satisfies both messaging.Recorder (operation outcomes)
// and wire.Observer (per-exchange latency and size), so a single value
// passed as messaging.ClientConfig.Metrics sees everything. Each
// Collector registers into its own registry; [Server] exposes it over
// HTTP.
package metrics
