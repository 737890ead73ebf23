// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Severity is a client log severity. The zero value means SeverityInfo.
type Severity string

const (
	SeverityError Severity = "ERROR"
	SeverityInfo  Severity = "INFO"
	SeverityDebug Severity = "DEBUG"
)

// ParseSeverity parses a severity name case-insensitively.
func ParseSeverity(name string) (Severity, error) {
	switch Severity(strings.ToUpper(strings.TrimSpace(name))) {
	case SeverityError:
		return SeverityError, nil
	case SeverityInfo, "":
		return SeverityInfo, nil
	case SeverityDebug:
		return SeverityDebug, nil
	default:
		return "", fmt.Errorf("messaging: unknown log severity %q (want ERROR, INFO or DEBUG)", name)
	}
}

// Level returns the slog level records must reach to pass this
// severity's filter. Warnings pass the INFO filter.
func (s Severity) Level() slog.Level {
	switch s {
	case SeverityError:
		return slog.LevelError
	case SeverityDebug:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

func severityOf(level slog.Level) Severity {
	switch {
	case level >= slog.LevelError:
		return SeverityError
	case level >= slog.LevelInfo:
		return SeverityInfo
	default:
		return SeverityDebug
	}
}

// LogSink receives formatted log lines. It is the minimal logging
// capability an embedding application has to provide.
type LogSink func(severity Severity, message string)

// NewSinkLogger adapts sink into a *slog.Logger. Each record becomes one
// call: the message followed by its attributes as key=value pairs.
// Filtering is left to the client's severity setting.
func NewSinkLogger(sink LogSink) *slog.Logger {
	return slog.New(&sinkHandler{sink: sink})
}

type sinkHandler struct {
	sink   LogSink
	prefix string
	attrs  []slog.Attr
}

func (h *sinkHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *sinkHandler) Handle(_ context.Context, record slog.Record) error {
	var line strings.Builder
	line.WriteString(record.Message)
	for _, attr := range h.attrs {
		writeAttr(&line, "", attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		writeAttr(&line, h.prefix, attr)
		return true
	})
	h.sink(severityOf(record.Level), line.String())
	return nil
}

func writeAttr(line *strings.Builder, prefix string, attr slog.Attr) {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}
	if attr.Value.Kind() == slog.KindGroup {
		for _, member := range attr.Value.Group() {
			writeAttr(line, prefix+attr.Key+".", member)
		}
		return
	}
	fmt.Fprintf(line, " %s%s=%v", prefix, attr.Key, attr.Value.Any())
}

func (h *sinkHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, attr := range attrs {
		if h.prefix != "" {
			attr.Key = h.prefix + attr.Key
		}
		clone.attrs = append(clone.attrs, attr)
	}
	return &clone
}

func (h *sinkHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

// levelHandler filters records below a per-client level before they
// reach the wrapped handler.
type levelHandler struct {
	level   *slog.LevelVar
	handler slog.Handler
}

func (h *levelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level() && h.handler.Enabled(ctx, level)
}

func (h *levelHandler) Handle(ctx context.Context, record slog.Record) error {
	return h.handler.Handle(ctx, record)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelHandler{level: h.level, handler: h.handler.WithAttrs(attrs)}
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	return &levelHandler{level: h.level, handler: h.handler.WithGroup(name)}
}
