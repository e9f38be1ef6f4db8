// Package logging implements the Logging Adapter of spec.md §4.8: a sink
// interface with two built-ins (a side-effecting slog-backed adapter and a
// test-capturing adapter), plus the optional OpenTelemetry span/event
// wiring of spec_full §4.8a.
package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Level mirrors slog's ordering so callers can compare against a minimum
// threshold without importing slog themselves.
type Level = slog.Level

const (
	LevelInfo = slog.LevelInfo
	LevelWarn = slog.LevelWarn
	LevelError = slog.LevelError
)

// Entry is one structured log record. Every action-invoked log entry
// automatically carries the active configuration and current event name
// (spec.md §4.8); ActionType/Phase are caller-supplied.
type Entry struct {
	Level         Level
	Message       string
	ActionType    string
	Phase         string
	Configuration []string
	EventName     string
	Fields        map[string]any
}

// Sink is the pluggable logging surface a StateChart writes through.
type Sink interface {
	Log(e Entry)
	Enabled(level Level) bool
}

// SlogSink writes entries through a *slog.Logger — the side-effecting
// adapter of spec.md §4.8.
type SlogSink struct {
	logger *slog.Logger
	min    Level
}

// NewSlogSink wraps logger (or slog.Default() if nil) at the given
// minimum level.
func NewSlogSink(logger *slog.Logger, min Level) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger, min: min}
}

func (s *SlogSink) Enabled(level Level) bool { return level >= s.min }

func (s *SlogSink) Log(e Entry) {
	if !s.Enabled(e.Level) {
		return
	}
	args := []any{
		slog.String("action_type", e.ActionType),
		slog.String("phase", e.Phase),
		slog.Any("configuration", e.Configuration),
	}
	if e.EventName != "" {
		args = append(args, slog.String("event", e.EventName))
	}
	for k, v := range e.Fields {
		args = append(args, slog.Any(k, v))
	}
	s.logger.Log(context.Background(), e.Level, e.Message, args...)
}

// TestSink accumulates entries on itself rather than writing them anywhere
// — the test-capturing adapter of spec.md §4.8, exposed to callers via
// StateChart.Logs().
type TestSink struct {
	min     Level
	Entries []Entry
}

// NewTestSink returns a TestSink that records everything at or above min.
func NewTestSink(min Level) *TestSink {
	return &TestSink{min: min}
}

func (s *TestSink) Enabled(level Level) bool { return level >= s.min }

func (s *TestSink) Log(e Entry) {
	if !s.Enabled(e.Level) {
		return
	}
	s.Entries = append(s.Entries, e)
}

// Tracer wraps an otel/trace.Tracer for the macrostep/microstep
// observability of spec_full §4.8a. A nil *Tracer is always a no-op,
// so callers can embed it unconditionally.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer wraps t. Passing a nil trace.Tracer yields a no-op Tracer.
func NewTracer(t trace.Tracer) *Tracer { return &Tracer{tracer: t} }

// StartMacrostep opens a span for one send_event macrostep. Callers must
// call the returned End func exactly once.
func (t *Tracer) StartMacrostep(ctx context.Context, eventName string) (context.Context, func()) {
	if t == nil || t.tracer == nil {
		return ctx, func() {}
	}
	ctx, span := t.tracer.Start(ctx, "scxml.macrostep", trace.WithAttributes(
		attribute.String("scxml.event", eventName),
	))
	return ctx, span.End
}

// RecordMicrostep annotates the active span (if any) with one microstep's
// outcome.
func (t *Tracer) RecordMicrostep(ctx context.Context, transitionCount, configSize int) {
	if t == nil || t.tracer == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent("scxml.microstep", trace.WithAttributes(
		attribute.Int("scxml.transitions_fired", transitionCount),
		attribute.Int("scxml.configuration_size", configSize),
	))
}
