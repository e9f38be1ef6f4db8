// Package interpreter implements the SCXML microstep/macrostep algorithm
// of spec.md §4.5 over a validated model.Document: initialization, state
// entry with default/history resolution, optimal-enabled-transition-set
// selection, exit/entry set computation via the hierarchy package, and
// action dispatch via the action package.
package interpreter

import (
	"sort"

	"golang.org/x/time/rate"

	"github.com/agentflare-ai/scxmlgo/expr"
	"github.com/agentflare-ai/scxmlgo/history"
	"github.com/agentflare-ai/scxmlgo/logging"
	"github.com/agentflare-ai/scxmlgo/model"
)

// maxMicrostepsPerMacrostep bounds eventless-transition loops (spec.md
// §4.5 "Termination and cycle-safety").
const maxMicrostepsPerMacrostep = 100

// Event is one item on the internal or external queue.
type Event struct {
	Name   string
	Data   any
	Origin string // "internal" | "external"
}

const (
	OriginInternal = "internal"
	OriginExternal = "external"
)

// StateChart is the live, mutable runtime state produced by Initialize and
// advanced by SendEvent. A chart must only be driven from one goroutine at
// a time (spec.md §5: single-threaded cooperative, no internal locks).
type StateChart struct {
	doc *model.Document

	configuration map[string]bool // active leaf + ancestor state ids
	data          map[string]any

	internalQueue []Event
	externalQueue []Event
	currentEvent  *Event

	history *history.Tracker

	running bool

	logSink logging.Sink
	tracer  *logging.Tracer

	sendLimiter *rate.Limiter
}

// Options configures Initialize.
type Options struct {
	LogSink logging.Sink
	Tracer  *logging.Tracer

	sendLimiter *rate.Limiter // set only via WithSendRateLimit
}

// ActiveLeaves returns the ids of the currently active leaf states (atomic
// or final), sorted for deterministic output.
func (c *StateChart) ActiveLeaves() []string {
	var out []string
	for id := range c.configuration {
		s, ok := c.doc.FindState(id)
		if ok && s.IsLeafCandidate() {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Configuration returns every active state id (leaves and ancestors),
// sorted for deterministic output.
func (c *StateChart) Configuration() []string {
	out := make([]string, 0, len(c.configuration))
	for id := range c.configuration {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Datamodel returns a shallow copy of the top-level data-model bindings.
func (c *StateChart) Datamodel() map[string]any {
	out := make(map[string]any, len(c.data))
	for k, v := range c.data {
		out[k] = v
	}
	return out
}

// Running reports whether the chart has reached a top-level final state.
func (c *StateChart) Running() bool { return c.running }

// Logs returns the entries accumulated by the test sink, or nil if the
// chart was not configured with one (spec.md §6 "logs(state_chart)").
func (c *StateChart) Logs() []logging.Entry {
	if ts, ok := c.logSink.(*logging.TestSink); ok {
		return ts.Entries
	}
	return nil
}

// --- expr.EvalContext ---

func (c *StateChart) GetVar(name string) (any, bool) {
	v, ok := c.data[name]
	return v, ok
}

func (c *StateChart) SetVar(name string, val any) {
	c.data[name] = val
}

// ActiveLeaves (above) also satisfies expr.EvalContext's method of the
// same name and signature.

func (c *StateChart) IsAncestorOrSelf(candidate, stateID string) bool {
	return c.doc.Hierarchy.IsAncestorOrSelf(candidate, stateID)
}

func (c *StateChart) EventData() any {
	if c.currentEvent == nil {
		return expr.Undefined
	}
	if c.currentEvent.Data == nil {
		return expr.Undefined
	}
	return c.currentEvent.Data
}

// --- action.Chart ---

func (c *StateChart) EnqueueInternal(name string, data any) {
	c.internalQueue = append(c.internalQueue, Event{Name: name, Data: data, Origin: OriginInternal})
}

func (c *StateChart) Log(level, message string, fields map[string]any) {
	if c.logSink == nil {
		return
	}
	lvl := logging.LevelInfo
	switch level {
	case "warn":
		lvl = logging.LevelWarn
	case "error":
		lvl = logging.LevelError
	}
	c.logSink.Log(logging.Entry{
		Level:         lvl,
		Message:       message,
		ActionType:    stringField(fields, "action_type"),
		Phase:         stringField(fields, "phase"),
		Configuration: c.ActiveLeaves(),
		EventName:     c.CurrentEventName(),
		Fields:        fields,
	})
}

func (c *StateChart) CurrentEventName() string {
	if c.currentEvent == nil {
		return ""
	}
	return c.currentEvent.Name
}

func stringField(fields map[string]any, key string) string {
	if fields == nil {
		return ""
	}
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

// withDefaults fills in zero-valued defaults.
func (o Options) withDefaults() Options {
	if o.LogSink == nil {
		o.LogSink = logging.NewSlogSink(nil, logging.LevelWarn)
	}
	return o
}
