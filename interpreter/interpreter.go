package interpreter

import (
	"context"

	"github.com/agentflare-ai/scxmlgo/expr"
	"github.com/agentflare-ai/scxmlgo/history"
	"github.com/agentflare-ai/scxmlgo/model"
)

// Initialize allocates the data model, computes the initial configuration,
// and stabilizes before returning, per spec.md §4.5 "Initialization".
// doc must already be validated (doc.Hierarchy and doc.StatesByID set).
// Extra functional options (e.g. WithSendRateLimit) layer on top of base.
func Initialize(doc *model.Document, base Options, extra ...Option) *StateChart {
	opts := base.Apply(extra...).withDefaults()

	c := &StateChart{
		doc:           doc,
		configuration: make(map[string]bool),
		data:          make(map[string]any),
		history:       history.New(),
		running:       true,
		logSink:       opts.LogSink,
		tracer:        opts.Tracer,
		sendLimiter:   opts.sendLimiter,
	}

	for _, d := range doc.DataElements {
		c.data[d.ID] = expr.Undefined
		if d.Expr != "" {
			if compiled, err := expr.Compile(d.Expr); err == nil {
				if v, err := compiled.Eval(c); err == nil {
					c.data[d.ID] = v
				}
			}
		}
	}

	var entered []string
	targets := doc.Initial
	if len(targets) == 0 && len(doc.States) > 0 {
		targets = []string{doc.States[0].ID}
	}
	for _, targetID := range targets {
		if s, ok := doc.FindState(targetID); ok {
			c.enterState(s, &entered)
		}
	}

	c.run(context.Background())
	return c
}

// Restore rebuilds a StateChart from a previously recorded leaf
// configuration and data-model snapshot (spec_full §4.10), re-entering
// every ancestor of each leaf without running the document's default
// initial transition or any onentry action — a restore is a resumption,
// not a fresh entry. It then runs a stabilization pass so any eventless
// transitions enabled purely by the restored configuration still fire.
func Restore(doc *model.Document, leaves []string, data map[string]any, base Options, extra ...Option) *StateChart {
	opts := base.Apply(extra...).withDefaults()

	c := &StateChart{
		doc:           doc,
		configuration: make(map[string]bool),
		data:          make(map[string]any),
		history:       history.New(),
		running:       true,
		logSink:       opts.LogSink,
		tracer:        opts.Tracer,
		sendLimiter:   opts.sendLimiter,
	}
	for k, v := range data {
		c.data[k] = v
	}
	for _, leafID := range leaves {
		c.configuration[leafID] = true
		for _, ancestorID := range doc.Hierarchy.AncestorPath[leafID] {
			c.configuration[ancestorID] = true
		}
	}

	c.run(context.Background())
	return c
}

// SendEvent appends event to the external queue and drives the interpreter
// to stability, per spec.md §4.5 "Event dispatch". It returns the same
// chart, mutated in place (StateChart is a reference type; the return
// value mirrors the spec's "state_chart'" functional-looking signature).
// ctx carries the macrostep span opened here when a Tracer is configured
// (spec_full §4.8a): one span per SendEvent call, one event per microstep.
// If WithSendRateLimit was configured, SendEvent blocks on it before
// entering the synchronous macrostep (spec_full §5 expansion) and returns
// the limiter's error (e.g. ctx cancellation) without advancing the chart.
func SendEvent(ctx context.Context, c *StateChart, name string, data any) (*StateChart, error) {
	if err := c.waitForSend(ctx); err != nil {
		return c, err
	}
	c.externalQueue = append(c.externalQueue, Event{Name: name, Data: data, Origin: OriginExternal})
	ctx, end := c.tracer.StartMacrostep(ctx, name)
	defer end()
	c.run(ctx)
	return c, nil
}
