// Package action dispatches a single executable-content Action against a
// running state chart. No action panics or returns a Go error to its
// caller: every failure becomes either an internal error.execution event
// or a warning log entry, per spec.md §4.6.
package action

import (
	"fmt"

	"github.com/agentflare-ai/scxmlgo/expr"
	"github.com/agentflare-ai/scxmlgo/model"
)

// Chart is the surface the executor needs from a running state chart. The
// interpreter package's StateChart implements it; tests can implement it
// directly.
type Chart interface {
	expr.EvalContext

	// EnqueueInternal appends an event to the internal FIFO queue.
	EnqueueInternal(name string, data any)
	// Log appends a structured log entry at info/warn level.
	Log(level, message string, fields map[string]any)
	// CurrentEventName returns the name of the event being processed, or
	// "" if there is none (e.g. during initialization or an eventless step).
	CurrentEventName() string
}

const anonymousEventName = "anonymous_event"

// Execute dispatches act against chart. It never returns an error to the
// caller; failures are surfaced as internal events or log entries as
// spec.md §4.6 describes per action kind.
func Execute(act model.Action, chart Chart) {
	switch act.Kind {
	case model.ActionLog:
		execLog(act.Log, chart)
	case model.ActionRaise:
		execRaise(act.Raise, chart)
	case model.ActionAssign:
		execAssign(act.Assign, chart)
	case model.ActionIf:
		execIf(act.If, chart)
	case model.ActionForeach:
		execForeach(act.Foreach, chart)
	case model.ActionSend:
		execSend(act.Send, chart)
	}
}

// ExecuteAll runs each action in order, as onentry/onexit/transition
// action lists require.
func ExecuteAll(actions []model.Action, chart Chart) {
	for _, a := range actions {
		Execute(a, chart)
	}
}

func execLog(la *model.LogAction, chart Chart) {
	var value string
	if la.Expr != "" {
		v, err := la.CompiledExpr.Eval(chart)
		if err != nil {
			v = expr.Undefined
		}
		value = expr.FormatValue(v)
	}
	msg := la.Label
	if value != "" {
		if msg != "" {
			msg = msg + ": " + value
		} else {
			msg = value
		}
	}
	chart.Log("info", msg, map[string]any{"action_type": "log"})
}

func execRaise(ra *model.RaiseAction, chart Chart) {
	name := ra.Event
	if name == "" {
		name = anonymousEventName
	}
	chart.EnqueueInternal(name, map[string]any{})
}

func raiseError(chart Chart, errType, location, reason string) {
	chart.EnqueueInternal("error.execution", map[string]any{
		"type":     errType,
		"location": location,
		"reason":   reason,
	})
}

func execAssign(aa *model.AssignAction, chart Chart) {
	if !aa.CompiledLocation.Valid() {
		raiseError(chart, "assign.execution", aa.Location, "location failed to compile")
		return
	}
	if err := expr.EvaluateAndAssign(aa.CompiledLocation, aa.CompiledExpr, chart); err != nil {
		raiseError(chart, "assign.execution", aa.Location, err.Error())
	}
}

func execIf(ia *model.IfAction, chart Chart) {
	for _, block := range ia.Blocks {
		matched := block.Kind == "else"
		if !matched && block.CompiledCond.Valid() {
			matched = block.CompiledCond.EvalCondition(chart)
		}
		if matched {
			ExecuteAll(block.Actions, chart)
			return
		}
	}
}

func execForeach(fa *model.ForeachAction, chart Chart) {
	if !fa.CompiledArrayExpr.Valid() {
		raiseError(chart, "foreach.not_iterable", fa.ArrayExpr, "array expression failed to compile")
		return
	}
	v, err := fa.CompiledArrayExpr.Eval(chart)
	if err != nil {
		raiseError(chart, "foreach.not_iterable", fa.ArrayExpr, err.Error())
		return
	}
	seq, ok := v.([]any)
	if !ok {
		raiseError(chart, "foreach.not_iterable", fa.ArrayExpr, fmt.Sprintf("%q did not evaluate to a sequence", fa.ArrayExpr))
		return
	}
	for i, item := range seq {
		chart.SetVar(fa.Item, item)
		if fa.Index != "" {
			chart.SetVar(fa.Index, float64(i))
		}
		ExecuteAll(fa.Actions, chart)
	}
}

func execSend(sa *model.SendAction, chart Chart) {
	eventName := sa.Event
	if eventName == "" && sa.CompiledEventExpr.Valid() {
		if v, err := sa.CompiledEventExpr.Eval(chart); err == nil {
			eventName = expr.FormatValue(v)
		}
	}

	target := sa.Target
	if target == "" && sa.CompiledTargetExpr.Valid() {
		if v, err := sa.CompiledTargetExpr.Eval(chart); err == nil {
			target = expr.FormatValue(v)
		}
	}

	if sa.IDLocation != "" {
		if loc, err := expr.CompileLocation(sa.IDLocation); err == nil {
			_ = expr.Assign(loc, generateSendID(), chart)
		}
	}

	if target != "" && target != model.InternalTarget {
		chart.Log("warn", fmt.Sprintf("send target %q is unsupported; external send is a non-goal", target),
			map[string]any{"action_type": "send"})
		return
	}

	payload := make(map[string]any)
	for _, name := range sa.Namelist {
		if v, ok := chart.GetVar(name); ok {
			payload[name] = v
		}
	}
	for _, p := range sa.Params {
		val, ok := evalParam(p, chart)
		if !ok {
			continue // lenient mode: skip failed params, spec.md §4.6
		}
		payload[p.Name] = val
	}
	if sa.Content != nil {
		if sa.Content.CompiledExpr.Valid() {
			if v, err := sa.Content.CompiledExpr.Eval(chart); err == nil {
				payload["content"] = expr.FormatValue(v)
			}
		} else if sa.Content.Text != "" {
			payload["content"] = sa.Content.Text
		}
	}

	chart.EnqueueInternal(eventName, payload)
}

func evalParam(p model.Param, chart Chart) (any, bool) {
	if p.CompiledExpr.Valid() {
		v, err := p.CompiledExpr.Eval(chart)
		if err != nil {
			return nil, false
		}
		return v, true
	}
	if p.Location != "" {
		v, ok := chart.GetVar(p.Location)
		return v, ok
	}
	return nil, false
}

var sendIDCounter int

func generateSendID() string {
	sendIDCounter++
	return fmt.Sprintf("send-%d", sendIDCounter)
}
