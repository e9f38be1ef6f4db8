// Package feature implements the Feature Detector of spec.md §4.9: a pure
// function from a parsed Document to the set of feature tags it exercises,
// used by test harnesses to skip documents that need unsupported behavior.
package feature

import "github.com/agentflare-ai/scxmlgo/model"

// Tag names one detectable SCXML feature.
type Tag string

const (
	OnEntryActions       Tag = "onentry_actions"
	OnExitActions        Tag = "onexit_actions"
	DataModel            Tag = "datamodel"
	ParallelStates       Tag = "parallel_states"
	HistoryStates        Tag = "history_states"
	DeepHistory          Tag = "deep_history"
	InternalTransitions  Tag = "internal_transitions"
	EventlessTransitions Tag = "eventless_transitions"
	SendAction           Tag = "send_action"
	SendDelayExpressions Tag = "send_delay_expressions"
	ExternalSendTarget   Tag = "external_send_target"
	InvokeElements       Tag = "invoke_elements"
	ForeachAction        Tag = "foreach_action"
	ScriptElements       Tag = "script_elements"
	SchemaRefs           Tag = "schema_refs"
)

// Set is an unordered collection of detected tags.
type Set map[Tag]bool

// Has reports whether t was detected.
func (s Set) Has(t Tag) bool { return s[t] }

// Detect walks doc and returns every feature tag it exercises.
func Detect(doc *model.Document) Set {
	out := make(Set)

	if len(doc.DataElements) > 0 || doc.DataModelAttr != "" {
		out[DataModel] = true
	}
	if doc.RequiresUnsupported {
		out[InvokeElements] = true
		out[ScriptElements] = true
	}
	if len(doc.SchemaRefs) > 0 {
		out[SchemaRefs] = true
	}

	for _, s := range doc.AllStates() {
		if len(s.OnEntry) > 0 {
			out[OnEntryActions] = true
		}
		if len(s.OnExit) > 0 {
			out[OnExitActions] = true
		}
		switch s.Type {
		case model.Parallel:
			out[ParallelStates] = true
		case model.History:
			out[HistoryStates] = true
			if s.HistoryType == model.Deep {
				out[DeepHistory] = true
			}
		}
		for _, t := range s.Transitions {
			detectTransition(t, out)
		}
	}

	return out
}

func detectTransition(t *model.Transition, out Set) {
	if t.IsEventless() {
		out[EventlessTransitions] = true
	}
	if t.Type == model.Internal {
		out[InternalTransitions] = true
	}
	detectActions(t.Actions, out)
}

func detectActions(actions []model.Action, out Set) {
	for _, a := range actions {
		switch a.Kind {
		case model.ActionSend:
			out[SendAction] = true
			if a.Send != nil {
				if a.Send.Delay != "" || a.Send.DelayExpr != "" {
					out[SendDelayExpressions] = true
				}
				if a.Send.Target != "" && a.Send.Target != model.InternalTarget {
					out[ExternalSendTarget] = true
				}
			}
		case model.ActionForeach:
			out[ForeachAction] = true
			if a.Foreach != nil {
				detectActions(a.Foreach.Actions, out)
			}
		case model.ActionIf:
			if a.If != nil {
				for _, block := range a.If.Blocks {
					detectActions(block.Actions, out)
				}
			}
		}
	}
}
