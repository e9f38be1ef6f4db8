// Package model defines the typed document tree produced by the parser and
// enriched by the validator: states, transitions, executable content, and
// the lookup indexes the interpreter runs against.
package model

import (
	"github.com/agentflare-ai/scxmlgo/expr"
	"github.com/agentflare-ai/scxmlgo/scxmlerr"
)

// StateType is the type tag of a State.
type StateType string

const (
	Atomic   StateType = "atomic"
	Compound StateType = "compound"
	Parallel StateType = "parallel"
	Final    StateType = "final"
	InitialPseudo StateType = "initial"
	History  StateType = "history"
)

// HistoryType distinguishes shallow vs deep history states.
type HistoryType string

const (
	Shallow HistoryType = "shallow"
	Deep    HistoryType = "deep"
)

// TransitionType controls whether a transition's source is exited.
type TransitionType string

const (
	External TransitionType = "external"
	Internal TransitionType = "internal"
)

// Data is a <data> element: one datamodel variable.
type Data struct {
	ID   string
	Expr string
	Src  string
	Pos  scxmlerr.Position
}

// State is one node of the SCXML state tree.
type State struct {
	ID            string
	Type          StateType
	ParentID      string // "" at root
	Depth         int
	Children      []*State
	Transitions   []*Transition
	OnEntry       []Action
	OnExit        []Action
	InitialID     string      // compound: first token of the initial attribute (not set from an <initial> element)
	InitialTargets []string   // compound/parallel: initial attribute or <initial> transition targets; state entry uses only the first
	InitialActions []Action   // action content on an <initial> transition, run once on entry
	HistoryType   HistoryType // valid only when Type == History
	DocOrder      int
	Pos           scxmlerr.Position
}

// IsLeafCandidate reports whether s can be an active leaf by itself
// (atomic or final states are leaves; compound/parallel/history are not).
func (s *State) IsLeafCandidate() bool {
	return s.Type == Atomic || s.Type == Final
}

// EventDescriptor is a parsed transition event token: either empty
// (eventless), "*" (wildcard), or a literal/prefix token.
type EventDescriptor struct {
	Raw      string
	Wildcard bool
}

// Matches reports whether this descriptor matches an event name per
// spec.md §4.5 step 1: exact match, or a dot-delimited prefix match.
func (e EventDescriptor) Matches(eventName string) bool {
	if e.Wildcard {
		return true
	}
	if e.Raw == "" {
		return eventName == ""
	}
	if eventName == e.Raw {
		return true
	}
	if len(eventName) > len(e.Raw) && eventName[len(e.Raw)] == '.' && eventName[:len(e.Raw)] == e.Raw {
		return true
	}
	return false
}

// Transition is a single <transition> (or the synthetic default
// transition of a compound/history state).
type Transition struct {
	Event         EventDescriptor
	Targets       []string
	Cond          string
	CompiledCond  expr.Compiled
	Type          TransitionType
	SourceID      string
	Actions       []Action
	DocOrder      int
	Pos           scxmlerr.Position
}

// IsEventless reports whether t fires regardless of the incoming event.
func (t *Transition) IsEventless() bool {
	return t.Event.Raw == "" && !t.Event.Wildcard
}

// IsTargetless reports whether t has no targets (actions-only transition).
func (t *Transition) IsTargetless() bool {
	return len(t.Targets) == 0
}

// Document is the root of a parsed (and, after validation, enriched) SCXML
// document.
type Document struct {
	Name        string
	Initial     []string
	DataModelAttr string
	Version     string
	XMLNS       string
	States      []*State // top-level states, document order
	DataElements []Data
	docOrderSeq int

	// StatesByID, TransitionsBySource and Hierarchy are populated by
	// validator.ValidateModel and are nil until it runs; SchemaRefs and
	// RequiresUnsupported are set by the parser.
	StatesByID        map[string]*State
	TransitionsBySource map[string][]*Transition
	Hierarchy         *HierarchyCache
	SchemaRefs        map[string]string // namespace prefix -> schema URI, from schema:* attrs on <scxml>
	RequiresUnsupported bool             // set when <script> or <invoke> is present
}

// NextDocOrder returns a monotonically increasing counter used to stamp
// document order on states and transitions as the parser closes elements.
func (d *Document) NextDocOrder() int {
	d.docOrderSeq++
	return d.docOrderSeq
}

// AllStates returns every state in the document (flattened), in no
// particular order. Populated lazily from StatesByID once built by the
// validator; before that it walks the tree.
func (d *Document) AllStates() []*State {
	if d.StatesByID != nil {
		out := make([]*State, 0, len(d.StatesByID))
		for _, s := range d.StatesByID {
			out = append(out, s)
		}
		return out
	}
	var out []*State
	var walk func(*State)
	walk = func(s *State) {
		out = append(out, s)
		for _, c := range s.Children {
			walk(c)
		}
	}
	for _, s := range d.States {
		walk(s)
	}
	return out
}

// FindState resolves a state by id using the validator-built index, falling
// back to a tree walk if the index hasn't been built yet (e.g. mid-parse
// introspection in tests).
func (d *Document) FindState(id string) (*State, bool) {
	if d.StatesByID != nil {
		s, ok := d.StatesByID[id]
		return s, ok
	}
	for _, s := range d.AllStates() {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}
