package model

import (
	"github.com/agentflare-ai/scxmlgo/expr"
	"github.com/agentflare-ai/scxmlgo/scxmlerr"
)

// ActionKind tags the closed set of executable-content variants
// (spec.md §4.1/§9: "a tagged variant tree evaluated by a single dispatch
// function over the action type — no inheritance required").
type ActionKind string

const (
	ActionLog     ActionKind = "log"
	ActionRaise   ActionKind = "raise"
	ActionAssign  ActionKind = "assign"
	ActionIf      ActionKind = "if"
	ActionForeach ActionKind = "foreach"
	ActionSend    ActionKind = "send"
)

// Action is one node of executable content. Exactly one of the payload
// pointers matching Kind is non-nil.
type Action struct {
	Kind    ActionKind
	Log     *LogAction
	Raise   *RaiseAction
	Assign  *AssignAction
	If      *IfAction
	Foreach *ForeachAction
	Send    *SendAction
	Pos     scxmlerr.Position
}

// LogAction evaluates Expr and appends a log entry labeled Label.
type LogAction struct {
	Label        string
	Expr         string
	CompiledExpr expr.Compiled
}

// RaiseAction enqueues an internal event.
type RaiseAction struct {
	Event string
}

// AssignAction resolves Location to a key path and assigns Expr's value.
type AssignAction struct {
	Location         string
	Expr             string
	CompiledExpr     expr.Compiled
	CompiledLocation expr.Location
}

// ConditionalBlock is one arm of an If action: the first (kind=="if"),
// zero or more "elseif" arms, and an optional trailing "else" arm.
type ConditionalBlock struct {
	Kind         string // "if" | "elseif" | "else"
	Cond         string
	CompiledCond expr.Compiled
	Actions      []Action
}

// IfAction is an if/elseif*/else? chain. The first block whose condition
// evaluates true (or which is the "else" arm) runs; no fallthrough.
type IfAction struct {
	Blocks []ConditionalBlock
}

// ForeachAction iterates ArrayExpr, binding Item (and optionally Index)
// for each element before running Actions.
type ForeachAction struct {
	ArrayExpr        string
	CompiledArrayExpr expr.Compiled
	Item             string
	Index            string
	Actions          []Action
}

// Param is a <param> child of <send>: a name bound to either an
// expression or a data-model location.
type Param struct {
	Name         string
	Expr         string
	CompiledExpr expr.Compiled
	Location     string
}

// SendContent is the optional <content> child of <send>.
type SendContent struct {
	Expr         string
	CompiledExpr expr.Compiled
	Text         string
}

// SendAction enqueues (or, for non-internal targets, rejects) an event.
// Delays are parsed but delivered immediately per spec.md §1 non-goals.
type SendAction struct {
	Event             string
	EventExpr         string
	CompiledEventExpr expr.Compiled
	Target             string
	TargetExpr         string
	CompiledTargetExpr expr.Compiled
	Type               string
	TypeExpr           string
	ID                 string
	IDLocation         string
	Delay              string
	DelayExpr          string
	Namelist           []string
	Params             []Param
	Content            *SendContent
}

// InternalTarget is the sentinel SCXML uses for "deliver to myself".
const InternalTarget = "#_internal"
