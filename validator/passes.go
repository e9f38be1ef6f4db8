// This file implements the model-level semantic validator: the seven
// sequential passes over a parsed model.Document described in spec.md
// §4.3. It is the authoritative validation stage; the XSD/JSON-Schema
// machinery elsewhere in this package (adapted from the teacher's
// validator.go/xsd_validator.go/semantic_rules.go) runs optionally,
// earlier, as a quality signal that only ever downgrades to warnings.
package validator

import (
	"fmt"

	"github.com/agentflare-ai/scxmlgo/expr"
	"github.com/agentflare-ai/scxmlgo/hierarchy"
	"github.com/agentflare-ai/scxmlgo/model"
	"github.com/agentflare-ai/scxmlgo/scxmlerr"
)

// Options controls the model-level validator. UseXSD is not read by
// ValidateModel: the optional structural pre-passes (spec_full §4.3a) run
// separately through RunXSDPrepass and RunDataGuard. Strict escalates
// parallel-child-atomic warnings (spec.md §4.3 pass 1) to errors.
type Options struct {
	UseXSD  bool
	Strict  bool
}

// ValidateModel runs the seven passes of spec.md §4.3 against doc,
// mutating it in place with the lookup indexes and HierarchyCache pass 6
// and 7 build. It returns the enriched document and the full diagnostic
// set; callers should check diags.HasErrors() before using doc further.
func ValidateModel(doc *model.Document, opts Options) (*model.Document, *scxmlerr.Diagnostics) {
	diags := &scxmlerr.Diagnostics{}
	if doc == nil {
		diags.Errorf(scxmlerr.KindValidationError, "doc.nil", scxmlerr.Position{}, "nil document")
		return nil, diags
	}

	all := doc.AllStates()

	pass1StateStructure(doc, all, opts, diags)
	pass2History(doc, all, diags)
	pass3Transitions(doc, all, diags)
	pass4Initial(doc, all, diags)
	pass5CompileExpressions(doc, all, diags)
	pass6BuildLookups(doc, all)
	pass7BuildHierarchy(doc)

	return doc, diags
}

// pass 1: state structure — id uniqueness, parallel-child-type, final shape.
func pass1StateStructure(doc *model.Document, all []*model.State, opts Options, diags *scxmlerr.Diagnostics) {
	seen := make(map[string]*model.State, len(all))
	for _, s := range all {
		if s.ID == "" {
			continue
		}
		if prior, dup := seen[s.ID]; dup {
			diags.Add(scxmlerr.Diagnostic{
				Kind: scxmlerr.KindValidationError, Code: "E-DUP-ID", Position: s.Pos,
				Tag: string(s.Type), Message: fmt.Sprintf("duplicate state id %q (first defined at line %d)", s.ID, prior.Pos.Line),
			})
			continue
		}
		seen[s.ID] = s
	}

	for _, s := range all {
		if s.Type == model.Parallel {
			for _, c := range s.Children {
				if c.Type == model.Atomic {
					kind := scxmlerr.KindValidationWarning
					if opts.Strict {
						kind = scxmlerr.KindValidationError
					}
					diags.Add(scxmlerr.Diagnostic{
						Kind: kind, Code: "W-PARALLEL-ATOMIC-CHILD", Position: c.Pos,
						Tag: "state", Message: fmt.Sprintf("parallel state %q has a non-compound child %q; SCXML strict mode expects every region to be compound or parallel", s.ID, c.ID),
					})
				}
			}
		}
		if s.Type == model.Final {
			if len(s.Transitions) > 0 {
				diags.Add(scxmlerr.Diagnostic{
					Kind: scxmlerr.KindValidationError, Code: "E-FINAL-TRANSITION", Position: s.Pos,
					Tag: "final", Message: fmt.Sprintf("final state %q must not have outgoing transitions", s.ID),
				})
			}
			if len(s.Children) > 0 {
				diags.Add(scxmlerr.Diagnostic{
					Kind: scxmlerr.KindValidationError, Code: "E-FINAL-CHILDREN", Position: s.Pos,
					Tag: "final", Message: fmt.Sprintf("final state %q must not have child states", s.ID),
				})
			}
		}
	}
}

// pass 2: history placement and cardinality.
func pass2History(doc *model.Document, all []*model.State, diags *scxmlerr.Diagnostics) {
	for _, top := range doc.States {
		if top.Type == model.History {
			diags.Add(scxmlerr.Diagnostic{
				Kind: scxmlerr.KindValidationError, Code: "E-HISTORY-ROOT", Position: top.Pos,
				Tag: "history", Message: fmt.Sprintf("history state %q may not be at document root", top.ID),
			})
		}
	}

	byID := indexByID(all)
	byParent := make(map[string][]*model.State)
	for _, s := range all {
		if s.Type == model.History {
			byParent[s.ParentID] = append(byParent[s.ParentID], s)
		}
	}
	for parentID, hs := range byParent {
		shallow, deep := 0, 0
		for _, h := range hs {
			if h.HistoryType == model.Deep {
				deep++
			} else {
				shallow++
			}
			if len(h.Transitions) == 0 {
				diags.Add(scxmlerr.Diagnostic{
					Kind: scxmlerr.KindValidationError, Code: "E-HISTORY-NO-DEFAULT", Position: h.Pos,
					Tag: "history", Message: fmt.Sprintf("history state %q has no default transition", h.ID),
				})
			} else {
				for _, t := range h.Transitions[0].Targets {
					if _, ok := byID[t]; !ok {
						diags.Add(scxmlerr.Diagnostic{
							Kind: scxmlerr.KindValidationError, Code: "E-HISTORY-TARGET", Position: h.Pos,
							Tag: "history", Message: fmt.Sprintf("history state %q default transition targets unknown state %q", h.ID, t),
						})
					}
				}
			}
		}
		if shallow > 1 || deep > 1 {
			diags.Add(scxmlerr.Diagnostic{
				Kind: scxmlerr.KindValidationError, Code: "E-HISTORY-CARDINALITY", Position: scxmlerr.Position{},
				Tag: "history", Message: fmt.Sprintf("parent %q has more than one shallow or deep history child", parentID),
			})
		}
	}
}

// pass 3: transition target resolution and condition compilation.
func pass3Transitions(doc *model.Document, all []*model.State, diags *scxmlerr.Diagnostics) {
	byID := indexByID(all)
	for _, s := range all {
		for _, t := range s.Transitions {
			for _, target := range t.Targets {
				if _, ok := byID[target]; !ok {
					diags.Add(scxmlerr.Diagnostic{
						Kind: scxmlerr.KindValidationError, Code: "E-TRANSITION-TARGET", Position: t.Pos,
						Tag: "transition", Message: fmt.Sprintf("transition from %q targets unknown state %q", s.ID, target),
					})
				}
			}
			if t.Cond != "" {
				compiled, err := expr.Compile(t.Cond)
				if err != nil {
					diags.Add(scxmlerr.Diagnostic{
						Kind: scxmlerr.KindValidationWarning, Code: "W-COND-COMPILE", Position: t.Pos,
						Tag: "transition", Attribute: "cond",
						Message: fmt.Sprintf("condition %q failed to compile: %v (transition disabled at runtime)", t.Cond, err),
					})
				} else {
					t.CompiledCond = compiled
				}
			}
		}
	}
}

// pass 4: initial attribute/element resolution.
func pass4Initial(doc *model.Document, all []*model.State, diags *scxmlerr.Diagnostics) {
	byID := indexByID(all)
	for _, s := range all {
		if s.Type != model.Compound && s.Type != model.Parallel {
			continue
		}
		for _, target := range s.InitialTargets {
			child, ok := byID[target]
			if !ok {
				diags.Add(scxmlerr.Diagnostic{
					Kind: scxmlerr.KindValidationError, Code: "E-INITIAL-TARGET", Position: s.Pos,
					Tag: "state", Attribute: "initial",
					Message: fmt.Sprintf("state %q initial target %q does not resolve to a state", s.ID, target),
				})
				continue
			}
			if child.ParentID != s.ID {
				diags.Add(scxmlerr.Diagnostic{
					Kind: scxmlerr.KindValidationError, Code: "E-INITIAL-NOT-CHILD", Position: s.Pos,
					Tag: "state", Attribute: "initial",
					Message: fmt.Sprintf("state %q initial target %q is not a direct child", s.ID, target),
				})
			}
		}
	}
	for _, id := range doc.Initial {
		if _, ok := byID[id]; !ok {
			diags.Add(scxmlerr.Diagnostic{
				Kind: scxmlerr.KindValidationError, Code: "E-DOC-INITIAL-TARGET", Position: scxmlerr.Position{},
				Tag: "scxml", Attribute: "initial",
				Message: fmt.Sprintf("document initial target %q does not resolve to a state", id),
			})
		}
	}
}

// pass 5: compile every expression reachable from datamodel and actions.
func pass5CompileExpressions(doc *model.Document, all []*model.State, diags *scxmlerr.Diagnostics) {
	for i := range doc.DataElements {
		d := &doc.DataElements[i]
		if d.Expr == "" {
			continue
		}
		if _, err := expr.Compile(d.Expr); err != nil {
			diags.Add(scxmlerr.Diagnostic{
				Kind: scxmlerr.KindValidationWarning, Code: "W-DATA-EXPR-COMPILE", Position: d.Pos,
				Tag: "data", Attribute: "expr",
				Message: fmt.Sprintf("data %q expr %q failed to compile: %v", d.ID, d.Expr, err),
			})
		}
	}
	for _, s := range all {
		compileActionExprs(s.OnEntry, diags)
		compileActionExprs(s.OnExit, diags)
		for _, t := range s.Transitions {
			compileActionExprs(t.Actions, diags)
		}
		compileActionExprs(s.InitialActions, diags)
	}
}

func compileActionExprs(actions []model.Action, diags *scxmlerr.Diagnostics) {
	for i := range actions {
		a := &actions[i]
		switch a.Kind {
		case model.ActionLog:
			compileOptional(&a.Log.Expr, &a.Log.CompiledExpr, a.Pos, "log", diags)
		case model.ActionAssign:
			compileOptional(&a.Assign.Expr, &a.Assign.CompiledExpr, a.Pos, "assign", diags)
			if a.Assign.Location != "" {
				loc, err := expr.CompileLocation(a.Assign.Location)
				if err != nil {
					diags.Add(scxmlerr.Diagnostic{
						Kind: scxmlerr.KindValidationWarning, Code: "W-LOCATION-COMPILE", Position: a.Pos,
						Tag: "assign", Attribute: "location",
						Message: fmt.Sprintf("location %q failed to compile: %v", a.Assign.Location, err),
					})
				} else {
					a.Assign.CompiledLocation = loc
				}
			}
		case model.ActionIf:
			for bi := range a.If.Blocks {
				b := &a.If.Blocks[bi]
				if b.Cond != "" {
					compiled, err := expr.Compile(b.Cond)
					if err != nil {
						diags.Add(scxmlerr.Diagnostic{
							Kind: scxmlerr.KindValidationWarning, Code: "W-COND-COMPILE", Position: a.Pos,
							Tag: b.Kind, Attribute: "cond",
							Message: fmt.Sprintf("condition %q failed to compile: %v", b.Cond, err),
						})
					} else {
						b.CompiledCond = compiled
					}
				}
				compileActionExprs(b.Actions, diags)
			}
		case model.ActionForeach:
			compileOptional(&a.Foreach.ArrayExpr, &a.Foreach.CompiledArrayExpr, a.Pos, "foreach", diags)
			compileActionExprs(a.Foreach.Actions, diags)
		case model.ActionSend:
			compileOptional(&a.Send.EventExpr, &a.Send.CompiledEventExpr, a.Pos, "send", diags)
			compileOptional(&a.Send.TargetExpr, &a.Send.CompiledTargetExpr, a.Pos, "send", diags)
			for pi := range a.Send.Params {
				p := &a.Send.Params[pi]
				compileOptional(&p.Expr, &p.CompiledExpr, a.Pos, "param", diags)
			}
			if a.Send.Content != nil {
				compileOptional(&a.Send.Content.Expr, &a.Send.Content.CompiledExpr, a.Pos, "content", diags)
			}
		}
	}
}

func compileOptional(src *string, dst *expr.Compiled, pos scxmlerr.Position, tag string, diags *scxmlerr.Diagnostics) {
	if *src == "" {
		return
	}
	compiled, err := expr.Compile(*src)
	if err != nil {
		diags.Add(scxmlerr.Diagnostic{
			Kind: scxmlerr.KindValidationWarning, Code: "W-EXPR-COMPILE", Position: pos,
			Tag: tag, Attribute: "expr",
			Message: fmt.Sprintf("expr %q failed to compile: %v", *src, err),
		})
		return
	}
	*dst = compiled
}

// pass 6: build the state-id and source-transition lookup maps.
func pass6BuildLookups(doc *model.Document, all []*model.State) {
	doc.StatesByID = indexByID(all)
	doc.TransitionsBySource = make(map[string][]*model.Transition)
	for _, s := range all {
		if len(s.Transitions) > 0 {
			doc.TransitionsBySource[s.ID] = s.Transitions
		}
	}
}

// pass 7: build the hierarchy cache.
func pass7BuildHierarchy(doc *model.Document) {
	doc.Hierarchy = hierarchy.Build(doc)
}

func indexByID(all []*model.State) map[string]*model.State {
	m := make(map[string]*model.State, len(all))
	for _, s := range all {
		if s.ID != "" {
			m[s.ID] = s
		}
	}
	return m
}
