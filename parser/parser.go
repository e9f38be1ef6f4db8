// Package parser builds a model.Document from SCXML XML bytes. It
// consumes the xmlevents stream (itself a replay of an already-decoded
// go-xmldom tree) and maintains a stack of in-progress element frames per
// spec.md §4.2, merging each closed frame into the one beneath it.
package parser

import (
	"fmt"

	"github.com/agentflare-ai/go-xmldom"

	"github.com/agentflare-ai/scxmlgo/model"
	"github.com/agentflare-ai/scxmlgo/scxmlerr"
	"github.com/agentflare-ai/scxmlgo/xmlevents"
)

const scxmlNamespace = "http://www.w3.org/2005/07/scxml"

// Parse decodes raw SCXML bytes into a model.Document. Diagnostics
// accumulate but never abort parsing of well-formed XML; a malformed XML
// byte stream produces a single Parse diagnostic and a nil document.
func Parse(xmlBytes []byte) (*model.Document, *scxmlerr.Diagnostics) {
	diags := &scxmlerr.Diagnostics{}

	decoder := xmldom.NewDecoderFromBytes(xmlBytes)
	dom, err := decoder.Decode()
	if err != nil {
		diags.Errorf(scxmlerr.KindParse, "xml.malformed", scxmlerr.Position{}, "failed to parse XML: %v", err)
		return nil, diags
	}

	p := &parser{diags: diags}
	if err := xmlevents.Walk(dom, p); err != nil {
		diags.Errorf(scxmlerr.KindParse, "xml.walk", scxmlerr.Position{}, "%v", err)
		return nil, diags
	}
	if p.doc == nil {
		diags.Errorf(scxmlerr.KindParse, "xml.no_root", scxmlerr.Position{}, "document has no <scxml> root element")
		return nil, diags
	}
	return p.doc, diags
}

// frame is one in-progress element on the parser's stack.
type frame struct {
	tag  string
	pos  scxmlerr.Position
	elem xmldom.Element

	// Exactly one of these is non-nil/zero depending on tag, set when the
	// frame is pushed and read back when it is merged into its parent.
	state    *model.State
	trans    *model.Transition
	action   *model.Action
	ifBlock  *model.ConditionalBlock // current open elseif/else block on an If frame
	isOnEntry bool
	isOnExit  bool
	isDatamodel bool
	isInitialElement bool // <initial> child element (not the attribute form)

	pendingActions []model.Action // accumulator for onentry/onexit/initial markers
}

type parser struct {
	diags *scxmlerr.Diagnostics
	doc   *model.Document
	stack []*frame
	initialCounter int
	historyAutoCounter int
}

func (p *parser) top() *frame {
	if len(p.stack) == 0 {
		return nil
	}
	return p.stack[len(p.stack)-1]
}

func (p *parser) StartElement(se xmlevents.StartElement) error {
	tag := se.Local
	attrs := attrMap(se.Attrs)

	switch tag {
	case "scxml":
		p.doc = &model.Document{
			Name:          attrs["name"],
			DataModelAttr: attrs["datamodel"],
			Version:       attrs["version"],
			XMLNS:         scxmlNamespace,
			StatesByID:    nil,
		}
		if initial := attrs["initial"]; initial != "" {
			p.doc.Initial = splitTokens(initial)
		}
		p.doc.SchemaRefs = schemaRefs(se.Elem)
		p.push(&frame{tag: tag, pos: se.Pos, elem: se.Elem})

	case "state", "parallel", "final":
		s := &model.State{
			ID:   ensureID(attrs["id"], ""),
			Type: stateTypeOf(tag),
			Pos:  se.Pos,
		}
		if initial := attrs["initial"]; initial != "" {
			s.InitialTargets = splitTokens(initial)
			s.InitialID = s.InitialTargets[0]
		}
		p.push(&frame{tag: tag, pos: se.Pos, state: s})

	case "initial":
		p.initialCounter++
		s := &model.State{
			ID:   fmt.Sprintf("__initial_%d__", p.initialCounter),
			Type: model.InitialPseudo,
			Pos:  se.Pos,
		}
		p.push(&frame{tag: tag, pos: se.Pos, state: s, isInitialElement: true})

	case "history":
		id := attrs["id"]
		if id == "" {
			p.historyAutoCounter++
			id = fmt.Sprintf("__history_%d__", p.historyAutoCounter)
		}
		s := &model.State{
			ID:   id,
			Type: model.History,
			Pos:  se.Pos,
		}
		if attrs["type"] == "deep" {
			s.HistoryType = model.Deep
		} else {
			s.HistoryType = model.Shallow
		}
		p.push(&frame{tag: tag, pos: se.Pos, state: s})

	case "transition":
		t := &model.Transition{
			Event: parseEventDescriptor(attrs["event"]),
			Cond:  attrs["cond"],
			Type:  transitionTypeOf(attrs["type"]),
			Pos:   se.Pos,
		}
		if target := attrs["target"]; target != "" {
			t.Targets = splitTokens(target)
		}
		p.push(&frame{tag: tag, pos: se.Pos, trans: t})

	case "datamodel":
		p.push(&frame{tag: tag, pos: se.Pos, isDatamodel: true})

	case "data":
		if p.doc != nil {
			p.doc.DataElements = append(p.doc.DataElements, model.Data{
				ID:   attrs["id"],
				Expr: attrs["expr"],
				Src:  attrs["src"],
				Pos:  se.Pos,
			})
		}
		p.push(&frame{tag: tag, pos: se.Pos})

	case "onentry":
		p.push(&frame{tag: tag, pos: se.Pos, isOnEntry: true})
	case "onexit":
		p.push(&frame{tag: tag, pos: se.Pos, isOnExit: true})

	case "log":
		p.push(&frame{tag: tag, pos: se.Pos, action: &model.Action{
			Kind: model.ActionLog,
			Log:  &model.LogAction{Label: attrs["label"], Expr: attrs["expr"]},
			Pos:  se.Pos,
		}})

	case "raise":
		p.push(&frame{tag: tag, pos: se.Pos, action: &model.Action{
			Kind:  model.ActionRaise,
			Raise: &model.RaiseAction{Event: attrs["event"]},
			Pos:   se.Pos,
		}})

	case "assign":
		p.push(&frame{tag: tag, pos: se.Pos, action: &model.Action{
			Kind:   model.ActionAssign,
			Assign: &model.AssignAction{Location: attrs["location"], Expr: attrs["expr"]},
			Pos:    se.Pos,
		}})

	case "if":
		p.push(&frame{tag: tag, pos: se.Pos, action: &model.Action{
			Kind: model.ActionIf,
			If:   &model.IfAction{Blocks: []model.ConditionalBlock{{Kind: "if", Cond: attrs["cond"]}}},
			Pos:  se.Pos,
		}})

	case "elseif", "else":
		parent := p.top()
		if parent == nil || parent.action == nil || parent.action.Kind != model.ActionIf {
			p.diags.Errorf(scxmlerr.KindParse, "xml.misplaced_conditional", se.Pos,
				"<%s> outside of an <if> block", tag)
		} else {
			block := model.ConditionalBlock{Kind: tag, Cond: attrs["cond"]}
			parent.action.If.Blocks = append(parent.action.If.Blocks, block)
			parent.ifBlock = &parent.action.If.Blocks[len(parent.action.If.Blocks)-1]
		}
		p.push(&frame{tag: tag, pos: se.Pos})

	case "foreach":
		p.push(&frame{tag: tag, pos: se.Pos, action: &model.Action{
			Kind: model.ActionForeach,
			Foreach: &model.ForeachAction{
				ArrayExpr: attrs["array"],
				Item:      attrs["item"],
				Index:     attrs["index"],
			},
			Pos: se.Pos,
		}})

	case "send":
		p.push(&frame{tag: tag, pos: se.Pos, action: &model.Action{
			Kind: model.ActionSend,
			Send: &model.SendAction{
				Event:      attrs["event"],
				EventExpr:  attrs["eventexpr"],
				Target:     attrs["target"],
				TargetExpr: attrs["targetexpr"],
				Type:       attrs["type"],
				TypeExpr:   attrs["typeexpr"],
				ID:         attrs["id"],
				IDLocation: attrs["idlocation"],
				Delay:      attrs["delay"],
				DelayExpr:  attrs["delayexpr"],
			},
			Pos: se.Pos,
		}})
		if namelist := attrs["namelist"]; namelist != "" {
			p.top().action.Send.Namelist = splitTokens(namelist)
		}

	case "param":
		parent := p.top()
		if parent != nil && parent.action != nil && parent.action.Kind == model.ActionSend {
			parent.action.Send.Params = append(parent.action.Send.Params, model.Param{
				Name:     attrs["name"],
				Expr:     attrs["expr"],
				Location: attrs["location"],
			})
		}
		p.push(&frame{tag: tag, pos: se.Pos})

	case "content":
		parent := p.top()
		if parent != nil && parent.action != nil && parent.action.Kind == model.ActionSend {
			parent.action.Send.Content = &model.SendContent{Expr: attrs["expr"]}
		}
		p.push(&frame{tag: tag, pos: se.Pos})

	case "script", "invoke":
		if p.doc != nil {
			p.doc.RequiresUnsupported = true
		}
		p.push(&frame{tag: tag, pos: se.Pos})

	default:
		// Unknown element: skip frame, attributes and children ignored.
		p.push(&frame{tag: tag, pos: se.Pos})
	}
	return nil
}

func (p *parser) Characters(c xmlevents.Characters) error {
	top := p.top()
	if top == nil || top.tag != "content" || len(p.stack) < 2 {
		return nil
	}
	// content's text goes straight onto the owning <send> frame, which
	// sits just beneath the <content> frame.
	owner := p.stack[len(p.stack)-2]
	if owner.action == nil || owner.action.Kind != model.ActionSend {
		return nil
	}
	if owner.action.Send.Content == nil {
		owner.action.Send.Content = &model.SendContent{}
	}
	owner.action.Send.Content.Text += c.Text
	return nil
}

func (p *parser) EndElement(ee xmlevents.EndElement) error {
	f := p.pop()
	if f == nil {
		return nil
	}

	switch f.tag {
	case "scxml":
		// root frame; nothing to merge upward.
		return nil

	case "state", "parallel", "final":
		finalizeStateType(f.state)
		p.attachState(f.state)

	case "initial":
		// <initial> wraps a single <transition>, already attached to
		// f.state.Transitions (it targets the synthetic initial-pseudo
		// state as "parent" while this frame is open). Its targets and
		// action content become the enclosing compound state's initial
		// resolution.
		parent := p.top()
		if parent != nil && parent.state != nil && len(f.state.Transitions) > 0 {
			t := f.state.Transitions[0]
			parent.state.InitialTargets = t.Targets
			parent.state.InitialActions = t.Actions
		}

	case "history":
		p.attachState(f.state)

	case "transition":
		parent := p.top()
		if parent != nil && parent.state != nil {
			f.trans.SourceID = parent.state.ID
			f.trans.DocOrder = p.nextDocOrder()
			parent.state.Transitions = append(parent.state.Transitions, f.trans)
		}

	case "datamodel":
		// <data> children already appended directly to doc.DataElements.

	case "onentry":
		parent := p.top()
		if parent != nil && parent.state != nil {
			parent.state.OnEntry = f.pendingActions
		}

	case "onexit":
		parent := p.top()
		if parent != nil && parent.state != nil {
			parent.state.OnExit = f.pendingActions
		}

	case "log", "raise", "assign", "if", "foreach", "send":
		p.attachAction(*f.action)

	case "elseif", "else":
		// merged into parent If at StartElement time; nothing to do.

	case "param", "content", "script", "invoke":
		// content text already folded into the owning <send> via Characters;
		// param already appended to its owning <send> at StartElement time.

	default:
		// unknown/skip frame
	}
	return nil
}

// attachState appends s to whatever container is on top of the stack:
// a parent state's Children, an <initial>'s implicit container, or the
// document's top-level States.
func (p *parser) attachState(s *model.State) {
	s.DocOrder = p.nextDocOrder()
	parent := p.top()
	if parent == nil {
		if p.doc != nil {
			p.doc.States = append(p.doc.States, s)
		}
		return
	}
	if parent.state != nil {
		s.ParentID = parent.state.ID
		s.Depth = parent.state.Depth + 1
		parent.state.Children = append(parent.state.Children, s)
		return
	}
	if p.doc != nil {
		p.doc.States = append(p.doc.States, s)
	}
}

// attachAction appends act to the action list of whatever frame owns it:
// onentry/onexit markers, an If block, a Foreach body, or a parent
// transition's action list.
func (p *parser) attachAction(act model.Action) {
	parent := p.top()
	if parent == nil {
		return
	}
	switch {
	case parent.isOnEntry, parent.isOnExit:
		parent.pendingActions = append(parent.pendingActions, act)
	case parent.trans != nil:
		parent.trans.Actions = append(parent.trans.Actions, act)
	case parent.action != nil && parent.action.Kind == model.ActionIf:
		if parent.ifBlock != nil {
			parent.ifBlock.Actions = append(parent.ifBlock.Actions, act)
		} else {
			// actions before the first elseif/else belong to the "if"
			// block, the zero-index block created with the <if> frame.
			if len(parent.action.If.Blocks) == 0 {
				parent.action.If.Blocks = append(parent.action.If.Blocks, model.ConditionalBlock{Kind: "if"})
			}
			b := &parent.action.If.Blocks[0]
			b.Actions = append(b.Actions, act)
		}
	case parent.action != nil && parent.action.Kind == model.ActionForeach:
		parent.action.Foreach.Actions = append(parent.action.Foreach.Actions, act)
	}
}

func (p *parser) push(f *frame) { p.stack = append(p.stack, f) }

func (p *parser) pop() *frame {
	if len(p.stack) == 0 {
		return nil
	}
	f := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	return f
}

func (p *parser) nextDocOrder() int {
	if p.doc == nil {
		return 0
	}
	return p.doc.NextDocOrder()
}

func stateTypeOf(tag string) model.StateType {
	switch tag {
	case "parallel":
		return model.Parallel
	case "final":
		return model.Final
	default:
		return model.Atomic // finalized to Compound on close if it gained children
	}
}

func finalizeStateType(s *model.State) {
	if s.Type == model.Parallel || s.Type == model.Final {
		return
	}
	if len(s.Children) > 0 {
		s.Type = model.Compound
	} else {
		s.Type = model.Atomic
	}
}

func transitionTypeOf(v string) model.TransitionType {
	if v == "internal" {
		return model.Internal
	}
	return model.External
}

func parseEventDescriptor(raw string) model.EventDescriptor {
	if raw == "*" {
		return model.EventDescriptor{Raw: "*", Wildcard: true}
	}
	return model.EventDescriptor{Raw: raw}
}

var autoIDCounter int

func ensureID(id, prefix string) string {
	if id != "" {
		return id
	}
	autoIDCounter++
	if prefix == "" {
		prefix = "__anon_state_"
	}
	return fmt.Sprintf("%s%d__", prefix, autoIDCounter)
}

func splitTokens(s string) []string {
	var out []string
	start := -1
	for i, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if start >= 0 {
				out = append(out, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, s[start:])
	}
	return out
}

func attrMap(attrs []xmlevents.Attr) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[a.Name] = a.Value
	}
	return m
}

const schemaNamespace = "http://agentflare.ai/agentml/schema"

func schemaRefs(el xmldom.Element) map[string]string {
	if el == nil {
		return nil
	}
	attrs := el.Attributes()
	out := make(map[string]string)
	for i := uint(0); i < attrs.Length(); i++ {
		a := attrs.Item(i)
		if a == nil {
			continue
		}
		if string(a.NamespaceURI()) != schemaNamespace {
			continue
		}
		prefix := string(a.LocalName())
		if prefix == "" {
			continue
		}
		out[prefix] = string(a.NodeValue())
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
