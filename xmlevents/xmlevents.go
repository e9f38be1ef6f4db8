// Package xmlevents replays an already-parsed xmldom.Document as a
// SAX-like stream of start/end/characters callbacks, keyed off the DOM's
// own element stack. This satisfies the stack-of-in-progress-elements
// contract the parser package builds on (spec.md §4.2) without
// re-lexing: go-xmldom has already done the byte-level XML work, and its
// Element.Position() carries through to every StartElement/EndElement
// call for diagnostics.
package xmlevents

import (
	"github.com/agentflare-ai/go-xmldom"

	"github.com/agentflare-ai/scxmlgo/scxmlerr"
)

// Attr is one attribute of a start element. Name is the attribute's
// local name; its namespace is not carried (read Elem for that).
type Attr struct {
	Name  string
	Value string
}

// StartElement describes an opened tag.
type StartElement struct {
	Local string // local (namespace-stripped) tag name, e.g. "state"
	Attrs []Attr
	Pos   scxmlerr.Position
	// Elem is the underlying DOM node, for handlers (like the validator's
	// XSD pre-pass) that need the full xmldom.Element rather than the
	// flattened view above.
	Elem xmldom.Element
}

// EndElement describes a closed tag.
type EndElement struct {
	Local string
	Pos   scxmlerr.Position
}

// Characters carries text content found directly inside an element
// (executable-content bodies such as <script> source or inline <content>).
type Characters struct {
	Text string
	Pos  scxmlerr.Position
}

// Handler receives the replayed event stream. Implementations should not
// retain Elem beyond the call that provides it.
type Handler interface {
	StartElement(StartElement) error
	EndElement(EndElement) error
	Characters(Characters) error
}

// Walk replays doc's element tree as a start/end/characters stream, depth
// first, in document order. It stops and returns the first handler error.
func Walk(doc xmldom.Document, h Handler) error {
	root := doc.DocumentElement()
	if root == nil {
		return nil
	}
	return walkElement(root, h)
}

func walkElement(el xmldom.Element, h Handler) error {
	pos := position(el)
	start := StartElement{
		Local: localName(el),
		Attrs: attrs(el),
		Pos:   pos,
		Elem:  el,
	}
	if err := h.StartElement(start); err != nil {
		return err
	}

	children := el.Children()
	hasElementChild := false
	for i := uint(0); i < children.Length(); i++ {
		child := children.Item(i)
		if child == nil {
			continue
		}
		hasElementChild = true
		if err := walkElement(child, h); err != nil {
			return err
		}
	}

	if !hasElementChild {
		if text := string(el.TextContent()); text != "" {
			if err := h.Characters(Characters{Text: text, Pos: pos}); err != nil {
				return err
			}
		}
	}

	return h.EndElement(EndElement{Local: localName(el), Pos: pos})
}

func localName(el xmldom.Element) string {
	name := string(el.LocalName())
	if name != "" {
		return name
	}
	return string(el.TagName())
}

func attrs(el xmldom.Element) []Attr {
	attrNodes := el.Attributes()
	out := make([]Attr, 0, attrNodes.Length())
	for i := uint(0); i < attrNodes.Length(); i++ {
		a := attrNodes.Item(i)
		if a == nil {
			continue
		}
		out = append(out, Attr{Name: string(a.LocalName()), Value: string(a.NodeValue())})
	}
	return out
}

func position(el xmldom.Element) scxmlerr.Position {
	line, col, off := el.Position()
	return scxmlerr.Position{Line: line, Column: col, Offset: off}
}
