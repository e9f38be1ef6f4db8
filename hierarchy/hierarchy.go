// Package hierarchy builds the derived ancestor/descendant relationships
// the interpreter and validator need once a document's state tree is
// final: ancestor paths, parallel-region membership, and document-order
// ranks. The algorithms mirror a dot-path LCCA/ancestor walk, adapted from
// path strings to an id-indexed tree since SCXML state ids need not be
// hierarchical strings.
package hierarchy

import "github.com/agentflare-ai/scxmlgo/model"

// Build walks doc's state tree once and returns a populated HierarchyCache.
// Called by the validator after StatesByID has been constructed.
func Build(doc *model.Document) *model.HierarchyCache {
	h := &model.HierarchyCache{
		AncestorPath:      make(map[string][]string),
		ParallelAncestors: make(map[string][]string),
		DocOrderIndex:     make(map[string]int),
	}

	var walk func(s *model.State, ancestors []string, parallels []string)
	walk = func(s *model.State, ancestors, parallels []string) {
		h.AncestorPath[s.ID] = ancestors
		h.ParallelAncestors[s.ID] = parallels
		h.DocOrderIndex[s.ID] = s.DocOrder

		childAncestors := append([]string{s.ID}, ancestors...)
		childParallels := parallels
		if s.Type == model.Parallel {
			childParallels = append([]string{s.ID}, parallels...)
		}
		for _, c := range s.Children {
			walk(c, childAncestors, childParallels)
		}
	}
	for _, s := range doc.States {
		walk(s, nil, nil)
	}
	return h
}

// LCCA returns the id of the least common compound ancestor of a and b:
// the innermost state that is a proper ancestor of both (or "" if they
// share no ancestor, i.e. one of them is a root state).
func LCCA(h *model.HierarchyCache, a, b string) string {
	pathA := h.AncestorPath[a]
	setB := make(map[string]bool, len(h.AncestorPath[b]))
	for _, id := range h.AncestorPath[b] {
		setB[id] = true
	}
	for _, id := range pathA {
		if setB[id] {
			return id
		}
	}
	return ""
}

// ExitSet returns the ids of the states to exit when leaving sourceID up
// to (but not including) lccaID, ordered innermost first.
func ExitSet(h *model.HierarchyCache, sourceID, lccaID string) []string {
	out := []string{sourceID}
	for _, id := range h.AncestorPath[sourceID] {
		if id == lccaID {
			return out
		}
		out = append(out, id)
	}
	return out
}

// EntrySet returns the ids of the states to enter to reach targetID from
// lccaID, ordered outermost first (reverse of the ancestor walk).
func EntrySet(h *model.HierarchyCache, lccaID, targetID string) []string {
	var chain []string
	for cur := targetID; cur != lccaID && cur != ""; cur = parentOf(h, cur) {
		chain = append(chain, cur)
	}
	out := make([]string, len(chain))
	for i, id := range chain {
		out[len(chain)-1-i] = id
	}
	return out
}

func parentOf(h *model.HierarchyCache, id string) string {
	path := h.AncestorPath[id]
	if len(path) == 0 {
		return ""
	}
	return path[0]
}
