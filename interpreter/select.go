package interpreter

import "github.com/agentflare-ai/scxmlgo/model"

// selectTransitions implements spec.md §4.5 microstep step 1+2: for each
// active leaf, walk its ancestor chain bottom-up and take the first
// transition whose event descriptor and condition match; then resolve
// conflicts between the transitions picked by different leaves into the
// optimal enabled transition set.
func (c *StateChart) selectTransitions(eventName string) []*model.Transition {
	seen := make(map[*model.Transition]bool)
	var candidates []*model.Transition

	for _, leafID := range c.ActiveLeaves() {
		t := c.firstMatchAlongChain(leafID, eventName)
		if t == nil || seen[t] {
			continue
		}
		seen[t] = true
		candidates = append(candidates, t)
	}

	return c.resolveConflicts(candidates)
}

func (c *StateChart) firstMatchAlongChain(leafID, eventName string) *model.Transition {
	chain := append([]string{leafID}, c.doc.Hierarchy.AncestorPath[leafID]...)
	for _, stateID := range chain {
		s, ok := c.doc.FindState(stateID)
		if !ok {
			continue
		}
		for _, t := range s.Transitions {
			if !t.Event.Matches(eventName) {
				continue
			}
			if t.Cond != "" {
				if !t.CompiledCond.Valid() || !t.CompiledCond.EvalCondition(c) {
					continue
				}
			}
			return t
		}
	}
	return nil
}

// resolveConflicts keeps, in document order, each candidate whose exit set
// does not intersect a higher-priority kept transition's exit set. A
// descendant source beats an ancestor source; otherwise earlier document
// order wins (spec.md §4.5 step 2).
func (c *StateChart) resolveConflicts(candidates []*model.Transition) []*model.Transition {
	sorted := append([]*model.Transition(nil), candidates...)
	sortByDocOrder(sorted, c.doc)

	type kept struct {
		t       *model.Transition
		exitSet map[string]bool
	}
	var acc []kept

	for _, t := range sorted {
		exitSet := toSet(c.exitSetFor(t))
		conflictIdx := -1
		for i, k := range acc {
			if intersects(exitSet, k.exitSet) {
				conflictIdx = i
				break
			}
		}
		if conflictIdx == -1 {
			acc = append(acc, kept{t: t, exitSet: exitSet})
			continue
		}
		winner := c.higherPriority(t, acc[conflictIdx].t)
		if winner == t {
			acc[conflictIdx] = kept{t: t, exitSet: exitSet}
		}
		// else: candidate loses, acc unchanged.
	}

	out := make([]*model.Transition, len(acc))
	for i, k := range acc {
		out[i] = k.t
	}
	sortByDocOrder(out, c.doc)
	return out
}

// higherPriority returns whichever of a, b should win a conflict: the one
// whose source is a descendant of the other's wins; otherwise the earlier
// in document order.
func (c *StateChart) higherPriority(a, b *model.Transition) *model.Transition {
	h := c.doc.Hierarchy
	if h.IsDescendant(a.SourceID, b.SourceID) {
		return a
	}
	if h.IsDescendant(b.SourceID, a.SourceID) {
		return b
	}
	if a.DocOrder <= b.DocOrder {
		return a
	}
	return b
}

func sortByDocOrder(ts []*model.Transition, doc *model.Document) {
	// Insertion sort: transition counts per macrostep are small and this
	// keeps the comparison local to DocOrder, already monotonic from the
	// parser.
	for i := 1; i < len(ts); i++ {
		for j := i; j > 0 && ts[j].DocOrder < ts[j-1].DocOrder; j-- {
			ts[j], ts[j-1] = ts[j-1], ts[j]
		}
	}
}

func toSet(ids []string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

func intersects(a, b map[string]bool) bool {
	small, big := a, b
	if len(b) < len(a) {
		small, big = b, a
	}
	for id := range small {
		if big[id] {
			return true
		}
	}
	return false
}
