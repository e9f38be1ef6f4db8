package interpreter

import (
	"context"
	"sort"

	"github.com/agentflare-ai/scxmlgo/action"
	"github.com/agentflare-ai/scxmlgo/hierarchy"
	"github.com/agentflare-ai/scxmlgo/model"
)

// boundaryFor computes the LCCA used to derive both the exit and entry
// sets of t, applying the two adjustments spec.md §4.5 step 3 describes:
// an external self-transition (source == LCCA) exits up to the source's
// parent, and an internal transition whose targets all stay inside a
// compound source keeps the source itself as the boundary (so it is
// neither exited nor re-entered).
func (c *StateChart) boundaryFor(t *model.Transition) string {
	source, _ := c.doc.FindState(t.SourceID)
	if t.Type == model.Internal && source != nil && source.Type == model.Compound && c.allProperDescendants(source.ID, t.Targets) {
		return source.ID
	}
	lcca := c.lccaFor(t)
	if t.Type == model.External && lcca == t.SourceID {
		return c.parentOf(lcca)
	}
	return lcca
}

// lccaFor finds the innermost state that is (non-strictly, for the
// source) an ancestor of the transition's source and every target, by
// folding hierarchy.LCCA pairwise across the target list starting from
// the source itself.
func (c *StateChart) lccaFor(t *model.Transition) string {
	h := c.doc.Hierarchy
	lcca := t.SourceID
	for _, target := range t.Targets {
		lcca = pairwiseLCCA(h, lcca, target)
	}
	return lcca
}

// pairwiseLCCA is hierarchy.LCCA widened to allow either id to be an
// ancestor-or-self of the other, which hierarchy.LCCA's strict proper-
// ancestor walk does not: a transition's source may itself be the
// boundary when every target sits inside it.
func pairwiseLCCA(h *model.HierarchyCache, a, b string) string {
	if h.IsAncestorOrSelf(a, b) {
		return a
	}
	if h.IsAncestorOrSelf(b, a) {
		return b
	}
	return hierarchy.LCCA(h, a, b)
}

func (c *StateChart) allProperDescendants(ancestorID string, ids []string) bool {
	h := c.doc.Hierarchy
	for _, id := range ids {
		if !h.IsAncestor(ancestorID, id) {
			return false
		}
	}
	return len(ids) > 0
}

func (c *StateChart) parentOf(id string) string {
	path := c.doc.Hierarchy.AncestorPath[id]
	if len(path) == 0 {
		return ""
	}
	return path[0]
}

// exitSetFor returns the active state ids t would exit, per spec.md §4.5
// step 3. Targetless transitions contribute no exit set.
func (c *StateChart) exitSetFor(t *model.Transition) []string {
	if t.IsTargetless() {
		return nil
	}
	boundary := c.boundaryFor(t)
	return c.activeDescendantsOf(boundary)
}

// activeDescendantsOf returns every active configuration id that is a
// proper descendant of ancestorID ("" meaning the whole document, i.e.
// every active id qualifies).
func (c *StateChart) activeDescendantsOf(ancestorID string) []string {
	h := c.doc.Hierarchy
	var out []string
	for id := range c.configuration {
		if ancestorID == "" || h.IsAncestor(ancestorID, id) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// orderedExitSet returns the union of every selected transition's exit
// set, deepest (most specific) first, as spec.md §4.5 step 5 requires for
// onexit ordering.
func (c *StateChart) orderedExitSet(transitions []*model.Transition) []string {
	seen := make(map[string]bool)
	var all []string
	for _, t := range transitions {
		for _, id := range c.exitSetFor(t) {
			if !seen[id] {
				seen[id] = true
				all = append(all, id)
			}
		}
	}
	h := c.doc.Hierarchy
	sort.Slice(all, func(i, j int) bool {
		di := len(h.AncestorPath[all[i]])
		dj := len(h.AncestorPath[all[j]])
		if di != dj {
			return di > dj // deepest first
		}
		return h.DocOrderIndex[all[i]] > h.DocOrderIndex[all[j]] // reverse doc order among siblings
	})
	return all
}

// microstep runs one iteration of spec.md §4.5's numbered algorithm and
// reports the number of transitions fired, so the macrostep loop knows
// when to stop (zero means no progress) and telemetry can record it.
func (c *StateChart) microstep(eventName string) int {
	transitions := c.selectTransitions(eventName)
	if len(transitions) == 0 {
		return 0
	}

	exitSet := c.orderedExitSet(transitions)
	c.recordHistoryBeforeExit(exitSet)

	for _, id := range exitSet {
		if s, ok := c.doc.FindState(id); ok {
			action.ExecuteAll(s.OnExit, c)
		}
		delete(c.configuration, id)
	}

	sortByDocOrder(transitions, c.doc)
	for _, t := range transitions {
		action.ExecuteAll(t.Actions, c)
	}

	var entered []string
	for _, t := range transitions {
		if t.IsTargetless() {
			continue
		}
		boundary := c.boundaryFor(t)
		for _, targetID := range t.Targets {
			chain := hierarchy.EntrySet(c.doc.Hierarchy, boundary, targetID)
			for i, id := range chain {
				s, ok := c.doc.FindState(id)
				if !ok {
					continue
				}
				if i == len(chain)-1 {
					c.enterState(s, &entered)
				} else if !c.configuration[id] {
					c.configuration[id] = true
					entered = append(entered, id)
					action.ExecuteAll(s.OnEntry, c)
				}
			}
		}
	}

	return len(transitions)
}

// run drains both queues per spec.md §4.5: internal events take priority
// over external ones, and in their absence a microstep is attempted with
// no event (eventless transitions only). It returns once neither queue
// has a deliverable event and the last microstep made no progress. ctx
// carries the macrostep span opened by the caller (SendEvent); one span
// event is recorded per microstep (spec_full §4.8a).
func (c *StateChart) run(ctx context.Context) {
	steps := 0
	for steps < maxMicrostepsPerMacrostep {
		steps++

		var ev *Event
		switch {
		case len(c.internalQueue) > 0:
			e := c.internalQueue[0]
			c.internalQueue = c.internalQueue[1:]
			ev = &e
		case len(c.externalQueue) > 0:
			e := c.externalQueue[0]
			c.externalQueue = c.externalQueue[1:]
			ev = &e
		}

		c.currentEvent = ev
		eventName := ""
		if ev != nil {
			eventName = ev.Name
		}

		fired := c.microstep(eventName)
		c.tracer.RecordMicrostep(ctx, fired, len(c.configuration))

		// A round that neither dequeued anything nor fired an eventless
		// transition has reached a stable configuration: stop. Otherwise
		// the next round either drains the next queued event or attempts
		// another eventless microstep (ev == nil, eventName == "").
		if ev == nil && fired == 0 {
			return
		}

		if !c.running {
			return
		}
	}
	c.Log("warn", "microstep iteration cap exceeded; halting macrostep with current configuration", map[string]any{
		"action_type": "interpreter",
		"phase":       "macrostep",
	})
}
