package interpreter

import (
	"sort"

	"github.com/agentflare-ai/scxmlgo/action"
	"github.com/agentflare-ai/scxmlgo/model"
)

// enterState recursively enters s per spec.md §4.5 "State entry", adding
// every newly-active state id to entered (in entry order: this state
// before its descendants) and running onentry actions immediately so
// raised events land on the internal queue in the right order.
func (c *StateChart) enterState(s *model.State, entered *[]string) {
	c.configuration[s.ID] = true
	*entered = append(*entered, s.ID)
	action.ExecuteAll(s.OnEntry, c)

	switch s.Type {
	case model.Atomic, model.Final:
		c.checkFinalCompletion(s)
		return

	case model.Compound:
		target := c.resolveInitialChild(s)
		if target != nil {
			action.ExecuteAll(s.InitialActions, c)
			c.enterState(target, entered)
		}

	case model.Parallel:
		for _, child := range s.Children {
			c.enterState(child, entered)
		}

	case model.History:
		// A history pseudostate never stays active itself; only the
		// states it resolves to join the configuration.
		delete(c.configuration, s.ID)
		c.enterHistory(s, entered)
	}
}

// resolveInitialChild picks the default child to enter for a compound
// state: its InitialTargets (from the initial attribute or <initial>
// element), or the first non-history, non-initial child in document order.
func (c *StateChart) resolveInitialChild(s *model.State) *model.State {
	if len(s.InitialTargets) > 0 {
		if target, ok := c.doc.FindState(s.InitialTargets[0]); ok {
			return target
		}
	}
	for _, child := range s.Children {
		if child.Type == model.History || child.Type == model.InitialPseudo {
			continue
		}
		return child
	}
	return nil
}

// enterHistory resolves a history pseudostate per spec.md §4.5/§4.7: a
// prior recording re-enters each recorded leaf; otherwise the history
// state's sole default transition fires.
func (c *StateChart) enterHistory(s *model.State, entered *[]string) {
	if leaves, ok := c.history.Restore(s.ID); ok {
		for _, leafID := range leaves {
			if target, ok := c.doc.FindState(leafID); ok {
				c.enterState(target, entered)
			}
		}
		return
	}
	if len(s.Transitions) == 0 {
		return
	}
	def := s.Transitions[0]
	action.ExecuteAll(def.Actions, c)
	for _, targetID := range def.Targets {
		if target, ok := c.doc.FindState(targetID); ok {
			c.enterState(target, entered)
		}
	}
}

// checkFinalCompletion implements spec.md §4.5 step 9: entering a final
// child raises done.state.<parent>; a parallel whose every region has
// reached a final leaf raises done.state.<parallel>; a top-level final
// stops the chart.
func (c *StateChart) checkFinalCompletion(s *model.State) {
	if s.Type == model.Final {
		if s.ParentID == "" {
			c.running = false
			return
		}
		parent, ok := c.doc.FindState(s.ParentID)
		if ok {
			c.EnqueueInternal("done.state."+parent.ID, map[string]any{})
			if parent.Type == model.Parallel {
				c.checkParallelCompletion(parent)
			} else if grand, ok := c.doc.FindState(parent.ParentID); ok && grand.Type == model.Parallel {
				c.checkParallelCompletion(grand)
			}
		}
		return
	}
	if s.Type == model.Parallel {
		c.checkParallelCompletion(s)
	}
}

func (c *StateChart) checkParallelCompletion(p *model.State) {
	for _, region := range p.Children {
		if !c.regionReachedFinal(region) {
			return
		}
	}
	c.EnqueueInternal("done.state."+p.ID, map[string]any{})
}

// regionReachedFinal reports whether region's active descendant leaf is a
// final state.
func (c *StateChart) regionReachedFinal(region *model.State) bool {
	if region.IsLeafCandidate() {
		return region.Type == model.Final && c.configuration[region.ID]
	}
	for _, child := range region.Children {
		if c.configuration[child.ID] && c.regionReachedFinal(child) {
			return true
		}
	}
	return false
}

// recordHistoryBeforeExit implements spec.md §4.5 step 4: before running
// any onexit actions, record into the HistoryTracker the leaf set being
// exited under every history child of a state about to be exited.
func (c *StateChart) recordHistoryBeforeExit(exitSet []string) {
	exiting := make(map[string]bool, len(exitSet))
	for _, id := range exitSet {
		exiting[id] = true
	}
	for _, id := range exitSet {
		s, ok := c.doc.FindState(id)
		if !ok {
			continue
		}
		for _, child := range s.Children {
			if child.Type != model.History {
				continue
			}
			var leaves []string
			if child.HistoryType == model.Deep {
				leaves = c.activeLeavesUnder(s)
			} else {
				leaves = c.activeDirectChildrenUnder(s)
			}
			c.history.Record(child.ID, leaves)
		}
	}
}

// activeLeavesUnder returns the active leaf descendants of s, for deep
// history recording.
func (c *StateChart) activeLeavesUnder(s *model.State) []string {
	var out []string
	var walk func(*model.State)
	walk = func(n *model.State) {
		if !c.configuration[n.ID] {
			return
		}
		if n.IsLeafCandidate() {
			out = append(out, n.ID)
			return
		}
		for _, ch := range n.Children {
			walk(ch)
		}
	}
	for _, ch := range s.Children {
		walk(ch)
	}
	sort.Strings(out)
	return out
}

// activeDirectChildrenUnder returns the direct children of s that are on
// the active path, for shallow history recording.
func (c *StateChart) activeDirectChildrenUnder(s *model.State) []string {
	var out []string
	for _, ch := range s.Children {
		if c.configuration[ch.ID] {
			out = append(out, ch.ID)
		}
	}
	sort.Strings(out)
	return out
}
