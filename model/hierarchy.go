package model

// HierarchyCache holds derived ancestor/descendant relationships computed
// once after parsing (by the hierarchy package) and consulted throughout
// validation and interpretation. It lives on Document itself, rather than
// in a separate package, so both producer and consumers share one type
// without an import cycle.
type HierarchyCache struct {
	// AncestorPath maps a state id to its chain of ancestor ids, nearest
	// first, ending at (but not including) the document root.
	AncestorPath map[string][]string

	// ParallelAncestors maps a state id to the ids of every <parallel>
	// ancestor enclosing it, nearest first.
	ParallelAncestors map[string][]string

	// DocOrderIndex maps a state id to its parse-order rank, used to order
	// the exit set among states at equal depth.
	DocOrderIndex map[string]int
}

// IsAncestor reports whether ancestorID is a proper ancestor of stateID.
func (h *HierarchyCache) IsAncestor(ancestorID, stateID string) bool {
	for _, id := range h.AncestorPath[stateID] {
		if id == ancestorID {
			return true
		}
	}
	return false
}

// IsAncestorOrSelf reports whether candidateID is stateID or a proper
// ancestor of it.
func (h *HierarchyCache) IsAncestorOrSelf(candidateID, stateID string) bool {
	if candidateID == stateID {
		return true
	}
	return h.IsAncestor(candidateID, stateID)
}

// IsDescendant reports whether stateID is a proper descendant of ancestorID.
func (h *HierarchyCache) IsDescendant(stateID, ancestorID string) bool {
	return h.IsAncestor(ancestorID, stateID)
}

// InDifferentRegions reports whether a and b are separated by a shared
// <parallel> ancestor, i.e. sit in different orthogonal regions of it.
func (h *HierarchyCache) InDifferentRegions(a, b string) bool {
	pa := h.ParallelAncestors[a]
	pb := h.ParallelAncestors[b]
	for _, p := range pa {
		for _, q := range pb {
			if p != q {
				continue
			}
			// Same enclosing parallel: different regions iff a's and b's
			// immediate child-of-p ancestors differ.
			childA := childOfIn(h.AncestorPath[a], a, p)
			childB := childOfIn(h.AncestorPath[b], b, p)
			if childA != childB {
				return true
			}
		}
	}
	return false
}

// childOfIn returns the id of the ancestor of stateID that is the direct
// child of parallelID, walking the (nearest-first) ancestor path of
// stateID. stateID itself counts as a candidate child.
func childOfIn(path []string, stateID, parallelID string) string {
	prev := stateID
	for _, id := range path {
		if id == parallelID {
			return prev
		}
		prev = id
	}
	return prev
}
