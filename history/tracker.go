// Package history implements the HistoryTracker of spec.md §4.7: on state
// exit it records, for every history child of the state being exited, the
// leaf set that was active under it; on re-entry it returns that
// recording so the interpreter can restore it.
package history

import "sync"

// Tracker maps a history state id to its recorded leaf set. Shallow
// history records the direct children of the history state's parent that
// were on the path to an exited leaf; deep history records the exited
// leaves themselves (spec.md §4.7).
type Tracker struct {
	mu      sync.Mutex
	records map[string][]string
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{records: make(map[string][]string)}
}

// Record stores leafSet against historyStateID, replacing any prior
// recording. Called once per history child before the onexit actions of
// its parent run (spec.md §4.5 step 4).
func (t *Tracker) Record(historyStateID string, leafSet []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := make([]string, len(leafSet))
	copy(cp, leafSet)
	t.records[historyStateID] = cp
}

// Restore returns the recorded leaf set for historyStateID, and whether a
// recording exists. The interpreter falls back to the history state's
// default transition when ok is false.
func (t *Tracker) Restore(historyStateID string) (leafSet []string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[historyStateID]
	if !ok {
		return nil, false
	}
	cp := make([]string, len(rec))
	copy(cp, rec)
	return cp, true
}

// Clear removes any recording for historyStateID.
func (t *Tracker) Clear(historyStateID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.records, historyStateID)
}

// Clone returns a deep copy, used by Snapshot restoration and by the
// "send the same event to a clone" testable property (spec.md §8).
func (t *Tracker) Clone() *Tracker {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := New()
	for k, v := range t.records {
		cp := make([]string, len(v))
		copy(cp, v)
		out.records[k] = cp
	}
	return out
}
