package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventDescriptor_Matches(t *testing.T) {
	cases := []struct {
		name string
		desc EventDescriptor
		evt  string
		want bool
	}{
		{"wildcard matches anything", EventDescriptor{Wildcard: true}, "foo.bar", true},
		{"eventless matches only empty", EventDescriptor{}, "", true},
		{"eventless does not match named", EventDescriptor{}, "foo", false},
		{"exact match", EventDescriptor{Raw: "foo"}, "foo", true},
		{"prefix match", EventDescriptor{Raw: "error"}, "error.execution", true},
		{"prefix without dot boundary does not match", EventDescriptor{Raw: "err"}, "error.execution", false},
		{"unrelated does not match", EventDescriptor{Raw: "foo"}, "bar", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.desc.Matches(tc.evt))
		})
	}
}

func TestTransition_IsEventlessAndTargetless(t *testing.T) {
	t1 := &Transition{}
	assert.True(t, t1.IsEventless())
	assert.True(t, t1.IsTargetless())

	t2 := &Transition{Event: EventDescriptor{Raw: "go"}, Targets: []string{"s1"}}
	assert.False(t, t2.IsEventless())
	assert.False(t, t2.IsTargetless())
}

func TestState_IsLeafCandidate(t *testing.T) {
	assert.True(t, (&State{Type: Atomic}).IsLeafCandidate())
	assert.True(t, (&State{Type: Final}).IsLeafCandidate())
	assert.False(t, (&State{Type: Compound}).IsLeafCandidate())
	assert.False(t, (&State{Type: Parallel}).IsLeafCandidate())
	assert.False(t, (&State{Type: History}).IsLeafCandidate())
}

func TestDocument_FindState_FallsBackToTreeWalk(t *testing.T) {
	child := &State{ID: "child"}
	root := &State{ID: "root", Children: []*State{child}}
	doc := &Document{States: []*State{root}}

	s, ok := doc.FindState("child")
	assert.True(t, ok)
	assert.Same(t, child, s)

	_, ok = doc.FindState("missing")
	assert.False(t, ok)
}

func TestDocument_FindState_UsesIndexWhenBuilt(t *testing.T) {
	s1 := &State{ID: "s1"}
	doc := &Document{StatesByID: map[string]*State{"s1": s1}}
	s, ok := doc.FindState("s1")
	assert.True(t, ok)
	assert.Same(t, s1, s)
}

func TestDocument_NextDocOrder_Increments(t *testing.T) {
	doc := &Document{}
	assert.Equal(t, 1, doc.NextDocOrder())
	assert.Equal(t, 2, doc.NextDocOrder())
	assert.Equal(t, 3, doc.NextDocOrder())
}
