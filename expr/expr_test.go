package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCtx struct {
	vars   map[string]any
	leaves []string
	ancestorOf map[string][]string
	event  any
}

func (f *fakeCtx) GetVar(name string) (any, bool) { v, ok := f.vars[name]; return v, ok }
func (f *fakeCtx) SetVar(name string, val any)    { f.vars[name] = val }
func (f *fakeCtx) ActiveLeaves() []string         { return f.leaves }
func (f *fakeCtx) IsAncestorOrSelf(candidate, stateID string) bool {
	if candidate == stateID {
		return true
	}
	for _, id := range f.ancestorOf[stateID] {
		if id == candidate {
			return true
		}
	}
	return false
}
func (f *fakeCtx) EventData() any {
	if f.event == nil {
		return Undefined
	}
	return f.event
}

func newCtx() *fakeCtx {
	return &fakeCtx{vars: map[string]any{}, ancestorOf: map[string][]string{}}
}

func TestCompileEval_Arithmetic(t *testing.T) {
	cases := []struct {
		src  string
		want any
	}{
		{"1 + 2", float64(3)},
		{"2 * (3 + 4)", float64(14)},
		{"10 % 3", float64(1)},
		{"'a' + 'b'", "ab"},
		{"'x' + 1", "x1"},
		{"1 == 1", true},
		{"1 != 2", true},
		{"1 < 2 && 2 < 3", true},
		{"false || true", true},
		{"!false", true},
	}
	ctx := newCtx()
	for _, tc := range cases {
		c, err := Compile(tc.src)
		require.NoError(t, err, tc.src)
		v, err := c.Eval(ctx)
		require.NoError(t, err, tc.src)
		assert.Equal(t, tc.want, v, tc.src)
	}
}

func TestCompileEval_UndefinedNeverThrows(t *testing.T) {
	ctx := newCtx()
	c, err := Compile("missing.prop.chain")
	require.NoError(t, err)
	v, err := c.Eval(ctx)
	require.NoError(t, err)
	assert.True(t, IsUndefined(v))
}

func TestEvalCondition_NeverThrows(t *testing.T) {
	ctx := newCtx()
	c, err := Compile("1 / 0")
	require.NoError(t, err)
	assert.False(t, c.EvalCondition(ctx), "a condition that errors coerces to false, never panics")
}

func TestIn_Predicate(t *testing.T) {
	ctx := newCtx()
	ctx.leaves = []string{"leaf1"}
	ctx.ancestorOf["leaf1"] = []string{"parent", "root"}

	c, err := Compile("In('parent')")
	require.NoError(t, err)
	v, err := c.Eval(ctx)
	require.NoError(t, err)
	assert.Equal(t, true, v)

	c2, err := Compile("In('other')")
	require.NoError(t, err)
	v2, err := c2.Eval(ctx)
	require.NoError(t, err)
	assert.Equal(t, false, v2)
}

func TestEventData_Access(t *testing.T) {
	ctx := newCtx()
	ctx.event = map[string]any{"foo": "bar"}
	c, err := Compile("_event.data.foo")
	require.NoError(t, err)
	v, err := c.Eval(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bar", v)
}

func TestTruthy(t *testing.T) {
	assert.True(t, Truthy(true))
	assert.True(t, Truthy(float64(1)))
	assert.True(t, Truthy("x"))
	assert.False(t, Truthy(""))
	assert.False(t, Truthy(float64(0)))
	assert.False(t, Truthy(nil))
	assert.False(t, Truthy(Undefined))
}

func TestLocation_AssignAndReadBack(t *testing.T) {
	ctx := newCtx()
	ctx.vars["counter"] = float64(0)

	loc, err := CompileLocation("counter")
	require.NoError(t, err)
	require.NoError(t, Assign(loc, float64(5), ctx))
	assert.Equal(t, float64(5), ctx.vars["counter"])
}

func TestLocation_AssignMissingIntermediateFails(t *testing.T) {
	ctx := newCtx()
	loc, err := CompileLocation("obj.nested.field")
	require.NoError(t, err)
	err = Assign(loc, "x", ctx)
	assert.Error(t, err, "assigning through an unbound intermediate container must fail, not silently create one")
}

func TestEvaluateAndAssign(t *testing.T) {
	ctx := newCtx()
	ctx.vars["x"] = float64(1)
	loc, err := CompileLocation("x")
	require.NoError(t, err)
	rhs, err := Compile("x + 41")
	require.NoError(t, err)
	require.NoError(t, EvaluateAndAssign(loc, rhs, ctx))
	assert.Equal(t, float64(42), ctx.vars["x"])
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "undefined", FormatValue(Undefined))
	assert.Equal(t, "hello", FormatValue("hello"))
}
