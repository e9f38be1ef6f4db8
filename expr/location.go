package expr

import "fmt"

// Location is a compiled assignment target: an ordered key path. The first
// segment is the top-level data-model variable; subsequent segments are
// map keys into nested objects (spec.md §4.1: "Nested intermediate
// creation is not implicit").
type Location struct {
	path []string
	src  string
}

func (l Location) Valid() bool { return len(l.path) > 0 }
func (l Location) Source() string { return l.src }

// CompileLocation parses a location expression (identifier with optional
// .member / ['key'] suffixes) into an ordered key path.
func CompileLocation(src string) (Location, error) {
	lx := newLexer(src)
	toks, err := lx.tokens()
	if err != nil {
		return Location{}, &CompileError{Message: err.Error(), Source: src}
	}
	p := &parser{toks: toks, src: src}
	n, err := p.parsePostfix()
	if err != nil {
		return Location{}, err
	}
	if p.cur().kind != tokEOF {
		return Location{}, &CompileError{Message: "unexpected trailing token in location", Source: src, Offset: p.cur().pos}
	}
	path, err := flattenLocation(n)
	if err != nil {
		return Location{}, &CompileError{Message: err.Error(), Source: src}
	}
	return Location{path: path, src: src}, nil
}

func flattenLocation(n node) ([]string, error) {
	switch t := n.(type) {
	case identNode:
		return []string{t.name}, nil
	case memberNode:
		base, err := flattenLocation(t.obj)
		if err != nil {
			return nil, err
		}
		return append(base, t.prop), nil
	case indexNode:
		lit, ok := t.key.(literalNode)
		key, isStr := lit.v.(string)
		if !ok || !isStr {
			return nil, fmt.Errorf("bracket index in a location must be a string literal")
		}
		base, err := flattenLocation(t.obj)
		if err != nil {
			return nil, err
		}
		return append(base, key), nil
	default:
		return nil, fmt.Errorf("not a valid assignment location")
	}
}

// AssignError is returned by Assign when the target's parent container
// does not already exist, per spec.md §4.1 (assignment never implicitly
// creates intermediate maps).
type AssignError struct {
	Location string
	Reason   string
}

func (e *AssignError) Error() string { return fmt.Sprintf("cannot assign to %q: %s", e.Location, e.Reason) }

// Assign writes val at loc against ctx. The top-level variable is created
// if absent; any deeper segment requires its parent map to already exist.
func Assign(loc Location, val any, ctx EvalContext) error {
	if !loc.Valid() {
		return &AssignError{Location: loc.src, Reason: "invalid location expression"}
	}
	if len(loc.path) == 1 {
		ctx.SetVar(loc.path[0], val)
		return nil
	}

	root, ok := ctx.GetVar(loc.path[0])
	if !ok {
		return &AssignError{Location: loc.src, Reason: fmt.Sprintf("top-level variable %q does not exist", loc.path[0])}
	}
	container, ok := root.(map[string]any)
	if !ok {
		return &AssignError{Location: loc.src, Reason: fmt.Sprintf("%q is not an object", loc.path[0])}
	}

	cur := container
	for i := 1; i < len(loc.path)-1; i++ {
		next, ok := cur[loc.path[i]]
		if !ok {
			return &AssignError{Location: loc.src, Reason: fmt.Sprintf("parent container %q does not exist", loc.path[i])}
		}
		nextMap, ok := next.(map[string]any)
		if !ok {
			return &AssignError{Location: loc.src, Reason: fmt.Sprintf("%q is not an object", loc.path[i])}
		}
		cur = nextMap
	}
	cur[loc.path[len(loc.path)-1]] = val
	ctx.SetVar(loc.path[0], container)
	return nil
}

// EvaluateAndAssign evaluates the already-compiled expr then Assigns the
// result into loc, matching spec.md §4.1's evaluate_and_assign contract.
func EvaluateAndAssign(loc Location, expr Compiled, ctx EvalContext) error {
	v, err := expr.Eval(ctx)
	if err != nil {
		return &AssignError{Location: loc.src, Reason: err.Error()}
	}
	return Assign(loc, v, ctx)
}
