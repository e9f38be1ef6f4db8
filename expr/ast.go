package expr

// EvalContext is the runtime surface an expression evaluates against. The
// interpreter package implements this over a StateChart; tests implement it
// directly over a plain map.
type EvalContext interface {
	// GetVar resolves a top-level data-model variable. ok is false for an
	// unbound identifier (callers should fall back to Undefined).
	GetVar(name string) (any, bool)
	// SetVar stores a top-level data-model variable (used by Location
	// resolution to create the top-level binding on first assignment).
	SetVar(name string, val any)
	// ActiveLeaves returns the ids of the currently active leaf states.
	ActiveLeaves() []string
	// IsAncestorOrSelf reports whether candidate is stateID or an ancestor
	// of stateID in the state hierarchy. Used by In().
	IsAncestorOrSelf(candidate, stateID string) bool
	// EventData returns the current event's data payload, or Undefined if
	// there is no current event.
	EventData() any
}

// node is the internal AST interface; every expression node can evaluate
// itself against an EvalContext.
type node interface {
	eval(ctx EvalContext) (any, error)
}

type literalNode struct{ v any }

func (n literalNode) eval(ctx EvalContext) (any, error) { return n.v, nil }

type identNode struct{ name string }

func (n identNode) eval(ctx EvalContext) (any, error) {
	if n.name == "_event" {
		return map[string]any{"data": ctx.EventData()}, nil
	}
	if v, ok := ctx.GetVar(n.name); ok {
		return v, nil
	}
	return Undefined, nil
}

type memberNode struct {
	obj  node
	prop string
}

func (n memberNode) eval(ctx EvalContext) (any, error) {
	base, err := n.obj.eval(ctx)
	if err != nil {
		return nil, err
	}
	return lookupProperty(base, n.prop), nil
}

func lookupProperty(base any, prop string) any {
	switch m := base.(type) {
	case map[string]any:
		if v, ok := m[prop]; ok {
			return v
		}
		return Undefined
	default:
		return Undefined
	}
}

type indexNode struct {
	obj node
	key node
}

func (n indexNode) eval(ctx EvalContext) (any, error) {
	base, err := n.obj.eval(ctx)
	if err != nil {
		return nil, err
	}
	key, err := n.key.eval(ctx)
	if err != nil {
		return nil, err
	}
	ks, ok := key.(string)
	if !ok {
		return Undefined, nil
	}
	return lookupProperty(base, ks), nil
}

type unaryNode struct {
	op   tokenKind
	expr node
}

func (n unaryNode) eval(ctx EvalContext) (any, error) {
	v, err := n.expr.eval(ctx)
	if err != nil {
		return nil, err
	}
	switch n.op {
	case tokBang:
		return !Truthy(v), nil
	case tokMinus:
		f, ok := asFloat(v)
		if !ok {
			return nil, &evalError{"unary '-' on non-numeric value"}
		}
		return -f, nil
	}
	return nil, &evalError{"unknown unary operator"}
}

type binaryNode struct {
	op          tokenKind
	left, right node
}

type evalError struct{ msg string }

func (e *evalError) Error() string { return e.msg }

func (n binaryNode) eval(ctx EvalContext) (any, error) {
	switch n.op {
	case tokAnd:
		l, err := n.left.eval(ctx)
		if err != nil {
			return nil, err
		}
		if !Truthy(l) {
			return false, nil
		}
		r, err := n.right.eval(ctx)
		if err != nil {
			return nil, err
		}
		return Truthy(r), nil
	case tokOr:
		l, err := n.left.eval(ctx)
		if err != nil {
			return nil, err
		}
		if Truthy(l) {
			return true, nil
		}
		r, err := n.right.eval(ctx)
		if err != nil {
			return nil, err
		}
		return Truthy(r), nil
	}

	l, err := n.left.eval(ctx)
	if err != nil {
		return nil, err
	}
	r, err := n.right.eval(ctx)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case tokEq:
		return valuesEqual(l, r), nil
	case tokNeq:
		return !valuesEqual(l, r), nil
	case tokLt, tokLte, tokGt, tokGte:
		return compare(n.op, l, r)
	case tokPlus:
		if ls, ok := l.(string); ok {
			return ls + toDisplayString(r), nil
		}
		if rs, ok := r.(string); ok {
			return toDisplayString(l) + rs, nil
		}
		lf, lok := asFloat(l)
		rf, rok := asFloat(r)
		if !lok || !rok {
			return nil, &evalError{"'+' requires numeric or string operands"}
		}
		return lf + rf, nil
	case tokMinus, tokStar, tokSlash, tokPercent:
		lf, lok := asFloat(l)
		rf, rok := asFloat(r)
		if !lok || !rok {
			return nil, &evalError{"arithmetic on non-numeric value"}
		}
		switch n.op {
		case tokMinus:
			return lf - rf, nil
		case tokStar:
			return lf * rf, nil
		case tokSlash:
			if rf == 0 {
				return nil, &evalError{"division by zero"}
			}
			return lf / rf, nil
		case tokPercent:
			if rf == 0 {
				return nil, &evalError{"division by zero"}
			}
			li, ri := int64(lf), int64(rf)
			return float64(li % ri), nil
		}
	}
	return nil, &evalError{"unknown binary operator"}
}

func valuesEqual(l, r any) bool {
	if IsUndefined(l) || IsUndefined(r) {
		return false
	}
	if lf, lok := asFloat(l); lok {
		if rf, rok := asFloat(r); rok {
			return lf == rf
		}
	}
	return l == r
}

func compare(op tokenKind, l, r any) (any, error) {
	if IsUndefined(l) || IsUndefined(r) {
		return false, nil
	}
	if lf, lok := asFloat(l); lok {
		if rf, rok := asFloat(r); rok {
			return compareFloats(op, lf, rf), nil
		}
	}
	ls, lok := l.(string)
	rs, rok := r.(string)
	if lok && rok {
		return compareStrings(op, ls, rs), nil
	}
	return nil, &evalError{"incomparable operand types"}
}

func compareFloats(op tokenKind, l, r float64) bool {
	switch op {
	case tokLt:
		return l < r
	case tokLte:
		return l <= r
	case tokGt:
		return l > r
	case tokGte:
		return l >= r
	}
	return false
}

func compareStrings(op tokenKind, l, r string) bool {
	switch op {
	case tokLt:
		return l < r
	case tokLte:
		return l <= r
	case tokGt:
		return l > r
	case tokGte:
		return l >= r
	}
	return false
}

func toDisplayString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case undefinedType:
		return "undefined"
	case nil:
		return "null"
	default:
		return formatValue(v)
	}
}

type inCallNode struct {
	stateID string
}

func (n inCallNode) eval(ctx EvalContext) (any, error) {
	for _, leaf := range ctx.ActiveLeaves() {
		if ctx.IsAncestorOrSelf(n.stateID, leaf) {
			return true, nil
		}
	}
	return false, nil
}
