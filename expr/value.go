// Package expr implements the restricted expression language embedded in
// SCXML attribute values (spec.md §4.1): literals, member/bracket access,
// arithmetic, comparisons, boolean logic, and the In() predicate.
//
// Values are represented with plain Go types (nil, bool, float64, string,
// []any, map[string]any) plus the Undefined sentinel, matching the
// dynamically-typed, schema-less data model SCXML expects.
package expr

// undefinedType is the sentinel for "no such identifier/property".
// Property access on Undefined yields Undefined; it never panics and
// never raises — only arithmetic operators can turn it into an error
// (a comparison involving Undefined is simply false), and conditions
// never even do that (see Compiled.EvalCondition).
type undefinedType struct{}

func (undefinedType) String() string { return "undefined" }

// Undefined is the unique sentinel value for unresolved identifiers and
// properties.
var Undefined = undefinedType{}

// IsUndefined reports whether v is the Undefined sentinel.
func IsUndefined(v any) bool {
	_, ok := v.(undefinedType)
	return ok
}

// Truthy implements the condition-coercion rules of spec.md §4.1:
// true, a non-zero number, a non-empty string, a non-empty list or map,
// and any other value type -> true; false, zero, the empty string, an
// empty list or map, nil and Undefined -> false.
func Truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case string:
		return t != ""
	case nil:
		return false
	case undefinedType:
		return false
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

// asFloat coerces numeric-looking values for arithmetic; ok is false for
// anything that can't be treated as a number.
func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
