package expr

import "strconv"

// formatValue renders a value for string concatenation and log messages.
func formatValue(v any) string {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case string:
		return t
	case nil:
		return "null"
	case undefinedType:
		return "undefined"
	default:
		return "[object]"
	}
}

// FormatValue is the exported form used by the action executor when
// rendering a <log> expression's value.
func FormatValue(v any) string { return formatValue(v) }
