package utils

import (
	"fmt"
	"strconv"
)

// ToString converts a dynamically typed value (as produced by the generic
// XML decoder) to a string. Maps carrying a "#text" node yield the text,
// slices yield their first convertible element, nil yields "".
func ToString(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case map[string]any:
		if text, ok := v["#text"]; ok {
			return ToString(text)
		}
		return ""
	case []any:
		if len(v) > 0 {
			return ToString(v[0])
		}
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ToInt converts a dynamically typed value to an int, returning 0 when the
// value carries no usable number.
func ToInt(val any) int {
	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		i, _ := strconv.Atoi(v)
		return i
	default:
		s := ToString(val)
		i, _ := strconv.Atoi(s)
		return i
	}
}
