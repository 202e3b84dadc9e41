package graph

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dusk-indust/schemagraph/internal/nodetype"
)

var (
	intPrefixRe   = regexp.MustCompile(`^[+-]?\d+`)
	floatPrefixRe = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`)
)

// Coerce converts a stored native value to its slot kind. The second result
// is false when the value is empty on an optional slot and must be omitted.
func Coerce(kind nodetype.Kind, v any, optional bool) (any, bool) {
	if optional && isEmpty(v) {
		return nil, false
	}
	if v == nil {
		v = kind.Default()
	}
	switch kind {
	case nodetype.KindInt:
		return toInt(v), true
	case nodetype.KindFloat:
		return toFloat(v), true
	case nodetype.KindBool:
		switch b := v.(type) {
		case bool:
			return b, true
		case string:
			return b == "true", true
		}
		return false, true
	case nodetype.KindDict:
		return parseJSON(v, func() any { return map[string]any{} }, func(x any) bool {
			_, ok := x.(map[string]any)
			return ok
		}), true
	case nodetype.KindList:
		return parseJSON(v, func() any { return []any{} }, func(x any) bool {
			_, ok := x.([]any)
			return ok
		}), true
	default:
		return copyValue(v), true
	}
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// toInt parses the leading integer of text values; anything unparseable is 0.
func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case bool:
		if n {
			return 1
		}
		return 0
	case string:
		m := intPrefixRe.FindString(strings.TrimSpace(n))
		i, err := strconv.Atoi(m)
		if err != nil {
			return 0
		}
		return i
	default:
		return toInt(fmt.Sprint(v))
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		m := floatPrefixRe.FindString(strings.TrimSpace(n))
		f, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return 0.0
		}
		return f
	default:
		return 0.0
	}
}

// parseJSON decodes text holding a JSON collection, falling back to empty
// when the text does not decode to the wanted shape. Decoded values pass
// through as copies.
func parseJSON(v any, empty func() any, want func(any) bool) any {
	if want(v) {
		return copyValue(v)
	}
	s, ok := v.(string)
	if !ok {
		return empty()
	}
	var out any
	if err := json.Unmarshal([]byte(s), &out); err != nil || !want(out) {
		return empty()
	}
	return out
}
