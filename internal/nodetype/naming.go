package nodetype

import (
	"strings"
	"unicode"

	"github.com/dusk-indust/schemagraph/internal/typeexpr"
)

// SnakeCase converts PascalCase or camelCase to snake_case. Acronym runs stay
// together: HTTPServer becomes http_server.
func SnakeCase(s string) string {
	runes := []rune(s)
	var sb strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					sb.WriteByte('_')
				}
			}
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// PascalCase converts snake_case or kebab-case to PascalCase.
func PascalCase(s string) string {
	var sb strings.Builder
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' || r == ' ' }) {
		runes := []rune(part)
		runes[0] = unicode.ToUpper(runes[0])
		sb.WriteString(string(runes))
	}
	return sb.String()
}

// Pluralize applies the English suffix rules used for collection names:
// consonant+y becomes ies, x/ch/sh take es, everything else takes s.
func Pluralize(s string) string {
	switch {
	case s == "":
		return s
	case strings.HasSuffix(s, "y") && len(s) > 1 && !strings.ContainsRune("aeiou", rune(s[len(s)-2])):
		return s[:len(s)-1] + "ies"
	case strings.HasSuffix(s, "x"), strings.HasSuffix(s, "ch"), strings.HasSuffix(s, "sh"):
		return s + "es"
	default:
		return s + "s"
	}
}

// CollectionName is the fallback document field for a model: the snake_case
// base name without a trailing Config, pluralized.
func CollectionName(model string) string {
	base := typeexpr.BaseName(model)
	if trimmed := strings.TrimSuffix(base, "Config"); trimmed != "" {
		base = trimmed
	}
	return Pluralize(SnakeCase(base))
}
