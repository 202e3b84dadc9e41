package typeexpr

import "strings"

// AnyName is the wildcard type accepted and produced by every slot.
const AnyName = "Any"

// synonymGroups lists primitive spellings treated as the same type in both
// directions.
var synonymGroups = [][]string{
	{"int", "Index", "integer"},
	{"str", "string"},
}

var synonymIndex = func() map[string]int {
	m := make(map[string]int)
	for i, g := range synonymGroups {
		for _, name := range g {
			m[name] = i
		}
	}
	return m
}()

// Compatible reports whether a value of type producer may feed a slot of
// type consumer. The relation is deliberately asymmetric: Optional, Union and
// "|" alternatives are only unwrapped on the consumer side, while primitive
// synonyms and dotted Namespace.Model names match from either side.
func Compatible(producer, consumer string) bool {
	return compatible(strings.TrimSpace(producer), strings.TrimSpace(consumer))
}

func compatible(p, c string) bool {
	if p == c {
		return true
	}
	if p == AnyName || c == AnyName {
		return true
	}

	if inner, ok := genericArgs(c, optionalNames); ok {
		return compatible(p, inner)
	}
	if content, ok := genericArgs(c, unionNames); ok {
		for _, m := range splitTopLevel(content, ',') {
			if compatible(p, m) {
				return true
			}
		}
		return false
	}
	if alts := splitTopLevel(c, '|'); len(alts) > 1 {
		for _, a := range alts {
			if compatible(p, a) {
				return true
			}
		}
		return false
	}

	if base, ok := dottedBase(p); ok {
		if base == c || compatible(base, c) {
			return true
		}
	}
	if base, ok := dottedBase(c); ok {
		if p == base || compatible(p, base) {
			return true
		}
	}

	gp, okp := synonymIndex[p]
	gc, okc := synonymIndex[c]
	return okp && okc && gp == gc
}

// dottedBase returns Model for a Namespace.Model name.
func dottedBase(s string) (string, bool) {
	if strings.ContainsAny(s, "[]|, ") {
		return "", false
	}
	i := strings.LastIndexByte(s, '.')
	if i <= 0 || i == len(s)-1 {
		return "", false
	}
	return s[i+1:], true
}

// BaseName strips any Namespace. prefix from a model name.
func BaseName(s string) string {
	if base, ok := dottedBase(s); ok {
		return base
	}
	return s
}
