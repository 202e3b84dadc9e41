package typeexpr

import "strings"

// generic constructors in match priority order.
var (
	optionalNames = []string{"Optional"}
	unionNames    = []string{"Union"}
	listNames     = []string{"List", "list"}
	setNames      = []string{"Set", "set"}
	tupleNames    = []string{"Tuple", "tuple"}
	dictNames     = []string{"Dict", "dict"}
	wrapperNames  = []string{"Message", "message"}
)

// Parse turns a type annotation into a Type tree. It never fails: names it
// does not recognise become opaque Basic leaves, which keeps forward
// references to models declared later in the source legal.
func Parse(s string) *Type {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "typing.")
	if unq, ok := unquote(s); ok {
		s = strings.TrimSpace(unq)
	}

	if alts := splitTopLevel(s, '|'); len(alts) > 1 {
		return parsePipeUnion(alts)
	}

	if content, ok := genericArgs(s, optionalNames); ok {
		return Optional(Parse(content))
	}
	if content, ok := genericArgs(s, unionNames); ok {
		parts := splitTopLevel(content, ',')
		members := make([]*Type, len(parts))
		for i, p := range parts {
			members[i] = Parse(p)
		}
		return Union(members...)
	}
	if content, ok := genericArgs(s, listNames); ok {
		return List(Parse(content))
	}
	if content, ok := genericArgs(s, setNames); ok {
		return Set(Parse(content))
	}
	if content, ok := genericArgs(s, tupleNames); ok {
		parts := splitTopLevel(content, ',')
		t := &Type{Kind: KindTuple, Raw: strings.TrimSpace(content)}
		if len(parts) > 0 {
			t.Inner = Parse(parts[0])
		}
		return t
	}
	if content, ok := genericArgs(s, dictNames); ok {
		parts := splitTopLevel(content, ',')
		t := &Type{Kind: KindDict, Raw: strings.TrimSpace(content)}
		switch len(parts) {
		case 1:
			t.Inner = Parse(parts[0])
		case 2:
			t.Key = Parse(parts[0])
			t.Inner = Parse(parts[1])
		}
		return t
	}
	if content, ok := genericArgs(s, wrapperNames); ok {
		return &Type{Kind: KindWrapped, Name: MessageWrapper, Inner: Parse(content)}
	}
	if content, ok := genericArgs(s, []string{"Annotated"}); ok {
		if parts := splitTopLevel(content, ','); len(parts) > 0 {
			return Parse(parts[0])
		}
	}
	return Basic(s)
}

// parsePipeUnion handles the "A | B" spelling. A single non-None
// alternative next to None collapses to Optional.
func parsePipeUnion(alts []string) *Type {
	members := make([]*Type, 0, len(alts))
	hasNone := false
	for _, a := range alts {
		m := Parse(a)
		if m.IsNone() {
			hasNone = true
			continue
		}
		members = append(members, m)
	}
	var t *Type
	if len(members) == 1 {
		t = members[0]
	} else {
		t = Union(members...)
	}
	if hasNone {
		return Optional(t)
	}
	return t
}

// genericArgs returns the bracket content of s when s is Name[...] for one of
// names. The closing bracket is located by depth counting, so nested
// generics stay intact. An unbalanced expression yields everything after the
// opening bracket.
func genericArgs(s string, names []string) (string, bool) {
	for _, name := range names {
		if !strings.HasPrefix(s, name) {
			continue
		}
		rest := strings.TrimLeft(s[len(name):], " ")
		if !strings.HasPrefix(rest, "[") {
			continue
		}
		end := matchBracket(rest, 0)
		if end < 0 {
			return strings.TrimSpace(rest[1:]), true
		}
		return strings.TrimSpace(rest[1:end]), true
	}
	return "", false
}

// matchBracket returns the index of the bracket closing the one at open, or
// -1 when the expression is unbalanced.
func matchBracket(s string, open int) int {
	depth := 0
	var quote byte
	for i := open; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '[', '(', '{':
			depth++
		case ']', ')', '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTopLevel splits s on sep occurrences that sit outside any bracket or
// quoted string. Parts are trimmed; empty parts are dropped.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '[', '(', '{':
			depth++
		case ']', ')', '}':
			depth--
		case sep:
			if depth == 0 {
				if p := strings.TrimSpace(s[start:i]); p != "" {
					parts = append(parts, p)
				}
				start = i + 1
			}
		}
	}
	if p := strings.TrimSpace(s[start:]); p != "" {
		parts = append(parts, p)
	}
	return parts
}

// SplitTopLevel is the exported form of the depth-aware splitter, used by
// the schema scanner for argument lists and default expressions.
func SplitTopLevel(s string, sep byte) []string {
	return splitTopLevel(s, sep)
}

// MatchBracket is the exported form of the depth-counting bracket matcher.
func MatchBracket(s string, open int) int {
	return matchBracket(s, open)
}

func unquote(s string) (string, bool) {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' || first == '\'') && first == last {
			return s[1 : len(s)-1], true
		}
	}
	return s, false
}
