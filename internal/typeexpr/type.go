// Package typeexpr parses bracketed generic type annotations into Type trees
// and decides whether a producer type may feed a consumer type.
package typeexpr

import "strings"

// Kind tags the variant held by a Type.
type Kind int

const (
	KindBasic Kind = iota
	KindOptional
	KindList
	KindSet
	KindTuple
	KindDict
	KindUnion
	KindWrapped
)

// String returns the generic constructor name for k.
func (k Kind) String() string {
	switch k {
	case KindBasic:
		return "Basic"
	case KindOptional:
		return "Optional"
	case KindList:
		return "List"
	case KindSet:
		return "Set"
	case KindTuple:
		return "Tuple"
	case KindDict:
		return "Dict"
	case KindUnion:
		return "Union"
	case KindWrapped:
		return "Wrapped"
	default:
		return "Unknown"
	}
}

// MessageWrapper is the wrapper kind recognised for Message[...] generics.
const MessageWrapper = "message"

// Type is an immutable node of a parsed type expression. Only the fields
// relevant to Kind are populated:
//
//	Basic    Name
//	Optional Inner
//	List     Inner
//	Set      Inner
//	Tuple    Inner (first element), Raw (all elements)
//	Dict     Raw (bracket content), Key/Inner (split when two elements)
//	Union    Members
//	Wrapped  Name (wrapper kind), Inner
//
// Types are compared with Equal, never by pointer.
type Type struct {
	Kind    Kind
	Name    string
	Inner   *Type
	Key     *Type
	Raw     string
	Members []*Type
}

// Basic returns a leaf type.
func Basic(name string) *Type { return &Type{Kind: KindBasic, Name: name} }

// Optional wraps inner as Optional[inner].
func Optional(inner *Type) *Type { return &Type{Kind: KindOptional, Inner: inner} }

// List wraps inner as List[inner].
func List(inner *Type) *Type { return &Type{Kind: KindList, Inner: inner} }

// Set wraps inner as Set[inner].
func Set(inner *Type) *Type { return &Type{Kind: KindSet, Inner: inner} }

// Union builds Union[members...].
func Union(members ...*Type) *Type { return &Type{Kind: KindUnion, Members: members} }

// Equal reports structural equality.
func (t *Type) Equal(o *Type) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Kind != o.Kind || t.Name != o.Name {
		return false
	}
	if t.Kind == KindDict || t.Kind == KindTuple {
		if normalizeSpace(t.Raw) != normalizeSpace(o.Raw) {
			return false
		}
	}
	if !t.Inner.Equal(o.Inner) || !t.Key.Equal(o.Key) {
		return false
	}
	if len(t.Members) != len(o.Members) {
		return false
	}
	for i := range t.Members {
		if !t.Members[i].Equal(o.Members[i]) {
			return false
		}
	}
	return true
}

// String renders the canonical spelling of t. Parse(t.String()) is Equal to t.
func (t *Type) String() string {
	if t == nil {
		return ""
	}
	switch t.Kind {
	case KindBasic:
		return t.Name
	case KindOptional:
		return "Optional[" + t.Inner.String() + "]"
	case KindList:
		return "List[" + t.Inner.String() + "]"
	case KindSet:
		return "Set[" + t.Inner.String() + "]"
	case KindTuple:
		return "Tuple[" + normalizeSpace(t.Raw) + "]"
	case KindDict:
		return "Dict[" + normalizeSpace(t.Raw) + "]"
	case KindUnion:
		parts := make([]string, len(t.Members))
		for i, m := range t.Members {
			parts[i] = m.String()
		}
		return "Union[" + strings.Join(parts, ", ") + "]"
	case KindWrapped:
		return "Message[" + t.Inner.String() + "]"
	default:
		return ""
	}
}

// IsNone reports whether t is the None leaf.
func (t *Type) IsNone() bool {
	return t != nil && t.Kind == KindBasic && (t.Name == "None" || t.Name == "NoneType")
}

// Leaves returns every Basic name reachable from t, depth-first.
func (t *Type) Leaves() []string {
	var out []string
	var walk func(*Type)
	walk = func(n *Type) {
		if n == nil {
			return
		}
		switch n.Kind {
		case KindBasic:
			out = append(out, n.Name)
		case KindUnion:
			for _, m := range n.Members {
				walk(m)
			}
		default:
			walk(n.Key)
			walk(n.Inner)
		}
	}
	walk(t)
	return out
}

// StripOptional removes Optional and Wrapped layers, and collapses a Union
// whose only non-None member is a single type. The second result reports
// whether any optionality was removed.
func (t *Type) StripOptional() (*Type, bool) {
	optional := false
	for t != nil {
		switch t.Kind {
		case KindOptional:
			optional = true
			t = t.Inner
			continue
		case KindWrapped:
			t = t.Inner
			continue
		case KindUnion:
			rest := make([]*Type, 0, len(t.Members))
			for _, m := range t.Members {
				if m.IsNone() {
					optional = true
					continue
				}
				rest = append(rest, m)
			}
			if len(rest) == 1 {
				t = rest[0]
				continue
			}
			if len(rest) != len(t.Members) {
				return Union(rest...), optional
			}
		}
		return t, optional
	}
	return t, optional
}

// Element returns the element type of a collection: List/Set/Tuple inner,
// Dict value. keyed is true for Dict. Non-collections return themselves.
func (t *Type) Element() (elem *Type, keyed bool) {
	base, _ := t.StripOptional()
	if base == nil {
		return nil, false
	}
	switch base.Kind {
	case KindList, KindSet, KindTuple:
		return base.Inner, false
	case KindDict:
		return base.Inner, true
	default:
		return base, false
	}
}

// IsCollection reports whether t (after stripping optionality) is a List,
// Set, Tuple or Dict.
func (t *Type) IsCollection() bool {
	base, _ := t.StripOptional()
	if base == nil {
		return false
	}
	switch base.Kind {
	case KindList, KindSet, KindTuple, KindDict:
		return true
	}
	return false
}

func normalizeSpace(s string) string {
	parts := splitTopLevel(s, ',')
	for i := range parts {
		parts[i] = strings.Join(strings.Fields(parts[i]), " ")
	}
	return strings.Join(parts, ", ")
}
