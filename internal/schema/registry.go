package schema

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/dusk-indust/schemagraph/internal/typeexpr"
)

// nonModelBases are base classes that mark a declaration as a model without
// making them its parent.
var nonModelBases = map[string]bool{
	"BaseModel": true, "Generic": true, "Enum": true, "IntEnum": true, "StrEnum": true,
	"object": true, "ABC": true, "Protocol": true, "TypedDict": true, "NamedTuple": true,
	"str": true, "int": true, "float": true, "bool": true, "dict": true, "list": true,
}

// RootMarkers are base classes that designate the aggregate root model.
var RootMarkers = map[string]bool{
	"parent_root": true, "Root": true, "RootConfig": true,
}

// maxSubstitutionRounds bounds alias and constant chains, so a
// self-referential alias cannot loop forever.
const maxSubstitutionRounds = 8

var (
	constantNameRe = regexp.MustCompile(`^(?:[A-Z][A-Z0-9_]*|DEFAULT_\w+)$`)
	typeExprRe     = regexp.MustCompile(`^[A-Za-z_][\w.]*(?:\s*\[.*\])?(?:\s*\|\s*[A-Za-z_][\w.]*(?:\s*\[.*\])?)*$`)
)

// Option configures Build and Parse.
type Option func(*builder)

// WithRoot names the aggregate root model explicitly, overriding markers.
func WithRoot(name string) Option {
	return func(b *builder) { b.root = name }
}

// WithLogger sets the logger used for skipped declarations.
func WithLogger(log hclog.Logger) Option {
	return func(b *builder) {
		if log != nil {
			b.log = log
		}
	}
}

// WithTypeCache shares a parse cache between schemas.
func WithTypeCache(c *typeexpr.Cache) Option {
	return func(b *builder) { b.cache = c }
}

// WithScanner selects the Scanner used by Parse. The default is a LineScanner.
func WithScanner(s Scanner) Option {
	return func(b *builder) { b.scanner = s }
}

type builder struct {
	root    string
	log     hclog.Logger
	cache   *typeexpr.Cache
	scanner Scanner
}

// Parse scans code and builds a Schema named name.
func Parse(ctx context.Context, name string, code string, opts ...Option) (*Schema, error) {
	b := newBuilder(opts)
	decl, err := b.scanner.Scan(ctx, []byte(code))
	if err != nil {
		return nil, fmt.Errorf("schema %s: scan: %w", name, err)
	}
	return b.build(name, decl), nil
}

// Build resolves scanned declarations into a Schema: aliases and constants
// are substituted, roles extracted, inheritance merged, and field-less
// classes dropped.
func Build(name string, decl *Declarations, opts ...Option) *Schema {
	return newBuilder(opts).build(name, decl)
}

func newBuilder(opts []Option) *builder {
	b := &builder{log: hclog.NewNullLogger()}
	for _, o := range opts {
		o(b)
	}
	if b.scanner == nil {
		b.scanner = NewLineScanner()
	}
	return b
}

func (b *builder) build(name string, decl *Declarations) *Schema {
	log := b.log.With("schema", name)
	s := &Schema{
		Name:      name,
		Aliases:   make(map[string]string),
		Constants: make(map[string]string),
		byName:    make(map[string]*Model),
	}

	classNames := make(map[string]bool, len(decl.Classes))
	for _, c := range decl.Classes {
		classNames[c.Name] = true
	}
	for _, bind := range decl.Bindings {
		switch {
		case classNames[bind.Name]:
		case constantNameRe.MatchString(bind.Name):
			s.Constants[bind.Name] = bind.Value
		case bind.Annotation == "TypeAlias":
			value := bind.Value
			if v, ok := unquoteLiteral(value); ok {
				value = v
			}
			s.Aliases[bind.Name] = value
		case looksLikeTypeExpr(bind.Value):
			s.Aliases[bind.Name] = bind.Value
		}
	}

	var declared []*Model
	var rootCandidate string
	for _, c := range decl.Classes {
		m := &Model{Name: c.Name, Line: c.Line}
		for _, base := range c.Bases {
			base = baseName(base)
			m.Bases = append(m.Bases, base)
			switch {
			case RootMarkers[base]:
				if rootCandidate == "" {
					rootCandidate = c.Name
				}
			case nonModelBases[base]:
			case m.Parent == "":
				m.Parent = base
			}
		}
		for _, fd := range c.Fields {
			f, ok := b.field(s, fd)
			if !ok {
				continue
			}
			m.Own = upsertField(m.Own, f)
		}
		declared = append(declared, m)
	}

	staged := make(map[string]*Model, len(declared))
	for _, m := range declared {
		staged[m.Name] = m
	}
	resolved := make(map[string][]Field)
	visiting := make(map[string]bool)
	var effective func(m *Model) []Field
	effective = func(m *Model) []Field {
		if fs, ok := resolved[m.Name]; ok {
			return fs
		}
		if visiting[m.Name] {
			log.Warn("inheritance cycle", "model", m.Name)
			return nil
		}
		visiting[m.Name] = true
		var fields []Field
		if parent, ok := staged[m.Parent]; ok {
			fields = append(fields, effective(parent)...)
		}
		for _, f := range m.Own {
			fields = upsertField(fields, f)
		}
		delete(visiting, m.Name)
		resolved[m.Name] = fields
		return fields
	}

	for _, m := range declared {
		m.Fields = effective(m)
		if len(m.Fields) == 0 {
			log.Debug("dropping class without fields", "model", m.Name, "error", ErrParseSkip)
			continue
		}
		s.Models = append(s.Models, m)
		s.byName[m.Name] = m
	}
	for _, m := range s.Models {
		if _, ok := s.byName[m.Parent]; !ok {
			m.Parent = ""
		}
	}

	switch {
	case b.root != "" && s.HasModel(b.root):
		s.Root = typeexpr.BaseName(b.root)
	case b.root != "":
		log.Warn("configured root model not found", "model", b.root)
	case rootCandidate != "" && s.HasModel(rootCandidate):
		s.Root = rootCandidate
	}

	log.Debug("schema built", "models", len(s.Models), "aliases", len(s.Aliases), "root", s.Root)
	return s
}

// field resolves one declaration into a Field. Private names, ClassVars and
// properties without a role annotation are not fields.
func (b *builder) field(s *Schema, fd FieldDecl) (Field, bool) {
	if strings.HasPrefix(fd.Name, "_") {
		return Field{}, false
	}
	raw := substituteIdents(fd.Annotation, s.Aliases)
	if strings.HasPrefix(raw, "ClassVar") {
		return Field{}, false
	}
	inner, role, annotated := splitRoleAnnotation(raw)
	if fd.Property && !annotated {
		return Field{}, false
	}
	f := Field{
		Name:     fd.Name,
		RawType:  inner,
		Type:     b.cache.Parse(inner),
		Role:     role,
		Property: fd.Property,
	}
	if fd.HasDefault {
		f.HasDefault = true
		f.Default = substituteConstant(fd.Default, s.Constants)
	}
	return f, true
}

// splitRoleAnnotation recognises Wrapper[Type, FieldRole.ROLE]. Without a
// trailing role argument the annotation is returned whole with RoleInput.
func splitRoleAnnotation(raw string) (string, Role, bool) {
	open := strings.IndexByte(raw, '[')
	if open <= 0 || !isIdentifier(strings.TrimSpace(raw[:open])) {
		return raw, RoleInput, false
	}
	end := typeexpr.MatchBracket(raw, open)
	if end != len(raw)-1 {
		return raw, RoleInput, false
	}
	args := typeexpr.SplitTopLevel(raw[open+1:end], ',')
	if len(args) < 2 {
		return raw, RoleInput, false
	}
	last := args[len(args)-1]
	if !strings.Contains(last, "FieldRole.") && !strings.Contains(last, "Role.") {
		return raw, RoleInput, false
	}
	role, ok := ParseRole(last)
	if !ok {
		return raw, RoleInput, false
	}
	return strings.Join(args[:len(args)-1], ", "), role, true
}

// upsertField overwrites a same-named field in place or appends f.
func upsertField(fields []Field, f Field) []Field {
	for i := range fields {
		if fields[i].Name == f.Name {
			fields[i] = f
			return fields
		}
	}
	return append(fields, f)
}

// substituteIdents replaces identifier tokens found in table, leaving quoted
// text and dotted names untouched. Chains are followed a bounded number of
// times.
func substituteIdents(s string, table map[string]string) string {
	if len(table) == 0 {
		return strings.TrimSpace(s)
	}
	for round := 0; round < maxSubstitutionRounds; round++ {
		next, changed := substituteOnce(s, table)
		s = next
		if !changed {
			break
		}
	}
	return strings.TrimSpace(s)
}

func substituteOnce(s string, table map[string]string) (string, bool) {
	var sb strings.Builder
	changed := false
	var quote byte
	for i := 0; i < len(s); {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			sb.WriteByte(c)
			i++
			continue
		}
		if c == '"' || c == '\'' {
			quote = c
			sb.WriteByte(c)
			i++
			continue
		}
		if c == '_' || isLetter(c) {
			j := i
			for j < len(s) && (s[j] == '_' || s[j] == '.' || isLetter(s[j]) || (s[j] >= '0' && s[j] <= '9')) {
				j++
			}
			tok := s[i:j]
			if repl, ok := table[tok]; ok && repl != tok {
				sb.WriteString(repl)
				changed = true
			} else {
				sb.WriteString(tok)
			}
			i = j
			continue
		}
		sb.WriteByte(c)
		i++
	}
	return sb.String(), changed
}

// substituteConstant replaces a default that is a bare constant name.
func substituteConstant(expr string, constants map[string]string) string {
	expr = strings.TrimSpace(expr)
	for round := 0; round < maxSubstitutionRounds; round++ {
		v, ok := constants[expr]
		if !ok || v == expr {
			break
		}
		expr = strings.TrimSpace(v)
	}
	return expr
}

func looksLikeTypeExpr(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" || strings.ContainsAny(v, "()\"'") {
		return false
	}
	return typeExprRe.MatchString(v)
}

// baseName normalises a base class expression: generic arguments and module
// prefixes are dropped.
func baseName(base string) string {
	base = strings.TrimSpace(base)
	if i := strings.IndexByte(base, '['); i >= 0 {
		base = strings.TrimSpace(base[:i])
	}
	return typeexpr.BaseName(base)
}
