package schema

import (
	"context"
	"regexp"
	"strings"

	"github.com/dusk-indust/schemagraph/internal/typeexpr"
)

// Compile-time assertion: *LineScanner satisfies Scanner.
var _ Scanner = (*LineScanner)(nil)

// LineScanner extracts declarations by scanning logical lines. It only needs
// indentation to find class bodies, so unrelated module code (functions,
// imports, statements) is skipped rather than rejected.
type LineScanner struct{}

// NewLineScanner returns a LineScanner.
func NewLineScanner() *LineScanner { return &LineScanner{} }

var (
	classRe = regexp.MustCompile(`^class\s+([A-Za-z_]\w*)\s*(?:\((.*)\))?\s*:`)
	defRe   = regexp.MustCompile(`^(?:async\s+)?def\s+([A-Za-z_]\w*)\s*\((.*)\)\s*(?:->\s*(.+?))?\s*:\s*(?:\.\.\.|pass)?$`)
	fieldRe = regexp.MustCompile(`^([A-Za-z_]\w*)\s*:\s*(.+)$`)
)

var pyKeywords = map[string]bool{
	"if": true, "elif": true, "else": true, "for": true, "while": true, "try": true,
	"except": true, "finally": true, "with": true, "def": true, "class": true,
	"return": true, "lambda": true, "match": true, "case": true,
}

// logicalLine is a statement with its bracket continuations joined and its
// comment removed.
type logicalLine struct {
	indent int
	text   string
	line   int
}

// Scan implements Scanner.
func (s *LineScanner) Scan(_ context.Context, source []byte) (*Declarations, error) {
	decl := &Declarations{}

	var cur *ClassDecl
	bodyIndent := -1
	pendingProperty := false

	closeClass := func() {
		if cur != nil {
			decl.Classes = append(decl.Classes, *cur)
		}
		cur = nil
		bodyIndent = -1
		pendingProperty = false
	}

	for _, ln := range logicalLines(string(source)) {
		if ln.indent == 0 {
			closeClass()
			if m := classRe.FindStringSubmatch(ln.text); m != nil {
				cur = &ClassDecl{Name: m[1], Bases: splitBases(m[2]), Line: ln.line}
				continue
			}
			if b, ok := parseBinding(ln.text); ok {
				b.Line = ln.line
				decl.Bindings = append(decl.Bindings, b)
			}
			continue
		}
		if cur == nil {
			continue
		}
		if bodyIndent < 0 || ln.indent < bodyIndent {
			bodyIndent = ln.indent
		}
		if ln.indent > bodyIndent {
			continue
		}

		text := ln.text
		if strings.HasPrefix(text, "@") {
			pendingProperty = pendingProperty || isPropertyDecorator(text)
			continue
		}
		if m := defRe.FindStringSubmatch(text); m != nil {
			if pendingProperty && m[3] != "" {
				cur.Fields = append(cur.Fields, FieldDecl{
					Name:       m[1],
					Annotation: strings.TrimSpace(m[3]),
					Property:   true,
					Line:       ln.line,
				})
			}
			pendingProperty = false
			continue
		}
		pendingProperty = false

		if f, ok := parseFieldLine(text); ok {
			f.Line = ln.line
			cur.Fields = append(cur.Fields, f)
		}
	}
	closeClass()
	return decl, nil
}

// Close is a no-op for the line scanner.
func (s *LineScanner) Close() error { return nil }

func isPropertyDecorator(text string) bool {
	name := strings.TrimPrefix(text, "@")
	name = strings.TrimSpace(strings.SplitN(name, "(", 2)[0])
	return name == "property" || strings.HasSuffix(name, ".property") ||
		name == "computed_field" || strings.HasSuffix(name, ".computed_field")
}

// parseFieldLine matches "name: Annotation [= default]".
func parseFieldLine(text string) (FieldDecl, bool) {
	m := fieldRe.FindStringSubmatch(text)
	if m == nil || pyKeywords[m[1]] {
		return FieldDecl{}, false
	}
	f := FieldDecl{Name: m[1]}
	rest := m[2]
	if i := findAssign(rest); i >= 0 {
		f.Annotation = strings.TrimSpace(rest[:i])
		f.Default = strings.TrimSpace(rest[i+1:])
		f.HasDefault = true
	} else {
		f.Annotation = strings.TrimSpace(rest)
	}
	if f.Annotation == "" {
		return FieldDecl{}, false
	}
	return f, true
}

// parseBinding matches a module-level "NAME [: Annotation] = value".
func parseBinding(text string) (Binding, bool) {
	i := findAssign(text)
	if i <= 0 {
		return Binding{}, false
	}
	left := strings.TrimSpace(text[:i])
	value := strings.TrimSpace(text[i+1:])
	if value == "" {
		return Binding{}, false
	}
	var annotation string
	if j := strings.IndexByte(left, ':'); j >= 0 {
		annotation = strings.TrimSpace(left[j+1:])
		left = strings.TrimSpace(left[:j])
	}
	if !isIdentifier(left) {
		return Binding{}, false
	}
	return Binding{Name: left, Value: value, Annotation: annotation}, true
}

// splitBases splits a class argument list, dropping keyword arguments.
func splitBases(args string) []string {
	var out []string
	for _, a := range typeexpr.SplitTopLevel(args, ',') {
		if _, _, kw := splitKeyword(a); kw {
			continue
		}
		out = append(out, a)
	}
	return out
}

// logicalLines splits source into statements. Bracketed expressions and
// backslash continuations spanning several physical lines are joined,
// comments are stripped, and docstrings and blank lines are dropped.
func logicalLines(src string) []logicalLine {
	var out []logicalLine
	var docDelim string
	var buf strings.Builder
	pending := false
	depth := 0
	var start logicalLine

	for i, raw := range strings.Split(src, "\n") {
		raw = strings.TrimRight(raw, "\r")
		trimmed := strings.TrimSpace(raw)

		if docDelim != "" {
			if strings.Contains(trimmed, docDelim) {
				docDelim = ""
			}
			continue
		}
		if !pending {
			if trimmed == "" || strings.HasPrefix(trimmed, "#") {
				continue
			}
			if d := docstringDelim(trimmed); d != "" {
				if strings.Count(trimmed, d) == 1 {
					docDelim = d
				}
				continue
			}
		}

		code := strings.TrimSpace(stripComment(raw))
		cont := strings.HasSuffix(code, `\`)
		code = strings.TrimSpace(strings.TrimSuffix(code, `\`))

		if pending {
			buf.WriteByte(' ')
			buf.WriteString(strings.TrimSpace(code))
		} else {
			start = logicalLine{indent: indentWidth(raw), line: i + 1}
			buf.Reset()
			buf.WriteString(code)
		}
		depth += bracketDelta(code)
		if depth > 0 || cont {
			pending = true
			continue
		}
		pending = false
		depth = 0
		start.text = strings.TrimSpace(buf.String())
		if start.text != "" {
			out = append(out, start)
		}
	}
	if pending {
		start.text = strings.TrimSpace(buf.String())
		out = append(out, start)
	}
	return out
}

func docstringDelim(s string) string {
	for _, p := range []string{"r", "u", "b", "f", ""} {
		for _, d := range []string{`"""`, `'''`} {
			if strings.HasPrefix(s, p+d) {
				return d
			}
		}
	}
	return ""
}

func indentWidth(s string) int {
	n := 0
	for _, c := range s {
		switch c {
		case ' ':
			n++
		case '\t':
			n += 4
		default:
			return n
		}
	}
	return n
}

func stripComment(s string) string {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '#':
			return s[:i]
		}
	}
	return s
}

func bracketDelta(s string) int {
	d := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '[', '(', '{':
			d++
		case ']', ')', '}':
			d--
		}
	}
	return d
}
