package schema

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/dusk-indust/schemagraph/internal/typeexpr"
)

// EvalLiteral evaluates a default expression the way a form would display
// it: quoted strings lose their quotes, True/False/None and numbers become Go
// values, bracket literals become JSON text where possible, and
// Field(...)/field(...) calls yield their default argument. Anything else is
// returned as its source text.
func EvalLiteral(expr string) any {
	expr = strings.TrimSpace(expr)
	switch expr {
	case "", "None", "...":
		return nil
	case "True", "true":
		return true
	case "False", "false":
		return false
	}

	if s, ok := unquoteLiteral(expr); ok {
		return s
	}
	if i, err := strconv.ParseInt(expr, 10, 64); err == nil {
		return int(i)
	}
	if f, err := strconv.ParseFloat(expr, 64); err == nil {
		return f
	}

	if inner, ok := callArgs(expr, "Field", "field"); ok {
		return evalFieldCall(inner)
	}

	switch expr[0] {
	case '[', '{', '(':
		return literalJSON(expr)
	}
	return expr
}

func evalFieldCall(args string) any {
	for i, arg := range typeexpr.SplitTopLevel(args, ',') {
		key, val, isKw := splitKeyword(arg)
		switch {
		case !isKw && i == 0:
			return EvalLiteral(arg)
		case key == "default":
			return EvalLiteral(val)
		case key == "default_factory":
			switch strings.TrimSpace(val) {
			case "list", "set", "tuple":
				return "[]"
			case "dict":
				return "{}"
			}
			return nil
		}
	}
	return nil
}

// splitKeyword splits name=value arguments.
func splitKeyword(arg string) (string, string, bool) {
	i := findAssign(arg)
	if i < 0 {
		return "", arg, false
	}
	key := strings.TrimSpace(arg[:i])
	if !isIdentifier(key) {
		return "", arg, false
	}
	return key, strings.TrimSpace(arg[i+1:]), true
}

// callArgs returns the argument text of name(...) for one of names.
func callArgs(expr string, names ...string) (string, bool) {
	for _, name := range names {
		if !strings.HasPrefix(expr, name+"(") {
			continue
		}
		open := len(name)
		end := typeexpr.MatchBracket(expr, open)
		if end != len(expr)-1 {
			return "", false
		}
		return expr[open+1 : end], true
	}
	return "", false
}

// literalJSON converts a Python collection literal to JSON text. Tuples
// become arrays. Literals that still do not parse are returned verbatim.
func literalJSON(expr string) string {
	var sb strings.Builder
	var quote byte
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		if quote != 0 {
			if c == '\\' && i+1 < len(expr) {
				sb.WriteByte(c)
				i++
				sb.WriteByte(expr[i])
				continue
			}
			if c == quote {
				quote = 0
				sb.WriteByte('"')
				continue
			}
			if c == '"' {
				sb.WriteString(`\"`)
				continue
			}
			sb.WriteByte(c)
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
			sb.WriteByte('"')
		case '(':
			sb.WriteByte('[')
		case ')':
			sb.WriteByte(']')
		default:
			if word, n := leadingWord(expr[i:]); n > 0 {
				switch word {
				case "True":
					sb.WriteString("true")
				case "False":
					sb.WriteString("false")
				case "None":
					sb.WriteString("null")
				default:
					sb.WriteString(word)
				}
				i += n - 1
				continue
			}
			sb.WriteByte(c)
		}
	}
	out := sb.String()
	if json.Valid([]byte(out)) {
		return out
	}
	return expr
}

func leadingWord(s string) (string, int) {
	n := 0
	for n < len(s) && (s[n] == '_' || isLetter(s[n])) {
		n++
	}
	return s[:n], n
}

func unquoteLiteral(expr string) (string, bool) {
	for _, q := range []string{`"""`, `'''`} {
		if len(expr) >= 6 && strings.HasPrefix(expr, q) && strings.HasSuffix(expr, q) {
			return expr[3 : len(expr)-3], true
		}
	}
	if len(expr) < 2 {
		return "", false
	}
	q := expr[0]
	if (q != '"' && q != '\'') || expr[len(expr)-1] != q {
		return "", false
	}
	body := expr[1 : len(expr)-1]
	if q == '\'' {
		body = strings.ReplaceAll(body, `\'`, `'`)
		body = strings.ReplaceAll(body, `"`, `\"`)
	}
	s, err := strconv.Unquote(`"` + body + `"`)
	if err != nil {
		return body, true
	}
	return s, true
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' || isLetter(c) || (i > 0 && c >= '0' && c <= '9') {
			continue
		}
		return false
	}
	return true
}

// findAssign returns the index of the first top-level "=" that is an
// assignment rather than part of ==, <=, >=, != or :=.
func findAssign(s string) int {
	depth := 0
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
			depth++
		case ']', ')', '}':
			depth--
		case '=':
			if depth != 0 {
				continue
			}
			if i+1 < len(s) && s[i+1] == '=' {
				i++
				continue
			}
			if i > 0 && strings.IndexByte("=<>!:", s[i-1]) >= 0 {
				continue
			}
			return i
		}
	}
	return -1
}
