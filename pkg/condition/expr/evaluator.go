package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-formstate/internal/paths"
	"github.com/goliatone/go-formstate/pkg/condition"
)

// Compiler is a small, dependency-free condition compiler.
//
// Supported syntax:
//   - truthiness: `channel`, `!channel`
//   - comparisons against literals: `channel == ""`, `age != 0`, `agree == true`
//   - composition: `a == "x" && (b || !c)`
//
// Identifiers are dotted value paths (`social.twitter`, `phNumbers.0.number`).
type Compiler struct{}

var _ condition.Compiler = (*Compiler)(nil)

// New returns a Compiler.
func New() *Compiler { return &Compiler{} }

// Compile parses rule once and returns a condition evaluated against values.
// An empty rule compiles to condition.Never.
func (c *Compiler) Compile(rule string) (condition.Func, error) {
	trimmed := strings.TrimSpace(rule)
	if trimmed == "" {
		return condition.Never, nil
	}
	tokens, err := scan(trimmed)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.done() {
		return nil, fmt.Errorf("condition/expr: unexpected token %q", p.peek().text)
	}
	return root.eval, nil
}

// MustCompile panics when rule does not parse. Useful for static form
// definitions.
func MustCompile(rule string) condition.Func {
	fn, err := New().Compile(rule)
	if err != nil {
		panic(err)
	}
	return fn
}

type kind int

const (
	kindIdent kind = iota
	kindString
	kindNumber
	kindBool
	kindNull
	kindEq
	kindNeq
	kindAnd
	kindOr
	kindNot
	kindOpen
	kindClose
)

type token struct {
	kind kind
	text string
}

func scan(input string) ([]token, error) {
	var out []token
	for pos := 0; pos < len(input); {
		ch := input[pos]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			pos++
		case ch == '(':
			out = append(out, token{kind: kindOpen, text: "("})
			pos++
		case ch == ')':
			out = append(out, token{kind: kindClose, text: ")"})
			pos++
		case strings.HasPrefix(input[pos:], "=="):
			out = append(out, token{kind: kindEq, text: "=="})
			pos += 2
		case strings.HasPrefix(input[pos:], "!="):
			out = append(out, token{kind: kindNeq, text: "!="})
			pos += 2
		case strings.HasPrefix(input[pos:], "&&"):
			out = append(out, token{kind: kindAnd, text: "&&"})
			pos += 2
		case strings.HasPrefix(input[pos:], "||"):
			out = append(out, token{kind: kindOr, text: "||"})
			pos += 2
		case ch == '!':
			out = append(out, token{kind: kindNot, text: "!"})
			pos++
		case ch == '"' || ch == '\'':
			end := closingQuote(input, pos)
			if end < 0 {
				return nil, errors.New("condition/expr: unterminated string literal")
			}
			body := input[pos+1 : end]
			if ch == '\'' {
				body = strings.ReplaceAll(body, `"`, `\"`)
				body = strings.ReplaceAll(body, `\'`, `'`)
			}
			value, err := strconv.Unquote(`"` + body + `"`)
			if err != nil {
				return nil, fmt.Errorf("condition/expr: invalid string literal: %w", err)
			}
			out = append(out, token{kind: kindString, text: value})
			pos = end + 1
		case ch == '=' || ch == '&' || ch == '|':
			return nil, fmt.Errorf("condition/expr: unexpected %q at offset %d", ch, pos)
		default:
			start := pos
			for pos < len(input) && !strings.ContainsRune(" \t\n\r()!=&|\"'", rune(input[pos])) {
				pos++
			}
			word := input[start:pos]
			switch lower := strings.ToLower(word); {
			case lower == "true" || lower == "false":
				out = append(out, token{kind: kindBool, text: lower})
			case lower == "null" || lower == "nil":
				out = append(out, token{kind: kindNull, text: "null"})
			case isNumeric(word):
				out = append(out, token{kind: kindNumber, text: word})
			default:
				out = append(out, token{kind: kindIdent, text: word})
			}
		}
	}
	return out, nil
}

func closingQuote(input string, open int) int {
	quote := input[open]
	for idx := open + 1; idx < len(input); idx++ {
		switch input[idx] {
		case '\\':
			idx++
		case quote:
			return idx
		}
	}
	return -1
}

func isNumeric(word string) bool {
	if word == "" || !strings.ContainsRune("0123456789+-.", rune(word[0])) {
		return false
	}
	_, err := strconv.ParseFloat(word, 64)
	return err == nil
}

type node interface {
	eval(values map[string]any) bool
}

type orNode struct{ left, right node }

func (n orNode) eval(values map[string]any) bool { return n.left.eval(values) || n.right.eval(values) }

type andNode struct{ left, right node }

func (n andNode) eval(values map[string]any) bool { return n.left.eval(values) && n.right.eval(values) }

type notNode struct{ inner node }

func (n notNode) eval(values map[string]any) bool { return !n.inner.eval(values) }

type truthyNode struct{ path string }

func (n truthyNode) eval(values map[string]any) bool {
	value, ok := paths.Get(values, n.path)
	return ok && truthy(value)
}

type compareNode struct {
	path    string
	negate  bool
	literal token
}

func (n compareNode) eval(values map[string]any) bool {
	value, _ := paths.Get(values, n.path)
	equal := matches(value, n.literal)
	if n.negate {
		return !equal
	}
	return equal
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) done() bool { return p.pos >= len(p.tokens) }

func (p *parser) peek() token {
	if p.done() {
		return token{}
	}
	return p.tokens[p.pos]
}

func (p *parser) accept(k kind) bool {
	if p.done() || p.tokens[p.pos].kind != k {
		return false
	}
	p.pos++
	return true
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.accept(kindOr) {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.accept(kindAnd) {
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = andNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	if p.accept(kindNot) {
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notNode{inner: inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	if p.accept(kindOpen) {
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.accept(kindClose) {
			return nil, errors.New("condition/expr: missing closing ')'")
		}
		return inner, nil
	}
	if p.done() {
		return nil, errors.New("condition/expr: unexpected end of expression")
	}
	ident := p.peek()
	if ident.kind != kindIdent {
		return nil, fmt.Errorf("condition/expr: expected identifier, got %q", ident.text)
	}
	p.pos++

	negate := false
	switch {
	case p.accept(kindEq):
	case p.accept(kindNeq):
		negate = true
	default:
		return truthyNode{path: ident.text}, nil
	}

	if p.done() {
		return nil, errors.New("condition/expr: missing literal")
	}
	lit := p.peek()
	switch lit.kind {
	case kindString, kindNumber, kindBool, kindNull:
	default:
		return nil, fmt.Errorf("condition/expr: expected literal, got %q", lit.text)
	}
	p.pos++
	return compareNode{path: ident.text, negate: negate, literal: lit}, nil
}

func matches(value any, lit token) bool {
	switch lit.kind {
	case kindNull:
		return value == nil
	case kindBool:
		return truthy(value) == (lit.text == "true")
	case kindNumber:
		want, _ := strconv.ParseFloat(lit.text, 64)
		got, ok := number(value)
		return ok && got == want
	default:
		return text(value) == lit.text
	}
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		trimmed := strings.TrimSpace(v)
		return trimmed != "" && !strings.EqualFold(trimmed, "false") && trimmed != "0"
	case float64:
		return v != 0
	case int:
		return v != 0
	case time.Time:
		return !v.IsZero()
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}

func number(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func text(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
