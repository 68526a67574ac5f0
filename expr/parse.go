package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hupe1980/scalareval/scalar"
)

// ErrSyntax is wrapped by every error returned from Parse.
var ErrSyntax = errors.New("expr: syntax error")

// MaxParseDepth bounds the nesting accepted by Parse.
const MaxParseDepth = 1024

// Parse parses the text form of an expression:
//
//	expr  := handle | range | op "(" expr "," expr ")"
//	op    := "and" | "or" | "diff"
//	handle:= ["#"] uint
//	range := "range" "(" handle "," bounds ")"
//	bounds:= ("[" | "(") value "," value ("]" | ")") | value "," value
//
// A range without brackets includes both ends. Handles are not checked;
// use Validate for that.
func Parse[T scalar.Value](s string) (*Node[T], error) {
	p := &parser[T]{toks: tokenize(s)}
	n, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, p.errorf(tok, "unexpected %q after expression", tok.text)
	}
	return n, nil
}

type tokKind uint8

const (
	tokEOF tokKind = iota
	tokWord
	tokHash
	tokLParen
	tokRParen
	tokLBrack
	tokRBrack
	tokComma
)

type token struct {
	kind tokKind
	text string
	pos  int
}

func tokenize(s string) []token {
	var toks []token
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
			continue
		case strings.IndexByte("#()[],", c) >= 0:
			toks = append(toks, token{kind: punct(c), text: string(c), pos: i})
			i++
			continue
		}
		start := i
		for i < len(s) && strings.IndexByte("#()[], \t\n\r", s[i]) < 0 {
			i++
		}
		toks = append(toks, token{kind: tokWord, text: s[start:i], pos: start})
	}
	return append(toks, token{kind: tokEOF, text: "end of input", pos: len(s)})
}

func punct(c byte) tokKind {
	switch c {
	case '#':
		return tokHash
	case '(':
		return tokLParen
	case ')':
		return tokRParen
	case '[':
		return tokLBrack
	case ']':
		return tokRBrack
	default:
		return tokComma
	}
}

type parser[T scalar.Value] struct {
	toks []token
	i    int
}

func (p *parser[T]) peek() token { return p.toks[p.i] }

func (p *parser[T]) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser[T]) errorf(tok token, format string, args ...any) error {
	return fmt.Errorf("%w at offset %d: %s", ErrSyntax, tok.pos, fmt.Sprintf(format, args...))
}

func (p *parser[T]) expect(kind tokKind, what string) (token, error) {
	tok := p.next()
	if tok.kind != kind {
		return tok, p.errorf(tok, "expected %s, got %q", what, tok.text)
	}
	return tok, nil
}

func (p *parser[T]) expr(depth int) (*Node[T], error) {
	if depth >= MaxParseDepth {
		return nil, p.errorf(p.peek(), "expression nested deeper than %d", MaxParseDepth)
	}
	tok := p.peek()
	if tok.kind == tokHash {
		h, err := p.handle()
		if err != nil {
			return nil, err
		}
		return Leaf[T](h), nil
	}
	if tok.kind != tokWord {
		return nil, p.errorf(tok, "expected expression, got %q", tok.text)
	}

	var op Op
	switch strings.ToLower(tok.text) {
	case "and", "intersect":
		op = OpIntersect
	case "or", "union":
		op = OpUnion
	case "diff", "difference":
		op = OpDifference
	case "range":
		p.next()
		return p.rangeExpr()
	default:
		h, err := p.handle()
		if err != nil {
			return nil, err
		}
		return Leaf[T](h), nil
	}
	p.next()

	if _, err := p.expect(tokLParen, `"("`); err != nil {
		return nil, err
	}
	l, err := p.expr(depth + 1)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokComma, `","`); err != nil {
		return nil, err
	}
	r, err := p.expr(depth + 1)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRParen, `")"`); err != nil {
		return nil, err
	}
	return &Node[T]{Op: op, Left: l, Right: r}, nil
}

func (p *parser[T]) handle() (Handle, error) {
	if p.peek().kind == tokHash {
		p.next()
	}
	tok, err := p.expect(tokWord, "handle")
	if err != nil {
		return 0, err
	}
	h, err := strconv.ParseUint(tok.text, 10, 32)
	if err != nil {
		return 0, p.errorf(tok, "invalid handle %q", tok.text)
	}
	return Handle(h), nil
}

func (p *parser[T]) value() (T, error) {
	tok, err := p.expect(tokWord, "value")
	if err != nil {
		var zero T
		return zero, err
	}
	v, err := scalar.Parse[T](tok.text)
	if err != nil {
		return v, p.errorf(tok, "%v", err)
	}
	return v, nil
}

func (p *parser[T]) rangeExpr() (*Node[T], error) {
	if _, err := p.expect(tokLParen, `"("`); err != nil {
		return nil, err
	}
	h, err := p.handle()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokComma, `","`); err != nil {
		return nil, err
	}

	b := Inclusive
	bracketed := false
	switch p.peek().kind {
	case tokLBrack:
		p.next()
		bracketed = true
	case tokLParen:
		p.next()
		bracketed = true
		b.LowerInclusive = false
	}

	lo, err := p.value()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokComma, `","`); err != nil {
		return nil, err
	}
	hi, err := p.value()
	if err != nil {
		return nil, err
	}

	if bracketed {
		switch tok := p.next(); tok.kind {
		case tokRBrack:
		case tokRParen:
			b.UpperInclusive = false
		default:
			return nil, p.errorf(tok, `expected "]" or ")", got %q`, tok.text)
		}
	}
	if _, err := p.expect(tokRParen, `")"`); err != nil {
		return nil, err
	}
	return Range(h, lo, hi, b), nil
}
