// Package egraph textual syntax.
// Terms and patterns are written in parenthesized-prefix notation:
//
//	(+ (* a 2) 1)      a term
//	(+ ?x (* ?y 2))    a pattern; ?-sigil atoms are pattern variables
//
// The syntax exists for tests, examples, rulesets, and the CLI; it is
// not a wire protocol. This file holds the lexer and parser; pattern
// interpretation of the ?-sigil lives in pattern.go.
package egraph

import (
	"fmt"
	"strings"
)

type sexprTokenType int

const (
	tokLParen sexprTokenType = iota
	tokRParen
	tokAtom
	tokEOF
)

type sexprToken struct {
	typ sexprTokenType
	val string
	pos int
}

// sexprLexer scans an input string into tokens. Atoms are maximal runs
// of non-space, non-parenthesis characters; there is no quoting.
type sexprLexer struct {
	input    string
	position int
	tokens   []sexprToken
}

func newSexprLexer(input string) *sexprLexer {
	return &sexprLexer{input: input}
}

func (l *sexprLexer) tokenize() []sexprToken {
	for l.position < len(l.input) {
		start := l.position
		switch c := l.input[l.position]; {
		case c == '(':
			l.tokens = append(l.tokens, sexprToken{tokLParen, "(", start})
			l.position++
		case c == ')':
			l.tokens = append(l.tokens, sexprToken{tokRParen, ")", start})
			l.position++
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.position++
		default:
			l.lexAtom(start)
		}
	}
	l.tokens = append(l.tokens, sexprToken{tokEOF, "", l.position})
	return l.tokens
}

func (l *sexprLexer) lexAtom(start int) {
	for l.position < len(l.input) {
		c := l.input[l.position]
		if c == '(' || c == ')' || c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			break
		}
		l.position++
	}
	l.tokens = append(l.tokens, sexprToken{tokAtom, l.input[start:l.position], start})
}

// sexprParser consumes tokens and builds Term trees.
type sexprParser struct {
	tokens  []sexprToken
	current int
}

func newSexprParser(tokens []sexprToken) *sexprParser {
	return &sexprParser{tokens: tokens}
}

func (p *sexprParser) peek() sexprToken { return p.tokens[p.current] }

func (p *sexprParser) next() sexprToken {
	t := p.tokens[p.current]
	if t.typ != tokEOF {
		p.current++
	}
	return t
}

// parseExpr parses one term: an atom, or (op expr...).
func (p *sexprParser) parseExpr() (*Term, error) {
	switch t := p.next(); t.typ {
	case tokAtom:
		return &Term{Op: t.val}, nil
	case tokLParen:
		head := p.next()
		if head.typ != tokAtom {
			return nil, fmt.Errorf("expected operator after '(' at offset %d", head.pos)
		}
		term := &Term{Op: head.val}
		for {
			switch p.peek().typ {
			case tokRParen:
				p.next()
				return term, nil
			case tokEOF:
				return nil, fmt.Errorf("missing ')' for '(' at offset %d", t.pos)
			default:
				arg, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				term.Args = append(term.Args, arg)
			}
		}
	case tokRParen:
		return nil, fmt.Errorf("unexpected ')' at offset %d", t.pos)
	default:
		return nil, fmt.Errorf("unexpected end of input")
	}
}

// parseSexpr parses a complete expression and requires it to consume
// the whole input.
func parseSexpr(input string) (*Term, error) {
	p := newSexprParser(newSexprLexer(input).tokenize())
	term, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.typ != tokEOF {
		return nil, fmt.Errorf("trailing input at offset %d", t.pos)
	}
	return term, nil
}

// isPatternVar reports whether an atom carries the pattern-variable
// sigil. "?" alone is not a variable.
func isPatternVar(op string) bool {
	return len(op) > 1 && strings.HasPrefix(op, "?")
}

// ParseTerm parses a ground term in parenthesized-prefix notation.
// Pattern variables are rejected; use ParsePattern for patterns.
func ParseTerm(input string) (*Term, error) {
	term, err := parseSexpr(input)
	if err != nil {
		return nil, fmt.Errorf("parse term %q: %w", input, err)
	}
	if v := findPatternVar(term); v != "" {
		return nil, fmt.Errorf("parse term %q: pattern variable %s not allowed in a term", input, v)
	}
	return term, nil
}

// MustParseTerm is ParseTerm for known-good literals in tests and
// examples; it panics on error.
func MustParseTerm(input string) *Term {
	term, err := ParseTerm(input)
	if err != nil {
		panic(err)
	}
	return term
}

func findPatternVar(t *Term) string {
	if isPatternVar(t.Op) {
		return t.Op
	}
	for _, a := range t.Args {
		if v := findPatternVar(a); v != "" {
			return v
		}
	}
	return ""
}
