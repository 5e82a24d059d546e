package boolexpr

import (
	"fmt"
	"strings"
	"unicode"
)

// ParseError describes a syntax error with its rune offset in the input.
type ParseError struct {
	Pos     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at position %d: %s", e.Pos, e.Message)
}

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// lex splits the expression into tokens. Identifiers are runs of letters,
// digits, '_', '-', '.' and ':'; operator keywords are case-insensitive.
func lex(input string) ([]token, error) {
	var toks []token
	runes := []rune(input)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case r == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case isIdentRune(r):
			start := i
			for i < len(runes) && isIdentRune(runes[i]) {
				i++
			}
			text := string(runes[start:i])
			switch strings.ToUpper(text) {
			case "AND":
				toks = append(toks, token{kind: tokAnd, text: text, pos: start})
			case "OR":
				toks = append(toks, token{kind: tokOr, text: text, pos: start})
			case "NOT":
				toks = append(toks, token{kind: tokNot, text: text, pos: start})
			default:
				toks = append(toks, token{kind: tokIdent, text: text, pos: start})
			}
		default:
			return nil, &ParseError{Pos: i, Message: fmt.Sprintf("unexpected character %q", r)}
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(runes)})
	return toks, nil
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) ||
		r == '_' || r == '-' || r == '.' || r == ':'
}

type parser struct {
	toks []token
	i    int
}

// Parse parses the expression into an AST. The empty string is rejected;
// callers treat an absent expression as "no boolean logic requested".
func Parse(input string) (Node, error) {
	if strings.TrimSpace(input) == "" {
		return nil, &ParseError{Pos: 0, Message: "empty expression"}
	}
	toks, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		t := p.peek()
		return nil, &ParseError{Pos: t.pos, Message: fmt.Sprintf("unexpected token %q", t.text)}
	}
	return node, nil
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Or{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = &And{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseFactor() (Node, error) {
	if p.peek().kind == tokNot {
		p.next()
		expr, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return &Not{Expr: expr}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	t := p.next()
	switch t.kind {
	case tokIdent:
		return &Ident{Name: t.text}, nil
	case tokLParen:
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		closing := p.next()
		if closing.kind != tokRParen {
			return nil, &ParseError{Pos: closing.pos, Message: "expected ')'"}
		}
		return expr, nil
	case tokEOF:
		return nil, &ParseError{Pos: t.pos, Message: "unexpected end of expression"}
	default:
		return nil, &ParseError{Pos: t.pos, Message: fmt.Sprintf("unexpected token %q", t.text)}
	}
}
