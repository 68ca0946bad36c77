package expr

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokAtom tokenKind = iota
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

// delimiters are the characters that terminate an atom. Comma is accepted
// and ignored between tokens for compatibility with list-style sources.
const delimiters = "()&|!,"

func isDelimiter(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' ||
		strings.IndexByte(delimiters, c) >= 0
}

func lex(src string) []token {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == ',':
			i++

		case c == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++

		case c == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++

		case c == '!':
			toks = append(toks, token{tokNot, "!", i})
			i++

		case c == '&':
			start := i
			i++
			if i < len(src) && src[i] == '&' {
				i++
			}
			toks = append(toks, token{tokAnd, src[start:i], start})

		case c == '|':
			start := i
			i++
			if i < len(src) && src[i] == '|' {
				i++
			}
			toks = append(toks, token{tokOr, src[start:i], start})

		default:
			start := i
			for i < len(src) && !isDelimiter(src[i]) {
				i++
			}
			toks = append(toks, token{tokAtom, src[start:i], start})
		}
	}
	return append(toks, token{tokEOF, "", len(src)})
}

type parser struct {
	source string
	toks   []token
	pos    int
	known  func(string) bool
	atoms  []string
	seen   map[string]bool
}

// Compile parses source into an immutable Expr. Every atom is resolved
// against known as it is tokenized; an atom for which known returns false
// fails compilation with *UnknownAtomError. A nil known accepts any atom.
// Malformed source fails with *SyntaxError.
func Compile(source string, known func(atom string) bool) (*Expr, error) {
	p := &parser{
		source: source,
		toks:   lex(source),
		known:  known,
		seen:   make(map[string]bool),
	}

	if p.peek().kind == tokEOF {
		return nil, &SyntaxError{Source: source, Offset: 0, Msg: "empty expression"}
	}

	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	if tok := p.peek(); tok.kind != tokEOF {
		return nil, &SyntaxError{
			Source: source,
			Offset: tok.pos,
			Msg:    fmt.Sprintf("unexpected %q", tok.text),
		}
	}

	return &Expr{source: source, root: root, atoms: p.atoms}, nil
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

// parseOr handles the lowest-precedence level: operand (| operand)*.
func (p *parser) parseOr() (*Node, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	children := []*Node{first}
	for p.peek().kind == tokOr {
		p.next()
		operand, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		children = append(children, operand)
	}

	if len(children) == 1 {
		return first, nil
	}
	return &Node{Kind: NodeOr, Children: children}, nil
}

// parseAnd handles operand (& operand)*.
func (p *parser) parseAnd() (*Node, error) {
	first, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	children := []*Node{first}
	for p.peek().kind == tokAnd {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		children = append(children, operand)
	}

	if len(children) == 1 {
		return first, nil
	}
	return &Node{Kind: NodeAnd, Children: children}, nil
}

// parseUnary handles negation, grouping and atoms.
func (p *parser) parseUnary() (*Node, error) {
	switch tok := p.peek(); tok.kind {
	case tokNot:
		p.next()
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Node{Kind: NodeNot, Children: []*Node{child}}, nil

	case tokLParen:
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, &SyntaxError{
				Source: p.source,
				Offset: closing.pos,
				Msg:    "missing closing parenthesis",
			}
		}
		return inner, nil

	case tokAtom:
		p.next()
		if p.known != nil && !p.known(tok.text) {
			return nil, &UnknownAtomError{Atom: tok.text, Source: p.source}
		}
		if !p.seen[tok.text] {
			p.seen[tok.text] = true
			p.atoms = append(p.atoms, tok.text)
		}
		return &Node{Kind: NodeAtom, Atom: tok.text}, nil

	default:
		return nil, &SyntaxError{
			Source: p.source,
			Offset: tok.pos,
			Msg:    fmt.Sprintf("expected atom or group, got %s", describe(tok)),
		}
	}
}

func describe(tok token) string {
	if tok.kind == tokEOF {
		return "end of expression"
	}
	return fmt.Sprintf("%q", tok.text)
}
