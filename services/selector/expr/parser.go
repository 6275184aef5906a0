// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package expr

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// =============================================================================
// AST
// =============================================================================

// binOp is the closed set of binary operators.
type binOp int

const (
	opAdd binOp = iota
	opSub
	opMul
	opDiv
	opFloorDiv
	opMod
	opPow
)

// String returns the operator's source form.
func (o binOp) String() string {
	switch o {
	case opAdd:
		return "+"
	case opSub:
		return "-"
	case opMul:
		return "*"
	case opDiv:
		return "/"
	case opFloorDiv:
		return "//"
	case opMod:
		return "%"
	case opPow:
		return "**"
	default:
		return "?"
	}
}

// fn is the closed set of whitelisted functions.
type fn int

const (
	fnLog fn = iota
	fnLog10
	fnLog2
	fnSqrt
	fnMin
	fnMax
	fnAbs
	fnCeil
	fnFloor
	fnExp
)

// functionTable maps function names to their identity and arity.
// variadic functions accept minArgs or more arguments.
var functionTable = map[string]struct {
	id       fn
	minArgs  int
	variadic bool
}{
	"log":   {fnLog, 1, false},
	"log10": {fnLog10, 1, false},
	"log2":  {fnLog2, 1, false},
	"sqrt":  {fnSqrt, 1, false},
	"min":   {fnMin, 2, true},
	"max":   {fnMax, 2, true},
	"abs":   {fnAbs, 1, false},
	"ceil":  {fnCeil, 1, false},
	"floor": {fnFloor, 1, false},
	"exp":   {fnExp, 1, false},
}

// node is the closed AST node set. Evaluation type-switches exhaustively
// over these kinds; there is no dynamic dispatch to host functions.
type node interface{ isNode() }

type numberNode struct {
	value float64
}

type varNode struct {
	name string
}

type unaryNode struct {
	negate  bool
	operand node
}

type binaryNode struct {
	op    binOp
	left  node
	right node
}

type callNode struct {
	fn   fn
	name string
	args []node
}

func (*numberNode) isNode() {}
func (*varNode) isNode()    {}
func (*unaryNode) isNode()  {}
func (*binaryNode) isNode() {}
func (*callNode) isNode()   {}

// =============================================================================
// Lexer
// =============================================================================

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokIdent
	tokOp    // + - * / // % **
	tokLParen
	tokRParen
	tokComma
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	pos  int
	num  float64
}

// lex tokenizes the full source up front so the parser can report precise
// offsets without re-scanning.
func lex(source string) ([]token, *Error) {
	var toks []token
	i := 0
	for i < len(source) {
		c := source[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c >= '0' && c <= '9' || c == '.':
			start := i
			for i < len(source) && (source[i] >= '0' && source[i] <= '9' || source[i] == '.') {
				i++
			}
			// Optional exponent suffix (1e3, 2.5e-2)
			if i < len(source) && (source[i] == 'e' || source[i] == 'E') {
				j := i + 1
				if j < len(source) && (source[j] == '+' || source[j] == '-') {
					j++
				}
				if j < len(source) && source[j] >= '0' && source[j] <= '9' {
					i = j
					for i < len(source) && source[i] >= '0' && source[i] <= '9' {
						i++
					}
				}
			}
			text := source[start:i]
			v, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, newBuildError(ErrSyntax, start, "malformed number %q", text)
			}
			toks = append(toks, token{kind: tokNumber, text: text, pos: start, num: v})
		case isIdentStart(rune(c)):
			start := i
			for i < len(source) && isIdentPart(rune(source[i])) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: source[start:i], pos: start})
		case c == '*':
			if i+1 < len(source) && source[i+1] == '*' {
				toks = append(toks, token{kind: tokOp, text: "**", pos: i})
				i += 2
			} else {
				toks = append(toks, token{kind: tokOp, text: "*", pos: i})
				i++
			}
		case c == '/':
			if i+1 < len(source) && source[i+1] == '/' {
				toks = append(toks, token{kind: tokOp, text: "//", pos: i})
				i += 2
			} else {
				toks = append(toks, token{kind: tokOp, text: "/", pos: i})
				i++
			}
		case c == '+' || c == '-' || c == '%':
			toks = append(toks, token{kind: tokOp, text: string(c), pos: i})
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma, text: ",", pos: i})
			i++
		default:
			return nil, newBuildError(ErrSyntax, i, "unexpected character %q", string(c))
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(source)})
	return toks, nil
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// =============================================================================
// Parser
// =============================================================================

// parser is a recursive-descent parser over the closed grammar:
//
//	expr   := term (('+'|'-') term)*
//	term   := unary (('*'|'/'|'//'|'%') unary)*
//	unary  := ('+'|'-') unary | power
//	power  := atom ('**' unary)?        (right-associative)
//	atom   := NUMBER | IDENT | IDENT '(' expr (',' expr)* ')' | '(' expr ')'
//
// Attribute access, subscripting, strings, and calls outside the whitelist
// are unrepresentable: the lexer has no tokens for them.
type parser struct {
	source string
	toks   []token
	pos    int
}

func newParser(source string) *parser {
	return &parser{source: source}
}

func (p *parser) parse() (node, error) {
	if strings.TrimSpace(p.source) == "" {
		return nil, newBuildError(ErrSyntax, 0, "empty expression")
	}
	toks, lerr := lex(p.source)
	if lerr != nil {
		return nil, lerr
	}
	p.toks = toks

	n, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, newBuildError(ErrSyntax, tok.pos, "unexpected %q", tok.text)
	}
	return n, nil
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

// acceptOp consumes the next token if it is the given operator.
func (p *parser) acceptOp(text string) (token, bool) {
	t := p.peek()
	if t.kind == tokOp && t.text == text {
		p.pos++
		return t, true
	}
	return token{}, false
}

func (p *parser) parseExpr(depth int) (node, error) {
	if depth > MaxDepth {
		return nil, newBuildError(ErrDepthExceeded, p.peek().pos, "parse depth exceeds %d", MaxDepth)
	}
	left, err := p.parseTerm(depth)
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.acceptOp("+"); ok {
			right, err := p.parseTerm(depth)
			if err != nil {
				return nil, err
			}
			left = &binaryNode{op: opAdd, left: left, right: right}
			continue
		}
		if _, ok := p.acceptOp("-"); ok {
			right, err := p.parseTerm(depth)
			if err != nil {
				return nil, err
			}
			left = &binaryNode{op: opSub, left: left, right: right}
			continue
		}
		return left, nil
	}
}

func (p *parser) parseTerm(depth int) (node, error) {
	if depth > MaxDepth {
		return nil, newBuildError(ErrDepthExceeded, p.peek().pos, "parse depth exceeds %d", MaxDepth)
	}
	left, err := p.parseUnary(depth)
	if err != nil {
		return nil, err
	}
	for {
		var op binOp
		switch {
		case p.match("*"):
			op = opMul
		case p.match("/"):
			op = opDiv
		case p.match("//"):
			op = opFloorDiv
		case p.match("%"):
			op = opMod
		default:
			return left, nil
		}
		right, err := p.parseUnary(depth)
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
}

// match consumes the next token if it is the given operator text.
func (p *parser) match(text string) bool {
	_, ok := p.acceptOp(text)
	return ok
}

func (p *parser) parseUnary(depth int) (node, error) {
	if depth > MaxDepth {
		return nil, newBuildError(ErrDepthExceeded, p.peek().pos, "parse depth exceeds %d", MaxDepth)
	}
	if _, ok := p.acceptOp("-"); ok {
		operand, err := p.parseUnary(depth + 1)
		if err != nil {
			return nil, err
		}
		// Fold -literal so bounds checks see the signed value.
		if num, isNum := operand.(*numberNode); isNum {
			return &numberNode{value: -num.value}, nil
		}
		return &unaryNode{negate: true, operand: operand}, nil
	}
	if _, ok := p.acceptOp("+"); ok {
		return p.parseUnary(depth + 1)
	}
	return p.parsePower(depth)
}

func (p *parser) parsePower(depth int) (node, error) {
	if depth > MaxDepth {
		return nil, newBuildError(ErrDepthExceeded, p.peek().pos, "parse depth exceeds %d", MaxDepth)
	}
	base, err := p.parseAtom(depth)
	if err != nil {
		return nil, err
	}
	if tok, ok := p.acceptOp("**"); ok {
		// Right-associative; exponent may carry unary sign.
		exponent, err := p.parseUnary(depth + 1)
		if err != nil {
			return nil, err
		}
		if num, isNum := exponent.(*numberNode); isNum && math.Abs(num.value) > MaxExponent {
			return nil, newBuildError(ErrExponentOutOfRange, tok.pos,
				"exponent %g exceeds magnitude bound %d", num.value, MaxExponent)
		}
		return &binaryNode{op: opPow, left: base, right: exponent}, nil
	}
	return base, nil
}

func (p *parser) parseAtom(depth int) (node, error) {
	if depth > MaxDepth {
		return nil, newBuildError(ErrDepthExceeded, p.peek().pos, "parse depth exceeds %d", MaxDepth)
	}
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		return &numberNode{value: tok.num}, nil

	case tokIdent:
		// Function call?
		if p.peek().kind == tokLParen {
			spec, known := functionTable[tok.text]
			if !known {
				return nil, newBuildError(ErrUnknownFunction, tok.pos, "function %q is not allowed", tok.text)
			}
			p.next() // consume '('
			var args []node
			if p.peek().kind != tokRParen {
				for {
					arg, err := p.parseExpr(depth + 1)
					if err != nil {
						return nil, err
					}
					args = append(args, arg)
					if p.peek().kind == tokComma {
						p.next()
						continue
					}
					break
				}
			}
			if closeTok := p.next(); closeTok.kind != tokRParen {
				return nil, newBuildError(ErrSyntax, closeTok.pos, "expected ')' after arguments to %q", tok.text)
			}
			if spec.variadic {
				if len(args) < spec.minArgs {
					return nil, newBuildError(ErrSyntax, tok.pos,
						"%s expects at least %d arguments, got %d", tok.text, spec.minArgs, len(args))
				}
			} else if len(args) != spec.minArgs {
				return nil, newBuildError(ErrSyntax, tok.pos,
					"%s expects %d argument(s), got %d", tok.text, spec.minArgs, len(args))
			}
			return &callNode{fn: spec.id, name: tok.text, args: args}, nil
		}

		// Constant?
		if v, ok := constants[tok.text]; ok {
			return &numberNode{value: v}, nil
		}

		// Variable?
		if Variables[tok.text] {
			return &varNode{name: tok.text}, nil
		}

		return nil, newBuildError(ErrUnknownIdentifier, tok.pos, "identifier %q is not allowed", tok.text)

	case tokLParen:
		inner, err := p.parseExpr(depth + 1)
		if err != nil {
			return nil, err
		}
		if closeTok := p.next(); closeTok.kind != tokRParen {
			return nil, newBuildError(ErrSyntax, closeTok.pos, "expected ')'")
		}
		return inner, nil

	case tokEOF:
		return nil, newBuildError(ErrSyntax, tok.pos, "unexpected end of expression")

	default:
		return nil, newBuildError(ErrSyntax, tok.pos, "unexpected %q", tok.text)
	}
}
