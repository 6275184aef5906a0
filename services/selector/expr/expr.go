// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package expr parses and evaluates the small numeric formulas embedded in
// the tool catalog (e.g. "120 + 0.02 * N").
//
// The grammar is closed by construction: arithmetic operators
// (+ - * / // % **), unary sign, a fixed function whitelist, the constants
// pi and e, and a fixed variable set. Formulas are untrusted catalog data,
// so they are never handed to a general-purpose evaluator — Build compiles
// the source into an immutable AST once, and Evaluate walks that AST with
// a recursion-depth counter and finiteness checks on every operation.
//
// Thread Safety:
//
//	An Expression is immutable after Build and safe for concurrent
//	Evaluate calls.
package expr

import (
	"math"
)

const (
	// MaxDepth bounds both parse and evaluation recursion.
	MaxDepth = 20

	// MaxExponent bounds the magnitude of any '**' exponent.
	MaxExponent = 100
)

// Variables is the fixed set of identifiers an expression may reference.
// Anything else fails Build with ErrUnknownIdentifier.
var Variables = map[string]bool{
	"N":           true,
	"pages":       true,
	"p95_latency": true,
	"cost":        true,
	"time_ms":     true,
}

// constants are folded into literals at build time.
var constants = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

// Expression is an immutable compiled formula.
//
// Build it once at catalog-load time; Evaluate is side-effect-free and
// deterministic for a given context.
type Expression struct {
	root   node
	source string
	vars   []string
}

// Build compiles source into an Expression.
//
// Description:
//
//	Tokenizes and parses the source against the closed grammar. Rejects
//	unknown identifiers and functions, any syntax outside the grammar,
//	parse depth beyond MaxDepth, and literal '**' exponents beyond
//	MaxExponent. Constants (pi, e) are folded into literals.
//
// Inputs:
//   - source: The formula text. Must not be empty.
//
// Outputs:
//   - *Expression: The compiled expression. Never nil on success.
//   - error: *Error with a build-time kind and source offset on failure.
func Build(source string) (*Expression, error) {
	p := newParser(source)
	root, err := p.parse()
	if err != nil {
		return nil, err
	}

	// The parser's recursion counter tracks grammar nesting, but a long
	// left-associative chain ("1 + 1 + ...") nests the AST one level per
	// operator without it. Measure the built tree so anything Evaluate
	// would refuse is rejected here, at load time.
	if d := depthOf(root); d > MaxDepth {
		return nil, newBuildError(ErrDepthExceeded, 0,
			"expression depth %d exceeds %d", d, MaxDepth)
	}

	seen := map[string]bool{}
	collectVars(root, seen)
	vars := make([]string, 0, len(seen))
	for v := range seen {
		vars = append(vars, v)
	}

	return &Expression{root: root, source: source, vars: vars}, nil
}

// Source returns the original formula text.
func (e *Expression) Source() string {
	return e.source
}

// Vars returns the variables the expression references, in no particular
// order. Useful for validating a runtime context up front.
func (e *Expression) Vars() []string {
	out := make([]string, len(e.vars))
	copy(out, e.vars)
	return out
}

// Evaluate computes the expression against a variable context.
//
// Description:
//
//	Deterministic and side-effect-free. Fails with ErrUndefinedVariable
//	if a referenced variable is missing from context, ErrDivisionByZero
//	on '/', '//' or '%' by zero, ErrExponentOutOfRange if a '**' exponent
//	magnitude exceeds MaxExponent, ErrDepthExceeded if recursion exceeds
//	MaxDepth, and ErrNotFinite if any step would produce NaN or ±Inf.
//	A non-finite value is never returned.
//
// Inputs:
//   - context: Variable values. Keys outside the fixed variable set are
//     ignored.
//
// Outputs:
//   - float64: The finite result.
//   - error: *Error with an evaluation-time kind on failure.
func (e *Expression) Evaluate(context map[string]float64) (float64, error) {
	v, err := eval(e.root, context, 0)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, newEvalError(ErrNotFinite, "result is not finite")
	}
	return v, nil
}

// EvaluateBool evaluates the expression and interprets the result as a
// boolean: any nonzero value is true. Used for policy predicates such as
// requires_background_if.
func (e *Expression) EvaluateBool(context map[string]float64) (bool, error) {
	v, err := e.Evaluate(context)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// depthOf returns the height of the AST, counted the same way eval
// counts recursion levels.
func depthOf(n node) int {
	switch t := n.(type) {
	case *unaryNode:
		return 1 + depthOf(t.operand)
	case *binaryNode:
		left, right := depthOf(t.left), depthOf(t.right)
		if left > right {
			return 1 + left
		}
		return 1 + right
	case *callNode:
		deepest := 0
		for _, a := range t.args {
			if d := depthOf(a); d > deepest {
				deepest = d
			}
		}
		return 1 + deepest
	default:
		return 0
	}
}

// collectVars walks the AST gathering variable references.
func collectVars(n node, seen map[string]bool) {
	switch t := n.(type) {
	case *varNode:
		seen[t.name] = true
	case *unaryNode:
		collectVars(t.operand, seen)
	case *binaryNode:
		collectVars(t.left, seen)
		collectVars(t.right, seen)
	case *callNode:
		for _, a := range t.args {
			collectVars(a, seen)
		}
	}
}
