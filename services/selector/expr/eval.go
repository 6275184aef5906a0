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

import "math"

// eval walks the AST with an explicit depth counter. Every arithmetic step
// is finiteness-checked so a NaN or Inf can never escape to the caller.
func eval(n node, context map[string]float64, depth int) (float64, error) {
	if depth > MaxDepth {
		return 0, newEvalError(ErrDepthExceeded, "evaluation depth exceeds %d", MaxDepth)
	}

	switch t := n.(type) {
	case *numberNode:
		return t.value, nil

	case *varNode:
		v, ok := context[t.name]
		if !ok {
			return 0, newEvalError(ErrUndefinedVariable, "variable %q not in context", t.name)
		}
		return finite(v)

	case *unaryNode:
		v, err := eval(t.operand, context, depth+1)
		if err != nil {
			return 0, err
		}
		if t.negate {
			return -v, nil
		}
		return v, nil

	case *binaryNode:
		left, err := eval(t.left, context, depth+1)
		if err != nil {
			return 0, err
		}
		right, err := eval(t.right, context, depth+1)
		if err != nil {
			return 0, err
		}
		return evalBinary(t.op, left, right)

	case *callNode:
		args := make([]float64, len(t.args))
		for i, a := range t.args {
			v, err := eval(a, context, depth+1)
			if err != nil {
				return 0, err
			}
			args[i] = v
		}
		return evalCall(t, args)

	default:
		// Unreachable: the node set is closed.
		return 0, newEvalError(ErrNotFinite, "unknown node kind")
	}
}

// evalBinary applies a binary operator with the domain checks the catalog
// contract requires.
func evalBinary(op binOp, left, right float64) (float64, error) {
	switch op {
	case opAdd:
		return finite(left + right)
	case opSub:
		return finite(left - right)
	case opMul:
		return finite(left * right)
	case opDiv:
		if right == 0 {
			return 0, newEvalError(ErrDivisionByZero, "division by zero")
		}
		return finite(left / right)
	case opFloorDiv:
		if right == 0 {
			return 0, newEvalError(ErrDivisionByZero, "floor division by zero")
		}
		return finite(math.Floor(left / right))
	case opMod:
		if right == 0 {
			return 0, newEvalError(ErrDivisionByZero, "modulo by zero")
		}
		// Python-style modulo: result carries the sign of the divisor.
		m := math.Mod(left, right)
		if m != 0 && (m < 0) != (right < 0) {
			m += right
		}
		return finite(m)
	case opPow:
		if math.Abs(right) > MaxExponent {
			return 0, newEvalError(ErrExponentOutOfRange,
				"exponent %g exceeds magnitude bound %d", right, MaxExponent)
		}
		return finite(math.Pow(left, right))
	default:
		return 0, newEvalError(ErrNotFinite, "unknown operator")
	}
}

// evalCall applies a whitelisted function. Domain violations (log of a
// non-positive number, sqrt of a negative) surface as ErrNotFinite rather
// than leaking NaN.
func evalCall(call *callNode, args []float64) (float64, error) {
	switch call.fn {
	case fnLog:
		return finiteNamed(math.Log(args[0]), call.name)
	case fnLog10:
		return finiteNamed(math.Log10(args[0]), call.name)
	case fnLog2:
		return finiteNamed(math.Log2(args[0]), call.name)
	case fnSqrt:
		return finiteNamed(math.Sqrt(args[0]), call.name)
	case fnMin:
		m := args[0]
		for _, v := range args[1:] {
			m = math.Min(m, v)
		}
		return m, nil
	case fnMax:
		m := args[0]
		for _, v := range args[1:] {
			m = math.Max(m, v)
		}
		return m, nil
	case fnAbs:
		return math.Abs(args[0]), nil
	case fnCeil:
		return math.Ceil(args[0]), nil
	case fnFloor:
		return math.Floor(args[0]), nil
	case fnExp:
		return finiteNamed(math.Exp(args[0]), call.name)
	default:
		return 0, newEvalError(ErrNotFinite, "unknown function")
	}
}

// finite rejects NaN and ±Inf.
func finite(v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, newEvalError(ErrNotFinite, "operation produced a non-finite value")
	}
	return v, nil
}

// finiteNamed is finite with the function name in the message.
func finiteNamed(v float64, name string) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, newEvalError(ErrNotFinite, "%s produced a non-finite value", name)
	}
	return v, nil
}
