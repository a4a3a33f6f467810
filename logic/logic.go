// Copyright (c) Hyper Authors. All Rights Reserved.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package logic is the recipe-selection collaborator's contract (spec
// §6): out of scope to implement fully, but the tri-state constant
// folder it depends on for precondition shortcutting belongs here since
// nothing else in the runtime touches symbolic facts.
package logic

import "github.com/hyper-run/hyper/wire"

// Tribool is the tri-state logic result: true, false, or indeterminate
// when an operand is symbolic rather than constant (spec §4.5, last
// paragraph).
type Tribool int8

const (
	Indeterminate Tribool = iota
	True
	False
)

func (t Tribool) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "indeterminate"
	}
}

// FoldConstant evaluates e using only its constant sub-expressions: any
// variable reference makes the whole node indeterminate, since the
// logic engine cannot block on a remote read while constant-folding.
func FoldConstant(e *wire.Expr) Tribool {
	v, ok := foldValue(e)
	if !ok || v.Kind != wire.KindBool {
		return Indeterminate
	}
	if v.BoolVal {
		return True
	}
	return False
}

// foldValue recursively folds e into a concrete *wire.Value, or reports
// ok=false the moment a variable or unsupported node is reached.
func foldValue(e *wire.Expr) (*wire.Value, bool) {
	if e == nil {
		return nil, false
	}
	switch e.Kind {
	case wire.NodeConstant:
		return e.Const, true
	case wire.NodeVariable:
		return nil, false
	case wire.NodeBinaryOp:
		l, ok := foldValue(e.Left)
		if !ok {
			return nil, false
		}
		r, ok := foldValue(e.Right)
		if !ok {
			return nil, false
		}
		return foldBinary(e.Op, l, r)
	case wire.NodeUnaryOp:
		v, ok := foldValue(e.Subject)
		if !ok {
			return nil, false
		}
		res, err := wire.Arithmetic(e.Op, v, nil)
		if err != nil {
			return nil, false
		}
		return res, true
	default:
		return nil, false
	}
}

func foldBinary(op wire.Op, l, r *wire.Value) (*wire.Value, bool) {
	switch op {
	case wire.OpAdd, wire.OpSub, wire.OpMul, wire.OpDiv:
		v, err := wire.Arithmetic(op, l, r)
		return v, err == nil
	case wire.OpEq:
		ok, err := l.Equal(r)
		return wire.Bool(ok), err == nil
	case wire.OpNeq:
		ok, err := l.Equal(r)
		return wire.Bool(!ok), err == nil
	case wire.OpLt:
		c, err := l.Compare(r)
		return wire.Bool(c < 0), err == nil
	case wire.OpLte:
		c, err := l.Compare(r)
		return wire.Bool(c <= 0), err == nil
	case wire.OpGt:
		c, err := l.Compare(r)
		return wire.Bool(c > 0), err == nil
	case wire.OpGte:
		c, err := l.Compare(r)
		return wire.Bool(c >= 0), err == nil
	case wire.OpAnd:
		if l.Kind != wire.KindBool || r.Kind != wire.KindBool {
			return nil, false
		}
		return wire.Bool(l.BoolVal && r.BoolVal), true
	case wire.OpOr:
		if l.Kind != wire.KindBool || r.Kind != wire.KindBool {
			return nil, false
		}
		return wire.Bool(l.BoolVal || r.BoolVal), true
	default:
		return nil, false
	}
}

// Engine is the recipe-selection collaborator's contract: adding facts,
// selecting the next recipe to run, and evaluating a condition against
// the current fact base. Its implementation is out of scope (spec §6);
// Hyper only needs to depend on this interface.
type Engine interface {
	AddFact(name string, value *wire.Value)
	SelectRecipe(facts map[string]*wire.Value) (string, bool)
	Evaluate(e *wire.Expr) Tribool
}
