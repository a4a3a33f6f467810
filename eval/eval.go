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

// Package eval is the asynchronous expression evaluator (spec §4.5):
// recursive evaluation of a typed expression tree mixing constants,
// local variables, remote variables and pure functions, with parallel
// fan-out of argument computation and monad-like empty-propagation.
package eval

import (
	"context"
	"sync"

	"github.com/hyper-run/hyper/internal/errkind"
	"github.com/hyper-run/hyper/proxy"
	"github.com/hyper-run/hyper/scheduler"
	"github.com/hyper-run/hyper/wire"
)

// Local is the owning agent's cell store: the Variable case refreshes
// then reads from it for unscoped (or self-scoped) names.
type Local interface {
	Refresh(ctx context.Context, name string, cb func(error))
	Read(name string) (*wire.Value, error)
}

// Func is a pure function kernel registered under its call name.
type Func func(args []*wire.Value) (*wire.Value, error)

// Evaluator walks an *wire.Expr tree, dispatching variable reads to
// Local or Proxy depending on scope and function calls to Funcs.
type Evaluator struct {
	Self  string // this agent's own name, for "scoped to self" detection
	Local Local
	Proxy *proxy.Proxy
	Funcs map[string]Func
}

// New builds an Evaluator. funcs may be nil; built-in operators never
// go through it.
func New(self string, local Local, px *proxy.Proxy, funcs map[string]Func) *Evaluator {
	if funcs == nil {
		funcs = map[string]Func{}
	}
	return &Evaluator{Self: self, Local: local, Proxy: px, Funcs: funcs}
}

// Eval evaluates e and delivers the result to cb on the reactor. An
// empty value (wire.Empty(), non-nil with the empty kind) with a nil
// error signals empty-propagation (spec §4.5:
// "if all succeed but a sub-result is empty, the containing result is
// empty, not an error").
func (ev *Evaluator) Eval(ctx context.Context, e *wire.Expr, cb func(*wire.Value, error)) {
	if e == nil || e.Kind == wire.NodeEmpty {
		scheduler.Run(func() { cb(wire.Empty(), nil) })
		return
	}
	switch e.Kind {
	case wire.NodeConstant:
		scheduler.Run(func() { cb(e.Const, nil) })
	case wire.NodeVariable:
		ev.evalVariable(ctx, e.Name, cb)
	case wire.NodeFunctionCall:
		ev.evalArgs(ctx, e.Args, func(args []*wire.Value, err error) {
			if err != nil {
				cb(nil, err)
				return
			}
			if anyEmpty(args) {
				cb(wire.Empty(), nil)
				return
			}
			fn, ok := ev.Funcs[e.Name]
			if !ok {
				cb(nil, errkind.InvalidArgument)
				return
			}
			v, err := fn(args)
			cb(v, err)
		})
	case wire.NodeBinaryOp:
		ev.evalArgs(ctx, []*wire.Expr{e.Left, e.Right}, func(args []*wire.Value, err error) {
			if err != nil {
				cb(nil, err)
				return
			}
			if anyEmpty(args) {
				cb(wire.Empty(), nil)
				return
			}
			v, err := applyBinary(e.Op, args[0], args[1])
			cb(v, err)
		})
	case wire.NodeUnaryOp:
		ev.Eval(ctx, e.Subject, func(v *wire.Value, err error) {
			if err != nil {
				cb(nil, err)
				return
			}
			if v.IsEmpty() {
				cb(wire.Empty(), nil)
				return
			}
			res, err := wire.Arithmetic(e.Op, v, nil)
			cb(res, err)
		})
	default:
		scheduler.Run(func() { cb(nil, errkind.InvalidArgument) })
	}
}

func (ev *Evaluator) evalVariable(ctx context.Context, name string, cb func(*wire.Value, error)) {
	if wire.IsScoped(name) {
		agent, variable := wire.Decompose(name)
		if agent == ev.Self {
			ev.evalLocal(ctx, variable, cb)
			return
		}
		ev.Proxy.Get(ctx, agent, variable, cb)
		return
	}
	ev.evalLocal(ctx, name, cb)
}

func (ev *Evaluator) evalLocal(ctx context.Context, name string, cb func(*wire.Value, error)) {
	ev.Local.Refresh(ctx, name, func(err error) {
		if err != nil {
			cb(nil, err)
			return
		}
		v, err := ev.Local.Read(name)
		cb(v, err)
	})
}

// evalArgs fans args out in parallel and joins, preserving order in the
// returned slice regardless of completion order.
func (ev *Evaluator) evalArgs(ctx context.Context, args []*wire.Expr, cb func([]*wire.Value, error)) {
	if len(args) == 0 {
		cb(nil, nil)
		return
	}
	results := make([]*wire.Value, len(args))
	errs := make([]error, len(args))
	var wg sync.WaitGroup
	wg.Add(len(args))
	for i, a := range args {
		i, a := i, a
		ev.Eval(ctx, a, func(v *wire.Value, err error) {
			results[i], errs[i] = v, err
			wg.Done()
		})
	}
	go func() {
		wg.Wait()
		for _, err := range errs {
			if err != nil {
				scheduler.Run(func() { cb(nil, err) })
				return
			}
		}
		scheduler.Run(func() { cb(results, nil) })
	}()
}

func anyEmpty(vs []*wire.Value) bool {
	for _, v := range vs {
		if v.IsEmpty() {
			return true
		}
	}
	return false
}

func applyBinary(op wire.Op, a, b *wire.Value) (*wire.Value, error) {
	switch op {
	case wire.OpAdd, wire.OpSub, wire.OpMul, wire.OpDiv:
		return wire.Arithmetic(op, a, b)
	case wire.OpEq:
		ok, err := a.Equal(b)
		return boolOrErr(ok, err)
	case wire.OpNeq:
		ok, err := a.Equal(b)
		return boolOrErr(!ok, err)
	case wire.OpLt:
		c, err := a.Compare(b)
		return boolOrErr(c < 0, err)
	case wire.OpLte:
		c, err := a.Compare(b)
		return boolOrErr(c <= 0, err)
	case wire.OpGt:
		c, err := a.Compare(b)
		return boolOrErr(c > 0, err)
	case wire.OpGte:
		c, err := a.Compare(b)
		return boolOrErr(c >= 0, err)
	case wire.OpAnd:
		if a.Kind != wire.KindBool || b.Kind != wire.KindBool {
			return nil, errkind.InvalidArgument
		}
		return wire.Bool(a.BoolVal && b.BoolVal), nil
	case wire.OpOr:
		if a.Kind != wire.KindBool || b.Kind != wire.KindBool {
			return nil, errkind.InvalidArgument
		}
		return wire.Bool(a.BoolVal || b.BoolVal), nil
	default:
		return nil, errkind.InvalidArgument
	}
}

func boolOrErr(b bool, err error) (*wire.Value, error) {
	if err != nil {
		return nil, err
	}
	return wire.Bool(b), nil
}
