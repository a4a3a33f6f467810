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

package exec

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/hyper-run/hyper/eval"
	"github.com/hyper-run/hyper/internal/env"
	"github.com/hyper-run/hyper/internal/errkind"
	"github.com/hyper-run/hyper/scheduler"
	"github.com/hyper-run/hyper/wire"
)

// ExpressionPrimitive evaluates one expression and writes the result
// into Dest (spec §4.6 "compute_expression<E>"). An empty result is an
// invalid-argument error, not ok with a zero value.
type ExpressionPrimitive struct {
	Evaluator *eval.Evaluator
	Expr      *wire.Expr
	Dest      **wire.Value

	mu      sync.Mutex
	cancel  context.CancelFunc
	aborted bool
}

// NewExpressionPrimitive builds a primitive writing Expr's value into
// dest once Compute delivers ok.
func NewExpressionPrimitive(ev *eval.Evaluator, e *wire.Expr, dest **wire.Value) *ExpressionPrimitive {
	return &ExpressionPrimitive{Evaluator: ev, Expr: e, Dest: dest}
}

func (p *ExpressionPrimitive) Compute(cb func(error)) {
	ctx, cancel := context.WithCancel(context.Background())
	p.mu.Lock()
	p.cancel = cancel
	p.aborted = false
	p.mu.Unlock()

	p.Evaluator.Eval(ctx, p.Expr, func(v *wire.Value, err error) {
		p.mu.Lock()
		aborted := p.aborted
		p.cancel = nil
		p.mu.Unlock()
		if aborted {
			cb(errkind.Interrupted)
			return
		}
		if err != nil {
			cb(err)
			return
		}
		if v.IsEmpty() {
			cb(errkind.InvalidArgument)
			return
		}
		*p.Dest = v
		cb(nil)
	})
}

func (p *ExpressionPrimitive) Abort() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel == nil {
		return false
	}
	p.aborted = true
	p.cancel()
	return true
}

func (p *ExpressionPrimitive) Pause()  { p.Abort() }
func (p *ExpressionPrimitive) Resume() {}

// WaitPrimitive polls a boolean expression every env.WaitPeriod until
// it is true, or until aborted (spec §4.6 "compute_wait<P>").
type WaitPrimitive struct {
	Evaluator *eval.Evaluator
	Pred      *wire.Expr

	mu      sync.Mutex
	cb      func(error)
	stop    chan struct{}
	paused  bool
	running bool
}

// NewWaitPrimitive builds a primitive that completes once pred
// evaluates true.
func NewWaitPrimitive(ev *eval.Evaluator, pred *wire.Expr) *WaitPrimitive {
	return &WaitPrimitive{Evaluator: ev, Pred: pred}
}

func (p *WaitPrimitive) Compute(cb func(error)) {
	p.mu.Lock()
	p.cb = cb
	p.stop = make(chan struct{})
	p.running = true
	p.mu.Unlock()
	p.poll()
}

func (p *WaitPrimitive) poll() {
	p.mu.Lock()
	if !p.running || p.paused {
		p.mu.Unlock()
		return
	}
	stop := p.stop
	p.mu.Unlock()

	p.Evaluator.Eval(context.Background(), p.Pred, func(v *wire.Value, err error) {
		select {
		case <-stop:
			return
		default:
		}
		if err != nil {
			p.finish(err)
			return
		}
		if v.Kind != wire.KindBool {
			p.finish(errkind.InvalidArgument)
			return
		}
		if v.BoolVal {
			p.finish(nil)
			return
		}
		scheduler.NewTimer(env.WaitPeriod, p.poll)
	})
}

func (p *WaitPrimitive) finish(e error) {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cb := p.cb
	p.mu.Unlock()
	cb(e)
}

func (p *WaitPrimitive) Abort() bool {
	p.mu.Lock()
	running := p.running
	stop := p.stop
	p.mu.Unlock()
	if !running {
		return false
	}
	close(stop)
	p.finish(errkind.Interrupted)
	return true
}

func (p *WaitPrimitive) Pause() {
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()
}

func (p *WaitPrimitive) Resume() {
	p.mu.Lock()
	p.paused = false
	p.mu.Unlock()
	p.poll()
}

// constraintSender is the subset of *transport.Conn a make/ensure
// primitive needs, narrowed for testability.
type constraintSender interface {
	Request(ctx context.Context, payload wire.Message) (*wire.Frame, error)
	Send(id wire.RequestID, payload wire.Message) error
}

// MakePrimitive sends a one-shot request_constraint (repeat=false) to a
// peer and reports ok/execution_ko from its answer (spec §4.6
// "compute_make").
type MakePrimitive struct {
	Conn       constraintSender
	Src        string
	Constraint *wire.Expr

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewMakePrimitive builds a primitive issuing a non-repeating constraint
// request over conn.
func NewMakePrimitive(conn constraintSender, src string, constraint *wire.Expr) *MakePrimitive {
	return &MakePrimitive{Conn: conn, Src: src, Constraint: constraint}
}

func (p *MakePrimitive) Compute(cb func(error)) {
	ctx, cancel := context.WithTimeout(context.Background(), env.RequestTimeout)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	id := uuid.New().String()
	go func() {
		f, err := p.Conn.Request(ctx, &wire.RequestConstraint{ID: id, Src: p.Src, Constraint: p.Constraint, Repeat: false})
		scheduler.Run(func() {
			p.mu.Lock()
			p.cancel = nil
			p.mu.Unlock()
			if err != nil {
				if ctx.Err() == context.Canceled {
					cb(errkind.Interrupted)
					return
				}
				cb(errkind.ExecutionFailed)
				return
			}
			ans, ok := f.Payload.(*wire.RequestConstraintAnswer)
			if !ok {
				cb(errkind.ExecutionFailed)
				return
			}
			switch ans.State {
			case wire.StateSuccess:
				cb(nil)
			case wire.StateInterrupted:
				cb(errkind.Interrupted)
			default:
				cb(errkind.ExecutionKo)
			}
		})
	}()
}

func (p *MakePrimitive) Abort() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel == nil {
		return false
	}
	p.cancel()
	return true
}

func (p *MakePrimitive) Pause()  { p.Abort() }
func (p *MakePrimitive) Resume() {}

// EnsurePrimitive is like MakePrimitive but repeat=true: it completes
// once the peer reports the constraint achieved and kept, and records
// the id this request was sent under so the caller can later issue
// compute_abort against the same peer and id (spec §4.6
// "compute_ensure": "writes back (peer, id) identifier so caller can
// later abort(id)").
type EnsurePrimitive struct {
	MakePrimitive
	PeerID string // the id this ensure was sent under, for a later AbortPrimitive
}

// NewEnsurePrimitive builds a repeat=true constraint request.
func NewEnsurePrimitive(conn constraintSender, src string, constraint *wire.Expr) *EnsurePrimitive {
	return &EnsurePrimitive{MakePrimitive: MakePrimitive{Conn: conn, Src: src, Constraint: constraint}}
}

func (p *EnsurePrimitive) Compute(cb func(error)) {
	ctx, cancel := context.WithTimeout(context.Background(), env.RequestTimeout)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	p.PeerID = uuid.New().String()
	go func() {
		f, err := p.Conn.Request(ctx, &wire.RequestConstraint{ID: p.PeerID, Src: p.Src, Constraint: p.Constraint, Repeat: true})
		scheduler.Run(func() {
			p.mu.Lock()
			p.cancel = nil
			p.mu.Unlock()
			if err != nil {
				if ctx.Err() == context.Canceled {
					cb(errkind.Interrupted)
					return
				}
				cb(errkind.ExecutionFailed)
				return
			}
			ans, ok := f.Payload.(*wire.RequestConstraintAnswer)
			if !ok {
				cb(errkind.ExecutionFailed)
				return
			}
			switch ans.State {
			case wire.StateSuccess:
				cb(nil)
			case wire.StateInterrupted:
				cb(errkind.Interrupted)
			default:
				cb(errkind.ExecutionKo)
			}
		})
	}()
}

// AbortPrimitive sends an abort frame for a prior ensure's id; it
// always succeeds locally regardless of whether the peer still
// recognizes the id (spec §4.6 "compute_abort(id)").
type AbortPrimitive struct {
	Conn constraintSender
	Src  string
	ID   string
}

// NewAbortPrimitive builds a primitive that cancels a previously issued
// ensure identified by id.
func NewAbortPrimitive(conn constraintSender, src, id string) *AbortPrimitive {
	return &AbortPrimitive{Conn: conn, Src: src, ID: id}
}

func (p *AbortPrimitive) Compute(cb func(error)) {
	p.Conn.Send(0, &wire.Abort{Src: p.Src, ID: p.ID})
	scheduler.Run(func() { cb(nil) })
}

func (p *AbortPrimitive) Abort() bool { return false }
func (p *AbortPrimitive) Pause()      {}
func (p *AbortPrimitive) Resume()     {}

var _ Primitive = (*ExpressionPrimitive)(nil)
var _ Primitive = (*WaitPrimitive)(nil)
var _ Primitive = (*MakePrimitive)(nil)
var _ Primitive = (*EnsurePrimitive)(nil)
var _ Primitive = (*AbortPrimitive)(nil)
