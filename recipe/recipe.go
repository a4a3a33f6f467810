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

// Package recipe is the recipe execution model (spec §4.8): a named
// abortable procedure that, given its preconditions hold, drives a
// sequence of primitives to establish a constraint, then optionally
// runs an end handler.
package recipe

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/hyper-run/hyper/exec"
	"github.com/hyper-run/hyper/internal/env"
	"github.com/hyper-run/hyper/internal/errkind"
	"github.com/hyper-run/hyper/internal/log"
	"github.com/hyper-run/hyper/wire"
)

// state is the recipe's lifecycle (spec §3: "Idle → Running →
// (Paused ↔ Running) → Ended; Idle ← Ended"). endExecute returns a
// finished execution straight to stateIdle; stateEnded is declared but
// never entered.
type state int

const (
	stateIdle state = iota
	stateRunning
	statePaused
	stateEnded
)

// BodyFactory builds the ordered primitive list for one execution of a
// recipe's body. Called fresh on every Execute, since a recipe may be
// re-run after an execution finishes.
type BodyFactory func() []exec.Primitive

// Recipe is owned exclusively by its task (spec §3): it holds its
// preconditions evaluator, body factory, optional end-handler factory,
// and the bookkeeping required_agents / constraint_domain sets a
// compiler-emitted recipe definition would have populated.
type Recipe struct {
	Name          string
	Preconditions *exec.ConditionEvaluator
	Body          BodyFactory
	EndHandler    BodyFactory
	HasEndHandler bool
	ExpectedErr   *wire.Expr

	requiredAgents   map[string]struct{}
	constraintDomain map[string]*wire.Expr

	mu      sync.Mutex
	st      state
	seq     *exec.Sequence
	pending []func(error)
}

// New builds a recipe named name, driven by preconditions then body,
// with an optional end handler.
func New(name string, preconditions *exec.ConditionEvaluator, body BodyFactory) *Recipe {
	return &Recipe{
		Name:             name,
		Preconditions:    preconditions,
		Body:             body,
		st:               stateIdle,
		requiredAgents:   make(map[string]struct{}),
		constraintDomain: make(map[string]*wire.Expr),
	}
}

// WithEndHandler attaches an end handler run after a successful body.
func (r *Recipe) WithEndHandler(h BodyFactory) *Recipe {
	r.EndHandler = h
	r.HasEndHandler = true
	return r
}

// WithExpectedError attaches the domain error this recipe's body may
// legitimately end in; a caller checking ExpectedError can suppress
// propagating it as a surprising failure.
func (r *Recipe) WithExpectedError(e *wire.Expr) *Recipe {
	r.ExpectedErr = e
	return r
}

// RequireAgent records name in the recipe's required-agent set (spec
// §3), used by a task to compute which peers a recipe instance depends
// on before it starts.
func (r *Recipe) RequireAgent(name string) { r.requiredAgents[name] = struct{}{} }

// RequiredAgents returns the recipe's required-agent set.
func (r *Recipe) RequiredAgents() []string {
	out := make([]string, 0, len(r.requiredAgents))
	for a := range r.requiredAgents {
		out = append(out, a)
	}
	return out
}

// AddConstraint records a logic expression appearing in a make/ensure
// primitive of this recipe's body (spec §3 "constraint-domain set").
func (r *Recipe) AddConstraint(key string, e *wire.Expr) { r.constraintDomain[key] = e }

// ConstraintDomain returns the recipe's constraint-domain set.
func (r *Recipe) ConstraintDomain() []*wire.Expr {
	out := make([]*wire.Expr, 0, len(r.constraintDomain))
	for _, e := range r.constraintDomain {
		out = append(out, e)
	}
	return out
}

// ExpectedError reports the expression registered via
// WithExpectedError, or nil if none was set.
func (r *Recipe) ExpectedError() *wire.Expr { return r.ExpectedErr }

// Execute runs the recipe: preconditions, then body, then (if present)
// the end handler. If an execution is already in progress, cb is queued
// and fires once that execution (not this call) completes (spec §4.8).
func (r *Recipe) Execute(ctx context.Context, cb func(error)) {
	r.mu.Lock()
	if r.st == stateRunning || r.st == statePaused {
		r.pending = append(r.pending, cb)
		r.mu.Unlock()
		return
	}
	r.st = stateRunning
	r.mu.Unlock()

	traceID := uuid.New().String()
	if env.Debug {
		log.Printf("recipe %s: execution %s starting", r.Name, traceID)
	}
	cb = r.traced(traceID, cb)

	if r.Preconditions == nil {
		r.runBody(ctx, cb)
		return
	}
	r.Preconditions.AsyncCompute(ctx, func(res *exec.ConditionResult, err error) {
		if err != nil {
			r.endExecute(&errkind.RuntimeFailure{Recipe: r.Name, Err: err}, cb)
			return
		}
		if len(res.Unsatisfied) > 0 {
			r.endExecute(&errkind.RuntimeFailure{
				Recipe:     r.Name,
				Expression: res.Unsatisfied[0].Text(),
				Err:        errkind.ExecutionKo,
			}, cb)
			return
		}
		r.runBody(ctx, cb)
	})
}

// traced wraps cb so its completion is logged under traceID when
// env.Debug is set, giving a recipe execution a stable id to grep for
// across its precondition/body/end-handler log lines.
func (r *Recipe) traced(traceID string, cb func(error)) func(error) {
	if !env.Debug {
		return cb
	}
	return func(err error) {
		log.Printf("recipe %s: execution %s finished err=%v", r.Name, traceID, err)
		cb(err)
	}
}

func (r *Recipe) runBody(ctx context.Context, cb func(error)) {
	prims := r.Body()
	seq := exec.NewSequence(prims)
	r.mu.Lock()
	r.seq = seq
	r.mu.Unlock()

	seq.Run(func(err error) {
		if err != nil {
			r.endExecute(r.wrapSequenceError(err, seq), cb)
			return
		}
		if !r.HasEndHandler {
			r.endExecute(nil, cb)
			return
		}
		endSeq := exec.NewSequence(r.EndHandler())
		r.mu.Lock()
		r.seq = endSeq
		r.mu.Unlock()
		endSeq.Run(func(endErr error) {
			if endErr != nil {
				r.endExecute(r.wrapSequenceError(endErr, endSeq), cb)
				return
			}
			r.endExecute(nil, cb)
		})
	})
}

// wrapSequenceError converts a terminated sequence's error into a
// runtime_failure carrying the recipe's name (spec §4.8, §7); a
// transport error is reported as execution_failed. The failing
// primitive's expression is not recorded (Expression stays empty), and
// the expected-error slot is not consulted: every error is wrapped.
func (r *Recipe) wrapSequenceError(err error, seq *exec.Sequence) error {
	if errkind.Is(err, errkind.TransportError) {
		err = errkind.ExecutionFailed
	}
	return &errkind.RuntimeFailure{Recipe: r.Name, Err: err}
}

func (r *Recipe) endExecute(err error, cb func(error)) {
	r.mu.Lock()
	r.st = stateIdle
	r.seq = nil
	waiters := r.pending
	r.pending = nil
	r.mu.Unlock()

	cb(err)
	for _, w := range waiters {
		w(err)
	}
}

// Pause suspends the recipe's currently running sequence (body or end
// handler), if any.
func (r *Recipe) Pause() {
	r.mu.Lock()
	seq := r.seq
	if r.st == stateRunning {
		r.st = statePaused
	}
	r.mu.Unlock()
	if seq != nil {
		seq.Pause()
	}
}

// Resume un-suspends the recipe's currently running sequence.
func (r *Recipe) Resume() {
	r.mu.Lock()
	seq := r.seq
	if r.st == statePaused {
		r.st = stateRunning
	}
	r.mu.Unlock()
	if seq != nil {
		seq.Resume()
	}
}

// Abort tears down the recipe's currently running sequence.
func (r *Recipe) Abort() {
	r.mu.Lock()
	seq := r.seq
	r.mu.Unlock()
	if seq != nil {
		seq.Abort()
	}
}
