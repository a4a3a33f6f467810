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

	"github.com/hyper-run/hyper/eval"
	"github.com/hyper-run/hyper/internal/errkind"
	"github.com/hyper-run/hyper/scheduler"
	"github.com/hyper-run/hyper/updater"
	"github.com/hyper-run/hyper/wire"
)

// ConditionResult is what a ConditionEvaluator hands back: the
// predicate expressions that evaluated false, in source order.
type ConditionResult struct {
	Unsatisfied []*wire.Expr
}

// ConditionEvaluator runs N predicate expressions against a set of
// local and remote inputs refreshed beforehand (spec §4.9). Re-entrant:
// a call arriving while one is already in flight is served by it rather
// than starting a second evaluation.
type ConditionEvaluator struct {
	Evaluator *eval.Evaluator
	Updater   *updater.Updater
	Locals    []string
	Remotes   []updater.RemoteRequest
	Preds     []*wire.Expr

	mu      sync.Mutex
	running bool
	waiters []func(*ConditionResult, error)
}

// NewConditionEvaluator builds an evaluator over preds, refreshing
// locals and remotes before each evaluation pass.
func NewConditionEvaluator(ev *eval.Evaluator, up *updater.Updater, locals []string, remotes []updater.RemoteRequest, preds []*wire.Expr) *ConditionEvaluator {
	return &ConditionEvaluator{Evaluator: ev, Updater: up, Locals: locals, Remotes: remotes, Preds: preds}
}

// AsyncCompute evaluates all preconditions, delivering the list of
// unsatisfied ones. A zero-precondition evaluator completes
// synchronously, before AsyncCompute returns, with an empty result
// (spec §8). A refresh failure cancels the whole
// evaluation and is reported to every waiter queued on this call.
func (c *ConditionEvaluator) AsyncCompute(ctx context.Context, cb func(*ConditionResult, error)) {
	c.mu.Lock()
	if c.running {
		c.waiters = append(c.waiters, cb)
		c.mu.Unlock()
		return
	}
	if len(c.Preds) == 0 && len(c.Locals) == 0 && len(c.Remotes) == 0 {
		c.mu.Unlock()
		cb(&ConditionResult{}, nil)
		return
	}
	c.running = true
	c.waiters = []func(*ConditionResult, error){cb}
	c.mu.Unlock()

	c.Updater.Refresh(ctx, c.Locals, c.Remotes, func(err error) {
		if err != nil {
			c.finish(nil, err)
			return
		}
		c.evaluateAll(ctx)
	})
}

func (c *ConditionEvaluator) evaluateAll(ctx context.Context) {
	n := len(c.Preds)
	if n == 0 {
		c.finish(&ConditionResult{}, nil)
		return
	}

	results := make([]bool, n)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	wg.Add(n)
	for i, pred := range c.Preds {
		i, pred := i, pred
		c.Evaluator.Eval(ctx, pred, func(v *wire.Value, err error) {
			defer wg.Done()
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			if v.Kind != wire.KindBool {
				mu.Lock()
				if firstErr == nil {
					firstErr = errkind.InvalidArgument
				}
				mu.Unlock()
				return
			}
			results[i] = v.BoolVal
		})
	}

	go func() {
		wg.Wait()
		scheduler.Run(func() {
			if firstErr != nil {
				c.finish(nil, firstErr)
				return
			}
			var unsatisfied []*wire.Expr
			for i, ok := range results {
				if !ok {
					unsatisfied = append(unsatisfied, c.Preds[i])
				}
			}
			c.finish(&ConditionResult{Unsatisfied: unsatisfied}, nil)
		})
	}()
}

func (c *ConditionEvaluator) finish(res *ConditionResult, err error) {
	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.running = false
	c.mu.Unlock()
	for _, w := range waiters {
		w(res, err)
	}
}
