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

// Package proxy is the remote-read collaborator (spec §4.3): async_get
// against a single (agent, var) pair, and a bulk form that fans requests
// out in parallel and joins on first error. Every callback is delivered
// back on the reactor via scheduler.Run, since primitives and the
// expression evaluator never block the reactor goroutine (spec §5).
package proxy

import (
	"context"
	"sync"

	"github.com/hyper-run/hyper/internal/env"
	"github.com/hyper-run/hyper/internal/errkind"
	"github.com/hyper-run/hyper/registry"
	"github.com/hyper-run/hyper/scheduler"
	"github.com/hyper-run/hyper/transport"
	"github.com/hyper-run/hyper/wire"
)

// Proxy resolves an agent name to its endpoint through names and
// issues value reads against it through pool.
type Proxy struct {
	names *registry.Client
	pool  *transport.Pool
}

// New builds a Proxy backed by names for resolution and handler for
// unsolicited frames on any connection it dials (the same handler an
// agent's own server uses, so pushed aborts and death notices reach it
// too).
func New(names *registry.Client, handler transport.Handler) *Proxy {
	return &Proxy{names: names, pool: transport.NewPool(handler)}
}

// Close releases pooled connections.
func (p *Proxy) Close() { p.pool.Close() }

// Get reads agent.var and delivers the result to cb on the reactor.
func (p *Proxy) Get(ctx context.Context, agent, varName string, cb func(*wire.Value, error)) {
	go func() {
		v, err := p.fetch(ctx, agent, varName)
		scheduler.Run(func() { cb(v, err) })
	}()
}

func (p *Proxy) fetch(ctx context.Context, agent, varName string) (*wire.Value, error) {
	endpoints, err := p.names.Resolve(ctx, agent)
	if err != nil {
		return nil, err
	}
	if len(endpoints) == 0 {
		return nil, errkind.NotFound
	}
	_, payload, err := p.pool.RequestWithTimeout(ctx, endpoints[0], &wire.RequestVariableValue{Src: agent, Var: varName})
	if err != nil {
		return nil, err
	}
	ans, ok := payload.(*wire.VariableValue)
	if !ok {
		return nil, errkind.InvalidArgument
	}
	return ans.Value, nil
}

// Request is one leg of a bulk fetch: the (agent, var) pair to read and
// the slot its decoded value is written into on success.
type Request struct {
	Agent string
	Var   string
	Out   **wire.Value
}

// GetAll issues every request in reqs in parallel and invokes cb once
// all have completed, carrying the first error encountered, if any
// (spec §4.3 "Bulk form"). Ordering between requests is unspecified.
func (p *Proxy) GetAll(ctx context.Context, reqs []Request, cb func(error)) {
	if len(reqs) == 0 {
		scheduler.Run(func() { cb(nil) })
		return
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	wg.Add(len(reqs))
	for _, r := range reqs {
		r := r
		go func() {
			defer wg.Done()
			v, err := p.fetch(ctx, r.Agent, r.Var)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			*r.Out = v
		}()
	}

	go func() {
		wg.Wait()
		scheduler.Run(func() { cb(firstErr) })
	}()
}

// DefaultTimeout mirrors env.RequestTimeout so callers that build their
// own context without inheriting env's default still pick a consistent
// deadline.
var DefaultTimeout = env.RequestTimeout
