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

package agent

import (
	"time"

	"github.com/hyper-run/hyper/eval"
	"github.com/hyper-run/hyper/internal/env"
	"github.com/hyper-run/hyper/internal/log"
	"github.com/hyper-run/hyper/logic"
)

// Option configures an Agent at construction time.
type Option func(*Agent)

// WithRegistryAddr sets the name server address used for registration
// and peer resolution.
func WithRegistryAddr(addr string) Option {
	return func(a *Agent) { a.registryAddr = addr }
}

// WithPingInterval overrides the process-wide ping interval (spec §4.2:
// default 100ms) for this agent's registry liveness beacon.
func WithPingInterval(d time.Duration) Option {
	return func(a *Agent) { a.pingInterval = d }
}

// WithWaitPeriod overrides env.WaitPeriod, the compute_wait poll period
// (spec §4.6: default 50ms).
func WithWaitPeriod(d time.Duration) Option {
	return func(a *Agent) { env.WaitPeriod = d }
}

// WithDebugMode enables verbose per-message logging (env.Debug).
func WithDebugMode() Option {
	return func(a *Agent) { env.Debug = true }
}

// WithLogger overrides the process-wide logger.
func WithLogger(l log.Logger) Option {
	return func(a *Agent) { log.SetLogger(l) }
}

// WithLogic attaches the symbolic logic engine collaborator (spec §6):
// add_fact / select_recipe / evaluate. An agent with no logic engine
// still answers variable reads but answers every request_constraint
// with a FAILURE state (after its ack).
func WithLogic(engine logic.Engine) Option {
	return func(a *Agent) { a.logic = engine }
}

// WithFunc registers a pure function kernel callable from expressions
// evaluated by this agent (spec §6 "Function kernels": "pure typed
// applications; must not block").
func WithFunc(name string, fn eval.Func) Option {
	return func(a *Agent) { a.funcs[name] = fn }
}
