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

// Package agent is the process that owns a set of exported variables,
// answers constraint requests by driving recipes, and pings the name
// registry to stay resolvable (spec §4.10). It is Hyper's analogue of
// the teacher's cluster.Node: one process, one listener, one reactor.
package agent

import (
	"context"
	"sync"
	"time"

	"github.com/hyper-run/hyper/eval"
	"github.com/hyper-run/hyper/internal/env"
	"github.com/hyper-run/hyper/internal/errkind"
	"github.com/hyper-run/hyper/internal/log"
	"github.com/hyper-run/hyper/logic"
	"github.com/hyper-run/hyper/proxy"
	"github.com/hyper-run/hyper/recipe"
	"github.com/hyper-run/hyper/registry"
	"github.com/hyper-run/hyper/scheduler"
	"github.com/hyper-run/hyper/transport"
	"github.com/hyper-run/hyper/updater"
	"github.com/hyper-run/hyper/wire"
)

// Agent owns its cells (exported variables), its function kernels, its
// server, its outgoing client connections, its logic engine, and every
// live recipe instance (spec §3 "Ownership").
type Agent struct {
	Name string

	registryAddr string
	pingInterval time.Duration
	logic        logic.Engine
	funcs        map[string]eval.Func

	cellMu sync.RWMutex
	cells  map[string]*wire.Value

	recipes map[string]*recipe.Recipe

	names *registry.Client
	pool  *transport.Pool
	px    *proxy.Proxy
	eval  *eval.Evaluator
	up    *updater.Updater

	server   *transport.Server
	endpoint string

	inflightMu sync.Mutex
	inflight   map[string]*recipe.Recipe // request id -> recipe driving it

	stopPing chan struct{}
	pingDone chan struct{}
}

// New builds an unstarted agent named name with initial exported
// variable values seed (may be nil).
func New(name string, seed map[string]*wire.Value, opts ...Option) *Agent {
	if seed == nil {
		seed = map[string]*wire.Value{}
	}
	a := &Agent{
		Name:         name,
		pingInterval: env.PingInterval,
		funcs:        map[string]eval.Func{},
		cells:        seed,
		recipes:      map[string]*recipe.Recipe{},
		inflight:     map[string]*recipe.Recipe{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AddRecipe registers a named recipe this agent can select to satisfy a
// constraint (spec §4.10 "constraint requests hand off to the logic
// layer which selects and starts a recipe").
func (a *Agent) AddRecipe(r *recipe.Recipe) { a.recipes[r.Name] = r }

// Set assigns name's exported value; recipes and callers read a
// snapshot at answer time (spec §4.10 "Shared-resource policy").
func (a *Agent) Set(name string, v *wire.Value) {
	a.cellMu.Lock()
	a.cells[name] = v
	a.cellMu.Unlock()
}

// Refresh implements eval.Local / updater.LocalRefresher: a cell's
// value is authoritative as soon as it is Set, so refreshing is a no-op
// that always reports ready.
func (a *Agent) Refresh(ctx context.Context, name string, cb func(error)) { cb(nil) }

// Read implements eval.Local.
func (a *Agent) Read(name string) (*wire.Value, error) {
	a.cellMu.RLock()
	defer a.cellMu.RUnlock()
	v, ok := a.cells[name]
	if !ok {
		return nil, errkind.NotFound
	}
	return v, nil
}

// Start registers the agent's name with the registry, takes the
// assigned endpoint, opens its server on it, wires its
// evaluator/proxy/updater, and launches the ping task (spec §4.10
// startup sequence: "registers its name with the registry, takes the
// assigned endpoint, opens a server, launches the ping task"). host is
// advertised to the registry as a hint; the registry, not the agent,
// picks the port (spec §4.1).
func (a *Agent) Start(ctx context.Context, host string) error {
	a.names = registry.NewClient(a.registryAddr, a.dispatch)
	assigned, err := a.names.Register(ctx, a.Name, host)
	if err != nil {
		return errkind.Trace(err)
	}

	server, err := transport.Listen(assigned, a.dispatch)
	if err != nil {
		return errkind.Trace(err)
	}
	a.server = server
	a.endpoint = server.Addr().String()

	a.pool = transport.NewPool(a.dispatch)
	a.px = proxy.New(a.names, a.dispatch)
	a.eval = eval.New(a.Name, a, a.px, a.funcs)
	a.up = updater.New(a, a.px)

	a.stopPing = make(chan struct{})
	a.pingDone = make(chan struct{})
	go a.pingLoop()

	return nil
}

// Evaluator exposes the agent's expression evaluator, e.g. for a
// recipe's BodyFactory to close over.
func (a *Agent) Evaluator() *eval.Evaluator { return a.eval }

// Updater exposes the agent's local/remote variable updater.
func (a *Agent) Updater() *updater.Updater { return a.up }

// Conn returns (dialing if necessary) the connection to a named peer,
// resolving its endpoint through the registry first.
func (a *Agent) Conn(ctx context.Context, peer string) (*transport.Conn, error) {
	endpoints, err := a.names.Resolve(ctx, peer)
	if err != nil {
		return nil, err
	}
	if len(endpoints) == 0 {
		return nil, errkind.NotFound
	}
	return a.pool.Get(endpoints[0])
}

func (a *Agent) pingLoop() {
	defer close(a.pingDone)
	ticker := time.NewTicker(a.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			conn, err := a.pool.Get(a.registryAddr)
			if err != nil {
				continue
			}
			conn.Send(0, &wire.Ping{Name: a.Name})
		case <-a.stopPing:
			return
		}
	}
}

// Shutdown stops the ping task, closes the server and every pooled
// client connection, and waits for the ping goroutine to exit.
func (a *Agent) Shutdown() {
	if a.stopPing != nil {
		close(a.stopPing)
		<-a.pingDone
	}
	if a.server != nil {
		a.server.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

// dispatch handles every frame that is not the answer to a pending
// Request: request_variable_value, request_constraint, abort, and
// terminate (spec §4.10).
func (a *Agent) dispatch(c *transport.Conn, f *wire.Frame) {
	switch m := f.Payload.(type) {
	case *wire.RequestVariableValue:
		a.handleRequestVariableValue(c, f.ID, m)
	case *wire.RequestConstraint:
		a.handleRequestConstraint(c, f.ID, m)
	case *wire.Abort:
		a.handleAbort(m)
	case *wire.Terminate:
		if env.Debug {
			log.Printf("agent %s: peer requested terminate: %s", a.Name, m.Msg)
		}
	case *wire.Ping:
		// liveness beacon, no action required.
	}
}

func (a *Agent) handleRequestVariableValue(c *transport.Conn, id wire.RequestID, m *wire.RequestVariableValue) {
	v, err := a.Read(m.Var)
	if err != nil {
		v = wire.Empty()
	}
	c.Answer(id, &wire.VariableValue{Var: m.Var, TypeTag: v.Kind, Value: v})
}

func (a *Agent) handleRequestConstraint(c *transport.Conn, id wire.RequestID, m *wire.RequestConstraint) {
	c.Answer(id, &wire.RequestConstraintAck{ID: m.ID})

	if a.logic == nil {
		c.Answer(id, &wire.RequestConstraintAnswer{ID: m.ID, State: wire.StateFailure})
		return
	}
	a.logic.AddFact(m.Constraint.Text(), wire.String(m.Src))
	name, ok := a.logic.SelectRecipe(a.snapshot())
	if !ok {
		c.Answer(id, &wire.RequestConstraintAnswer{ID: m.ID, State: wire.StateFailure})
		return
	}
	r, ok := a.recipes[name]
	if !ok {
		c.Answer(id, &wire.RequestConstraintAnswer{ID: m.ID, State: wire.StateFailure})
		return
	}

	a.inflightMu.Lock()
	a.inflight[m.ID] = r
	a.inflightMu.Unlock()

	r.Execute(context.Background(), func(err error) {
		a.inflightMu.Lock()
		delete(a.inflight, m.ID)
		a.inflightMu.Unlock()

		switch {
		case errkind.Is(err, errkind.Interrupted):
			c.Answer(id, &wire.RequestConstraintAnswer{ID: m.ID, State: wire.StateInterrupted})
		case err != nil:
			c.Answer(id, &wire.RequestConstraintAnswer{ID: m.ID, State: wire.StateFailure})
		default:
			c.Answer(id, &wire.RequestConstraintAnswer{ID: m.ID, State: wire.StateSuccess})
		}
	})
}

func (a *Agent) handleAbort(m *wire.Abort) {
	a.inflightMu.Lock()
	r, ok := a.inflight[m.ID]
	a.inflightMu.Unlock()
	if !ok {
		return
	}
	scheduler.Run(r.Abort)
}

func (a *Agent) snapshot() map[string]*wire.Value {
	a.cellMu.RLock()
	defer a.cellMu.RUnlock()
	out := make(map[string]*wire.Value, len(a.cells))
	for k, v := range a.cells {
		out[k] = v
	}
	return out
}
