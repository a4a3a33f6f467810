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

package transport

import (
	"context"
	"net"
	"sync"

	"github.com/hyper-run/hyper/internal/env"
	"github.com/hyper-run/hyper/internal/errkind"
	"github.com/hyper-run/hyper/wire"
)

// Pool keeps at most one Conn per remote address, dialing lazily and
// redialing after a connection dies (grounded on the teacher's
// rpcClient connection pool in examples/cluster).
type Pool struct {
	handler Handler

	mu    sync.Mutex
	conns map[string]*Conn
}

// NewPool returns an empty dial pool. handler processes frames that
// arrive unsolicited on any pooled connection (pushes, aborts, pings).
func NewPool(handler Handler) *Pool {
	return &Pool{handler: handler, conns: make(map[string]*Conn)}
}

// Get returns the pooled Conn for addr, dialing it if necessary.
func (p *Pool) Get(addr string) (*Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.conns[addr]; ok {
		return c, nil
	}
	raw, err := net.DialTimeout("tcp", addr, env.RequestTimeout)
	if err != nil {
		return nil, errkind.Trace(errkind.TransportError)
	}
	c := NewConn(raw, p.handler)
	p.conns[addr] = c
	return c, nil
}

// Drop closes and forgets addr's connection; called after a request on
// it fails, so the next Get redials.
func (p *Pool) Drop(addr string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.conns[addr]; ok {
		c.Close()
		delete(p.conns, addr)
	}
}

// Close shuts every pooled connection down.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for addr, c := range p.conns {
		c.Close()
		delete(p.conns, addr)
	}
}

// RequestWithTimeout dials (or reuses) addr and issues payload as a
// request, using env.RequestTimeout as the deadline (spec §4.2).
func (p *Pool) RequestWithTimeout(ctx context.Context, addr string, payload wire.Message) (*Conn, interface{}, error) {
	c, err := p.Get(addr)
	if err != nil {
		return nil, nil, err
	}
	cctx, cancel := context.WithTimeout(ctx, env.RequestTimeout)
	defer cancel()
	f, err := c.Request(cctx, payload)
	if err != nil {
		p.Drop(addr)
		return nil, nil, err
	}
	return c, f.Payload, nil
}
