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

// Package transport is the name resolution and RPC fabric (spec §4.2):
// point-to-point, length-prefixed binary frames, a monotonic 64-bit
// in-flight id per connection, aborts, and liveness pings. Its Conn
// mirrors the teacher's cluster.agent write-loop (chSend/chDie/ticker)
// generalized from nano's session multiplexer to Hyper's request/answer
// multiplexer.
package transport

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/hyper-run/hyper/internal/env"
	"github.com/hyper-run/hyper/internal/errkind"
	"github.com/hyper-run/hyper/internal/log"
	"github.com/hyper-run/hyper/wire"
)

const sendBacklog = 64

// Handler processes a frame that does not answer a pending request:
// requests arriving at a server, and unsolicited frames (abort, ping,
// inform_death_agent) arriving at either end.
type Handler func(c *Conn, f *wire.Frame)

// Conn is one point-to-point connection multiplexing many in-flight
// requests. Exactly one goroutine owns net.Conn writes (the write
// loop); Send only ever posts to chSend.
type Conn struct {
	raw     net.Conn
	dec     *wire.Decoder
	handler Handler

	nextID  uint64
	pending sync.Map // RequestID -> chan *wire.Frame

	chSend chan *wire.Frame
	chDie  chan struct{}
	dieOne sync.Once
}

// NewConn takes ownership of raw and starts its read/write goroutines.
// handler is invoked (on the read goroutine) for every frame that is
// not the answer to a pending Request.
func NewConn(raw net.Conn, handler Handler) *Conn {
	c := &Conn{
		raw:     raw,
		dec:     wire.NewDecoder(raw),
		handler: handler,
		chSend:  make(chan *wire.Frame, sendBacklog),
		chDie:   make(chan struct{}),
	}
	go c.writeLoop()
	go c.readLoop()
	return c
}

// RemoteAddr returns the underlying connection's remote address.
func (c *Conn) RemoteAddr() net.Addr { return c.raw.RemoteAddr() }

// Close shuts the connection down; safe to call more than once.
func (c *Conn) Close() error {
	c.dieOne.Do(func() { close(c.chDie) })
	return c.raw.Close()
}

// nextRequestID allocates the next monotonic id for this connection
// (spec §4.2: "every outbound request receives a fresh 64-bit id").
func (c *Conn) nextRequestID() wire.RequestID {
	return wire.RequestID(atomic.AddUint64(&c.nextID, 1))
}

// Send queues payload as a fire-and-forget frame under the id the
// caller gives (used for ping, abort, and answers keyed to the
// request's own id); it allocates no id of its own.
func (c *Conn) Send(id wire.RequestID, payload wire.Message) error {
	f, err := wire.NewFrame(id, payload)
	if err != nil {
		return err
	}
	return c.enqueue(f)
}

func (c *Conn) enqueue(f *wire.Frame) error {
	select {
	case c.chSend <- f:
		return nil
	case <-c.chDie:
		return errkind.TransportError
	}
}

// Request sends payload under a fresh id and blocks until an answer
// frame with that id arrives, ctx is done, or the connection closes.
// A timeout or a dead connection both surface as transport_error
// (spec §4.2/§7).
func (c *Conn) Request(ctx context.Context, payload wire.Message) (*wire.Frame, error) {
	id := c.nextRequestID()
	f, err := wire.NewFrame(id, payload)
	if err != nil {
		return nil, err
	}

	wait := make(chan *wire.Frame, 1)
	c.pending.Store(id, wait)
	defer c.pending.Delete(id)

	if err := c.enqueue(f); err != nil {
		return nil, err
	}

	select {
	case answer := <-wait:
		return answer, nil
	case <-ctx.Done():
		return nil, errkind.TransportError
	case <-c.chDie:
		return nil, errkind.TransportError
	}
}

// Answer replies to the request carried by id (the requester's own
// RequestID, echoed back per spec §6's wire messages).
func (c *Conn) Answer(id wire.RequestID, payload wire.Message) error {
	return c.Send(id, payload)
}

// writeLoop owns the only goroutine allowed to write to raw. Pings are
// not sent here: a Conn is used for both name-server and peer-to-peer
// traffic, and spec §4.2 scopes the 100ms liveness ping to the name
// server alone. That beacon is agent.pingLoop's job, sent explicitly
// against the registry address; a blanket per-Conn ticker here would
// flood every peer connection with pings the spec never asks for.
func (c *Conn) writeLoop() {
	defer c.Close()
	for {
		select {
		case f := <-c.chSend:
			buf, err := wire.Encode(f)
			if err != nil {
				log.Printf("transport: encode %s: %v", f.Type, err)
				continue
			}
			if _, err := c.raw.Write(buf); err != nil {
				log.Printf("transport: write: %v", err)
				return
			}
		case <-c.chDie:
			return
		case <-env.Die:
			return
		}
	}
}

func (c *Conn) readLoop() {
	defer c.Close()
	for {
		f, err := c.dec.Next()
		if err != nil {
			if err.Error() != "EOF" {
				log.Printf("transport: read: %v", err)
			}
			return
		}
		if waiter, ok := c.pending.Load(f.ID); ok {
			c.pending.Delete(f.ID)
			waiter.(chan *wire.Frame) <- f
			continue
		}
		if c.handler != nil {
			c.handler(c, f)
		}
	}
}
