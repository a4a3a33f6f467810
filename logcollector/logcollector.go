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

// Package logcollector is the logger process (spec §6): it registers
// itself with the name registry under "logger", accepts log_msg frames
// pushed by every other agent, and prints them in date order after
// holding each batch for a short reorder window.
package logcollector

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hyper-run/hyper/internal/env"
	"github.com/hyper-run/hyper/registry"
	"github.com/hyper-run/hyper/transport"
	"github.com/hyper-run/hyper/wire"
)

const name = "logger"

// Collector buffers incoming log_msg frames and flushes them to a
// Writer in date order once the reorder window elapses, so a message
// that arrives slightly out of order (spec §6: "200 ms reorder window")
// still prints in the right place.
type Collector struct {
	Window time.Duration
	Writer func(line string)

	names *registry.Client
	srv   *transport.Server

	mu      sync.Mutex
	pending []*wire.LogMsg
	timer   *time.Timer
}

// New builds a Collector with the spec's default reorder window and a
// stdout writer.
func New() *Collector {
	return &Collector{
		Window: env.LogReorderWindow,
		Writer: func(line string) { fmt.Println(line) },
	}
}

// Start registers "logger" with the registry at registryAddr, then
// opens a server on the endpoint the registry assigns to accept pushed
// log_msg frames (spec §4.1, §4.10 register-then-listen order).
// Returns an error if registration fails (spec §6 exit code 1).
func (c *Collector) Start(ctx context.Context, host, registryAddr string) error {
	c.names = registry.NewClient(registryAddr, nil)
	assigned, err := c.names.Register(ctx, name, host)
	if err != nil {
		return err
	}

	srv, err := transport.Listen(assigned, c.dispatch)
	if err != nil {
		c.names.Close()
		return err
	}
	c.srv = srv
	return nil
}

// Close stops accepting connections and flushes any buffered messages.
func (c *Collector) Close() {
	if c.srv != nil {
		c.srv.Close()
	}
	if c.names != nil {
		c.names.Close()
	}
	c.mu.Lock()
	timer := c.timer
	c.timer = nil
	c.mu.Unlock()
	if timer != nil {
		timer.Stop()
	}
	c.flush()
}

func (c *Collector) dispatch(conn *transport.Conn, f *wire.Frame) {
	m, ok := f.Payload.(*wire.LogMsg)
	if !ok {
		return
	}
	c.mu.Lock()
	c.pending = append(c.pending, m)
	if c.timer == nil {
		c.timer = time.AfterFunc(c.Window, c.flush)
	}
	c.mu.Unlock()
}

func (c *Collector) flush() {
	c.mu.Lock()
	batch := c.pending
	c.pending = nil
	c.timer = nil
	c.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	sort.SliceStable(batch, func(i, j int) bool { return batch[i].DateUnixNano < batch[j].DateUnixNano })
	for _, m := range batch {
		c.Writer(formatLine(m))
	}
}

func formatLine(m *wire.LogMsg) string {
	t := time.Unix(0, m.DateUnixNano).UTC()
	return fmt.Sprintf("[%s][%s] %s", t.Format(time.RFC3339Nano), m.Src, m.Msg)
}
