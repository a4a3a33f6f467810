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

// Package remotelog is the agent-side half of the logger collaborator
// (spec §6): a log.Logger that forwards every call as a log_msg frame
// to whichever peer is registered under the name "logger", instead of
// writing to stderr.
package remotelog

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hyper-run/hyper/registry"
	"github.com/hyper-run/hyper/transport"
	"github.com/hyper-run/hyper/wire"
)

const loggerName = "logger"

// Sink implements log.Logger by shipping log_msg frames to the logger
// process resolved through the name registry. Resolution and dialing
// are both lazy and best-effort: a message is dropped (not retried) if
// the logger cannot be reached, since logging must never block an
// agent's reactor (spec §5).
type Sink struct {
	src   string
	names *registry.Client
	pool  *transport.Pool
}

// NewSink builds a Sink that tags every message with src and resolves
// "logger" against the registry reachable at registryAddr.
func NewSink(src, registryAddr string) *Sink {
	return &Sink{
		src:   src,
		names: registry.NewClient(registryAddr, nil),
		pool:  transport.NewPool(nil),
	}
}

func (s *Sink) Print(v ...interface{})                 { s.send(fmt.Sprint(v...)) }
func (s *Sink) Printf(format string, v ...interface{}) { s.send(fmt.Sprintf(format, v...)) }

// Fatal/Fatalf match log.Logger's contract (process termination) but
// still ship the message first, best-effort.
func (s *Sink) Fatal(v ...interface{}) {
	s.send(fmt.Sprint(v...))
	log.Fatal(v...)
}

func (s *Sink) Fatalf(format string, v ...interface{}) {
	s.send(fmt.Sprintf(format, v...))
	log.Fatalf(format, v...)
}

func (s *Sink) send(msg string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	endpoints, err := s.names.Resolve(ctx, loggerName)
	if err != nil || len(endpoints) == 0 {
		return
	}
	conn, err := s.pool.Get(endpoints[0])
	if err != nil {
		return
	}
	conn.Send(0, &wire.LogMsg{DateUnixNano: time.Now().UnixNano(), Src: s.src, Msg: msg})
}

// Close releases pooled connections and the registry client.
func (s *Sink) Close() {
	s.pool.Close()
	s.names.Close()
}
