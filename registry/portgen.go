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

package registry

import (
	"net"
	"sync"
)

// PortGenerator hands out a fresh port on every Get, the Go counterpart
// of the original nameserver's ns_port_generator: registration does not
// trust the endpoint an agent shows up with, it assigns one (spec §4.1
// "register(name, endpoints) — returns a newly allocated server port").
type PortGenerator struct {
	mu   sync.Mutex
	next int
}

// NewPortGenerator hands out ports starting at base.
func NewPortGenerator(base int) *PortGenerator {
	return &PortGenerator{next: base}
}

// Get returns the next port in sequence.
func (g *PortGenerator) Get() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	p := g.next
	g.next++
	return p
}

// seededPortGenerator picks a starting port by asking the OS for an
// ephemeral one and handing it straight back, instead of a fixed
// constant: two name servers started in the same test run (or on the
// same host) then hand out disjoint ranges rather than racing for the
// same fixed base.
func seededPortGenerator() *PortGenerator {
	base := 20000
	if l, err := net.Listen("tcp", "127.0.0.1:0"); err == nil {
		base = l.Addr().(*net.TCPAddr).Port
		l.Close()
	}
	return NewPortGenerator(base)
}
