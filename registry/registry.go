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

// Package registry is the name server's in-memory map from an agent
// name to its endpoint list (spec §4.1). It is the Go counterpart of
// the original map_addr/name_server pair: register/resolve/remove plus
// last-writer-wins on duplicate register and lazy reaping on a failed
// resolve.
package registry

import (
	"sync"

	"github.com/hyper-run/hyper/internal/errkind"
	"github.com/hyper-run/hyper/internal/log"
)

// Map is the registry's core addr table: name -> list of dial-able
// endpoints ("host:port" strings, one per transport the agent listens
// on).
type Map struct {
	mu   sync.RWMutex
	addr map[string][]string
}

// NewMap returns an empty registry.
func NewMap() *Map {
	return &Map{addr: make(map[string][]string)}
}

// Register stores endpoints under name, replacing any prior entry
// (last-writer-wins, spec §4.1: "Duplicate register for an existing
// name replaces the old entry").
func (m *Map) Register(name string, endpoints []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addr[name] = append([]string(nil), endpoints...)
}

// Resolve returns name's endpoints. It reports not_found both when name
// was never registered and when it was removed by a prior lazy reap.
func (m *Map) Resolve(name string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ep, ok := m.addr[name]
	if !ok {
		return nil, errkind.NotFound
	}
	return append([]string(nil), ep...), nil
}

// Remove drops name's entry and reports whether it was present. Reap
// uses it for lazy reaping (spec §4.1); the registry server has no
// explicit unregister message.
func (m *Map) Remove(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.addr[name]; !ok {
		return false
	}
	delete(m.addr, name)
	return true
}

// Reap removes name and logs the reason; used when a resolve's answer
// turns out to be stale (the agent behind it is unreachable).
func (m *Map) Reap(name string, reason error) {
	if m.Remove(name) {
		log.Printf("registry: reaped %s: %v", name, reason)
	}
}

// Names returns a snapshot of every registered name, for diagnostics.
func (m *Map) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.addr))
	for n := range m.addr {
		names = append(names, n)
	}
	return names
}
