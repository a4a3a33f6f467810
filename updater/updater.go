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

// Package updater is the local/remote variable updater (spec §4.4):
// given a set of local cell names and a list of remote (agent, var)
// pairs, refresh all of them in parallel and join on completion,
// carrying the first error encountered.
package updater

import (
	"context"
	"sync"

	"github.com/hyper-run/hyper/proxy"
	"github.com/hyper-run/hyper/scheduler"
)

// LocalRefresher is the owning agent's value-maintainer collaborator:
// whatever keeps a local cell's value current (e.g. a sensor driver or
// a cached computation) implements Refresh.
type LocalRefresher interface {
	Refresh(ctx context.Context, name string, cb func(error))
}

// RemoteRequest names one (agent, var) pair to fetch through the proxy,
// writing the result into Out.
type RemoteRequest = proxy.Request

// Updater batches a mixed local+remote refresh behind one join.
type Updater struct {
	local LocalRefresher
	px    *proxy.Proxy
}

// New builds an Updater driving local through a LocalRefresher and
// remote reads through px.
func New(local LocalRefresher, px *proxy.Proxy) *Updater {
	return &Updater{local: local, px: px}
}

// Refresh refreshes every name in locals through local.Refresh and
// every pair in remotes through one px.GetAll call, in parallel, then invokes cb
// once with the first error encountered, if any (spec §4.4: "Ordering
// between refreshes is unspecified; partial failure yields the first
// error").
func (u *Updater) Refresh(ctx context.Context, locals []string, remotes []RemoteRequest, cb func(error)) {
	total := len(locals) + len(remotes)
	if total == 0 {
		scheduler.Run(func() { cb(nil) })
		return
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	record := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	wg.Add(len(locals))
	for _, name := range locals {
		name := name
		done := make(chan struct{})
		u.local.Refresh(ctx, name, func(err error) {
			record(err)
			close(done)
		})
		go func() {
			defer wg.Done()
			<-done
		}()
	}

	if len(remotes) > 0 {
		wg.Add(1)
		done := make(chan struct{})
		u.px.GetAll(ctx, remotes, func(err error) {
			record(err)
			close(done)
		})
		go func() {
			defer wg.Done()
			<-done
		}()
	}

	go func() {
		wg.Wait()
		scheduler.Run(func() { cb(firstErr) })
	}()
}
