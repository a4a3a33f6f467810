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

package scheduler

import (
	"container/heap"
	"sync"
	"time"
)

type reactorTask func()

type deadlineCall struct {
	execute func()
	ts      time.Time
}

// a heap for deadline-ordered calls waiting on the reactor clock.
type deadlineCallHeap []deadlineCall

func (h deadlineCallHeap) Len() int            { return len(h) }
func (h deadlineCallHeap) Less(i, j int) bool  { return h[i].ts.Before(h[j].ts) }
func (h deadlineCallHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *deadlineCallHeap) Push(x interface{}) { *h = append(*h, x.(deadlineCall)) }
func (h *deadlineCallHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1].execute = nil // avoid memory leak
	*h = old[0 : n-1]
	return x
}

// reactorClock drives every agent's timed and immediate callbacks from a
// single goroutine (spec §5's single-threaded reactor): wait-period
// polls and recipe-step completions all funnel through one of these per
// process (agent pings run on their own ticker goroutine). It is
// unsuited to workloads that create and drop timers at high frequency,
// since a long-lived heap entry slows down every future Schedule;
// Hyper's only timed call site (compute_wait polling) is low-frequency
// so this tradeoff is fine.
type reactorClock struct {
	// prepending calls
	prependCalls    []deadlineCall
	prependLock     sync.Mutex
	chPrependNotify chan struct{}

	// calls distributed through chDeadline
	chDeadline chan deadlineCall
	chTask     chan reactorTask

	dieOnce sync.Once
	die     chan struct{}
	exit    chan struct{}
}

// newReactorClock starts a reactor clock with the given number of
// worker goroutines servicing its deadline heap.
func newReactorClock(parallel int) *reactorClock {
	rc := new(reactorClock)
	rc.chDeadline = make(chan deadlineCall)
	rc.chTask = make(chan reactorTask, 1<<8)
	rc.die = make(chan struct{})
	rc.exit = make(chan struct{}, parallel+1) // parallel+1 pending go routines
	rc.chPrependNotify = make(chan struct{}, 1)

	for i := 0; i < parallel; i++ {
		go rc.run()
	}
	go rc.prepend()
	return rc
}

func (rc *reactorClock) run() {
	var calls deadlineCallHeap
	timer := time.NewTimer(0)
	drained := false
	defer func() {
		timer.Stop()
		rc.exit <- struct{}{}
	}()
	for {
		select {
		case task := <-rc.chTask:
			task()
		case call := <-rc.chDeadline:
			now := time.Now()
			if now.After(call.ts) {
				// already past deadline, run immediately
				call.execute()
			} else {
				heap.Push(&calls, call)
				// properly reset timer to trigger based on the top element
				stopped := timer.Stop()
				if !stopped && !drained {
					<-timer.C
				}
				timer.Reset(calls[0].ts.Sub(now))
				drained = false
			}
		case now := <-timer.C:
			drained = true
			for calls.Len() > 0 {
				if now.After(calls[0].ts) {
					heap.Pop(&calls).(deadlineCall).execute()
				} else {
					timer.Reset(calls[0].ts.Sub(now))
					drained = false
					break
				}
			}
		case <-rc.die:
			return
		}
	}
}

func (rc *reactorClock) prepend() {
	var calls []deadlineCall
	defer func() {
		rc.exit <- struct{}{}
	}()
	for {
		select {
		case <-rc.chPrependNotify:
			rc.prependLock.Lock()
			// keep cap to reuse slice
			if cap(calls) < cap(rc.prependCalls) {
				calls = make([]deadlineCall, 0, cap(rc.prependCalls))
			}
			calls = calls[:len(rc.prependCalls)]
			copy(calls, rc.prependCalls)
			for k := range rc.prependCalls {
				rc.prependCalls[k].execute = nil // avoid memory leak
			}
			rc.prependCalls = rc.prependCalls[:0]
			rc.prependLock.Unlock()

			for k := range calls {
				select {
				case rc.chDeadline <- calls[k]:
					calls[k].execute = nil // avoid memory leak
				case <-rc.die:
					return
				}
			}
			calls = calls[:0]
		case <-rc.die:
			return
		}
	}
}

// Schedule queues f to run once deadline arrives.
func (rc *reactorClock) Schedule(f func(), deadline time.Time) {
	rc.prependLock.Lock()
	rc.prependCalls = append(rc.prependCalls, deadlineCall{f, deadline})
	rc.prependLock.Unlock()

	select {
	case rc.chPrependNotify <- struct{}{}:
	default:
	}
}

// Run queues f to execute as soon as a worker is free.
func (rc *reactorClock) Run(f func()) {
	rc.chTask <- f
}

// Close stops every worker goroutine and waits for them to exit.
func (rc *reactorClock) Close() {
	rc.dieOnce.Do(func() {
		close(rc.die)
		for i := 0; i < cap(rc.exit); i++ {
			<-rc.exit
		}
	})
}
