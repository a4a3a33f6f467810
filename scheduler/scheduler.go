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

// Package scheduler is the single-threaded cooperative reactor every
// agent runs its callbacks on (spec §5: "All callbacks execute on that
// agent's reactor"). Primitives, expressions and the transport layer
// never block this goroutine; they dispatch I/O and post their
// completion back through Run/Repeat/NewTimer.
package scheduler

import (
	"runtime/debug"
	"time"

	"github.com/hyper-run/hyper/internal/log"
)

// LocalScheduler lets a recipe dispatch its task to a customized
// goroutine instead of the shared reactor, e.g. a per-agent worker pool.
type LocalScheduler interface {
	Schedule(Task)
}

// Task is a unit of reactor work: a step's completion callback, a
// poll retry.
type Task func()

// clock is the process-wide single-threaded executor. Every agent in
// the process shares it, matching the "single-threaded cooperative per
// agent process" model of spec §5 (in practice one agent per process;
// tests that run several agents in one binary still observe
// FIFO-per-connection ordering because each connection posts its own
// serialized stream of callbacks).
var clock = newReactorClock(1)

func try(f Task) Task {
	return func() {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("handle task panic: %+v\n%s", err, debug.Stack())
			}
		}()
		f()
	}
}

// Close stops the scheduler. Called once at agent shutdown.
func Close() {
	clock.Close()
	log.Print("scheduler stopped")
}

// Run schedules task for immediate execution on the reactor.
func Run(task Task) {
	clock.Run(try(task))
}

// PushTask is an alias of Run that reads as "push this onto the
// reactor's queue".
func PushTask(task Task) {
	Run(task)
}

// Sched is a no-op placeholder: the timed scheduler already owns its
// goroutines, so there is no loop to start, and no startup path in
// this module calls Sched.
func Sched() {}

// NewTimer schedules task to run once after d elapses, without
// rescheduling itself — used by WaitPrimitive to schedule its next
// poll.
func NewTimer(d time.Duration, task Task) {
	clock.Schedule(try(task), time.Now().Add(d))
}

type repeatableTask struct {
	Task
	interval time.Duration
}

func (r repeatableTask) run() {
	now := time.Now()
	r.Task()
	clock.Schedule(r.run, now.Add(r.interval))
}

// Repeat runs task repeatedly at every interval, starting after the
// first interval elapses.
func Repeat(task Task, interval time.Duration) Task {
	r := repeatableTask{try(task), interval}
	now := time.Now()
	clock.Schedule(r.run, now.Add(interval))
	return task
}
