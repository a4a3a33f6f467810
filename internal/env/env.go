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

// Package env represents the environment of the current agent process:
// tunable timings and working-directory state shared by every layer.
package env

import "time"

var (
	// Wd is the agent process working directory.
	Wd string
	// Die is closed to request the agent's reactor loop to shut down.
	Die chan bool
	// Debug enables verbose per-message logging across transport, agent
	// and recipe execution.
	Debug bool

	// PingInterval is how often an agent pings the name registry to
	// refresh its liveness (spec §4.2: "every 100 ms").
	PingInterval = 100 * time.Millisecond

	// WaitPeriod is the poll period for compute_wait (spec §4.6: "polls
	// a boolean expression with period 50 ms").
	WaitPeriod = 50 * time.Millisecond

	// RegisterInterval is a retry interval for reaching the name
	// registry at startup. No code in this module reads it: Agent.Start
	// makes a single registration attempt.
	RegisterInterval = 3 * time.Second

	// RequestTimeout bounds a single outstanding transport request; it
	// surfaces as a transport_error to the caller, per spec §5.
	RequestTimeout = 10 * time.Second

	// LogReorderWindow is how long the logger process holds a batch of
	// log_msg frames before flushing it in date order (spec §6: "200 ms
	// reorder window").
	LogReorderWindow = 200 * time.Millisecond
)

func init() {
	Die = make(chan bool)
}
