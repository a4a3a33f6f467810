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

// Package exec is the computation graph: abortable primitives (spec
// §4.6), the core sequencer that composes them with pause/resume/
// interrupt semantics (spec §4.7), and the condition evaluator (spec
// §4.9). The recipe runner (spec §4.8) lives in package recipe.
package exec

// Primitive is one abortable step of a computation sequence. On
// completion it delivers exactly one of: nil (ok), errkind.Interrupted,
// errkind.TemporaryFailure, errkind.RunAgain, or a domain error — never
// more than one call to cb per Compute (spec §4.6).
type Primitive interface {
	// Compute starts the work and stores cb for later delivery.
	Compute(cb func(error))
	// Abort requests interruption of any outstanding work and reports
	// whether an interrupted completion is still owed (true) or the
	// primitive was already idle (false, no completion will follow).
	Abort() bool
	// Pause suspends outstanding I/O without surfacing an error yet.
	Pause()
	// Resume re-issues the suspended work.
	Resume()
}
