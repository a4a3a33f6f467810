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

package exec

import (
	"sync"

	"github.com/hyper-run/hyper/internal/errkind"
)

// Sequence is the core sequencer (spec §4.7): an ordered list of
// abortable primitives driven one at a time, with pause/resume and
// externally requested per-index aborts layered on top.
type Sequence struct {
	mu sync.Mutex

	prims []Primitive
	index int
	errorIndex int

	waitTerminaison bool
	stillPending    int
	mustPause       bool
	term            error
	done            func(error)

	requestedAbort map[int]func(error)
}

// NewSequence builds a sequence over prims, executed in order. An empty
// sequence is invalid; callers always have at least one primitive.
func NewSequence(prims []Primitive) *Sequence {
	return &Sequence{
		prims:          prims,
		errorIndex:     -1,
		requestedAbort: make(map[int]func(error)),
	}
}

// Len reports how many primitives make up the sequence.
func (s *Sequence) Len() int { return len(s.prims) }

// ErrorIndex returns the index that failed, or -1 if the sequence ended
// ok or was never run.
func (s *Sequence) ErrorIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errorIndex
}

// Run starts the sequence at primitive 0, delivering exactly one
// terminal completion to done.
func (s *Sequence) Run(done func(error)) {
	s.mu.Lock()
	s.done = done
	idx := s.index
	pause := s.mustPause
	s.mu.Unlock()

	if pause {
		s.prims[idx].Pause()
	}
	s.prims[idx].Compute(func(e error) { s.onStep(idx, e) })
}

func (s *Sequence) onStep(idx int, e error) {
	s.mu.Lock()

	if s.waitTerminaison {
		s.mu.Unlock()
		s.drain()
		return
	}

	switch {
	case errkind.Is(e, errkind.Interrupted):
		cb, ok := s.requestedAbort[idx]
		if !ok {
			s.mu.Unlock()
			return // spurious, per spec §4.7
		}
		delete(s.requestedAbort, idx)
		s.mu.Unlock()
		cb(e)

	case errkind.Is(e, errkind.TemporaryFailure):
		current := s.index
		s.mu.Unlock()
		for i := current; i >= idx; i-- {
			s.prims[i].Pause()
		}

	case errkind.Is(e, errkind.RunAgain):
		current := s.index
		s.mu.Unlock()
		for i := idx + 1; i <= current; i++ {
			s.prims[i].Resume()
		}

	case e != nil:
		s.errorIndex = idx
		s.mu.Unlock()
		s.terminate(e)

	default:
		if idx+1 == len(s.prims) {
			s.mu.Unlock()
			s.terminate(nil)
			return
		}
		next := idx + 1
		s.index = next
		pause := s.mustPause
		s.mu.Unlock()
		if pause {
			s.prims[next].Pause()
		}
		s.prims[next].Compute(func(ee error) { s.onStep(next, ee) })
	}
}

// terminate begins tearing the sequence down: every primitive is
// aborted, and the terminal callback fires once all in-flight aborts
// have drained (immediately, if none were in flight).
func (s *Sequence) terminate(e error) {
	s.mu.Lock()
	if s.waitTerminaison {
		s.mu.Unlock()
		return
	}
	s.waitTerminaison = true
	s.term = e
	// One extra count is held across the loop, and Abort is called
	// without s.mu, so a primitive whose Abort delivers its interrupted
	// completion synchronously drains without finishing early.
	s.stillPending = 1
	s.mu.Unlock()
	for _, p := range s.prims {
		s.mu.Lock()
		s.stillPending++
		s.mu.Unlock()
		if !p.Abort() {
			s.drain()
		}
	}
	s.drain()
}

func (s *Sequence) drain() {
	s.mu.Lock()
	s.stillPending--
	done := s.stillPending == 0
	s.mu.Unlock()
	if done {
		s.finish()
	}
}

func (s *Sequence) finish() {
	s.mu.Lock()
	term := s.term
	done := s.done
	s.mu.Unlock()
	if done != nil {
		done(term)
	}
}

// Pause suspends the currently executing primitive; no further
// primitive starts until Resume.
func (s *Sequence) Pause() {
	s.mu.Lock()
	s.mustPause = true
	idx := s.index
	s.mu.Unlock()
	s.prims[idx].Pause()
}

// Resume un-suspends the currently executing primitive, continuing
// from the index it was paused at.
func (s *Sequence) Resume() {
	s.mu.Lock()
	s.mustPause = false
	idx := s.index
	s.mu.Unlock()
	s.prims[idx].Resume()
}

// Abort tears the whole sequence down, delivering errkind.Interrupted
// to Run's callback once every still-running primitive has drained.
func (s *Sequence) Abort() {
	s.terminate(errkind.Interrupted)
}

// AbortAt is an externally requested interrupt of a single primitive
// (used by compute_ensure's id-based cancellation, spec §4.7): cb fires
// once, after that primitive's own interrupted completion arrives.
func (s *Sequence) AbortAt(idx int, cb func(error)) {
	s.mu.Lock()
	s.requestedAbort[idx] = cb
	s.mu.Unlock()
	s.prims[idx].Abort()
}
