package exec

import (
	"sync"
	"testing"

	"github.com/hyper-run/hyper/internal/errkind"
)

// fakePrimitive is a scriptable Primitive for sequence-level tests.
type fakePrimitive struct {
	mu        sync.Mutex
	cb        func(error)
	paused    bool
	aborted   bool
	done      bool // a terminal completion has been delivered
	computeAt int  // how many times Compute was called
}

func (p *fakePrimitive) Compute(cb func(error)) {
	p.mu.Lock()
	p.cb = cb
	p.computeAt++
	p.mu.Unlock()
}

func (p *fakePrimitive) Abort() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cb == nil || p.done {
		return false
	}
	p.aborted = true
	return true
}

func (p *fakePrimitive) Pause() {
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()
}

func (p *fakePrimitive) Resume() {
	p.mu.Lock()
	p.paused = false
	p.mu.Unlock()
}

// finish delivers e through the callback stored by the most recent
// Compute call. It does not clear that callback: a primitive may
// report temporary_failure or run_again more than once before its
// single terminal completion (ok/error/interrupted), exactly as a real
// primitive's own onStep handler would be invoked repeatedly. After a
// terminal completion the primitive is idle, so Abort reports false.
func (p *fakePrimitive) finish(e error) {
	p.mu.Lock()
	if !errkind.Is(e, errkind.TemporaryFailure) && !errkind.Is(e, errkind.RunAgain) {
		p.done = true
	}
	cb := p.cb
	p.mu.Unlock()
	cb(e)
}

func TestSequenceRunsToCompletion(t *testing.T) {
	a, b, c := &fakePrimitive{}, &fakePrimitive{}, &fakePrimitive{}
	seq := NewSequence([]Primitive{a, b, c})

	var got error
	done := make(chan struct{})
	seq.Run(func(e error) { got = e; close(done) })

	a.finish(nil)
	b.finish(nil)
	c.finish(nil)
	<-done

	if got != nil {
		t.Fatalf("sequence error = %v, want nil", got)
	}
	if seq.ErrorIndex() != -1 {
		t.Errorf("ErrorIndex = %d, want -1", seq.ErrorIndex())
	}
}

func TestSequenceStopsAtFirstError(t *testing.T) {
	a, b, c := &fakePrimitive{}, &fakePrimitive{}, &fakePrimitive{}
	seq := NewSequence([]Primitive{a, b, c})

	var got error
	done := make(chan struct{})
	seq.Run(func(e error) { got = e; close(done) })

	a.finish(nil)
	b.finish(errkind.ExecutionKo)
	<-done

	if !errkind.Is(got, errkind.ExecutionKo) {
		t.Fatalf("sequence error = %v, want execution_ko", got)
	}
	if seq.ErrorIndex() != 1 {
		t.Errorf("ErrorIndex = %d, want 1", seq.ErrorIndex())
	}
	if c.computeAt != 0 {
		t.Error("primitive after the failure should never have started")
	}
}

func TestSequenceTemporaryFailureThenRunAgain(t *testing.T) {
	a, b := &fakePrimitive{}, &fakePrimitive{}
	seq := NewSequence([]Primitive{a, b})

	done := make(chan struct{})
	seq.Run(func(e error) { close(done) })

	a.finish(nil)
	// b reports temporary_failure; a (already completed) has no more
	// work, but b itself should be paused by this signal.
	b.finish(errkind.TemporaryFailure)

	b.mu.Lock()
	paused := b.paused
	b.mu.Unlock()
	if !paused {
		t.Error("primitive reporting temporary_failure should be paused")
	}

	select {
	case <-done:
		t.Fatal("sequence should not have terminated on temporary_failure")
	default:
	}

	b.finish(errkind.RunAgain)
	select {
	case <-done:
		t.Fatal("run_again should not itself complete the sequence")
	default:
	}
	b.finish(nil)
	<-done
}

func TestSequenceAbortDrainsAllRunningPrimitives(t *testing.T) {
	a, b := &fakePrimitive{}, &fakePrimitive{}
	seq := NewSequence([]Primitive{a, b})

	var got error
	done := make(chan struct{})
	seq.Run(func(e error) { got = e; close(done) })

	seq.Abort()

	a.mu.Lock()
	abortedA := a.aborted
	a.mu.Unlock()
	if !abortedA {
		t.Fatal("running primitive should have been asked to abort")
	}

	a.finish(errkind.Interrupted)
	<-done

	if !errkind.Is(got, errkind.Interrupted) {
		t.Fatalf("sequence error = %v, want interrupted", got)
	}
}

func TestAbortAtFiresCallbackOnce(t *testing.T) {
	a, b := &fakePrimitive{}, &fakePrimitive{}
	seq := NewSequence([]Primitive{a, b})
	seq.Run(func(error) {})
	// advance to index 1
	a.finish(nil)

	calls := 0
	done := make(chan struct{})
	seq.AbortAt(1, func(e error) {
		calls++
		close(done)
	})
	b.finish(errkind.Interrupted)
	<-done

	if calls != 1 {
		t.Errorf("AbortAt callback fired %d times, want 1", calls)
	}
}
