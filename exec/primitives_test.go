package exec

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hyper-run/hyper/eval"
	"github.com/hyper-run/hyper/internal/errkind"
	"github.com/hyper-run/hyper/proxy"
	"github.com/hyper-run/hyper/registry"
	"github.com/hyper-run/hyper/wire"
)

type memCells struct {
	mu   sync.Mutex
	vals map[string]*wire.Value
}

func (m *memCells) Refresh(ctx context.Context, name string, cb func(error)) { cb(nil) }
func (m *memCells) Read(name string) (*wire.Value, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vals[name]
	if !ok {
		return nil, errkind.NotFound
	}
	return v, nil
}

func newTestEvaluator(vals map[string]*wire.Value) *eval.Evaluator {
	cells := &memCells{vals: vals}
	px := proxy.New(registry.NewClient("127.0.0.1:1", nil), nil)
	return eval.New("self", cells, px, nil)
}

func TestExpressionPrimitiveWritesDest(t *testing.T) {
	ev := newTestEvaluator(map[string]*wire.Value{"x": wire.Int(3)})
	var dest *wire.Value
	p := NewExpressionPrimitive(ev, wire.VarExpr("x"), &dest)

	done := make(chan error, 1)
	p.Compute(func(e error) { done <- e })
	if err := <-done; err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if dest.IntVal != 3 {
		t.Errorf("dest = %v, want 3", dest)
	}
}

func TestExpressionPrimitiveEmptyIsInvalidArgument(t *testing.T) {
	ev := newTestEvaluator(nil)
	var dest *wire.Value
	p := NewExpressionPrimitive(ev, wire.ConstExpr(wire.Empty()), &dest)

	done := make(chan error, 1)
	p.Compute(func(e error) { done <- e })
	err := <-done
	if !errkind.Is(err, errkind.InvalidArgument) {
		t.Fatalf("err = %v, want invalid_argument", err)
	}
}

func TestWaitPrimitiveCompletesWhenPredicateTrue(t *testing.T) {
	vals := map[string]*wire.Value{"ready": wire.Bool(false)}
	ev := newTestEvaluator(vals)
	p := NewWaitPrimitive(ev, wire.VarExpr("ready"))

	done := make(chan error, 1)
	p.Compute(func(e error) { done <- e })

	select {
	case <-done:
		t.Fatal("should not complete while predicate is false")
	case <-time.After(20 * time.Millisecond):
	}

	vals["ready"] = wire.Bool(true)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Compute: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("wait primitive never observed the predicate turn true")
	}
}

func TestWaitPrimitiveAbort(t *testing.T) {
	ev := newTestEvaluator(map[string]*wire.Value{"ready": wire.Bool(false)})
	p := NewWaitPrimitive(ev, wire.VarExpr("ready"))

	done := make(chan error, 1)
	p.Compute(func(e error) { done <- e })
	if !p.Abort() {
		t.Fatal("Abort on a running wait should report in-progress")
	}
	err := <-done
	if !errkind.Is(err, errkind.Interrupted) {
		t.Fatalf("err = %v, want interrupted", err)
	}
}

// fakeConn is a minimal constraintSender for make/ensure/abort tests.
type fakeConn struct {
	answer *wire.RequestConstraintAnswer
	err    error
	sent   []wire.Message
}

func (f *fakeConn) Request(ctx context.Context, payload wire.Message) (*wire.Frame, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &wire.Frame{Payload: f.answer}, nil
}

func (f *fakeConn) Send(id wire.RequestID, payload wire.Message) error {
	f.sent = append(f.sent, payload)
	return nil
}

func TestMakePrimitiveSuccess(t *testing.T) {
	conn := &fakeConn{answer: &wire.RequestConstraintAnswer{State: wire.StateSuccess}}
	p := NewMakePrimitive(conn, "self", wire.ConstExpr(wire.Bool(true)))

	done := make(chan error, 1)
	p.Compute(func(e error) { done <- e })
	if err := <-done; err != nil {
		t.Fatalf("Compute: %v", err)
	}
}

func TestMakePrimitiveFailureIsExecutionKo(t *testing.T) {
	conn := &fakeConn{answer: &wire.RequestConstraintAnswer{State: wire.StateFailure}}
	p := NewMakePrimitive(conn, "self", wire.ConstExpr(wire.Bool(true)))

	done := make(chan error, 1)
	p.Compute(func(e error) { done <- e })
	err := <-done
	if !errkind.Is(err, errkind.ExecutionKo) {
		t.Fatalf("err = %v, want execution_ko", err)
	}
}

func TestAbortPrimitiveSendsAbortFrame(t *testing.T) {
	conn := &fakeConn{}
	p := NewAbortPrimitive(conn, "self", "req-1")

	done := make(chan error, 1)
	p.Compute(func(e error) { done <- e })
	if err := <-done; err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(conn.sent) != 1 {
		t.Fatalf("sent %d frames, want 1", len(conn.sent))
	}
	abortMsg, ok := conn.sent[0].(*wire.Abort)
	if !ok || abortMsg.ID != "req-1" {
		t.Errorf("sent = %+v", conn.sent[0])
	}
}
