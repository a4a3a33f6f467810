package recipe

import (
	"context"
	"sync"
	"testing"

	"github.com/hyper-run/hyper/eval"
	"github.com/hyper-run/hyper/exec"
	"github.com/hyper-run/hyper/internal/errkind"
	"github.com/hyper-run/hyper/proxy"
	"github.com/hyper-run/hyper/registry"
	"github.com/hyper-run/hyper/updater"
	"github.com/hyper-run/hyper/wire"
)

// memCells is a minimal eval.Local + updater.LocalRefresher backed by
// an in-memory map, used only to drive the condition evaluator in
// these tests.
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

func newTestUpdater() *updater.Updater {
	px := proxy.New(registry.NewClient("127.0.0.1:1", nil), nil)
	return updater.New(&memCells{vals: map[string]*wire.Value{}}, px)
}

// stepPrimitive is a scriptable exec.Primitive used only to drive a
// recipe's body/end-handler sequences deterministically.
type stepPrimitive struct {
	err error
}

func (p *stepPrimitive) Compute(cb func(error)) { cb(p.err) }
func (p *stepPrimitive) Abort() bool            { return false }
func (p *stepPrimitive) Pause()                 {}
func (p *stepPrimitive) Resume()                {}

func okBody() []exec.Primitive {
	return []exec.Primitive{&stepPrimitive{}, &stepPrimitive{}}
}

func TestRecipeExecutesBodyWithNoPreconditions(t *testing.T) {
	r := New("add", nil, okBody)

	done := make(chan error, 1)
	r.Execute(context.Background(), func(e error) { done <- e })
	if err := <-done; err != nil {
		t.Fatalf("Execute: %v", err)
	}
}

func TestRecipeRunsEndHandlerExactlyOnce(t *testing.T) {
	calls := 0
	r := New("mult", nil, okBody).WithEndHandler(func() []exec.Primitive {
		calls++
		return []exec.Primitive{&stepPrimitive{}}
	})

	done := make(chan error, 1)
	r.Execute(context.Background(), func(e error) { done <- e })
	if err := <-done; err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if calls != 1 {
		t.Fatalf("end handler built %d times, want 1", calls)
	}
}

func TestRecipeBodyFailureBecomesRuntimeFailure(t *testing.T) {
	body := func() []exec.Primitive {
		return []exec.Primitive{&stepPrimitive{}, &stepPrimitive{err: errkind.ExecutionKo}}
	}
	r := New("broken", nil, body)

	done := make(chan error, 1)
	r.Execute(context.Background(), func(e error) { done <- e })
	err := <-done

	rf, ok := err.(*errkind.RuntimeFailure)
	if !ok {
		t.Fatalf("err = %T(%v), want *errkind.RuntimeFailure", err, err)
	}
	if !errkind.Is(rf.Unwrap(), errkind.ExecutionKo) {
		t.Fatalf("underlying = %v, want execution_ko", rf.Unwrap())
	}
}

func TestRecipeUnsatisfiedPreconditionSkipsBody(t *testing.T) {
	bodyRan := false
	body := func() []exec.Primitive {
		bodyRan = true
		return okBody()
	}

	ev := newTestEvaluator(map[string]*wire.Value{"ready": wire.Bool(false)})
	preconditions := exec.NewConditionEvaluator(ev, newTestUpdater(), nil, nil, []*wire.Expr{wire.VarExpr("ready")})

	r := New("guarded", preconditions, body)
	done := make(chan error, 1)
	r.Execute(context.Background(), func(e error) { done <- e })
	err := <-done

	if bodyRan {
		t.Fatal("body should not run when a precondition is unsatisfied")
	}
	rf, ok := err.(*errkind.RuntimeFailure)
	if !ok {
		t.Fatalf("err = %T(%v), want *errkind.RuntimeFailure", err, err)
	}
	if rf.Expression != "ready" {
		t.Errorf("Expression = %q, want %q", rf.Expression, "ready")
	}
}

func TestRecipeQueuesExecuteWhileRunning(t *testing.T) {
	gate := make(chan struct{})
	body := func() []exec.Primitive {
		return []exec.Primitive{&blockingPrimitive{gate: gate}}
	}
	r := New("slow", nil, body)

	first := make(chan error, 1)
	r.Execute(context.Background(), func(e error) { first <- e })

	second := make(chan error, 1)
	r.Execute(context.Background(), func(e error) { second <- e })

	close(gate)
	if err := <-first; err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	if err := <-second; err != nil {
		t.Fatalf("queued Execute: %v", err)
	}
}

// blockingPrimitive completes only after gate is closed, simulating an
// execution still in progress when a second Execute call arrives.
type blockingPrimitive struct {
	gate chan struct{}
}

func (p *blockingPrimitive) Compute(cb func(error)) {
	go func() {
		<-p.gate
		cb(nil)
	}()
}
func (p *blockingPrimitive) Abort() bool { return false }
func (p *blockingPrimitive) Pause()      {}
func (p *blockingPrimitive) Resume()     {}
