package agent

import (
	"context"
	"testing"
	"time"

	"github.com/hyper-run/hyper/exec"
	"github.com/hyper-run/hyper/logic"
	"github.com/hyper-run/hyper/recipe"
	"github.com/hyper-run/hyper/registry"
	"github.com/hyper-run/hyper/transport"
	"github.com/hyper-run/hyper/wire"
)

func startRegistry(t *testing.T) (*registry.Server, func()) {
	t.Helper()
	srv := registry.NewServer(false)
	if err := srv.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("registry Listen: %v", err)
	}
	return srv, func() { srv.Close() }
}

func TestAgentAnswersRequestVariableValue(t *testing.T) {
	reg, cleanup := startRegistry(t)
	defer cleanup()

	a := New("pos", map[string]*wire.Value{"x": wire.Int(42)}, WithRegistryAddr(reg.Addr()))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.Start(ctx, "127.0.0.1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer a.Shutdown()

	pool := transport.NewPool(nil)
	defer pool.Close()
	conn, err := pool.Get(a.endpoint)
	if err != nil {
		t.Fatalf("dial agent: %v", err)
	}

	f, err := conn.Request(ctx, &wire.RequestVariableValue{Src: "tester", Var: "x"})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	ans, ok := f.Payload.(*wire.VariableValue)
	if !ok {
		t.Fatalf("payload = %T, want *wire.VariableValue", f.Payload)
	}
	if ans.Value.IntVal != 42 {
		t.Errorf("value = %v, want 42", ans.Value)
	}
}

func TestAgentRequestConstraintWithNoLogicFails(t *testing.T) {
	reg, cleanup := startRegistry(t)
	defer cleanup()

	a := New("noop", nil, WithRegistryAddr(reg.Addr()))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.Start(ctx, "127.0.0.1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer a.Shutdown()

	// The terminal answer shares the request's id with the ack; the ack
	// settles the pending request, so the answer reaches the handler.
	answers := make(chan *wire.RequestConstraintAnswer, 1)
	pool := transport.NewPool(func(c *transport.Conn, f *wire.Frame) {
		if ans, ok := f.Payload.(*wire.RequestConstraintAnswer); ok {
			answers <- ans
		}
	})
	defer pool.Close()
	conn, err := pool.Get(a.endpoint)
	if err != nil {
		t.Fatalf("dial agent: %v", err)
	}

	ackF, err := conn.Request(ctx, &wire.RequestConstraint{ID: "req-1", Src: "tester", Constraint: wire.ConstExpr(wire.Bool(true))})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if _, ok := ackF.Payload.(*wire.RequestConstraintAck); !ok {
		t.Fatalf("first answer = %T, want ack", ackF.Payload)
	}
	select {
	case ans := <-answers:
		if ans.State != wire.StateFailure {
			t.Errorf("answer state = %v, want FAILURE", ans.State)
		}
	case <-ctx.Done():
		t.Fatal("no request_constraint_answer received")
	}
}

// stubEngine always selects a fixed recipe name, regardless of facts.
type stubEngine struct {
	pick string
}

func (e stubEngine) AddFact(name string, value *wire.Value) {}
func (e stubEngine) SelectRecipe(facts map[string]*wire.Value) (string, bool) {
	return e.pick, e.pick != ""
}
func (e stubEngine) Evaluate(expr *wire.Expr) logic.Tribool { return logic.Indeterminate }

type okPrimitive struct{}

func (okPrimitive) Compute(cb func(error)) { cb(nil) }
func (okPrimitive) Abort() bool            { return false }
func (okPrimitive) Pause()                 {}
func (okPrimitive) Resume()                {}

func TestAgentRequestConstraintSelectsAndRunsRecipe(t *testing.T) {
	reg, cleanup := startRegistry(t)
	defer cleanup()

	a := New("worker", map[string]*wire.Value{}, WithRegistryAddr(reg.Addr()), WithLogic(stubEngine{pick: "satisfy"}))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.Start(ctx, "127.0.0.1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer a.Shutdown()

	ran := false
	r := recipe.New("satisfy", nil, func() []exec.Primitive {
		ran = true
		return []exec.Primitive{okPrimitive{}}
	})
	a.AddRecipe(r)

	pool := transport.NewPool(nil)
	defer pool.Close()
	conn, err := pool.Get(a.endpoint)
	if err != nil {
		t.Fatalf("dial agent: %v", err)
	}

	if _, err := conn.Request(ctx, &wire.RequestConstraint{ID: "req-2", Src: "tester", Constraint: wire.ConstExpr(wire.Bool(true))}); err != nil {
		t.Fatalf("ack Request: %v", err)
	}

	f, err := conn.Request(ctx, &wire.RequestVariableValue{Src: "tester", Var: "placeholder"})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	_ = f

	deadline := time.After(2 * time.Second)
	for !ran {
		select {
		case <-deadline:
			t.Fatal("recipe body never ran")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
