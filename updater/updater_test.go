package updater

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hyper-run/hyper/proxy"
	"github.com/hyper-run/hyper/registry"
	"github.com/hyper-run/hyper/transport"
	"github.com/hyper-run/hyper/wire"
)

type stubRefresher struct {
	mu   sync.Mutex
	seen []string
	fail map[string]error
}

func (s *stubRefresher) Refresh(ctx context.Context, name string, cb func(error)) {
	s.mu.Lock()
	s.seen = append(s.seen, name)
	err := s.fail[name]
	s.mu.Unlock()
	go cb(err)
}

func TestRefreshJoinsLocalOnly(t *testing.T) {
	r := &stubRefresher{fail: map[string]error{}}
	u := New(r, proxy.New(registry.NewClient("127.0.0.1:1", nil), nil))

	var wg sync.WaitGroup
	wg.Add(1)
	var gotErr error
	u.Refresh(context.Background(), []string{"x", "y"}, nil, func(err error) {
		gotErr = err
		wg.Done()
	})
	wg.Wait()

	if gotErr != nil {
		t.Fatalf("Refresh: %v", gotErr)
	}
	if len(r.seen) != 2 {
		t.Errorf("refreshed %v, want 2 names", r.seen)
	}
}

func TestRefreshReportsFirstLocalError(t *testing.T) {
	want := errors.New("sensor offline")
	r := &stubRefresher{fail: map[string]error{"y": want}}
	u := New(r, proxy.New(registry.NewClient("127.0.0.1:1", nil), nil))

	var wg sync.WaitGroup
	wg.Add(1)
	var gotErr error
	u.Refresh(context.Background(), []string{"x", "y"}, nil, func(err error) {
		gotErr = err
		wg.Done()
	})
	wg.Wait()

	if gotErr == nil {
		t.Fatal("expected the local refresh error to propagate")
	}
}

func TestRefreshJoinsLocalAndRemote(t *testing.T) {
	srv, err := transport.Listen("127.0.0.1:0", func(c *transport.Conn, f *wire.Frame) {
		if req, ok := f.Payload.(*wire.RequestVariableValue); ok {
			c.Answer(f.ID, &wire.VariableValue{Var: req.Var, Value: wire.Int(7)})
		}
	})
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer srv.Close()

	names := registry.NewServer(false)
	if err := names.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("Listen names: %v", err)
	}
	defer names.Close()
	names.Map.Register("clock", []string{srv.Addr().String()})

	nsClient := registry.NewClient(names.Addr(), nil)
	defer nsClient.Close()
	px := proxy.New(nsClient, nil)
	defer px.Close()

	r := &stubRefresher{fail: map[string]error{}}
	u := New(r, px)

	var remoteOut *wire.Value
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	var gotErr error
	u.Refresh(ctx, []string{"x"}, []RemoteRequest{{Agent: "clock", Var: "tick", Out: &remoteOut}}, func(err error) {
		gotErr = err
		wg.Done()
	})
	wg.Wait()

	if gotErr != nil {
		t.Fatalf("Refresh: %v", gotErr)
	}
	if remoteOut == nil || remoteOut.IntVal != 7 {
		t.Errorf("remote leg not written: %v", remoteOut)
	}
}
