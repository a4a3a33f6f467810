package logcollector

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hyper-run/hyper/registry"
	"github.com/hyper-run/hyper/transport"
	"github.com/hyper-run/hyper/wire"
)

func TestCollectorRegistersWithRegistry(t *testing.T) {
	reg := registry.NewServer(false)
	if err := reg.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer reg.Close()

	col := New()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := col.Start(ctx, "127.0.0.1", reg.Addr()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer col.Close()

	if _, err := reg.Map.Resolve("logger"); err != nil {
		t.Fatalf("registry has no logger endpoint: %v", err)
	}
}

func TestCollectorReordersWithinWindow(t *testing.T) {
	reg := registry.NewServer(false)
	if err := reg.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer reg.Close()

	var (
		mu    sync.Mutex
		lines []string
	)
	col := New()
	col.Window = 50 * time.Millisecond
	col.Writer = func(line string) {
		mu.Lock()
		lines = append(lines, line)
		mu.Unlock()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := col.Start(ctx, "127.0.0.1", reg.Addr()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer col.Close()

	pool := transport.NewPool(nil)
	defer pool.Close()
	conn, err := pool.Get(col.srv.Addr().String())
	if err != nil {
		t.Fatalf("dial logger: %v", err)
	}

	now := time.Now()
	// Sent out of order; both land well inside the same reorder window.
	conn.Send(0, &wire.LogMsg{DateUnixNano: now.Add(time.Second).UnixNano(), Src: "b", Msg: "second"})
	conn.Send(0, &wire.LogMsg{DateUnixNano: now.UnixNano(), Src: "a", Msg: "first"})

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := len(lines)
		mu.Unlock()
		if n >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("messages never flushed")
		case <-time.After(10 * time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %v", len(lines), lines)
	}
	if lines[0] != formatLine(&wire.LogMsg{DateUnixNano: now.UnixNano(), Src: "a", Msg: "first"}) {
		t.Errorf("first line = %q, want the earlier-dated message", lines[0])
	}
}
