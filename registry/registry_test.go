package registry

import (
	"context"
	"testing"
	"time"

	"github.com/hyper-run/hyper/internal/errkind"
)

func TestMapRegisterResolve(t *testing.T) {
	m := NewMap()
	m.Register("clock", []string{"10.0.0.1:4242"})

	ep, err := m.Resolve("clock")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(ep) != 1 || ep[0] != "10.0.0.1:4242" {
		t.Errorf("Resolve = %v", ep)
	}

	if _, err := m.Resolve("nobody"); !errkind.Is(err, errkind.NotFound) {
		t.Errorf("Resolve(nobody) err = %v, want not_found", err)
	}
}

func TestMapRegisterIsLastWriterWins(t *testing.T) {
	m := NewMap()
	m.Register("clock", []string{"10.0.0.1:1"})
	m.Register("clock", []string{"10.0.0.1:2"})

	ep, err := m.Resolve("clock")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(ep) != 1 || ep[0] != "10.0.0.1:2" {
		t.Errorf("Resolve = %v, want only the latest registration", ep)
	}
}

func TestMapRemoveAndReap(t *testing.T) {
	m := NewMap()
	m.Register("clock", []string{"10.0.0.1:1"})
	m.Reap("clock", errkind.TransportError)

	if _, err := m.Resolve("clock"); !errkind.Is(err, errkind.NotFound) {
		t.Errorf("Resolve after reap err = %v, want not_found", err)
	}
}

func TestServerRegisterAndResolveOverWire(t *testing.T) {
	srv := NewServer(false)
	if err := srv.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer srv.Close()

	client := NewClient(srv.Addr(), nil)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	assigned, err := client.Register(ctx, "thermostat", "127.0.0.1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if assigned == "" {
		t.Fatal("Register returned no assigned endpoint")
	}

	ep, err := client.Resolve(ctx, "thermostat")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(ep) != 1 || ep[0] != assigned {
		t.Errorf("Resolve = %v, want [%s]", ep, assigned)
	}

	if _, err := client.Resolve(ctx, "nobody"); err == nil {
		t.Fatal("expected error resolving an unregistered name")
	}
}

func TestServerAssignsDistinctPorts(t *testing.T) {
	srv := NewServer(false)
	if err := srv.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer srv.Close()

	client := NewClient(srv.Addr(), nil)
	defer client.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	a, err := client.Register(ctx, "alpha", "127.0.0.1")
	if err != nil {
		t.Fatalf("Register alpha: %v", err)
	}
	b, err := client.Register(ctx, "beta", "127.0.0.1")
	if err != nil {
		t.Fatalf("Register beta: %v", err)
	}
	if a == b {
		t.Fatalf("both registrations got endpoint %s, want distinct ports", a)
	}
}
