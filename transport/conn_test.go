package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/hyper-run/hyper/wire"
)

func TestRequestAnswerRoundTrip(t *testing.T) {
	clientRaw, serverRaw := net.Pipe()

	server := NewConn(serverRaw, func(c *Conn, f *wire.Frame) {
		switch req := f.Payload.(type) {
		case *wire.RequestName:
			c.Answer(f.ID, &wire.RequestNameAnswer{Name: req.Name, Success: true, Endpoints: []string{"127.0.0.1:9"}})
		}
	})
	defer server.Close()

	client := NewConn(clientRaw, nil)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	f, err := client.Request(ctx, &wire.RequestName{Name: "clock"})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	ans, ok := f.Payload.(*wire.RequestNameAnswer)
	if !ok {
		t.Fatalf("Payload type = %T, want *RequestNameAnswer", f.Payload)
	}
	if !ans.Success || ans.Name != "clock" {
		t.Errorf("answer = %+v", ans)
	}
}

func TestRequestTimesOutOnSilence(t *testing.T) {
	clientRaw, serverRaw := net.Pipe()
	server := NewConn(serverRaw, func(c *Conn, f *wire.Frame) {})
	defer server.Close()

	client := NewConn(clientRaw, nil)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := client.Request(ctx, &wire.RequestName{Name: "nobody"}); err == nil {
		t.Fatal("expected transport_error on timeout")
	}
}

func TestRequestFailsAfterClose(t *testing.T) {
	clientRaw, serverRaw := net.Pipe()
	server := NewConn(serverRaw, nil)
	client := NewConn(clientRaw, nil)
	client.Close()
	server.Close()

	if _, err := client.Request(context.Background(), &wire.Ping{Name: "x"}); err == nil {
		t.Fatal("expected error requesting on a closed connection")
	}
}
