package wire

import (
	"bytes"
	"testing"

	"github.com/golang/protobuf/proto"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		payload proto.Message
	}{
		{"request_name", &RequestName{Name: "clock"}},
		{"register_name", &RegisterName{Name: "clock", Endpoints: []string{"10.0.0.1:4242"}}},
		{"variable_value", &VariableValue{Var: "temp", TypeTag: KindDouble, Value: Double(21.5)}},
		{"request_constraint", &RequestConstraint{
			ID:         "req-1",
			Src:        "thermostat",
			Constraint: BinExpr(OpEq, VarExpr("temp"), ConstExpr(Int(20))),
		}},
		{"abort", &Abort{Src: "thermostat", ID: "req-1"}},
		{"ping", &Ping{Name: "thermostat"}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f, err := NewFrame(7, c.payload)
			if err != nil {
				t.Fatalf("NewFrame: %v", err)
			}
			buf, err := Encode(f)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			dec := NewDecoder(bytes.NewReader(buf))
			got, err := dec.Next()
			if err != nil {
				t.Fatalf("Next: %v", err)
			}
			if got.ID != 7 {
				t.Errorf("ID = %d, want 7", got.ID)
			}
			if got.Type != f.Type {
				t.Errorf("Type = %v, want %v", got.Type, f.Type)
			}
		})
	}
}

func TestFrameHeaderRoundTrip(t *testing.T) {
	f, err := NewFrame(42, &Ping{Name: "clock"})
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	buf, err := Encode(f)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	dec := NewDecoder(bytes.NewReader(buf))
	got, err := dec.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if got.ID != 42 {
		t.Errorf("ID = %d, want 42", got.ID)
	}
	if got.Type != FramePing {
		t.Errorf("Type = %v, want %v", got.Type, FramePing)
	}
	ping, ok := got.Payload.(*Ping)
	if !ok {
		t.Fatalf("Payload type = %T, want *Ping", got.Payload)
	}
	if ping.Name != "clock" {
		t.Errorf("Name = %q, want clock", ping.Name)
	}
}

func TestDecoderMultipleFrames(t *testing.T) {
	var buf bytes.Buffer
	for i := RequestID(1); i <= 3; i++ {
		f, err := NewFrame(i, &Ping{Name: "agent"})
		if err != nil {
			t.Fatalf("NewFrame: %v", err)
		}
		if err := WriteFrame(&buf, f); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}

	dec := NewDecoder(&buf)
	for i := RequestID(1); i <= 3; i++ {
		f, err := dec.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if f.ID != i {
			t.Errorf("ID = %d, want %d", f.ID, i)
		}
	}
}

func TestDecoderRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	dec := NewDecoder(&buf)
	if _, err := dec.Next(); err == nil {
		t.Fatal("expected error for oversized frame length")
	}
}
