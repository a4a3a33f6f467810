package wire

import (
	"math"
	"testing"
)

func TestValueEqual(t *testing.T) {
	ok, err := Int(3).Equal(Int(3))
	if err != nil || !ok {
		t.Fatalf("Int(3).Equal(Int(3)) = %v, %v", ok, err)
	}
	ok, err = Int(3).Equal(Int(4))
	if err != nil || ok {
		t.Fatalf("Int(3).Equal(Int(4)) = %v, %v", ok, err)
	}
	if _, err := Int(3).Equal(String("3")); err == nil {
		t.Fatal("expected error comparing mismatched kinds")
	}
	if _, err := Empty().Equal(Int(3)); err == nil {
		t.Fatal("expected error comparing empty value")
	}
}

func TestValueCompare(t *testing.T) {
	c, err := Int(3).Compare(Int(5))
	if err != nil || c >= 0 {
		t.Fatalf("Compare(3,5) = %d, %v", c, err)
	}
	c, err = String("b").Compare(String("a"))
	if err != nil || c <= 0 {
		t.Fatalf("Compare(b,a) = %d, %v", c, err)
	}
	if _, err := Bool(true).Compare(Bool(false)); err == nil {
		t.Fatal("expected error ordering bool")
	}
}

func TestValueNaNIsRejected(t *testing.T) {
	nan := Double(math.NaN())
	if _, err := nan.Equal(Double(1.0)); err == nil {
		t.Fatal("expected error equating NaN")
	}
	if _, err := nan.Equal(nan); err == nil {
		t.Fatal("expected error equating NaN to itself")
	}
	if _, err := nan.Compare(Double(1.0)); err == nil {
		t.Fatal("expected error ordering NaN")
	}
}

func TestArithmetic(t *testing.T) {
	v, err := Arithmetic(OpAdd, Int(2), Int(3))
	if err != nil {
		t.Fatalf("Arithmetic add: %v", err)
	}
	if v.IntVal != 5 {
		t.Errorf("2+3 = %d, want 5", v.IntVal)
	}

	if _, err := Arithmetic(OpDiv, Int(1), Int(0)); err == nil {
		t.Fatal("expected invalid_argument on division by zero")
	}

	neg, err := Arithmetic(OpNeg, Double(4.5), nil)
	if err != nil {
		t.Fatalf("Arithmetic neg: %v", err)
	}
	if neg.DblVal != -4.5 {
		t.Errorf("-4.5 got %v", neg.DblVal)
	}
}

func TestStructEquality(t *testing.T) {
	a := Struct([]*Field{{Name: "x", Value: Int(1)}, {Name: "y", Value: Int(2)}})
	b := Struct([]*Field{{Name: "x", Value: Int(1)}, {Name: "y", Value: Int(2)}})
	c := Struct([]*Field{{Name: "x", Value: Int(1)}, {Name: "y", Value: Int(3)}})

	if ok, err := a.Equal(b); err != nil || !ok {
		t.Fatalf("equal structs compared unequal: %v %v", ok, err)
	}
	if ok, err := a.Equal(c); err != nil || ok {
		t.Fatalf("unequal structs compared equal: %v %v", ok, err)
	}
}

func TestIsEmpty(t *testing.T) {
	if !Empty().IsEmpty() {
		t.Error("Empty() should be empty")
	}
	if Int(0).IsEmpty() {
		t.Error("Int(0) should not be empty")
	}
	var v *Value
	if !v.IsEmpty() {
		t.Error("nil *Value should be empty")
	}
}
