// Copyright (c) Hyper Authors. All Rights Reserved.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package wire holds the types that cross process boundaries: typed
// values, expression trees, and the framed messages agents exchange.
// Every type here is a github.com/golang/protobuf message (reflection
// marshaled over struct tags), the same serialization seam the teacher
// defaults its exported payloads to.
package wire

import (
	"fmt"
	"math"

	"github.com/hyper-run/hyper/internal/errkind"
)

// Kind tags the active member of a Value.
type Kind int32

const (
	KindEmpty Kind = iota
	KindInt
	KindDouble
	KindBool
	KindString
	KindStruct
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindInt:
		return "int"
	case KindDouble:
		return "double"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindStruct:
		return "struct"
	case KindOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}

// Field is one named member of a Struct-kind Value.
type Field struct {
	Name  string `protobuf:"bytes,1,opt,name=name" json:"name"`
	Value *Value `protobuf:"bytes,2,opt,name=value" json:"value"`
}

// Value is the sum type every exported variable cell, function argument
// and result carries (spec §3: "Sum over {int, double, bool, string,
// struct-of-fields, user-opaque}"). Only the field matching Kind is
// meaningful; the rest are zero. Strings and structs are value-copied
// across the wire, never shared by reference.
type Value struct {
	Kind     Kind     `protobuf:"varint,1,opt,name=kind,enum=hyper.wire.Kind"`
	IntVal   int64    `protobuf:"varint,2,opt,name=int_val,json=intVal"`
	DblVal   float64  `protobuf:"fixed64,3,opt,name=dbl_val,json=dblVal"`
	BoolVal  bool     `protobuf:"varint,4,opt,name=bool_val,json=boolVal"`
	StrVal   string   `protobuf:"bytes,5,opt,name=str_val,json=strVal"`
	Fields   []*Field `protobuf:"bytes,6,rep,name=fields"`
	Opaque   []byte   `protobuf:"bytes,7,opt,name=opaque"`
	TypeName string   `protobuf:"bytes,8,opt,name=type_name,json=typeName"`
}

func (v *Value) Reset()         { *v = Value{} }
func (v *Value) String() string { return fmt.Sprintf("%v", v.Native()) }
func (v *Value) ProtoMessage()  {}

// Native returns the Go-native representation of v, or nil for an empty
// value (struct/opaque are returned as-is, for display purposes only).
func (v *Value) Native() interface{} {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case KindInt:
		return v.IntVal
	case KindDouble:
		return v.DblVal
	case KindBool:
		return v.BoolVal
	case KindString:
		return v.StrVal
	case KindStruct:
		return v.Fields
	case KindOpaque:
		return v.Opaque
	default:
		return nil
	}
}

// IsEmpty reports whether v carries no value (spec: "empty never appears
// in a validated tree," but a runtime Value can still be empty as the
// result of monad-like short-circuit propagation).
func (v *Value) IsEmpty() bool { return v == nil || v.Kind == KindEmpty }

func Int(i int64) *Value       { return &Value{Kind: KindInt, IntVal: i} }
func Double(f float64) *Value  { return &Value{Kind: KindDouble, DblVal: f} }
func Bool(b bool) *Value       { return &Value{Kind: KindBool, BoolVal: b} }
func String(s string) *Value   { return &Value{Kind: KindString, StrVal: s} }
func Struct(f []*Field) *Value { return &Value{Kind: KindStruct, Fields: f} }
func Opaque(typeName string, b []byte) *Value {
	return &Value{Kind: KindOpaque, TypeName: typeName, Opaque: b}
}
func Empty() *Value { return &Value{Kind: KindEmpty} }

// Equal implements the type tag's equality, per spec §3.
func (v *Value) Equal(o *Value) (bool, error) {
	if v.IsEmpty() || o.IsEmpty() {
		return false, errkind.InvalidArgument
	}
	if v.Kind != o.Kind {
		return false, errkind.InvalidArgument
	}
	switch v.Kind {
	case KindInt:
		return v.IntVal == o.IntVal, nil
	case KindDouble:
		if isNaN(v.DblVal) || isNaN(o.DblVal) {
			return false, errkind.InvalidArgument
		}
		return v.DblVal == o.DblVal, nil
	case KindBool:
		return v.BoolVal == o.BoolVal, nil
	case KindString:
		return v.StrVal == o.StrVal, nil
	case KindStruct:
		return structEqual(v.Fields, o.Fields), nil
	case KindOpaque:
		return v.TypeName == o.TypeName && bytesEqual(v.Opaque, o.Opaque), nil
	default:
		return false, errkind.InvalidArgument
	}
}

func structEqual(a, b []*Field) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name {
			return false
		}
		ok, err := a[i].Value.Equal(b[i].Value)
		if err != nil || !ok {
			return false
		}
	}
	return true
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Compare implements the type tag's ordering "where defined" (spec §3):
// numeric and string variants only.
func (v *Value) Compare(o *Value) (int, error) {
	if v.IsEmpty() || o.IsEmpty() || v.Kind != o.Kind {
		return 0, errkind.InvalidArgument
	}
	switch v.Kind {
	case KindInt:
		return cmpInt(v.IntVal, o.IntVal), nil
	case KindDouble:
		if isNaN(v.DblVal) || isNaN(o.DblVal) {
			return 0, errkind.InvalidArgument
		}
		return cmpFloat(v.DblVal, o.DblVal), nil
	case KindString:
		return cmpString(v.StrVal, o.StrVal), nil
	default:
		return 0, errkind.InvalidArgument
	}
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Arithmetic implements the type tag's arithmetic (numeric variants
// only, spec §3). Op is one of the ADD/SUB/MUL/DIV/PLUS/NEG kernels.
func Arithmetic(op Op, a, b *Value) (*Value, error) {
	if a.IsEmpty() {
		return nil, errkind.InvalidArgument
	}
	if op == OpNeg || op == OpPlus {
		return unaryArith(op, a)
	}
	if b.IsEmpty() || a.Kind != b.Kind {
		return nil, errkind.InvalidArgument
	}
	switch a.Kind {
	case KindInt:
		return intArith(op, a.IntVal, b.IntVal)
	case KindDouble:
		return doubleArith(op, a.DblVal, b.DblVal)
	default:
		return nil, errkind.InvalidArgument
	}
}

func unaryArith(op Op, a *Value) (*Value, error) {
	switch a.Kind {
	case KindInt:
		if op == OpNeg {
			return Int(-a.IntVal), nil
		}
		return Int(a.IntVal), nil
	case KindDouble:
		if op == OpNeg {
			return Double(-a.DblVal), nil
		}
		return Double(a.DblVal), nil
	default:
		return nil, errkind.InvalidArgument
	}
}

func intArith(op Op, a, b int64) (*Value, error) {
	switch op {
	case OpAdd:
		return Int(a + b), nil
	case OpSub:
		return Int(a - b), nil
	case OpMul:
		return Int(a * b), nil
	case OpDiv:
		if b == 0 {
			return nil, errkind.InvalidArgument
		}
		return Int(a / b), nil
	default:
		return nil, errkind.InvalidArgument
	}
}

func doubleArith(op Op, a, b float64) (*Value, error) {
	switch op {
	case OpAdd:
		return Double(a + b), nil
	case OpSub:
		return Double(a - b), nil
	case OpMul:
		return Double(a * b), nil
	case OpDiv:
		if b == 0 {
			return nil, errkind.InvalidArgument
		}
		return Double(a / b), nil
	default:
		return nil, errkind.InvalidArgument
	}
}

// isNaN reports whether f is NaN; Equal and Compare reject a NaN
// operand rather than give it IEEE 754's non-reflexive equality or an
// arbitrary ordering.
func isNaN(f float64) bool { return math.IsNaN(f) }
