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

package wire

import (
	"strings"
)

// NodeKind tags the active member of an Expr (spec §3: "empty (invalid),
// constant(typed), variable-name, function-call(name, args[]),
// binary-op(kind, left, right), unary-op(kind, subject)").
type NodeKind int32

const (
	NodeEmpty NodeKind = iota
	NodeConstant
	NodeVariable
	NodeFunctionCall
	NodeBinaryOp
	NodeUnaryOp
)

// Op is a built-in evaluator kernel (spec §4.5).
type Op int32

const (
	OpNone Op = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpAnd
	OpOr
	OpPlus
	OpNeg
)

// Expr is a node of the typed expression tree shared between agents: it
// is compiled (by the out-of-scope DSL compiler) and then immutable and
// shared by reference within one process, but value-copied on the wire
// (spec §3 ownership notes). A flat struct with a Kind discriminant
// stands in for what would otherwise be a oneof: every field not implied
// by Kind is left zero.
type Expr struct {
	Kind     NodeKind `protobuf:"varint,1,opt,name=kind,enum=hyper.wire.NodeKind"`
	Const    *Value   `protobuf:"bytes,2,opt,name=const"`
	Name     string   `protobuf:"bytes,3,opt,name=name"`
	Args     []*Expr  `protobuf:"bytes,4,rep,name=args"`
	Op       Op       `protobuf:"varint,5,opt,name=op,enum=hyper.wire.Op"`
	Left     *Expr    `protobuf:"bytes,6,opt,name=left"`
	Right    *Expr    `protobuf:"bytes,7,opt,name=right"`
	Subject  *Expr    `protobuf:"bytes,8,opt,name=subject"`
	Inferred Kind     `protobuf:"varint,9,opt,name=inferred,enum=hyper.wire.Kind"`
}

func (e *Expr) Reset()         { *e = Expr{} }
func (e *Expr) ProtoMessage()  {}
func (e *Expr) String() string { return e.Text() }

// Text renders e as source-level text, used to label a RuntimeFailure
// with the offending primitive's original logic expression (spec §7).
func (e *Expr) Text() string {
	if e == nil {
		return "<empty>"
	}
	switch e.Kind {
	case NodeEmpty:
		return "<empty>"
	case NodeConstant:
		return e.Const.String()
	case NodeVariable:
		return e.Name
	case NodeFunctionCall:
		args := make([]string, len(e.Args))
		for i, a := range e.Args {
			args[i] = a.Text()
		}
		return e.Name + "(" + strings.Join(args, ", ") + ")"
	case NodeBinaryOp:
		return "(" + e.Left.Text() + " " + opSymbol(e.Op) + " " + e.Right.Text() + ")"
	case NodeUnaryOp:
		return opSymbol(e.Op) + e.Subject.Text()
	default:
		return "<invalid>"
	}
}

func opSymbol(op Op) string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpEq:
		return "=="
	case OpNeq:
		return "!="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	case OpPlus:
		return "+"
	case OpNeg:
		return "-"
	default:
		return "?"
	}
}

// IsScoped reports whether Name carries an "agent.var" scope (spec §4.5:
// "Variable: if unscoped or scoped to self ... else proxy-get").
func IsScoped(name string) bool {
	return strings.Contains(name, ".")
}

// Decompose splits a scoped "agent.var" identifier. Name must satisfy
// IsScoped.
func Decompose(name string) (agent, variable string) {
	idx := strings.Index(name, ".")
	return name[:idx], name[idx+1:]
}

// ConstExpr builds a constant leaf node.
func ConstExpr(v *Value) *Expr { return &Expr{Kind: NodeConstant, Const: v, Inferred: v.Kind} }

// VarExpr builds a variable reference node, possibly scoped.
func VarExpr(name string) *Expr { return &Expr{Kind: NodeVariable, Name: name} }

// CallExpr builds a function-call node.
func CallExpr(name string, args ...*Expr) *Expr {
	return &Expr{Kind: NodeFunctionCall, Name: name, Args: args}
}

// BinExpr builds a binary-op node.
func BinExpr(op Op, left, right *Expr) *Expr {
	return &Expr{Kind: NodeBinaryOp, Op: op, Left: left, Right: right}
}

// UnaryExpr builds a unary-op node.
func UnaryExpr(op Op, subject *Expr) *Expr {
	return &Expr{Kind: NodeUnaryOp, Op: op, Subject: subject}
}
