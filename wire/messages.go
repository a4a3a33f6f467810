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

import "fmt"

// FrameType tags the outer envelope every length-prefixed frame carries
// (spec §6 "Wire messages"). The payload bytes that follow are the
// proto.Marshal encoding of the matching message struct below.
type FrameType uint8

const (
	FrameRequestName FrameType = iota + 1
	FrameRequestNameAnswer
	FrameRegisterName
	FrameRegisterNameAnswer
	FrameRequestVariableValue
	FrameVariableValue
	FrameRequestConstraint
	FrameRequestConstraintAck
	FrameRequestConstraintAnswer
	FrameAbort
	FramePing
	FrameLogMsg
	FrameInformDeathAgent
	FrameTerminate
)

func (t FrameType) String() string {
	switch t {
	case FrameRequestName:
		return "request_name"
	case FrameRequestNameAnswer:
		return "request_name_answer"
	case FrameRegisterName:
		return "register_name"
	case FrameRegisterNameAnswer:
		return "register_name_answer"
	case FrameRequestVariableValue:
		return "request_variable_value"
	case FrameVariableValue:
		return "variable_value"
	case FrameRequestConstraint:
		return "request_constraint"
	case FrameRequestConstraintAck:
		return "request_constraint_ack"
	case FrameRequestConstraintAnswer:
		return "request_constraint_answer"
	case FrameAbort:
		return "abort"
	case FramePing:
		return "ping"
	case FrameLogMsg:
		return "log_msg"
	case FrameInformDeathAgent:
		return "inform_death_agent"
	case FrameTerminate:
		return "terminate"
	default:
		return "unknown"
	}
}

// ConstraintState is the exhaustive external signal for a constraint
// request's outcome (spec §7).
type ConstraintState int32

const (
	StateSuccess ConstraintState = iota
	StateFailure
	StateInterrupted
)

func (s ConstraintState) String() string {
	switch s {
	case StateSuccess:
		return "SUCCESS"
	case StateFailure:
		return "FAILURE"
	case StateInterrupted:
		return "INTERRUPTED"
	default:
		return "UNKNOWN"
	}
}

// RequestID correlates a request and its answer across an in-flight
// table entry; every outbound request receives a fresh one (spec §4.2).
type RequestID uint64

// message is embedded by every wire type purely to share the
// fmt.Sprintf-based String(); it is not itself marshaled.
type message struct{}

func (message) protoString(v interface{}) string { return fmt.Sprintf("%+v", v) }

// RequestName asks the registry for a name's endpoints.
type RequestName struct {
	Name string `protobuf:"bytes,1,opt,name=name"`
}

func (m *RequestName) Reset()         { *m = RequestName{} }
func (m *RequestName) ProtoMessage()  {}
func (m *RequestName) String() string { return fmt.Sprintf("request_name{%s}", m.Name) }

// RequestNameAnswer is the registry's reply to RequestName.
type RequestNameAnswer struct {
	Name      string   `protobuf:"bytes,1,opt,name=name"`
	Success   bool     `protobuf:"varint,2,opt,name=success"`
	Endpoints []string `protobuf:"bytes,3,rep,name=endpoints"`
}

func (m *RequestNameAnswer) Reset()        { *m = RequestNameAnswer{} }
func (m *RequestNameAnswer) ProtoMessage() {}
func (m *RequestNameAnswer) String() string {
	return fmt.Sprintf("request_name_answer{%s success=%v endpoints=%v}", m.Name, m.Success, m.Endpoints)
}

// RegisterName registers the sending agent's endpoints with the
// registry; duplicates replace the prior entry (spec §4.1).
type RegisterName struct {
	Name      string   `protobuf:"bytes,1,opt,name=name"`
	Endpoints []string `protobuf:"bytes,2,rep,name=endpoints"`
}

func (m *RegisterName) Reset()         { *m = RegisterName{} }
func (m *RegisterName) ProtoMessage()  {}
func (m *RegisterName) String() string { return fmt.Sprintf("register_name{%s %v}", m.Name, m.Endpoints) }

// RegisterNameAnswer returns the one registry-assigned endpoint
// alongside success. The endpoint list travels only on the request
// side, in RegisterName.Endpoints.
type RegisterNameAnswer struct {
	Name             string `protobuf:"bytes,1,opt,name=name"`
	Success          bool   `protobuf:"varint,2,opt,name=success"`
	AssignedEndpoint string `protobuf:"bytes,3,opt,name=assigned_endpoint,json=assignedEndpoint"`
}

func (m *RegisterNameAnswer) Reset()        { *m = RegisterNameAnswer{} }
func (m *RegisterNameAnswer) ProtoMessage() {}
func (m *RegisterNameAnswer) String() string {
	return fmt.Sprintf("register_name_answer{%s success=%v endpoint=%s}", m.Name, m.Success, m.AssignedEndpoint)
}

// RequestVariableValue asks an agent to read one of its exported cells.
type RequestVariableValue struct {
	Src string `protobuf:"bytes,1,opt,name=src"`
	Var string `protobuf:"bytes,2,opt,name=var"`
}

func (m *RequestVariableValue) Reset()        { *m = RequestVariableValue{} }
func (m *RequestVariableValue) ProtoMessage() {}
func (m *RequestVariableValue) String() string {
	return fmt.Sprintf("request_variable_value{src=%s var=%s}", m.Src, m.Var)
}

// VariableValue is the answer to RequestVariableValue.
type VariableValue struct {
	Var     string `protobuf:"bytes,1,opt,name=var"`
	TypeTag Kind   `protobuf:"varint,2,opt,name=type_tag,json=typeTag,enum=hyper.wire.Kind"`
	Value   *Value `protobuf:"bytes,3,opt,name=value"`
}

func (m *VariableValue) Reset()         { *m = VariableValue{} }
func (m *VariableValue) ProtoMessage()  {}
func (m *VariableValue) String() string { return fmt.Sprintf("variable_value{%s=%v}", m.Var, m.Value) }

// UnifyPair is one equation in a constraint request's unification list
// (spec §3 glossary: "additional equations constraining free symbols").
type UnifyPair struct {
	Left  *Expr `protobuf:"bytes,1,opt,name=left"`
	Right *Expr `protobuf:"bytes,2,opt,name=right"`
}

func (m *UnifyPair) Reset()         { *m = UnifyPair{} }
func (m *UnifyPair) ProtoMessage()  {}
func (m *UnifyPair) String() string { return fmt.Sprintf("%s = %s", m.Left.Text(), m.Right.Text()) }

// RequestConstraint asks a peer to make (repeat=false) or make-and-keep
// (repeat=true) a constraint true.
type RequestConstraint struct {
	ID         string       `protobuf:"bytes,1,opt,name=id"`
	Src        string       `protobuf:"bytes,2,opt,name=src"`
	Constraint *Expr        `protobuf:"bytes,3,opt,name=constraint"`
	Repeat     bool         `protobuf:"varint,4,opt,name=repeat"`
	UnifyList  []*UnifyPair `protobuf:"bytes,5,rep,name=unify_list,json=unifyList"`
}

func (m *RequestConstraint) Reset()        { *m = RequestConstraint{} }
func (m *RequestConstraint) ProtoMessage() {}
func (m *RequestConstraint) String() string {
	return fmt.Sprintf("request_constraint{id=%s %s repeat=%v}", m.ID, m.Constraint.Text(), m.Repeat)
}

// RequestConstraintAck confirms the peer accepted the request and
// started evaluating it.
type RequestConstraintAck struct {
	ID string `protobuf:"bytes,1,opt,name=id"`
}

func (m *RequestConstraintAck) Reset()         { *m = RequestConstraintAck{} }
func (m *RequestConstraintAck) ProtoMessage()  {}
func (m *RequestConstraintAck) String() string { return fmt.Sprintf("request_constraint_ack{%s}", m.ID) }

// RequestConstraintAnswer is the outcome of a request, one of the
// ConstraintState values (SUCCESS, FAILURE, INTERRUPTED); there is no
// intermediate temporary-failure or run-again state.
type RequestConstraintAnswer struct {
	ID      string          `protobuf:"bytes,1,opt,name=id"`
	State   ConstraintState `protobuf:"varint,2,opt,name=state,enum=hyper.wire.ConstraintState"`
	Payload *Value          `protobuf:"bytes,3,opt,name=payload"`
}

func (m *RequestConstraintAnswer) Reset()        { *m = RequestConstraintAnswer{} }
func (m *RequestConstraintAnswer) ProtoMessage() {}
func (m *RequestConstraintAnswer) String() string {
	return fmt.Sprintf("request_constraint_answer{%s %s}", m.ID, m.State)
}

// Abort asks the agent owning id's request to interrupt it; there is no
// direct answer, only a later INTERRUPTED RequestConstraintAnswer for id.
type Abort struct {
	Src string `protobuf:"bytes,1,opt,name=src"`
	ID  string `protobuf:"bytes,2,opt,name=id"`
}

func (m *Abort) Reset()         { *m = Abort{} }
func (m *Abort) ProtoMessage()  {}
func (m *Abort) String() string { return fmt.Sprintf("abort{%s}", m.ID) }

// Ping is an unanswered liveness beacon sent to the name registry.
type Ping struct {
	Name string `protobuf:"bytes,1,opt,name=name"`
}

func (m *Ping) Reset()         { *m = Ping{} }
func (m *Ping) ProtoMessage()  {}
func (m *Ping) String() string { return fmt.Sprintf("ping{%s}", m.Name) }

// LogMsg is forwarded to the logger process; DateUnixNano lets the
// logger reorder within its 200ms window (spec §6).
type LogMsg struct {
	DateUnixNano int64  `protobuf:"varint,1,opt,name=date_unix_nano,json=dateUnixNano"`
	Src          string `protobuf:"bytes,2,opt,name=src"`
	Msg          string `protobuf:"bytes,3,opt,name=msg"`
}

func (m *LogMsg) Reset()         { *m = LogMsg{} }
func (m *LogMsg) ProtoMessage()  {}
func (m *LogMsg) String() string { return fmt.Sprintf("log_msg{%s %s}", m.Src, m.Msg) }

// InformDeathAgent notifies a peer that name has gone silent.
type InformDeathAgent struct {
	Name string `protobuf:"bytes,1,opt,name=name"`
}

func (m *InformDeathAgent) Reset()        { *m = InformDeathAgent{} }
func (m *InformDeathAgent) ProtoMessage() {}
func (m *InformDeathAgent) String() string {
	return fmt.Sprintf("inform_death_agent{%s}", m.Name)
}

// Terminate is a unilateral channel close with a reason.
type Terminate struct {
	Msg string `protobuf:"bytes,1,opt,name=msg"`
}

func (m *Terminate) Reset()         { *m = Terminate{} }
func (m *Terminate) ProtoMessage()  {}
func (m *Terminate) String() string { return fmt.Sprintf("terminate{%s}", m.Msg) }
