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
	"bufio"
	"encoding/binary"
	"io"

	"github.com/golang/protobuf/proto"
	"github.com/pingcap/errors"
)

// Message is the proto.Message alias every wire type implements; named
// here so callers outside wire don't need to import golang/protobuf
// just to spell the type of a frame payload.
type Message = proto.Message

// header layout: 4-byte big-endian body length, 8-byte request id,
// 1-byte FrameType, followed by the proto.Marshal'd payload.
const headerSize = 4 + 8 + 1

// maxFrameSize guards against a corrupt or hostile length prefix driving
// an unbounded allocation.
const maxFrameSize = 16 << 20

// Frame is one point-to-point message: the in-flight id it answers or
// establishes, its kind, and the decoded payload (spec §6 "Wire
// messages").
type Frame struct {
	ID      RequestID
	Type    FrameType
	Payload proto.Message
}

// newPayload returns a zero value of the message type matching t, or
// nil for an unrecognized tag.
func newPayload(t FrameType) proto.Message {
	switch t {
	case FrameRequestName:
		return &RequestName{}
	case FrameRequestNameAnswer:
		return &RequestNameAnswer{}
	case FrameRegisterName:
		return &RegisterName{}
	case FrameRegisterNameAnswer:
		return &RegisterNameAnswer{}
	case FrameRequestVariableValue:
		return &RequestVariableValue{}
	case FrameVariableValue:
		return &VariableValue{}
	case FrameRequestConstraint:
		return &RequestConstraint{}
	case FrameRequestConstraintAck:
		return &RequestConstraintAck{}
	case FrameRequestConstraintAnswer:
		return &RequestConstraintAnswer{}
	case FrameAbort:
		return &Abort{}
	case FramePing:
		return &Ping{}
	case FrameLogMsg:
		return &LogMsg{}
	case FrameInformDeathAgent:
		return &InformDeathAgent{}
	case FrameTerminate:
		return &Terminate{}
	default:
		return nil
	}
}

// typeOf maps a concrete payload back to its wire tag; used by Encode
// so callers never pass the tag and payload out of sync.
func typeOf(payload proto.Message) (FrameType, error) {
	switch payload.(type) {
	case *RequestName:
		return FrameRequestName, nil
	case *RequestNameAnswer:
		return FrameRequestNameAnswer, nil
	case *RegisterName:
		return FrameRegisterName, nil
	case *RegisterNameAnswer:
		return FrameRegisterNameAnswer, nil
	case *RequestVariableValue:
		return FrameRequestVariableValue, nil
	case *VariableValue:
		return FrameVariableValue, nil
	case *RequestConstraint:
		return FrameRequestConstraint, nil
	case *RequestConstraintAck:
		return FrameRequestConstraintAck, nil
	case *RequestConstraintAnswer:
		return FrameRequestConstraintAnswer, nil
	case *Abort:
		return FrameAbort, nil
	case *Ping:
		return FramePing, nil
	case *LogMsg:
		return FrameLogMsg, nil
	case *InformDeathAgent:
		return FrameInformDeathAgent, nil
	case *Terminate:
		return FrameTerminate, nil
	default:
		return 0, errors.Errorf("wire: unregistered payload type %T", payload)
	}
}

// NewFrame builds a Frame from id and payload, inferring its FrameType.
func NewFrame(id RequestID, payload proto.Message) (*Frame, error) {
	t, err := typeOf(payload)
	if err != nil {
		return nil, err
	}
	return &Frame{ID: id, Type: t, Payload: payload}, nil
}

// Encode marshals f as one length-prefixed binary frame.
func Encode(f *Frame) ([]byte, error) {
	body, err := proto.Marshal(f.Payload)
	if err != nil {
		return nil, errors.Trace(err)
	}
	buf := make([]byte, 4+headerSize-4+len(body))
	binary.BigEndian.PutUint32(buf[0:4], uint32(headerSize-4+len(body)))
	binary.BigEndian.PutUint64(buf[4:12], uint64(f.ID))
	buf[12] = byte(f.Type)
	copy(buf[13:], body)
	return buf, nil
}

// Decoder reads a stream of length-prefixed Frames off r, buffering
// partial reads the way the teacher's connection read loop buffers
// partial packets.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder wraps r for framed reads.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next blocks until one full frame has been read, or returns the
// underlying read error (io.EOF on clean close).
func (d *Decoder) Next() (*Frame, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(d.r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n < headerSize-4 || n > maxFrameSize {
		return nil, errors.Errorf("wire: invalid frame length %d", n)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(d.r, body); err != nil {
		return nil, errors.Trace(err)
	}
	id := RequestID(binary.BigEndian.Uint64(body[0:8]))
	t := FrameType(body[8])
	payload := newPayload(t)
	if payload == nil {
		return nil, errors.Errorf("wire: unknown frame type %d", t)
	}
	if err := proto.Unmarshal(body[9:], payload); err != nil {
		return nil, errors.Trace(err)
	}
	return &Frame{ID: id, Type: t, Payload: payload}, nil
}

// WriteFrame encodes and writes f to w in one call; used where the
// caller already serializes writes (e.g. a single writer goroutine per
// connection).
func WriteFrame(w io.Writer, f *Frame) error {
	buf, err := Encode(f)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return errors.Trace(err)
}
