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

// Package errkind is the error taxonomy shared by every execution layer
// (transport, primitives, sequences, recipes): distinct kinds, not codes
// (spec §7). Every sentinel is a traceable pingcap/errors value so a
// boundary can wrap it with errors.Trace and a caller can still recover
// the kind with errors.Cause / Is.
package errkind

import (
	"github.com/pingcap/errors"
)

// Sentinel kinds. Compare with errkind.Is, never with ==, since a
// boundary may have wrapped the sentinel with errors.Trace.
var (
	// Interrupted marks cooperative cancellation of a primitive or
	// sequence.
	Interrupted = errors.New("interrupted")
	// ExecutionFailed marks a primitive that could not even start
	// (e.g. the underlying transport is down).
	ExecutionFailed = errors.New("execution_failed")
	// ExecutionKo marks a primitive that ran to completion but produced
	// a domain failure (e.g. constraint unsatisfiable).
	ExecutionKo = errors.New("execution_ko")
	// TemporaryFailure marks a transient failure that pauses the
	// pipeline rather than tearing it down.
	TemporaryFailure = errors.New("temporary_failure")
	// RunAgain is the resume signal paired with TemporaryFailure.
	RunAgain = errors.New("run_again")
	// InvalidArgument marks a type mismatch or an empty value where one
	// was required.
	InvalidArgument = errors.New("invalid_argument")
	// TransportError marks a connect, read, write or timeout failure on
	// the wire.
	TransportError = errors.New("transport_error")
	// NotFound marks a name resolution miss.
	NotFound = errors.New("not_found")
)

// Is reports whether err, or any error it wraps via errors.Trace /
// errors.Annotate, is the given sentinel kind.
func Is(err, kind error) bool {
	if err == nil || kind == nil {
		return err == kind
	}
	return errors.Cause(err) == kind || err.Error() == kind.Error()
}

// RuntimeFailure is what a recipe runner hands back to its caller when a
// computation sequence terminates in error: it identifies the offending
// primitive's original logic expression (spec §7), not just the Go error.
type RuntimeFailure struct {
	Recipe     string
	Expression string // source-level text of the failing primitive's expression
	Err        error
}

func (f *RuntimeFailure) Error() string {
	if f.Expression == "" {
		return f.Recipe + ": " + f.Err.Error()
	}
	return f.Recipe + ": " + f.Expression + ": " + f.Err.Error()
}

func (f *RuntimeFailure) Unwrap() error { return f.Err }

// Cause lets errors.Cause, and so Is, see the wrapped kind.
func (f *RuntimeFailure) Cause() error { return f.Err }

// Trace wraps err with a stack frame if it isn't already nil, using
// pingcap/errors so intermediate boundaries keep provenance without
// flattening the original sentinel.
func Trace(err error) error {
	if err == nil {
		return nil
	}
	return errors.Trace(err)
}
