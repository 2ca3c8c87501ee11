/*
Copyright 2026 The Vitess Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package vterrors provides errors that carry a canonical error code and an
// optional state, and helpers to wrap and inspect them.
//
// Codes are the canonical gRPC codes. Every error produced by the compiler or
// the runtime should carry one, so that callers can tell a planner bug
// (Internal) from a data problem (InvalidArgument), a storage problem
// (Unavailable) or a cancelled query (Canceled) without parsing messages.
//
// Wrapping keeps the code of the innermost coded error, and errors.Is / errors.As
// see through every wrapper created here.
package vterrors

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
)

type vtError struct {
	code  codes.Code
	state State
	msg   string
	cause error
}

func (e *vtError) Error() string {
	if e.cause == nil {
		return e.msg
	}
	if e.msg == "" {
		return e.cause.Error()
	}
	return e.msg + ": " + e.cause.Error()
}

func (e *vtError) Unwrap() error {
	return e.cause
}

// ErrorCode returns the code of the error.
func (e *vtError) ErrorCode() codes.Code {
	return e.code
}

// ErrorState returns the state of the error.
func (e *vtError) ErrorState() State {
	return e.state
}

// New returns an error with the supplied message and code.
func New(code codes.Code, message string) error {
	return &vtError{code: code, msg: message}
}

// Errorf formats according to a format specifier and returns the string
// as a value that satisfies error, with the given code.
func Errorf(code codes.Code, format string, args ...any) error {
	return &vtError{code: code, msg: fmt.Sprintf(format, args...)}
}

// NewErrorf formats according to a format specifier and returns an error
// carrying both the code and the state.
func NewErrorf(code codes.Code, state State, format string, args ...any) error {
	return &vtError{code: code, state: state, msg: fmt.Sprintf(format, args...)}
}

// Wrap returns an error annotating err with the supplied message.
// If err is nil, Wrap returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &vtError{code: Code(err), state: ErrState(err), msg: message, cause: err}
}

// Wrapf returns an error annotating err with the format specifier.
// If err is nil, Wrapf returns nil.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// Code returns the error code if it's a vtError.
// If err is nil, it returns codes.OK. Context errors map onto their
// canonical codes, anything else is codes.Unknown.
func Code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	var withCode ErrorWithCode
	if errors.As(err, &withCode) {
		return withCode.ErrorCode()
	}
	switch {
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	}
	return codes.Unknown
}

// ErrState returns the error state if it's a vtError, Undefined otherwise.
func ErrState(err error) State {
	var withState ErrorWithState
	if errors.As(err, &withState) {
		return withState.ErrorState()
	}
	return Undefined
}

// VT13001 marks an internal error: the compiler or runtime reached a state
// that a correct optimizer never produces.
func VT13001(args ...any) error {
	msg := "[BUG] unexpected internal state"
	if len(args) > 0 {
		msg = "[BUG] " + fmt.Sprint(args...)
	}
	return &vtError{code: codes.Internal, state: InvariantViolated, msg: "VT13001: " + msg}
}

// EvaluationError wraps a predicate, projection or extraction failure.
// Such failures are deterministic for a given row and are never retried.
func EvaluationError(err error) error {
	if err == nil {
		return nil
	}
	if ErrState(err) == EvaluationFailed {
		return err
	}
	return &vtError{code: codes.InvalidArgument, state: EvaluationFailed, msg: "query evaluation failed", cause: err}
}

// LookupError wraps a failed key-value store access.
func LookupError(err error, mapName string) error {
	if err == nil {
		return nil
	}
	if ErrState(err) == LookupFailed {
		return err
	}
	return &vtError{code: codes.Unavailable, state: LookupFailed, msg: fmt.Sprintf("lookup in map %q failed", mapName), cause: err}
}

// Canceled returns the error reported when a query is interrupted through its context.
func Canceled(ctx context.Context) error {
	cause := context.Cause(ctx)
	if cause == nil {
		cause = context.Canceled
	}
	return &vtError{code: codes.Canceled, state: QueryInterrupted, msg: "query interrupted", cause: cause}
}
