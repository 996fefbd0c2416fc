// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package tokens

import "errors"

// Kind categorizes failures returned by the token service.
type Kind int

const (
	Internal Kind = iota
	InvalidArgument
	AlreadyExists
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid_argument"
	case AlreadyExists:
		return "already_exists"
	default:
		return "internal"
	}
}

// Error is the error type returned by Service and the validators. Message is
// safe to show to callers; Err holds the underlying cause, if any.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newInvalidArgument(msg string) *Error {
	return &Error{Kind: InvalidArgument, Message: msg}
}

// InvalidArgumentError builds an InvalidArgument error for input rejected
// before it reaches the validators, such as a malformed request body.
func InvalidArgumentError(msg string) error {
	return newInvalidArgument(msg)
}

// KindOf reports the Kind of err. Errors that are not *Error are Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// MessageOf returns the caller-facing message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
