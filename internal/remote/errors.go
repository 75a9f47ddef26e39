// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package remote

import (
	"errors"
	"fmt"
)

// ErrUnavailable is wrapped by every connectivity failure.
var ErrUnavailable = errors.New("remote store unavailable")

// ErrSchemaMismatch matches any *SchemaError.
var ErrSchemaMismatch = errors.New("remote schema mismatch")

// SchemaError reports a column the deployment does not know.
type SchemaError struct {
	Column string
	Err    error
}

func (e *SchemaError) Error() string {
	switch {
	case e.Column != "":
		return fmt.Sprintf("unknown column %q", e.Column)
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", ErrSchemaMismatch, e.Err)
	}
	return ErrSchemaMismatch.Error()
}

// Is makes errors.Is(err, ErrSchemaMismatch) succeed.
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchemaMismatch
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// RejectedError is a genuine refusal by the remote store, such as a
// constraint violation. Retrying the same write will not help.
type RejectedError struct {
	Code    string
	Message string
}

func (e *RejectedError) Error() string {
	if e.Code == "" {
		return "rejected: " + e.Message
	}
	return fmt.Sprintf("rejected (%s): %s", e.Code, e.Message)
}

// IsUnavailable reports whether err is a connectivity failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsRejected reports whether err is a *RejectedError.
func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}
