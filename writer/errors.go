// Copyright 2022 MatrixOrigin.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package writer

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/matrixorigin/cubewriter/row"
)

var (
	// ErrWriterClosed the writer is closed, no change can be added
	ErrWriterClosed = errors.New("writer closed")
	// ErrWriterAlreadyClosed Close is called on a closed writer
	ErrWriterAlreadyClosed = errors.New("writer already closed")
	// ErrInvalidChange the change is rejected by the validation
	ErrInvalidChange = errors.New("invalid row change")
	// ErrRowsFailed some rows of a BatchFuture failed
	ErrRowsFailed = errors.New("rows failed")

	errRetryRows = errors.New("rows to retry")
)

// ValidationError is returned when a change is rejected at admission. A rejected
// change never gets a callback.
type ValidationError struct {
	Reason string
	Change *row.Change
}

func newValidationError(change *row.Change, format string, args ...interface{}) *ValidationError {
	return &ValidationError{
		Reason: errors.Newf(format, args...).Error(),
		Change: change,
	}
}

func (e *ValidationError) Error() string {
	return ErrInvalidChange.Error() + ": " + e.Reason
}

// Unwrap returns ErrInvalidChange
func (e *ValidationError) Unwrap() error {
	return ErrInvalidChange
}

// RejectedError lists the changes rejected by AddRowChanges, the other changes
// of the call are admitted.
type RejectedError struct {
	Rejected []*ValidationError
}

func (e *RejectedError) Error() string {
	var buf strings.Builder
	buf.WriteString("rejected changes: ")
	for idx, err := range e.Rejected {
		if idx > 0 {
			buf.WriteString("; ")
		}
		buf.WriteString(err.Reason)
	}
	return buf.String()
}

// Unwrap returns ErrInvalidChange
func (e *RejectedError) Unwrap() error {
	return ErrInvalidChange
}
