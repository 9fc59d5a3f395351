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

package transport

import (
	"context"
	"fmt"
	"net"

	"github.com/cockroachdb/errors"
)

// ErrorCode is the error code returned by the table store
type ErrorCode string

const (
	// OK no error
	OK ErrorCode = ""

	// ServerBusy the server is overloaded
	ServerBusy ErrorCode = "OTSServerBusy"
	// NotEnoughCapacityUnit the write capacity of the table is exhausted
	NotEnoughCapacityUnit ErrorCode = "OTSNotEnoughCapacityUnit"
	// TableNotReady the table is just created and not ready
	TableNotReady ErrorCode = "OTSTableNotReady"
	// PartitionUnavailable the partition of the row is unavailable
	PartitionUnavailable ErrorCode = "OTSPartitionUnavailable"
	// ServerUnavailable the server is unavailable
	ServerUnavailable ErrorCode = "OTSServerUnavailable"
	// RowOperationConflict the row is written concurrently
	RowOperationConflict ErrorCode = "OTSRowOperationConflict"
	// Timeout the operation timed out on the server side
	Timeout ErrorCode = "OTSTimeout"
	// InternalServerError unexpected server error
	InternalServerError ErrorCode = "OTSInternalServerError"
	// QuotaExhausted the quota of the instance is exhausted
	QuotaExhausted ErrorCode = "OTSQuotaExhausted"

	// ConditionCheckFail the condition of the change is not satisfied
	ConditionCheckFail ErrorCode = "OTSConditionCheckFail"
	// ParameterInvalid the request is illegal
	ParameterInvalid ErrorCode = "OTSParameterInvalid"
	// ObjectNotExist the table does not exist
	ObjectNotExist ErrorCode = "OTSObjectNotExist"
	// DataTypeMismatch the value type does not match the schema
	DataTypeMismatch ErrorCode = "OTSDataTypeMismatch"
	// RequestTooLarge the request exceeds the server limits
	RequestTooLarge ErrorCode = "OTSRequestTooLarge"
)

var retryableCodes = map[ErrorCode]struct{}{
	ServerBusy:            {},
	NotEnoughCapacityUnit: {},
	TableNotReady:         {},
	PartitionUnavailable:  {},
	ServerUnavailable:     {},
	RowOperationConflict:  {},
	Timeout:               {},
	InternalServerError:   {},
	QuotaExhausted:        {},
}

// Retryable returns true if a request failed with the code may succeed later
func (c ErrorCode) Retryable() bool {
	_, ok := retryableCodes[c]
	return ok
}

var (
	// ErrClosed the transport is closed
	ErrClosed = errors.New("transport is closed")
	// ErrConnectionClosed the connection is closed before the response received
	ErrConnectionClosed = errors.New("connection closed")
	// ErrTimeout the response is not received in time
	ErrTimeout = errors.New("rpc timeout")
)

// RowError is the error of a row or a request returned by the table store
type RowError struct {
	Code    ErrorCode
	Message string
}

// NewRowError returns a row error
func NewRowError(code ErrorCode, format string, args ...interface{}) *RowError {
	return &RowError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *RowError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Message
}

// Result returns the row result of the error
func (e *RowError) Result() RowResult {
	return RowResult{Code: e.Code, Message: e.Message}
}

// IsRetryable returns true if the failed row or request can be sent again.
// Network level errors are retryable, table store errors depend on the code.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var re *RowError
	if errors.As(err, &re) {
		return re.Code.Retryable()
	}

	if errors.Is(err, ErrConnectionClosed) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var ne net.Error
	return errors.As(err, &ne)
}
