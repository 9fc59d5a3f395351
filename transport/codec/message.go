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

package codec

import (
	"github.com/matrixorigin/cubewriter/row"
	"github.com/matrixorigin/cubewriter/schema"
	"github.com/matrixorigin/cubewriter/transport"
)

// MessageType type of rpc message
type MessageType byte

const (
	// TypeBatchWriteRow batch write rows
	TypeBatchWriteRow MessageType = iota + 1
	// TypeDescribeTable describe table
	TypeDescribeTable
	// TypeGetRow get row
	TypeGetRow
)

func (t MessageType) String() string {
	switch t {
	case TypeBatchWriteRow:
		return "batch-write-row"
	case TypeDescribeTable:
		return "describe-table"
	case TypeGetRow:
		return "get-row"
	}
	return "unknown"
}

// Request is the rpc request envelope
type Request struct {
	ID            uint64                          `json:"id"`
	Type          MessageType                     `json:"type"`
	Table         string                          `json:"table,omitempty"`
	PrimaryKey    *row.PrimaryKey                 `json:"primary-key,omitempty"`
	BatchWriteRow *transport.BatchWriteRowRequest `json:"batch-write-row,omitempty"`
}

// Response is the rpc response envelope. Code and Error are set if the whole
// request failed.
type Response struct {
	ID            uint64                           `json:"id"`
	Type          MessageType                      `json:"type"`
	Code          transport.ErrorCode              `json:"code,omitempty"`
	Error         string                           `json:"error,omitempty"`
	Table         *schema.TableMeta                `json:"table,omitempty"`
	Row           *transport.GetRowResponse        `json:"row,omitempty"`
	BatchWriteRow *transport.BatchWriteRowResponse `json:"batch-write-row,omitempty"`
}

// Err returns the error of the whole request
func (r *Response) Err() error {
	if r.Code == transport.OK && r.Error == "" {
		return nil
	}
	code := r.Code
	if code == transport.OK {
		code = transport.InternalServerError
	}
	return &transport.RowError{Code: code, Message: r.Error}
}
