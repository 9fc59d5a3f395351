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

	"github.com/matrixorigin/cubewriter/row"
	"github.com/matrixorigin/cubewriter/schema"
)

//go:generate mockgen -source=transport.go -destination=mock/mock_transport.go -package=mock

// Transport sends row changes to the table store
type Transport interface {
	// BatchWriteRow sends the rows as one request. The returned future is completed
	// with one RowResult per request row, in request order, or with an error if the
	// whole request failed.
	BatchWriteRow(ctx context.Context, req *BatchWriteRowRequest) *Future
}

// Client is a transport which can also describe tables and read rows back
type Client interface {
	Transport
	schema.Provider

	// GetRow returns the latest version of every column of the row
	GetRow(ctx context.Context, table string, pk row.PrimaryKey) (GetRowResponse, error)
	// Close close the client
	Close() error
}

// BatchWriteRowRequest is a batch of changes of one table
type BatchWriteRowRequest struct {
	ID    uint64        `json:"id"`
	Table string        `json:"table"`
	Rows  []*row.Change `json:"rows"`
}

// Size returns the data size of all rows
func (req *BatchWriteRowRequest) Size() int64 {
	size := int64(0)
	for _, r := range req.Rows {
		size += r.DataSize()
	}
	return size
}

// RowResult is the outcome of one row of a batch request
type RowResult struct {
	Code    ErrorCode `json:"code,omitempty"`
	Message string    `json:"message,omitempty"`
}

// OK returns true if the row is written
func (r RowResult) OK() bool {
	return r.Code == OK
}

// Err returns the row error, nil if the row is written
func (r RowResult) Err() error {
	if r.OK() {
		return nil
	}
	return &RowError{Code: r.Code, Message: r.Message}
}

// BatchWriteRowResponse is the response of BatchWriteRowRequest
type BatchWriteRowResponse struct {
	ID   uint64      `json:"id"`
	Rows []RowResult `json:"rows"`
}

// GetRowResponse is the response of a get row request
type GetRowResponse struct {
	Exists  bool         `json:"exists"`
	Columns []row.Column `json:"columns,omitempty"`
}

// Column returns the named column
func (r GetRowResponse) Column(name string) (row.Column, bool) {
	for _, c := range r.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return row.Column{}, false
}
