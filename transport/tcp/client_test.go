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

package tcp

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/matrixorigin/cubewriter/config"
	"github.com/matrixorigin/cubewriter/row"
	"github.com/matrixorigin/cubewriter/schema"
	"github.com/matrixorigin/cubewriter/server"
	"github.com/matrixorigin/cubewriter/transport"
	"github.com/matrixorigin/cubewriter/util/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pendingHandler never completes batch writes
type pendingHandler struct {
}

func (h pendingHandler) BatchWriteRow(ctx context.Context, req *transport.BatchWriteRowRequest) *transport.Future {
	return transport.NewFuture()
}

func (h pendingHandler) DescribeTable(ctx context.Context, table string) (schema.TableMeta, error) {
	return schema.TableMeta{
		Name:       table,
		PrimaryKey: []schema.PrimaryKeySchema{{Name: "id", Type: row.TypeString}},
	}, nil
}

func (h pendingHandler) GetRow(ctx context.Context, table string, pk row.PrimaryKey) (transport.GetRowResponse, error) {
	return transport.GetRowResponse{}, transport.NewRowError(transport.ServerBusy, "busy")
}

func startPendingServer(t *testing.T) (string, *server.Server) {
	addr := fmt.Sprintf("127.0.0.1:%d", testutil.GenTestPorts(1)[0])
	s, err := server.NewServer(config.ServerConfig{Addr: addr, SendBatch: 16}, pendingHandler{}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	return addr, s
}

func testRequest() *transport.BatchWriteRowRequest {
	pk := row.NewPrimaryKey(row.PrimaryKeyColumn{Name: "id", Value: row.StringValue("a")})
	return &transport.BatchWriteRowRequest{
		ID:    1,
		Table: "t",
		Rows:  []*row.Change{row.NewPutChange("t", pk)},
	}
}

func TestConnectFailed(t *testing.T) {
	addr := fmt.Sprintf("127.0.0.1:%d", testutil.GenTestPorts(1)[0])
	_, err := NewClient(addr, WithConnectTimeout(time.Millisecond*200))
	assert.Error(t, err)
}

func TestRPCTimeout(t *testing.T) {
	addr, s := startPendingServer(t)
	defer s.Stop()

	c, err := NewClient(addr, WithRPCTimeout(time.Millisecond*100))
	require.NoError(t, err)
	defer c.Close()

	_, err = c.BatchWriteRow(context.Background(), testRequest()).Get(context.Background())
	assert.True(t, errors.Is(err, transport.ErrTimeout))
	assert.True(t, transport.IsRetryable(err))

	meta, err := c.DescribeTable(context.Background(), "t")
	require.NoError(t, err)
	assert.Equal(t, "t", meta.Name)
}

func TestContextDeadline(t *testing.T) {
	addr, s := startPendingServer(t)
	defer s.Stop()

	c, err := NewClient(addr)
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*50)
	defer cancel()
	_, err = c.BatchWriteRow(ctx, testRequest()).Get(context.Background())
	assert.True(t, errors.Is(err, transport.ErrTimeout))
}

func TestRowErrorOfWholeRequest(t *testing.T) {
	addr, s := startPendingServer(t)
	defer s.Stop()

	c, err := NewClient(addr)
	require.NoError(t, err)
	defer c.Close()

	pk := row.NewPrimaryKey(row.PrimaryKeyColumn{Name: "id", Value: row.StringValue("a")})
	_, err = c.GetRow(context.Background(), "t", pk)
	var re *transport.RowError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, transport.ServerBusy, re.Code)
	assert.True(t, transport.IsRetryable(err))
}

func TestCloseFailsPendingRequests(t *testing.T) {
	addr, s := startPendingServer(t)
	defer s.Stop()

	c, err := NewClient(addr)
	require.NoError(t, err)

	f := c.BatchWriteRow(context.Background(), testRequest())
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err = f.Get(context.Background())
	assert.True(t, errors.Is(err, transport.ErrClosed))

	_, err = c.BatchWriteRow(context.Background(), testRequest()).Get(context.Background())
	assert.True(t, errors.Is(err, transport.ErrClosed))
}
