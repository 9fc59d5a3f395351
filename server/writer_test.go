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

package server

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/matrixorigin/cubewriter/config"
	"github.com/matrixorigin/cubewriter/row"
	"github.com/matrixorigin/cubewriter/transport"
	"github.com/matrixorigin/cubewriter/transport/tcp"
	"github.com/matrixorigin/cubewriter/util/typeutil"
	"github.com/matrixorigin/cubewriter/writer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userKey(id int64) row.PrimaryKey {
	return row.NewPrimaryKey(row.PrimaryKeyColumn{Name: "id", Value: row.IntegerValue(id)})
}

func TestWriteThroughServer(t *testing.T) {
	addr, stop := runTestServer(t)
	defer stop()

	c, err := tcp.NewClient(addr)
	require.NoError(t, err)

	w, err := writer.New(config.WriterConfig{
		Table:             "users",
		BucketCount:       2,
		MaxBatchRowsCount: 8,
		MaxRetries:        2,
		RetryBackoff:      typeutil.Duration{Duration: time.Millisecond},
	}, c, c, writer.WithTransportOwnership())
	require.NoError(t, err)

	ctx := context.Background()
	var changes []*row.Change
	for i := int64(0); i < 20; i++ {
		changes = append(changes, row.NewPutChange("users", userKey(i)).
			AddColumn("age", row.IntegerValue(i)))
	}
	changes = append(changes, row.NewUpdateChange("users", userKey(100)).
		AddColumn("age", row.IntegerValue(1)).
		SetCondition(row.Condition{RowExistence: row.ExpectExist}))

	bf, err := w.AddRowChanges(ctx, changes)
	require.NoError(t, err)
	require.NoError(t, w.Flush(ctx))

	outcomes, err := bf.Get(ctx)
	require.Error(t, err)
	require.Equal(t, 21, len(outcomes))
	for _, o := range outcomes[:20] {
		assert.True(t, o.Succeeded())
	}
	var re *transport.RowError
	require.True(t, errors.As(outcomes[20].Err, &re))
	assert.Equal(t, transport.ConditionCheckFail, re.Code)

	s := w.GetStatistics()
	assert.Equal(t, uint64(20), s.Succeeded)
	assert.Equal(t, uint64(1), s.Failed)
	assert.Equal(t, uint64(0), s.Pending())
	require.NoError(t, w.Close())

	check, err := tcp.NewClient(addr)
	require.NoError(t, err)
	defer check.Close()
	resp, err := check.GetRow(ctx, "users", userKey(7))
	require.NoError(t, err)
	require.True(t, resp.Exists)
	age, ok := resp.Column("age")
	require.True(t, ok)
	assert.Equal(t, row.IntegerValue(7), age.Value)

	resp, err = check.GetRow(ctx, "users", userKey(100))
	require.NoError(t, err)
	assert.False(t, resp.Exists)
}
