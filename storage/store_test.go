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

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/matrixorigin/cubewriter/components/log"
	"github.com/matrixorigin/cubewriter/config"
	"github.com/matrixorigin/cubewriter/row"
	"github.com/matrixorigin/cubewriter/schema"
	"github.com/matrixorigin/cubewriter/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testTable = schema.TableMeta{
		Name: "orders",
		PrimaryKey: []schema.PrimaryKeySchema{
			{Name: "uid", Type: row.TypeString},
			{Name: "seq", Type: row.TypeInteger},
		},
	}
	testNow = time.Unix(100, 0)
)

func newTestStore(t *testing.T, capacity int64) *Store {
	s, err := NewStore(config.StoreConfig{
		DataDir:       "store",
		UseMemory:     true,
		WriteCapacity: capacity,
		Tables:        []schema.TableMeta{testTable},
	}, WithLogger(log.GetDefaultZapLogger()), WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)
	return s
}

func testPK(uid string, seq int64) row.PrimaryKey {
	return row.NewPrimaryKey(
		row.PrimaryKeyColumn{Name: "uid", Value: row.StringValue(uid)},
		row.PrimaryKeyColumn{Name: "seq", Value: row.IntegerValue(seq)})
}

func write(t *testing.T, s *Store, changes ...*row.Change) *transport.BatchWriteRowResponse {
	resp, err := s.BatchWriteRow(context.Background(), &transport.BatchWriteRowRequest{
		ID:    1,
		Table: testTable.Name,
		Rows:  changes,
	}).Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, len(changes), len(resp.Rows))
	return resp
}

func TestTableLifecycle(t *testing.T) {
	s := newTestStore(t, 0)
	defer s.Close()

	assert.Equal(t, []string{"orders"}, s.ListTables())
	assert.True(t, errors.Is(s.CreateTable(testTable), ErrTableExists))
	assert.True(t, errors.Is(s.CreateTable(schema.TableMeta{Name: "bad"}), schema.ErrInvalidSchema))

	other := schema.TableMeta{
		Name:       "events",
		PrimaryKey: []schema.PrimaryKeySchema{{Name: "id", Type: row.TypeBinary}},
	}
	require.NoError(t, s.CreateTable(other))
	assert.Equal(t, []string{"events", "orders"}, s.ListTables())

	meta, err := s.DescribeTable(context.Background(), "events")
	require.NoError(t, err)
	assert.Equal(t, other, meta)

	require.NoError(t, s.DeleteTable("events"))
	_, err = s.DescribeTable(context.Background(), "events")
	var re *transport.RowError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, transport.ObjectNotExist, re.Code)
	assert.Error(t, s.DeleteTable("events"))
}

func TestPutAndGetRow(t *testing.T) {
	s := newTestStore(t, 0)
	defer s.Close()

	resp := write(t, s,
		row.NewPutChange("orders", testPK("u1", 1)).
			AddColumn("price", row.IntegerValue(10)).
			AddColumnWithTimestamp("note", row.StringValue("old"), 1).
			AddColumnWithTimestamp("note", row.StringValue("new"), 2))
	assert.True(t, resp.Rows[0].OK())

	r, err := s.GetRow(context.Background(), "orders", testPK("u1", 1))
	require.NoError(t, err)
	assert.True(t, r.Exists)
	require.Equal(t, 2, len(r.Columns))

	note, ok := r.Column("note")
	require.True(t, ok)
	assert.Equal(t, row.StringValue("new"), note.Value)
	assert.Equal(t, int64(2), *note.Timestamp)

	price, ok := r.Column("price")
	require.True(t, ok)
	assert.Equal(t, row.IntegerValue(10), price.Value)
	assert.Equal(t, testNow.UnixNano()/int64(time.Millisecond), *price.Timestamp)

	r, err = s.GetRow(context.Background(), "orders", testPK("u1", 2))
	require.NoError(t, err)
	assert.False(t, r.Exists)
	assert.Empty(t, r.Columns)

	stats := s.Stats()
	assert.Equal(t, uint64(1), stats.WrittenRows)
	assert.Equal(t, uint64(2), stats.ReadRows)
}

func TestPutReplacesRow(t *testing.T) {
	s := newTestStore(t, 0)
	defer s.Close()

	write(t, s, row.NewPutChange("orders", testPK("u1", 1)).
		AddColumn("a", row.IntegerValue(1)).
		AddColumn("b", row.IntegerValue(2)))
	write(t, s, row.NewPutChange("orders", testPK("u1", 1)).
		AddColumn("c", row.IntegerValue(3)))

	r, err := s.GetRow(context.Background(), "orders", testPK("u1", 1))
	require.NoError(t, err)
	require.Equal(t, 1, len(r.Columns))
	assert.Equal(t, "c", r.Columns[0].Name)
}

func TestUpdateAndDeleteRow(t *testing.T) {
	s := newTestStore(t, 0)
	defer s.Close()

	write(t, s, row.NewPutChange("orders", testPK("u1", 1)).
		AddColumnWithTimestamp("a", row.IntegerValue(1), 1).
		AddColumnWithTimestamp("a", row.IntegerValue(2), 2).
		AddColumn("b", row.IntegerValue(3)))

	resp := write(t, s, row.NewUpdateChange("orders", testPK("u1", 1)).
		DeleteColumn("a", 2).
		DeleteColumns("b").
		AddColumn("c", row.BooleanValue(true)))
	assert.True(t, resp.Rows[0].OK())

	r, err := s.GetRow(context.Background(), "orders", testPK("u1", 1))
	require.NoError(t, err)
	require.Equal(t, 2, len(r.Columns))
	a, ok := r.Column("a")
	require.True(t, ok)
	assert.Equal(t, row.IntegerValue(1), a.Value)
	_, ok = r.Column("b")
	assert.False(t, ok)

	write(t, s, row.NewDeleteChange("orders", testPK("u1", 1)))
	r, err = s.GetRow(context.Background(), "orders", testPK("u1", 1))
	require.NoError(t, err)
	assert.False(t, r.Exists)
	assert.Empty(t, r.Columns)
}

func TestConditionFailureOnlyAffectsTheRow(t *testing.T) {
	s := newTestStore(t, 0)
	defer s.Close()

	write(t, s, row.NewPutChange("orders", testPK("u1", 1)).
		AddColumn("price", row.IntegerValue(10)))

	resp := write(t, s,
		row.NewPutChange("orders", testPK("u1", 1)).
			SetCondition(row.Condition{RowExistence: row.ExpectNotExist}),
		row.NewUpdateChange("orders", testPK("u1", 1)).
			AddColumn("price", row.IntegerValue(20)).
			SetCondition(row.Condition{Column: &row.ColumnCondition{
				Column:     "price",
				Comparator: row.GreaterThan,
				Value:      row.IntegerValue(100),
			}}),
		row.NewUpdateChange("orders", testPK("u2", 1)).
			SetCondition(row.Condition{RowExistence: row.ExpectExist}),
		row.NewUpdateChange("orders", testPK("u1", 1)).
			AddColumn("price", row.IntegerValue(30)).
			SetCondition(row.Condition{
				RowExistence: row.ExpectExist,
				Column: &row.ColumnCondition{
					Column:     "price",
					Comparator: row.Equal,
					Value:      row.IntegerValue(10),
				},
			}))

	assert.Equal(t, transport.ConditionCheckFail, resp.Rows[0].Code)
	assert.Equal(t, transport.ConditionCheckFail, resp.Rows[1].Code)
	assert.Equal(t, transport.ConditionCheckFail, resp.Rows[2].Code)
	assert.True(t, resp.Rows[3].OK())

	r, err := s.GetRow(context.Background(), "orders", testPK("u1", 1))
	require.NoError(t, err)
	price, ok := r.Column("price")
	require.True(t, ok)
	assert.Equal(t, row.IntegerValue(30), price.Value)

	r, err = s.GetRow(context.Background(), "orders", testPK("u2", 1))
	require.NoError(t, err)
	assert.False(t, r.Exists)
	assert.Equal(t, uint64(3), s.Stats().FailedRows)
}

func TestRowsInOneBatchSeeEarlierRows(t *testing.T) {
	s := newTestStore(t, 0)
	defer s.Close()

	resp := write(t, s,
		row.NewPutChange("orders", testPK("u1", 1)).
			SetCondition(row.Condition{RowExistence: row.ExpectNotExist}),
		row.NewPutChange("orders", testPK("u1", 1)).
			SetCondition(row.Condition{RowExistence: row.ExpectNotExist}))
	assert.True(t, resp.Rows[0].OK())
	assert.Equal(t, transport.ConditionCheckFail, resp.Rows[1].Code)
}

func TestInvalidRows(t *testing.T) {
	s := newTestStore(t, 0)
	defer s.Close()

	badPK := row.NewPrimaryKey(row.PrimaryKeyColumn{Name: "uid", Value: row.StringValue("u1")})
	resp := write(t, s,
		row.NewPutChange("orders", badPK),
		row.NewPutChange("orders", testPK("u1", 1)).AddColumn("uid", row.StringValue("x")),
		row.NewPutChange("orders", testPK("u1", 1)).DeleteColumns("a"),
		row.NewPutChange("other", testPK("u1", 1)))
	for _, r := range resp.Rows {
		assert.Equal(t, transport.ParameterInvalid, r.Code)
		assert.NotEmpty(t, r.Message)
	}
}

func TestWriteUnknownTable(t *testing.T) {
	s := newTestStore(t, 0)
	defer s.Close()

	resp, err := s.BatchWriteRow(context.Background(), &transport.BatchWriteRowRequest{
		Table: "unknown",
		Rows:  []*row.Change{row.NewPutChange("unknown", testPK("u1", 1))},
	}).Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, transport.ObjectNotExist, resp.Rows[0].Code)
	assert.False(t, resp.Rows[0].Code.Retryable())
}

func TestWriteCapacity(t *testing.T) {
	s := newTestStore(t, 2)
	defer s.Close()

	resp := write(t, s,
		row.NewPutChange("orders", testPK("u1", 1)),
		row.NewPutChange("orders", testPK("u1", 2)),
		row.NewPutChange("orders", testPK("u1", 3)))
	assert.True(t, resp.Rows[0].OK())
	assert.True(t, resp.Rows[1].OK())
	assert.Equal(t, transport.NotEnoughCapacityUnit, resp.Rows[2].Code)
	assert.True(t, resp.Rows[2].Code.Retryable())
	assert.Equal(t, uint64(1), s.Stats().ThrottledRows)
}

func TestWriteAfterClose(t *testing.T) {
	s := newTestStore(t, 0)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.BatchWriteRow(context.Background(), &transport.BatchWriteRowRequest{
		Table: testTable.Name,
	}).Get(context.Background())
	assert.True(t, errors.Is(err, transport.ErrClosed))
}

func TestDecodeCellKey(t *testing.T) {
	prefix := rowKeyPrefix("orders", testPK("u1", 1))

	column, ts, ok, err := decodeCellKey(prefix, cellKey(prefix, "price", 42))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "price", column)
	assert.Equal(t, int64(42), ts)

	_, _, ok, err = decodeCellKey(prefix, rowMarkerKey(prefix))
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, _, err = decodeCellKey(prefix, prefix)
	assert.Error(t, err)
}

func TestReopenStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(config.StoreConfig{
		DataDir: dir,
		Tables:  []schema.TableMeta{testTable},
	})
	require.NoError(t, err)
	resp := write(t, s, row.NewPutChange("orders", testPK("u1", 1)).
		AddColumn("amount", row.DoubleValue(1.5)))
	require.True(t, resp.Rows[0].OK())
	require.NoError(t, s.Close())

	s, err = NewStore(config.StoreConfig{DataDir: dir})
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, []string{"orders"}, s.ListTables())
	meta, err := s.DescribeTable(context.Background(), "orders")
	require.NoError(t, err)
	assert.Equal(t, testTable, meta)

	r, err := s.GetRow(context.Background(), "orders", testPK("u1", 1))
	require.NoError(t, err)
	require.True(t, r.Exists)
	amount, ok := r.Column("amount")
	require.True(t, ok)
	assert.Equal(t, row.DoubleValue(1.5), amount.Value)
}
