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
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang/mock/gomock"
	"github.com/matrixorigin/cubewriter/config"
	"github.com/matrixorigin/cubewriter/row"
	"github.com/matrixorigin/cubewriter/schema"
	"github.com/matrixorigin/cubewriter/transport"
	"github.com/matrixorigin/cubewriter/transport/mock"
	"github.com/matrixorigin/cubewriter/util/typeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testTable = schema.TableMeta{
	Name:       "orders",
	PrimaryKey: []schema.PrimaryKeySchema{{Name: "id", Type: row.TypeString}},
}

// fakeTransport records requests and answers them with handler, all rows
// succeed if handler is nil
type fakeTransport struct {
	sync.Mutex
	requests [][]*row.Change
	handler  func(req *transport.BatchWriteRowRequest) (*transport.BatchWriteRowResponse, error)
	closed   bool
}

func (t *fakeTransport) BatchWriteRow(ctx context.Context, req *transport.BatchWriteRowRequest) *transport.Future {
	t.Lock()
	t.requests = append(t.requests, append([]*row.Change(nil), req.Rows...))
	handler := t.handler
	t.Unlock()

	if handler == nil {
		return transport.NewCompletedFuture(okResponse(req), nil)
	}
	return transport.NewCompletedFuture(handler(req))
}

func (t *fakeTransport) DescribeTable(ctx context.Context, table string) (schema.TableMeta, error) {
	if table != testTable.Name {
		return schema.TableMeta{}, transport.NewRowError(transport.ObjectNotExist, "table %s", table)
	}
	return testTable, nil
}

func (t *fakeTransport) Close() error {
	t.Lock()
	defer t.Unlock()
	t.closed = true
	return nil
}

func (t *fakeTransport) isClosed() bool {
	t.Lock()
	defer t.Unlock()
	return t.closed
}

func (t *fakeTransport) getRequests() [][]*row.Change {
	t.Lock()
	defer t.Unlock()
	return append([][]*row.Change(nil), t.requests...)
}

func okResponse(req *transport.BatchWriteRowRequest) *transport.BatchWriteRowResponse {
	return &transport.BatchWriteRowResponse{
		ID:   req.ID,
		Rows: make([]transport.RowResult, len(req.Rows)),
	}
}

func newTestConfig() config.WriterConfig {
	return config.WriterConfig{
		Table:               testTable.Name,
		BucketCount:         1,
		CallbackThreadCount: 2,
		MaxRetries:          3,
		RetryBackoff:        typeutil.Duration{Duration: time.Millisecond},
		MaxRetryBackoff:     typeutil.Duration{Duration: time.Millisecond * 5},
	}
}

func newTestWriter(t *testing.T, cfg config.WriterConfig, trans *fakeTransport, opts ...Option) *Writer {
	w, err := New(cfg, trans, trans, opts...)
	require.NoError(t, err)
	return w
}

func testPK(id string) row.PrimaryKey {
	return row.NewPrimaryKey(row.PrimaryKeyColumn{Name: "id", Value: row.StringValue(id)})
}

func testChange(id string, seq int64) *row.Change {
	return row.NewPutChange(testTable.Name, testPK(id)).
		AddColumn("seq", row.IntegerValue(seq))
}

func seqOf(change *row.Change) int64 {
	return change.Operations[0].Column.Value.Int
}

func TestNewFailsWithoutSchema(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	provider := mock.NewMockProvider(ctrl)
	provider.EXPECT().DescribeTable(gomock.Any(), "orders").
		Return(schema.TableMeta{}, transport.ErrConnectionClosed)
	_, err := New(newTestConfig(), &fakeTransport{}, provider)
	assert.True(t, errors.Is(err, transport.ErrConnectionClosed))

	provider.EXPECT().DescribeTable(gomock.Any(), "orders").
		Return(schema.TableMeta{Name: "others", PrimaryKey: testTable.PrimaryKey}, nil)
	_, err = New(newTestConfig(), &fakeTransport{}, provider)
	assert.True(t, errors.Is(err, schema.ErrSchemaMismatch))

	provider.EXPECT().DescribeTable(gomock.Any(), "orders").
		Return(schema.TableMeta{Name: "orders"}, nil)
	_, err = New(newTestConfig(), &fakeTransport{}, provider)
	assert.True(t, errors.Is(err, schema.ErrInvalidSchema))

	cfg := newTestConfig()
	cfg.Table = ""
	_, err = New(cfg, &fakeTransport{}, provider)
	assert.Error(t, err)
}

func TestAddRowChangeAndFlush(t *testing.T) {
	trans := &fakeTransport{}
	w := newTestWriter(t, newTestConfig(), trans)
	defer w.Close()

	var mu sync.Mutex
	ids := make(map[string]int)
	w.SetCallback(func(change *row.Change, outcome Outcome) {
		mu.Lock()
		defer mu.Unlock()
		assert.True(t, outcome.Succeeded())
		ids[outcome.ID]++
	})

	for i := 0; i < 10; i++ {
		require.NoError(t, w.AddRowChange(context.Background(), testChange(fmt.Sprintf("k%d", i), int64(i))))
	}
	require.NoError(t, w.Flush(context.Background()))

	stats := w.GetStatistics()
	assert.Equal(t, uint64(10), stats.Submitted)
	assert.Equal(t, uint64(10), stats.Succeeded)
	assert.Equal(t, uint64(0), stats.Pending())
	assert.Equal(t, uint64(1), stats.RPCs)
	assert.Equal(t, int64(0), stats.InflightBatches)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 10, len(ids))
	for _, n := range ids {
		assert.Equal(t, 1, n)
	}
}

func TestSamePrimaryKeyInOneBucketInOrder(t *testing.T) {
	trans := &fakeTransport{}
	cfg := newTestConfig()
	cfg.BucketCount = 4
	w := newTestWriter(t, cfg, trans)
	defer w.Close()

	idx := w.bucketOf(testPK("pk1").Encode())
	for i := 0; i < 100; i++ {
		change := testChange("pk1", int64(i))
		assert.Equal(t, idx, w.bucketOf(change.PrimaryKey.Encode()))
		require.NoError(t, w.AddRowChange(context.Background(), change))
	}
	require.NoError(t, w.Flush(context.Background()))

	var seqs []int64
	for _, req := range trans.getRequests() {
		require.Equal(t, 1, len(req))
		seqs = append(seqs, seqOf(req[0]))
	}
	require.Equal(t, 100, len(seqs))
	for i, seq := range seqs {
		assert.Equal(t, int64(i), seq)
	}
}

func TestBatchRowsLimit(t *testing.T) {
	trans := &fakeTransport{}
	cfg := newTestConfig()
	cfg.MaxBatchRowsCount = 10
	w := newTestWriter(t, cfg, trans)
	defer w.Close()

	for i := 0; i < 25; i++ {
		require.NoError(t, w.AddRowChange(context.Background(), testChange(fmt.Sprintf("k%d", i), int64(i))))
	}
	require.NoError(t, w.Flush(context.Background()))

	var sizes []int
	for _, req := range trans.getRequests() {
		sizes = append(sizes, len(req))
	}
	assert.Equal(t, []int{10, 10, 5}, sizes)
}

func TestBatchSizeLimit(t *testing.T) {
	trans := &fakeTransport{}
	cfg := newTestConfig()
	change := testChange("k00", 0)
	cfg.MaxBatchSize = typeutil.ByteSize(change.DataSize() * 3)
	w := newTestWriter(t, cfg, trans)
	defer w.Close()

	for i := 0; i < 10; i++ {
		require.NoError(t, w.AddRowChange(context.Background(), testChange(fmt.Sprintf("k%02d", i), int64(i))))
	}
	require.NoError(t, w.Flush(context.Background()))

	rows := 0
	for _, req := range trans.getRequests() {
		size := int64(0)
		for _, change := range req {
			size += change.DataSize()
		}
		assert.True(t, size <= cfg.MaxBatchSize.Int64())
		rows += len(req)
	}
	assert.Equal(t, 10, rows)
	assert.Equal(t, 4, len(trans.getRequests()))
}

func TestNoDuplicatedRowInBatch(t *testing.T) {
	for _, allow := range []bool{false, true} {
		trans := &fakeTransport{}
		cfg := newTestConfig()
		cfg.AllowDuplicatedRowInBatchRequest = allow
		w := newTestWriter(t, cfg, trans)

		for i, id := range []string{"a", "b", "a", "c"} {
			require.NoError(t, w.AddRowChange(context.Background(), testChange(id, int64(i))))
		}
		require.NoError(t, w.Close())

		requests := trans.getRequests()
		if allow {
			require.Equal(t, 1, len(requests))
			assert.Equal(t, 4, len(requests[0]))
			continue
		}

		require.Equal(t, 2, len(requests))
		for _, req := range requests {
			keys := make(map[string]struct{})
			for _, change := range req {
				_, ok := keys[string(change.PrimaryKey.Encode())]
				assert.False(t, ok)
				keys[string(change.PrimaryKey.Encode())] = struct{}{}
			}
		}
		assert.Equal(t, int64(0), seqOf(requests[0][0]))
		assert.Equal(t, int64(2), seqOf(requests[1][0]))
	}
}

func TestValidationRejects(t *testing.T) {
	trans := &fakeTransport{}
	cfg := newTestConfig()
	cfg.MaxAttrColumnSize = 8
	cfg.MaxPKColumnSize = 8
	cfg.MaxColumnsCount = 2
	w := newTestWriter(t, cfg, trans)
	defer w.Close()

	called := uint64(0)
	w.SetCallback(func(change *row.Change, outcome Outcome) {
		atomic.AddUint64(&called, 1)
	})

	badPK := row.NewPrimaryKey(row.PrimaryKeyColumn{Name: "id", Value: row.IntegerValue(1)})
	cases := []*row.Change{
		nil,
		row.NewPutChange("orders", testPK("a")).AddColumn("v", row.StringValue("123456789")),
		row.NewPutChange("orders", testPK("123456789")),
		row.NewPutChange("orders", badPK),
		row.NewPutChange("orders", testPK("a")).AddColumn("id", row.StringValue("x")),
		row.NewPutChange("orders", testPK("a")).
			AddColumn("a", row.IntegerValue(1)).
			AddColumn("b", row.IntegerValue(1)).
			AddColumn("c", row.IntegerValue(1)),
		row.NewPutChange("orders", testPK("a")).DeleteColumns("a"),
		row.NewDeleteChange("orders", testPK("a")).AddColumn("a", row.IntegerValue(1)),
		row.NewUpdateChange("orders", testPK("a")),
		row.NewPutChange("others", testPK("a")),
	}
	for idx, change := range cases {
		err := w.AddRowChange(context.Background(), change)
		var verr *ValidationError
		require.True(t, errors.As(err, &verr), "case %d", idx)
		assert.True(t, errors.Is(err, ErrInvalidChange), "case %d", idx)
		assert.NotEmpty(t, verr.Reason)
	}
	require.NoError(t, w.AddRowChange(context.Background(),
		row.NewUpdateChange("orders", testPK("a")).DeleteColumn("v", 1)))
	require.NoError(t, w.Flush(context.Background()))

	stats := w.GetStatistics()
	assert.Equal(t, uint64(len(cases)), stats.Rejected)
	assert.Equal(t, uint64(1), stats.Submitted)
	assert.Equal(t, uint64(1), atomic.LoadUint64(&called))
}

func TestRetryRetryableRows(t *testing.T) {
	var mu sync.Mutex
	busy := 2
	trans := &fakeTransport{}
	trans.handler = func(req *transport.BatchWriteRowRequest) (*transport.BatchWriteRowResponse, error) {
		mu.Lock()
		defer mu.Unlock()
		resp := okResponse(req)
		for idx, change := range req.Rows {
			if seqOf(change) == 1 && busy > 0 {
				busy--
				resp.Rows[idx] = transport.RowResult{Code: transport.ServerBusy, Message: "busy"}
			}
		}
		return resp, nil
	}
	w := newTestWriter(t, newTestConfig(), trans)
	defer w.Close()

	f0, err := w.AddRowChangeWithFuture(context.Background(), testChange("a", 0))
	require.NoError(t, err)
	f1, err := w.AddRowChangeWithFuture(context.Background(), testChange("b", 1))
	require.NoError(t, err)
	require.NoError(t, w.Flush(context.Background()))

	outcome, err := f0.Get(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 0, outcome.Retries)
	outcome, err = f1.Get(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, outcome.Retries)
	assert.Equal(t, f1.ID(), outcome.ID)

	requests := trans.getRequests()
	require.Equal(t, 3, len(requests))
	assert.Equal(t, 2, len(requests[0]))
	assert.Equal(t, 1, len(requests[1]))
	assert.Equal(t, 1, len(requests[2]))

	stats := w.GetStatistics()
	assert.Equal(t, uint64(2), stats.Retried)
	assert.Equal(t, uint64(2), stats.Succeeded)
	assert.Equal(t, uint64(3), stats.RPCs)
}

func TestRetryBound(t *testing.T) {
	trans := &fakeTransport{}
	trans.handler = func(req *transport.BatchWriteRowRequest) (*transport.BatchWriteRowResponse, error) {
		resp := okResponse(req)
		for idx := range resp.Rows {
			resp.Rows[idx] = transport.RowResult{Code: transport.NotEnoughCapacityUnit}
		}
		return resp, nil
	}
	cfg := newTestConfig()
	cfg.MaxRetries = 2
	cfg.CollectDirtyRows = true
	w := newTestWriter(t, cfg, trans)
	defer w.Close()

	change := testChange("a", 0)
	f, err := w.AddRowChangeWithFuture(context.Background(), change)
	require.NoError(t, err)
	require.NoError(t, w.Flush(context.Background()))
	outcome, err := f.Get(context.Background())
	require.Error(t, err)
	assert.False(t, outcome.Succeeded())
	assert.Equal(t, 2, outcome.Retries)

	var re *transport.RowError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, transport.NotEnoughCapacityUnit, re.Code)
	assert.Equal(t, 3, len(trans.getRequests()))

	stats := w.GetStatistics()
	assert.Equal(t, uint64(1), stats.Failed)
	assert.Equal(t, 1, stats.DirtyRows)
	assert.Equal(t, []*row.Change{change}, w.DrainDirtyRows())
	assert.Empty(t, w.DrainDirtyRows())
}

func TestRetryDisabled(t *testing.T) {
	trans := &fakeTransport{}
	trans.handler = func(req *transport.BatchWriteRowRequest) (*transport.BatchWriteRowResponse, error) {
		return nil, transport.ErrTimeout
	}
	cfg := newTestConfig()
	cfg.MaxRetries = -1
	w := newTestWriter(t, cfg, trans)
	defer w.Close()

	f, err := w.AddRowChangeWithFuture(context.Background(), testChange("a", 0))
	require.NoError(t, err)
	require.NoError(t, w.Flush(context.Background()))
	_, err = f.Get(context.Background())
	assert.True(t, errors.Is(err, transport.ErrTimeout))
	assert.Equal(t, 1, len(trans.getRequests()))
	assert.Nil(t, w.DrainDirtyRows())
}

func TestNonRetryableRowFailsImmediately(t *testing.T) {
	trans := &fakeTransport{}
	trans.handler = func(req *transport.BatchWriteRowRequest) (*transport.BatchWriteRowResponse, error) {
		resp := okResponse(req)
		for idx, change := range req.Rows {
			if seqOf(change) == 1 {
				resp.Rows[idx] = transport.RowResult{Code: transport.ConditionCheckFail, Message: "row exists"}
			}
		}
		return resp, nil
	}
	w := newTestWriter(t, newTestConfig(), trans)
	defer w.Close()

	bf, err := w.AddRowChanges(context.Background(), []*row.Change{
		testChange("a", 0), testChange("b", 1), testChange("c", 2),
	})
	require.NoError(t, err)
	require.Equal(t, 3, bf.Len())
	require.NoError(t, w.Flush(context.Background()))

	outcomes, err := bf.Get(context.Background())
	assert.True(t, errors.Is(err, ErrRowsFailed))
	require.Equal(t, 3, len(outcomes))
	assert.True(t, outcomes[0].Succeeded())
	assert.False(t, outcomes[1].Succeeded())
	assert.Equal(t, 0, outcomes[1].Retries)
	assert.True(t, outcomes[2].Succeeded())
	assert.Equal(t, 1, len(trans.getRequests()))
}

func TestWholeBatchErrorRetried(t *testing.T) {
	calls := uint64(0)
	trans := &fakeTransport{}
	trans.handler = func(req *transport.BatchWriteRowRequest) (*transport.BatchWriteRowResponse, error) {
		if atomic.AddUint64(&calls, 1) == 1 {
			return nil, transport.ErrConnectionClosed
		}
		return okResponse(req), nil
	}
	w := newTestWriter(t, newTestConfig(), trans)
	defer w.Close()

	bf, err := w.AddRowChanges(context.Background(), []*row.Change{testChange("a", 0), testChange("b", 1)})
	require.NoError(t, err)
	require.NoError(t, w.Flush(context.Background()))
	_, err = bf.Get(context.Background())
	require.NoError(t, err)

	requests := trans.getRequests()
	require.Equal(t, 2, len(requests))
	assert.Equal(t, 2, len(requests[1]))

	stats := w.GetStatistics()
	assert.Equal(t, uint64(2), stats.RPCs)
	assert.Equal(t, uint64(1), stats.FailedRPCs)
	assert.Equal(t, uint64(2), stats.Retried)
}

func TestNonRetryableWholeBatchError(t *testing.T) {
	trans := &fakeTransport{}
	trans.handler = func(req *transport.BatchWriteRowRequest) (*transport.BatchWriteRowResponse, error) {
		return nil, errors.New("unsupported request")
	}
	w := newTestWriter(t, newTestConfig(), trans)
	defer w.Close()

	f, err := w.AddRowChangeWithFuture(context.Background(), testChange("a", 0))
	require.NoError(t, err)
	require.NoError(t, w.Flush(context.Background()))
	_, err = f.Get(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, len(trans.getRequests()))
}

func TestMismatchedResponseRetried(t *testing.T) {
	calls := uint64(0)
	trans := &fakeTransport{}
	trans.handler = func(req *transport.BatchWriteRowRequest) (*transport.BatchWriteRowResponse, error) {
		if atomic.AddUint64(&calls, 1) == 1 {
			return &transport.BatchWriteRowResponse{ID: req.ID}, nil
		}
		return okResponse(req), nil
	}
	w := newTestWriter(t, newTestConfig(), trans)
	defer w.Close()

	f, err := w.AddRowChangeWithFuture(context.Background(), testChange("a", 0))
	require.NoError(t, err)
	require.NoError(t, w.Flush(context.Background()))
	outcome, err := f.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Retries)
}

func TestEmptyResponseRetried(t *testing.T) {
	calls := uint64(0)
	trans := &fakeTransport{}
	trans.handler = func(req *transport.BatchWriteRowRequest) (*transport.BatchWriteRowResponse, error) {
		if atomic.AddUint64(&calls, 1) == 1 {
			return nil, nil
		}
		return okResponse(req), nil
	}
	w := newTestWriter(t, newTestConfig(), trans)
	defer w.Close()

	f, err := w.AddRowChangeWithFuture(context.Background(), testChange("a", 0))
	require.NoError(t, err)
	require.NoError(t, w.Flush(context.Background()))
	outcome, err := f.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Retries)
	assert.Equal(t, uint64(1), w.GetStatistics().FailedRPCs)
}

func TestBackpressure(t *testing.T) {
	release := make(chan struct{})
	trans := &fakeTransport{}
	trans.handler = func(req *transport.BatchWriteRowRequest) (*transport.BatchWriteRowResponse, error) {
		<-release
		return okResponse(req), nil
	}
	cfg := newTestConfig()
	cfg.BufferSize = 4
	cfg.BucketQueueSize = 1
	cfg.MaxBatchRowsCount = 1
	w := newTestWriter(t, cfg, trans)

	admitted := 0
	for i := 0; i < 100; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*50)
		err := w.AddRowChange(ctx, testChange(fmt.Sprintf("k%d", i), int64(i)))
		cancel()
		if err != nil {
			assert.True(t, errors.Is(err, context.DeadlineExceeded))
			break
		}
		admitted++
	}
	assert.True(t, admitted >= cfg.BufferSize)
	assert.True(t, admitted < 100)
	assert.Equal(t, uint64(admitted), w.GetStatistics().Submitted)

	close(release)
	require.NoError(t, w.Close())
	stats := w.GetStatistics()
	assert.Equal(t, uint64(admitted), stats.Succeeded)
	assert.Equal(t, uint64(0), stats.Pending())
}

func TestFlushWaitsForCallbacks(t *testing.T) {
	trans := &fakeTransport{}
	cfg := newTestConfig()
	cfg.BucketCount = 3
	cfg.MaxBatchRowsCount = 4
	w := newTestWriter(t, cfg, trans)
	defer w.Close()

	called := uint64(0)
	w.SetCallback(func(change *row.Change, outcome Outcome) {
		time.Sleep(time.Millisecond)
		atomic.AddUint64(&called, 1)
	})

	for i := 0; i < 50; i++ {
		require.NoError(t, w.AddRowChange(context.Background(), testChange(fmt.Sprintf("k%d", i), int64(i))))
	}
	require.NoError(t, w.Flush(context.Background()))
	assert.Equal(t, uint64(50), atomic.LoadUint64(&called))
	assert.Equal(t, uint64(0), w.GetStatistics().Pending())
}

func TestFlushInCallback(t *testing.T) {
	trans := &fakeTransport{}
	w := newTestWriter(t, newTestConfig(), trans)
	defer w.Close()

	var once sync.Once
	flushErr := make(chan error, 1)
	w.SetCallback(func(change *row.Change, outcome Outcome) {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*50)
			defer cancel()
			flushErr <- w.Flush(ctx)
		})
	})

	require.NoError(t, w.AddRowChange(context.Background(), testChange("a", 0)))
	require.NoError(t, w.Flush(context.Background()))
	assert.True(t, errors.Is(<-flushErr, context.DeadlineExceeded))

	require.NoError(t, w.AddRowChange(context.Background(), testChange("b", 1)))
	require.NoError(t, w.Flush(context.Background()))
	assert.Equal(t, uint64(2), w.GetStatistics().Succeeded)
}

func TestFlushInterval(t *testing.T) {
	trans := &fakeTransport{}
	cfg := newTestConfig()
	cfg.FlushInterval = typeutil.Duration{Duration: time.Millisecond * 20}
	w := newTestWriter(t, cfg, trans)
	defer w.Close()

	f, err := w.AddRowChangeWithFuture(context.Background(), testChange("a", 0))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	_, err = f.Get(ctx)
	assert.NoError(t, err)
}

func TestInflightLimit(t *testing.T) {
	for _, mode := range []config.WriteMode{config.Sequential, config.Parallel} {
		current := int64(0)
		max := int64(0)
		trans := &fakeTransport{}
		trans.handler = func(req *transport.BatchWriteRowRequest) (*transport.BatchWriteRowResponse, error) {
			n := atomic.AddInt64(&current, 1)
			for {
				old := atomic.LoadInt64(&max)
				if n <= old || atomic.CompareAndSwapInt64(&max, old, n) {
					break
				}
			}
			time.Sleep(time.Millisecond * 5)
			atomic.AddInt64(&current, -1)
			return okResponse(req), nil
		}

		cfg := newTestConfig()
		cfg.WriteMode = mode
		cfg.Concurrency = 4
		cfg.MaxBatchRowsCount = 1
		w := newTestWriter(t, cfg, trans)
		for i := 0; i < 40; i++ {
			require.NoError(t, w.AddRowChange(context.Background(), testChange(fmt.Sprintf("k%d", i), int64(i))))
		}
		require.NoError(t, w.Close())

		if mode == config.Sequential {
			assert.Equal(t, int64(1), atomic.LoadInt64(&max))
		} else {
			assert.True(t, atomic.LoadInt64(&max) <= 4)
		}
		assert.Equal(t, uint64(40), w.GetStatistics().Succeeded)
	}
}

func TestRoundRobin(t *testing.T) {
	trans := &fakeTransport{}
	cfg := newTestConfig()
	cfg.BucketCount = 2
	cfg.DispatchMode = config.RoundRobin
	w := newTestWriter(t, cfg, trans)

	for i := 0; i < 4; i++ {
		require.NoError(t, w.AddRowChange(context.Background(), testChange(fmt.Sprintf("k%d", i), int64(i))))
	}
	require.NoError(t, w.Close())

	requests := trans.getRequests()
	require.Equal(t, 2, len(requests))
	for _, req := range requests {
		assert.Equal(t, 2, len(req))
	}
}

func TestCallbackPanic(t *testing.T) {
	trans := &fakeTransport{}
	w := newTestWriter(t, newTestConfig(), trans, WithCallback(func(change *row.Change, outcome Outcome) {
		panic("callback panic")
	}))
	defer w.Close()

	require.NotNil(t, w.GetCallback())
	f, err := w.AddRowChangeWithFuture(context.Background(), testChange("a", 0))
	require.NoError(t, err)
	require.NoError(t, w.Flush(context.Background()))
	_, err = f.Get(context.Background())
	assert.NoError(t, err)
}

func TestAddRowChangesRejected(t *testing.T) {
	trans := &fakeTransport{}
	w := newTestWriter(t, newTestConfig(), trans)
	defer w.Close()

	bf, err := w.AddRowChanges(context.Background(), []*row.Change{
		testChange("a", 0),
		row.NewPutChange("others", testPK("b")),
		testChange("c", 2),
	})
	var rejected *RejectedError
	require.True(t, errors.As(err, &rejected))
	require.Equal(t, 1, len(rejected.Rejected))
	assert.Equal(t, "others", rejected.Rejected[0].Change.Table)
	assert.True(t, errors.Is(err, ErrInvalidChange))

	require.Equal(t, 2, bf.Len())
	require.NoError(t, w.Flush(context.Background()))
	outcomes, err := bf.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, len(outcomes))
}

func TestClose(t *testing.T) {
	trans := &fakeTransport{}
	w := newTestWriter(t, newTestConfig(), trans, WithTransportOwnership())

	var futures []*Future
	for i := 0; i < 20; i++ {
		f, err := w.AddRowChangeWithFuture(context.Background(), testChange(fmt.Sprintf("k%d", i), int64(i)))
		require.NoError(t, err)
		futures = append(futures, f)
	}
	require.NoError(t, w.Close())

	for _, f := range futures {
		select {
		case <-f.C():
		default:
			assert.Fail(t, "future not completed after close")
		}
	}
	assert.Equal(t, uint64(0), w.GetStatistics().Pending())
	assert.True(t, trans.isClosed())

	assert.True(t, errors.Is(w.AddRowChange(context.Background(), testChange("a", 0)), ErrWriterClosed))
	_, err := w.AddRowChanges(context.Background(), []*row.Change{testChange("a", 0)})
	assert.True(t, errors.Is(err, ErrWriterClosed))
	assert.True(t, errors.Is(w.Flush(context.Background()), ErrWriterClosed))
	assert.True(t, errors.Is(w.Close(), ErrWriterAlreadyClosed))
}

func TestCloseKeepsTransportWithoutOwnership(t *testing.T) {
	trans := &fakeTransport{}
	w := newTestWriter(t, newTestConfig(), trans)
	require.NoError(t, w.Close())
	assert.False(t, trans.isClosed())
}

func TestWriteWithMockTransport(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mock.NewMockClient(ctrl)
	client.EXPECT().DescribeTable(gomock.Any(), "orders").Return(testTable, nil)
	client.EXPECT().BatchWriteRow(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, req *transport.BatchWriteRowRequest) *transport.Future {
			assert.Equal(t, "orders", req.Table)
			return transport.NewCompletedFuture(okResponse(req), nil)
		})
	client.EXPECT().Close().Return(nil)

	w, err := New(newTestConfig(), client, client, WithTransportOwnership())
	require.NoError(t, err)
	require.NoError(t, w.AddRowChange(context.Background(), testChange("a", 0)))
	require.NoError(t, w.Close())
	assert.Equal(t, uint64(1), w.GetStatistics().Succeeded)
}
