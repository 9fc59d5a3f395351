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
	"sync/atomic"
	"time"

	"github.com/avast/retry-go"
	"github.com/cockroachdb/errors"
	"github.com/matrixorigin/cubewriter/components/log"
	"github.com/matrixorigin/cubewriter/metric"
	"github.com/matrixorigin/cubewriter/row"
	"github.com/matrixorigin/cubewriter/transport"
	"go.uber.org/zap"
)

// execute sends the batch until every row is resolved. Rows failed with a
// retryable error are sent again in a smaller request, a whole request failed
// with a retryable error is sent again as a whole.
func (w *Writer) execute(b *bucket, value *batch, e *epoch) {
	defer e.batches.Done()

	metric.ObserveBatch(w.meta.Name, len(value.mutations), value.size)
	value.callbacks.Add(len(value.mutations))

	pending := value.mutations
	attempt := 0
	err := retry.Do(func() error {
		attempt++
		if attempt > 1 {
			for _, m := range pending {
				m.retries++
			}
			atomic.AddUint64(&w.stats.retried, uint64(len(pending)))
			metric.AddRowsRetried(w.meta.Name, len(pending))
		}

		var err error
		pending, err = w.send(value, pending, attempt)
		return err
	},
		retry.Attempts(uint(w.cfg.RetryLimit()+1)),
		retry.Delay(w.cfg.RetryBackoff.Duration),
		retry.MaxDelay(w.cfg.MaxRetryBackoff.Duration),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, errRetryRows) || transport.IsRetryable(err)
		}))

	if len(pending) > 0 {
		w.logger.Error("rows failed",
			log.BatchIDField(value.id),
			log.BucketField(value.bucket),
			log.RowsField(len(pending)),
			log.AttemptField(attempt),
			zap.Error(err))
		for _, m := range pending {
			failure := m.lastErr
			if failure == nil {
				failure = err
			}
			w.resolve(value, m, failure)
		}
	}

	b.inflight.Release(1)
	atomic.AddInt64(&w.stats.inflightBatches, -1)
	metric.AddInflightBatches(w.meta.Name, -1)

	value.callbacks.Wait()
}

// send sends the pending rows once and resolves the rows that succeeded or failed
// with a non-retryable error. The rows to send again are returned.
func (w *Writer) send(value *batch, pending []*mutation, attempt int) ([]*mutation, error) {
	req := &transport.BatchWriteRowRequest{
		ID:    atomic.AddUint64(&w.requestID, 1),
		Table: w.meta.Name,
		Rows:  make([]*row.Change, 0, len(pending)),
	}
	for _, m := range pending {
		req.Rows = append(req.Rows, m.change)
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.RPCTimeout.Duration)
	defer cancel()

	start := time.Now()
	resp, err := w.transport.BatchWriteRow(ctx, req).Get(ctx)
	w.stats.latency.Observe(time.Since(start))
	metric.ObserveRPCDuration(w.meta.Name, start)
	atomic.AddUint64(&w.stats.rpcs, 1)

	if err == nil {
		if resp == nil {
			err = transport.NewRowError(transport.InternalServerError, "empty response")
		} else if len(resp.Rows) != len(pending) {
			err = transport.NewRowError(transport.InternalServerError,
				"expect %d row results, got %d", len(pending), len(resp.Rows))
		}
	}
	if err != nil {
		atomic.AddUint64(&w.stats.failedRPCs, 1)
		metric.IncRPC(w.meta.Name, "error")
		w.logger.Warn("fail to send batch",
			log.BatchIDField(value.id),
			log.RequestIDField(req.ID),
			log.RowsField(len(pending)),
			log.AttemptField(attempt),
			zap.Error(err))
		for _, m := range pending {
			m.lastErr = err
		}
		return pending, err
	}
	metric.IncRPC(w.meta.Name, "ok")

	var retries []*mutation
	for idx, result := range resp.Rows {
		m := pending[idx]
		if result.OK() {
			w.resolve(value, m, nil)
			continue
		}

		rowErr := result.Err()
		if result.Code.Retryable() {
			m.lastErr = rowErr
			retries = append(retries, m)
			continue
		}
		w.resolve(value, m, rowErr)
	}

	if ce := w.logger.Check(zap.DebugLevel, "batch sent"); ce != nil {
		ce.Write(log.BatchIDField(value.id),
			log.RequestIDField(req.ID),
			log.RowsField(len(pending)),
			log.AttemptField(attempt),
			zap.Int("retries", len(retries)))
	}

	if len(retries) > 0 {
		return retries, errors.Wrapf(errRetryRows, "%d rows of batch %d", len(retries), value.id)
	}
	return nil, nil
}

// resolve sets the terminal outcome of the mutation and hands it to the notifier
func (w *Writer) resolve(value *batch, m *mutation, err error) {
	if err == nil {
		atomic.AddUint64(&w.stats.succeeded, 1)
		metric.AddRowsSucceeded(w.meta.Name, 1)
	} else {
		atomic.AddUint64(&w.stats.failed, 1)
		metric.AddRowsFailed(w.meta.Name, 1)
		if w.dirty != nil {
			metric.SetDirtyRows(w.meta.Name, w.dirty.add(m.change))
		}
		if ce := w.logger.Check(zap.DebugLevel, "row failed"); ce != nil {
			ce.Write(log.RowIDField(m.id),
				log.PrimaryKeyField(m.key),
				zap.Int("retries", m.retries),
				zap.Error(err))
		}
	}

	w.notifier.notify(notification{
		m:       m,
		outcome: m.outcome(err),
		done:    &value.callbacks,
	})
}
