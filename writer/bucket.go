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

	"github.com/matrixorigin/cubewriter/components/log"
	"github.com/matrixorigin/cubewriter/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// item is a message of the ingestion buffer and the bucket queues
type item struct {
	m       *mutation
	barrier *barrier
	tick    bool
}

// bucket owns its batch builder and current epoch, both only used by the bucket
// worker
type bucket struct {
	index    int
	queue    chan item
	inflight *semaphore.Weighted
	builder  *batchBuilder
	epoch    *epoch
}

func (w *Writer) newBucket(index int) *bucket {
	return &bucket{
		index:    index,
		queue:    make(chan item, w.cfg.BucketQueueSize),
		inflight: semaphore.NewWeighted(w.cfg.InflightLimit()),
		builder: newBatchBuilder(index, w.cfg.MaxBatchRowsCount, w.cfg.MaxBatchSize.Int64(),
			w.cfg.AllowDuplicatedRowInBatchRequest, w.nextBatchID),
		epoch: newEpoch(nil),
	}
}

func (w *Writer) runBucket(b *bucket) {
	w.logger.Debug("bucket worker started",
		log.BucketField(b.index))

	for value := range b.queue {
		switch {
		case value.m != nil:
			b.builder.push(value.m)
		case value.tick:
			b.builder.seal()
		case value.barrier != nil:
			b.builder.seal()
			w.sendBatches(b)
			w.sealEpoch(b, value.barrier)
			continue
		}
		w.sendBatches(b)
	}

	b.builder.seal()
	w.sendBatches(b)
	w.logger.Debug("bucket worker stopped",
		log.BucketField(b.index))
}

// sendBatches sends the closed batches, it blocks while the bucket has too many
// batches in flight
func (w *Writer) sendBatches(b *bucket) {
	for {
		value, ok := b.builder.pop()
		if !ok {
			return
		}

		// never fails, the context is never canceled
		if err := b.inflight.Acquire(context.Background(), 1); err != nil {
			w.logger.Fatal("fail to acquire inflight batch", zap.Error(err))
		}

		atomic.AddInt64(&w.stats.inflightBatches, 1)
		metric.AddInflightBatches(w.meta.Name, 1)

		e := b.epoch
		e.batches.Add(1)
		w.stopper.RunWorker(func() {
			w.execute(b, value, e)
		})
	}
}

// sealEpoch starts a new epoch of the bucket, the barrier is notified once the
// batches of the previous epochs are drained
func (w *Writer) sealEpoch(b *bucket, value *barrier) {
	e := b.epoch
	b.epoch = newEpoch(e)
	w.stopper.RunWorker(func() {
		e.wait()
		value.bucketDrained()
	})
}
