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
	"sync"
	"sync/atomic"
)

// barrier is sent through the ingestion buffer to every bucket by Flush. done is
// closed once every bucket has drained the batches sent before it.
type barrier struct {
	draining int32
	done     chan struct{}
}

func newBarrier(buckets int) *barrier {
	return &barrier{
		draining: int32(buckets),
		done:     make(chan struct{}),
	}
}

func (b *barrier) bucketDrained() {
	if atomic.AddInt32(&b.draining, -1) == 0 {
		close(b.done)
	}
}

// epoch tracks the batches a bucket sent between two barriers. An epoch is
// drained once its batches and all previous epochs of the bucket are drained.
type epoch struct {
	batches sync.WaitGroup
	prev    *epoch
	drained chan struct{}
}

func newEpoch(prev *epoch) *epoch {
	return &epoch{
		prev:    prev,
		drained: make(chan struct{}),
	}
}

// wait blocks until the epoch is drained, called once per epoch after no more
// batch is added
func (e *epoch) wait() {
	if e.prev != nil {
		<-e.prev.drained
		e.prev = nil
	}
	e.batches.Wait()
	close(e.drained)
}
