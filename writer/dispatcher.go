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
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/matrixorigin/cubewriter/config"
	"github.com/matrixorigin/cubewriter/metric"
)

// dispatch routes the changes of the ingestion buffer to buckets, barriers and
// flush ticks are sent to all buckets. The bucket queues are closed after the
// buffer is closed.
func (w *Writer) dispatch() {
	w.logger.Debug("dispatcher started")
	defer w.logger.Debug("dispatcher stopped")

	ticker := time.NewTicker(w.cfg.FlushInterval.Duration)
	defer ticker.Stop()

	next := 0
	for {
		select {
		case value, ok := <-w.buffer:
			if !ok {
				for _, b := range w.buckets {
					close(b.queue)
				}
				return
			}
			metric.SetBufferLength(w.meta.Name, len(w.buffer))

			if value.barrier != nil {
				for _, b := range w.buckets {
					b.queue <- value
				}
				continue
			}

			var idx int
			if w.cfg.DispatchMode == config.RoundRobin {
				idx = next
				next = (next + 1) % len(w.buckets)
			} else {
				idx = w.bucketOf(value.m.key)
			}
			w.buckets[idx].queue <- value
		case <-ticker.C:
			for _, b := range w.buckets {
				select {
				case b.queue <- item{tick: true}:
				default:
				}
			}
		}
	}
}

func (w *Writer) bucketOf(key []byte) int {
	return int(xxhash.Sum64(key) % uint64(len(w.buckets)))
}
