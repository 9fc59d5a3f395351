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
	"sync/atomic"
	"time"

	"github.com/matrixorigin/cubewriter/util/movingaverage"
)

// Statistics writer statistics, all counters only increase
type Statistics struct {
	// Submitted admitted changes
	Submitted uint64
	Succeeded uint64
	Failed    uint64
	// Retried times changes are sent again
	Retried uint64
	// Rejected changes rejected at admission
	Rejected   uint64
	RPCs       uint64
	FailedRPCs uint64
	// InflightBatches batches sent and not resolved yet
	InflightBatches int64
	// DirtyRows collected dirty rows not drained yet
	DirtyRows int

	MedianRPCLatency time.Duration
	EMARPCLatency    time.Duration
}

// Pending returns the number of admitted changes not resolved yet
func (s Statistics) Pending() uint64 {
	return s.Submitted - s.Succeeded - s.Failed
}

type stats struct {
	submitted       uint64
	succeeded       uint64
	failed          uint64
	retried         uint64
	rejected        uint64
	rpcs            uint64
	failedRPCs      uint64
	inflightBatches int64
	latency         *movingaverage.LatencyTracker
}

func newStats() *stats {
	return &stats{latency: movingaverage.NewLatencyTracker()}
}

func (s *stats) copy() Statistics {
	// succeeded and failed are loaded before submitted, Pending never underflows
	v := Statistics{
		Succeeded: atomic.LoadUint64(&s.succeeded),
		Failed:    atomic.LoadUint64(&s.failed),
	}
	v.Submitted = atomic.LoadUint64(&s.submitted)
	v.Retried = atomic.LoadUint64(&s.retried)
	v.Rejected = atomic.LoadUint64(&s.rejected)
	v.RPCs = atomic.LoadUint64(&s.rpcs)
	v.FailedRPCs = atomic.LoadUint64(&s.failedRPCs)
	v.InflightBatches = atomic.LoadInt64(&s.inflightBatches)
	v.MedianRPCLatency = s.latency.Median()
	v.EMARPCLatency = s.latency.EMA()
	return v
}
