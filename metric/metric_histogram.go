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

package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	batchRowsHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "batch_rows",
			Help:      "Bucketed histogram of rows of per batch.",
			Buckets:   prometheus.ExponentialBuckets(1, 2.0, 12),
		}, []string{"table"})

	batchBytesHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "batch_bytes",
			Help:      "Bucketed histogram of data size of per batch.",
			Buckets:   []float64{256.0, 512.0, 1024.0, 4096.0, 65536.0, 262144.0, 524288.0, 1048576.0, 2097152.0, 4194304.0, 8388608.0},
		}, []string{"table"})

	rpcDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "rpc_duration_seconds",
			Help:      "Bucketed histogram of batch write rpc duration.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2.0, 20),
		}, []string{"table"})

	storeApplyDurationHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "apply_duration_seconds",
			Help:      "Bucketed histogram of applying a batch write request.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2.0, 20),
		})
)

// ObserveBatch observe the rows and bytes of a sent batch
func ObserveBatch(table string, rows int, bytes int64) {
	batchRowsHistogram.WithLabelValues(table).Observe(float64(rows))
	batchBytesHistogram.WithLabelValues(table).Observe(float64(bytes))
}

// ObserveRPCDuration observe the duration of a batch write rpc
func ObserveRPCDuration(table string, start time.Time) {
	rpcDurationHistogram.WithLabelValues(table).Observe(time.Since(start).Seconds())
}

// ObserveStoreApplyDuration observe the duration of applying a batch write
func ObserveStoreApplyDuration(start time.Time) {
	storeApplyDurationHistogram.Observe(time.Since(start).Seconds())
}
