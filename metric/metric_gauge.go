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
	"github.com/prometheus/client_golang/prometheus"
)

var (
	bufferLengthGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "buffer_length",
			Help:      "Number of changes waiting in the ingestion buffer.",
		}, []string{"table"})

	inflightBatchGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "inflight_batches",
			Help:      "Number of batches sent and not resolved.",
		}, []string{"table"})

	dirtyRowsGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "dirty_rows",
			Help:      "Number of collected dirty rows.",
		}, []string{"table"})
)

// SetBufferLength set the ingestion buffer length
func SetBufferLength(table string, value int) {
	bufferLengthGauge.WithLabelValues(table).Set(float64(value))
}

// AddInflightBatches add value to the in flight batches, value can be negative
func AddInflightBatches(table string, value int) {
	inflightBatchGauge.WithLabelValues(table).Add(float64(value))
}

// SetDirtyRows set the collected dirty rows
func SetDirtyRows(table string, value int) {
	dirtyRowsGauge.WithLabelValues(table).Set(float64(value))
}
