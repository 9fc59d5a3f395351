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
	writerRowsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "rows_total",
			Help:      "Total number of rows by status.",
		}, []string{"table", "status"})

	writerRPCCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "rpc_total",
			Help:      "Total number of batch write rpcs by result.",
		}, []string{"table", "result"})

	storeRowsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "rows_total",
			Help:      "Total number of rows applied by the table store by code.",
		}, []string{"table", "code"})

	serverRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "request_total",
			Help:      "Total number of rpc requests received by type.",
		}, []string{"type"})
)

// AddRowsSubmitted add the rows admitted by the writer
func AddRowsSubmitted(table string, value int) {
	writerRowsCounter.WithLabelValues(table, "submitted").Add(float64(value))
}

// AddRowsSucceeded add the rows written
func AddRowsSucceeded(table string, value int) {
	writerRowsCounter.WithLabelValues(table, "succeeded").Add(float64(value))
}

// AddRowsFailed add the rows failed permanently
func AddRowsFailed(table string, value int) {
	writerRowsCounter.WithLabelValues(table, "failed").Add(float64(value))
}

// AddRowsRetried add the rows sent again
func AddRowsRetried(table string, value int) {
	writerRowsCounter.WithLabelValues(table, "retried").Add(float64(value))
}

// AddRowsRejected add the rows rejected on admission
func AddRowsRejected(table string, value int) {
	writerRowsCounter.WithLabelValues(table, "rejected").Add(float64(value))
}

// IncRPC inc the batch write rpc count, result is ok, partial or error
func IncRPC(table, result string) {
	writerRPCCounter.WithLabelValues(table, result).Inc()
}

// IncStoreRows inc the rows applied by the store with the code
func IncStoreRows(table, code string) {
	if code == "" {
		code = "OK"
	}
	storeRowsCounter.WithLabelValues(table, code).Inc()
}

// IncServerRequest inc the rpc requests received by the server
func IncServerRequest(requestType string) {
	serverRequestCounter.WithLabelValues(requestType).Inc()
}
