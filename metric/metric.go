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

const (
	namespace = "cubewriter"
)

var (
	registry = prometheus.NewRegistry()
)

func init() {
	registry.MustRegister(bufferLengthGauge)
	registry.MustRegister(inflightBatchGauge)
	registry.MustRegister(dirtyRowsGauge)

	registry.MustRegister(writerRowsCounter)
	registry.MustRegister(writerRPCCounter)
	registry.MustRegister(storeRowsCounter)
	registry.MustRegister(serverRequestCounter)

	registry.MustRegister(batchRowsHistogram)
	registry.MustRegister(batchBytesHistogram)
	registry.MustRegister(rpcDurationHistogram)
	registry.MustRegister(storeApplyDurationHistogram)
}

// Registry returns the registry of all cubewriter metrics
func Registry() *prometheus.Registry {
	return registry
}
