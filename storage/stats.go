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

package storage

import (
	"sync/atomic"
)

// Stats store stats
type Stats struct {
	WrittenRows  uint64
	WrittenBytes uint64
	FailedRows   uint64
	// ThrottledRows rows rejected because the write capacity is exhausted
	ThrottledRows uint64
	ReadRows      uint64
	Requests      uint64
}

// Copy returns another instance for rough statistics.
func (s *Stats) Copy() Stats {
	return Stats{
		WrittenRows:   atomic.LoadUint64(&s.WrittenRows),
		WrittenBytes:  atomic.LoadUint64(&s.WrittenBytes),
		FailedRows:    atomic.LoadUint64(&s.FailedRows),
		ThrottledRows: atomic.LoadUint64(&s.ThrottledRows),
		ReadRows:      atomic.LoadUint64(&s.ReadRows),
		Requests:      atomic.LoadUint64(&s.Requests),
	}
}
