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

	"github.com/matrixorigin/cubewriter/row"
	"github.com/phf/go-queue/queue"
)

// dirtyRows keeps the latest failed changes for manual retry
type dirtyRows struct {
	mu   sync.Mutex
	max  int
	rows *queue.Queue
}

func newDirtyRows(max int) *dirtyRows {
	return &dirtyRows{
		max:  max,
		rows: queue.New(),
	}
}

// add returns the number of kept rows
func (d *dirtyRows) add(change *row.Change) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.rows.Len() >= d.max {
		d.rows.PopFront()
	}
	d.rows.PushBack(change)
	return d.rows.Len()
}

func (d *dirtyRows) len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rows.Len()
}

func (d *dirtyRows) drain() []*row.Change {
	d.mu.Lock()
	defer d.mu.Unlock()

	changes := make([]*row.Change, 0, d.rows.Len())
	for d.rows.Len() > 0 {
		changes = append(changes, d.rows.PopFront().(*row.Change))
	}
	return changes
}
