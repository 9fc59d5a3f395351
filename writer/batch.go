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
)

// mutation is an admitted change, owned by one goroutine at a time
type mutation struct {
	id      string
	change  *row.Change
	key     []byte
	size    int64
	future  *Future
	retries int
	lastErr error
}

func (m *mutation) outcome(err error) Outcome {
	return Outcome{ID: m.id, Err: err, Retries: m.retries}
}

type batch struct {
	id        uint64
	bucket    int
	mutations []*mutation
	size      int64
	keys      map[string]struct{}
	// callbacks is done when all callbacks of the batch returned
	callbacks sync.WaitGroup
}

func (b *batch) isFull(m *mutation, maxRows int, maxSize int64) bool {
	return len(b.mutations) >= maxRows || b.size+m.size > maxSize
}

func (b *batch) contains(m *mutation) bool {
	if b.keys == nil {
		return false
	}
	_, ok := b.keys[string(m.key)]
	return ok
}

func (b *batch) changes() []*row.Change {
	changes := make([]*row.Change, 0, len(b.mutations))
	for _, m := range b.mutations {
		changes = append(changes, m.change)
	}
	return changes
}

// batchBuilder assembles the batches of one bucket
type batchBuilder struct {
	bucket         int
	maxRows        int
	maxSize        int64
	allowDuplicate bool
	nextID         func() uint64
	current        *batch
	batches        []*batch
}

func newBatchBuilder(bucket int, maxRows int, maxSize int64, allowDuplicate bool, nextID func() uint64) *batchBuilder {
	return &batchBuilder{
		bucket:         bucket,
		maxRows:        maxRows,
		maxSize:        maxSize,
		allowDuplicate: allowDuplicate,
		nextID:         nextID,
	}
}

func (b *batchBuilder) size() int {
	return len(b.batches)
}

func (b *batchBuilder) isEmpty() bool {
	return b.size() == 0
}

// pending returns true if the current batch has rows
func (b *batchBuilder) pending() bool {
	return b.current != nil
}

// push adds the mutation to the current batch. The current batch is closed first
// if the mutation exceeds a limit or has the same primary key as a row of it, and
// closed after if the row limit is reached.
func (b *batchBuilder) push(m *mutation) {
	if b.current != nil &&
		(b.current.isFull(m, b.maxRows, b.maxSize) ||
			(!b.allowDuplicate && b.current.contains(m))) {
		b.seal()
	}

	if b.current == nil {
		b.current = &batch{id: b.nextID(), bucket: b.bucket}
		if !b.allowDuplicate {
			b.current.keys = make(map[string]struct{})
		}
	}

	b.current.mutations = append(b.current.mutations, m)
	b.current.size += m.size
	if b.current.keys != nil {
		b.current.keys[string(m.key)] = struct{}{}
	}

	if len(b.current.mutations) >= b.maxRows {
		b.seal()
	}
}

// seal closes the current batch
func (b *batchBuilder) seal() {
	if b.current == nil {
		return
	}
	b.batches = append(b.batches, b.current)
	b.current = nil
}

func (b *batchBuilder) pop() (*batch, bool) {
	if b.isEmpty() {
		return nil, false
	}

	value := b.batches[0]
	b.batches[0] = nil
	b.batches = b.batches[1:]
	return value, true
}
