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

package transport

import (
	"context"
	"sync"
)

// Future is used to obtain the response of a batch write asynchronously.
type Future struct {
	c    chan struct{}
	resp *BatchWriteRowResponse
	err  error

	mu struct {
		sync.Mutex
		completed bool
	}
}

// NewFuture returns a uncompleted future
func NewFuture() *Future {
	return &Future{c: make(chan struct{})}
}

// NewCompletedFuture returns a future completed with the response or error
func NewCompletedFuture(resp *BatchWriteRowResponse, err error) *Future {
	f := NewFuture()
	f.Done(resp, err)
	return f
}

// Done completes the future. Only the first call takes effect, returns false if
// the future is already completed.
func (f *Future) Done(resp *BatchWriteRowResponse, err error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.mu.completed {
		return false
	}
	f.resp = resp
	f.err = err
	f.mu.completed = true
	close(f.c)
	return true
}

// Get blocks until the response is received or ctx is done.
func (f *Future) Get(ctx context.Context) (*BatchWriteRowResponse, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-f.c:
		return f.resp, f.err
	}
}

// C returns a chan which is closed when the future completed
func (f *Future) C() <-chan struct{} {
	return f.c
}
