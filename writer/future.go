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
	"context"

	"github.com/cockroachdb/errors"
	"github.com/matrixorigin/cubewriter/row"
)

// Outcome is the terminal result of an admitted change
type Outcome struct {
	// ID is assigned at admission
	ID string
	// Err is nil if the change succeeded
	Err error
	// Retries is the number of times the change was sent again
	Retries int
}

// Succeeded returns true if the change is applied
func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

// Callback is invoked exactly once for every admitted change. A batch completes
// only after the callbacks of its rows returned, so a callback must not call
// Close, and a Flush called in a callback only returns when its context is done.
// AddRowChange in a callback may block the same way when the buffer is full.
type Callback func(change *row.Change, outcome Outcome)

// Future is the outcome of one admitted change
type Future struct {
	id string
	c  chan struct{}
	// outcome is written once before c is closed
	outcome Outcome
}

func newFuture(id string) *Future {
	return &Future{
		id: id,
		c:  make(chan struct{}),
	}
}

// ID returns the id assigned at admission
func (f *Future) ID() string {
	return f.id
}

// Get waits for the outcome, the returned error is the error of the change or
// the error of the context.
func (f *Future) Get(ctx context.Context) (Outcome, error) {
	select {
	case <-f.c:
		return f.outcome, f.outcome.Err
	case <-ctx.Done():
		return Outcome{ID: f.id}, ctx.Err()
	}
}

// C returns a channel closed when the outcome is ready
func (f *Future) C() <-chan struct{} {
	return f.c
}

func (f *Future) done(outcome Outcome) {
	outcome.ID = f.id
	f.outcome = outcome
	close(f.c)
}

// BatchFuture is the outcome of the changes admitted by AddRowChanges
type BatchFuture struct {
	futures []*Future
}

// Len returns the number of admitted changes
func (f *BatchFuture) Len() int {
	return len(f.futures)
}

// Get waits for all outcomes, in admission order. The error is nil if all
// changes succeeded.
func (f *BatchFuture) Get(ctx context.Context) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(f.futures))
	failed := 0
	for _, future := range f.futures {
		outcome, err := future.Get(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return outcomes, ctxErr
		}
		if err != nil {
			failed++
		}
		outcomes = append(outcomes, outcome)
	}

	if failed > 0 {
		return outcomes, errors.Wrapf(ErrRowsFailed, "%d of %d rows failed", failed, len(f.futures))
	}
	return outcomes, nil
}
