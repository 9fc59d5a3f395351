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

	"github.com/fagongzi/util/task"
	"github.com/lni/goutils/syncutil"
	"github.com/matrixorigin/cubewriter/components/log"
	"go.uber.org/zap"
)

type notification struct {
	m       *mutation
	outcome Outcome
	done    *sync.WaitGroup
}

// notifier invokes callbacks and completes futures on its own workers, so a
// slow callback never blocks sending
type notifier struct {
	logger   *zap.Logger
	workers  int
	queue    *task.Queue
	stopper  *syncutil.Stopper
	callback func() Callback
}

func newNotifier(logger *zap.Logger, workers int, callback func() Callback) *notifier {
	return &notifier{
		logger:   logger,
		workers:  workers,
		queue:    task.New(32),
		stopper:  syncutil.NewStopper(),
		callback: callback,
	}
}

func (n *notifier) start() {
	for i := 0; i < n.workers; i++ {
		idx := i
		n.stopper.RunWorker(func() {
			n.run(idx)
		})
	}
}

// stop is called when no notification is pending
func (n *notifier) stop() {
	for _, item := range n.queue.Dispose() {
		n.deliver(item.(notification))
	}
	n.stopper.Stop()
}

func (n *notifier) notify(value notification) {
	if err := n.queue.Put(value); err != nil {
		n.logger.Error("notifier stopped, deliver in place",
			log.RowIDField(value.m.id))
		n.deliver(value)
	}
}

func (n *notifier) run(idx int) {
	n.logger.Debug("callback worker started",
		log.WorkerField(idx))

	items := make([]interface{}, 16)
	for {
		count, err := n.queue.Get(16, items)
		if err != nil {
			n.logger.Debug("callback worker stopped",
				log.WorkerField(idx))
			return
		}

		for i := int64(0); i < count; i++ {
			n.deliver(items[i].(notification))
			items[i] = nil
		}
	}
}

func (n *notifier) deliver(value notification) {
	defer value.done.Done()

	if cb := n.callback(); cb != nil {
		n.invoke(cb, value)
	}
	value.m.future.done(value.outcome)
}

func (n *notifier) invoke(cb Callback, value notification) {
	defer func() {
		if err := recover(); err != nil {
			n.logger.Error("callback panic",
				log.RowIDField(value.m.id),
				zap.Any("error", err))
		}
	}()
	cb(value.m.change, value.outcome)
}
