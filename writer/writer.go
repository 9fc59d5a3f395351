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
	"io"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/lni/goutils/syncutil"
	"github.com/matrixorigin/cubewriter/components/log"
	"github.com/matrixorigin/cubewriter/config"
	"github.com/matrixorigin/cubewriter/metric"
	"github.com/matrixorigin/cubewriter/row"
	"github.com/matrixorigin/cubewriter/schema"
	"github.com/matrixorigin/cubewriter/transport"
	"go.uber.org/zap"
)

type callbackHolder struct {
	cb Callback
}

// Writer buffers row changes of one table and writes them in batches. Changes are
// spread over buckets, each bucket assembles and sends its own batches. In
// sequential mode changes of the same primary key are applied in the order they
// are added.
type Writer struct {
	cfg       config.WriterConfig
	logger    *zap.Logger
	transport transport.Transport
	meta      schema.TableMeta
	validator validator
	buffer    chan item
	buckets   []*bucket
	notifier  *notifier
	dirty     *dirtyRows
	stats     *stats
	stopper   *syncutil.Stopper
	callback  atomic.Value
	// closeTransport closes the transport in Close
	closeTransport bool

	requestID uint64
	batchID   uint64

	mu struct {
		sync.RWMutex
		closed bool
	}
}

// New returns a writer of the table cfg.Table. The schema of the table is fetched
// once from the provider, the writer is not created if it fails.
func New(cfg config.WriterConfig, trans transport.Transport, provider schema.Provider, opts ...Option) (*Writer, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	cfg.Adjust()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Table == "" {
		return nil, errors.New("writer.table is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RPCTimeout.Duration)
	meta, err := provider.DescribeTable(ctx, cfg.Table)
	cancel()
	if err != nil {
		return nil, errors.Wrapf(err, "describe table %s", cfg.Table)
	}
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	if meta.Name != cfg.Table {
		return nil, errors.Wrapf(schema.ErrSchemaMismatch, "describe table %s returns table %s",
			cfg.Table, meta.Name)
	}

	w := &Writer{
		cfg:            cfg,
		logger:         log.Adjust(o.logger).Named("writer").With(log.TableField(cfg.Table)),
		transport:      trans,
		meta:           meta,
		validator:      newValidator(meta, cfg),
		buffer:         make(chan item, cfg.BufferSize),
		stats:          newStats(),
		stopper:        syncutil.NewStopper(),
		closeTransport: o.transportOwnership,
	}
	w.callback.Store(callbackHolder{cb: o.callback})
	if cfg.CollectDirtyRows {
		w.dirty = newDirtyRows(cfg.MaxDirtyRows)
	}

	w.notifier = newNotifier(w.logger.Named("notifier"), cfg.CallbackThreadCount, w.GetCallback)
	w.notifier.start()

	for i := 0; i < cfg.BucketCount; i++ {
		w.buckets = append(w.buckets, w.newBucket(i))
	}
	for _, b := range w.buckets {
		value := b
		w.stopper.RunWorker(func() {
			w.runBucket(value)
		})
	}
	w.stopper.RunWorker(w.dispatch)

	w.logger.Info("writer started",
		zap.String("write-mode", cfg.WriteMode.String()),
		zap.String("dispatch-mode", cfg.DispatchMode.String()),
		zap.Int("buckets", cfg.BucketCount),
		zap.Int("buffer-size", cfg.BufferSize),
		zap.Int("max-batch-rows", cfg.MaxBatchRowsCount),
		zap.Int("max-retries", cfg.RetryLimit()))
	return w, nil
}

// Table returns the schema of the table
func (w *Writer) Table() schema.TableMeta {
	return w.meta
}

// SetCallback sets the callback invoked for changes resolved afterwards
func (w *Writer) SetCallback(cb Callback) {
	w.callback.Store(callbackHolder{cb: cb})
}

// GetCallback returns the callback
func (w *Writer) GetCallback() Callback {
	return w.callback.Load().(callbackHolder).cb
}

// AddRowChange adds a change, it blocks while the buffer is full. A
// *ValidationError is returned if the change is rejected.
func (w *Writer) AddRowChange(ctx context.Context, change *row.Change) error {
	_, err := w.AddRowChangeWithFuture(ctx, change)
	return err
}

// AddRowChangeWithFuture adds a change and returns the future of its outcome
func (w *Writer) AddRowChangeWithFuture(ctx context.Context, change *row.Change) (*Future, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.mu.closed {
		return nil, ErrWriterClosed
	}
	return w.admit(ctx, change)
}

// AddRowChanges adds the changes in order. Invalid changes are rejected and
// returned in a *RejectedError, the others are admitted and their outcomes are
// returned by the BatchFuture.
func (w *Writer) AddRowChanges(ctx context.Context, changes []*row.Change) (*BatchFuture, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.mu.closed {
		return nil, ErrWriterClosed
	}

	f := &BatchFuture{}
	var rejected *RejectedError
	for _, change := range changes {
		future, err := w.admit(ctx, change)
		if err != nil {
			var verr *ValidationError
			if !errors.As(err, &verr) {
				return f, err
			}
			if rejected == nil {
				rejected = &RejectedError{}
			}
			rejected.Rejected = append(rejected.Rejected, verr)
			continue
		}
		f.futures = append(f.futures, future)
	}

	if rejected != nil {
		return f, rejected
	}
	return f, nil
}

// admit is called with the read lock held
func (w *Writer) admit(ctx context.Context, change *row.Change) (*Future, error) {
	if err := w.validator.validate(change); err != nil {
		atomic.AddUint64(&w.stats.rejected, 1)
		metric.AddRowsRejected(w.meta.Name, 1)
		if ce := w.logger.Check(zap.DebugLevel, "change rejected"); ce != nil {
			ce.Write(log.ReasonField(err.Reason))
		}
		return nil, err
	}

	id := uuid.New().String()
	m := &mutation{
		id:     id,
		change: change,
		key:    change.PrimaryKey.Encode(),
		size:   change.DataSize(),
		future: newFuture(id),
	}

	atomic.AddUint64(&w.stats.submitted, 1)
	select {
	case w.buffer <- item{m: m}:
	case <-ctx.Done():
		atomic.AddUint64(&w.stats.submitted, ^uint64(0))
		return nil, ctx.Err()
	}

	metric.AddRowsSubmitted(w.meta.Name, 1)
	if ce := w.logger.Check(zap.DebugLevel, "change admitted"); ce != nil {
		ce.Write(log.RowIDField(id),
			log.PrimaryKeyField(m.key),
			zap.String("type", change.Type.String()))
	}
	return m.future, nil
}

// Flush sends all buffered changes and blocks until every change added before it
// is resolved and its callback returned. Changes added after Flush is called are
// not waited for. A Flush called in a Callback waits for that callback, it returns
// the error of ctx once ctx is done.
func (w *Writer) Flush(ctx context.Context) error {
	value := newBarrier(len(w.buckets))

	w.mu.RLock()
	if w.mu.closed {
		w.mu.RUnlock()
		return ErrWriterClosed
	}
	select {
	case w.buffer <- item{barrier: value}:
		w.mu.RUnlock()
	case <-ctx.Done():
		w.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case <-value.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops admitting changes, flushes and stops all workers. Every admitted
// change is resolved when Close returns. Close must not be called in a Callback.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.mu.closed {
		w.mu.Unlock()
		return ErrWriterAlreadyClosed
	}
	w.mu.closed = true
	w.mu.Unlock()

	value := newBarrier(len(w.buckets))
	w.buffer <- item{barrier: value}
	close(w.buffer)
	<-value.done

	w.stopper.Stop()
	w.notifier.stop()

	var err error
	if w.closeTransport {
		if c, ok := w.transport.(io.Closer); ok {
			err = c.Close()
		}
	}

	s := w.GetStatistics()
	w.logger.Info("writer closed",
		zap.Uint64("submitted", s.Submitted),
		zap.Uint64("succeeded", s.Succeeded),
		zap.Uint64("failed", s.Failed),
		zap.Uint64("retried", s.Retried),
		zap.Uint64("rejected", s.Rejected))
	return err
}

// GetStatistics returns the statistics of the writer
func (w *Writer) GetStatistics() Statistics {
	s := w.stats.copy()
	if w.dirty != nil {
		s.DirtyRows = w.dirty.len()
	}
	return s
}

// DrainDirtyRows returns and clears the collected changes failed permanently,
// always empty if CollectDirtyRows is not set
func (w *Writer) DrainDirtyRows() []*row.Change {
	if w.dirty == nil {
		return nil
	}
	changes := w.dirty.drain()
	metric.SetDirtyRows(w.meta.Name, 0)
	return changes
}

func (w *Writer) nextBatchID() uint64 {
	return atomic.AddUint64(&w.batchID, 1)
}
