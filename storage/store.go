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
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/google/btree"
	jsoniter "github.com/json-iterator/go"
	"github.com/juju/ratelimit"
	"github.com/lni/goutils/syncutil"
	"github.com/matrixorigin/cubewriter/components/log"
	"github.com/matrixorigin/cubewriter/config"
	"github.com/matrixorigin/cubewriter/row"
	"github.com/matrixorigin/cubewriter/schema"
	"github.com/matrixorigin/cubewriter/transport"
	"go.uber.org/zap"
)

var (
	// ErrTableExists the table is already created
	ErrTableExists = errors.New("table already exists")

	json = jsoniter.ConfigCompatibleWithStandardLibrary
)

var (
	_ transport.Transport = (*Store)(nil)
	_ schema.Provider     = (*Store)(nil)
)

// Option store option
type Option func(*Store)

// WithLogger set logger of the store
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithClock set the clock assigning timestamps of columns written without one
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

// Store is a table store on pebble. Rows of all tables share one database, each
// column version is a key.
type Store struct {
	cfg     config.StoreConfig
	logger  *zap.Logger
	db      *pebble.DB
	clock   func() time.Time
	limiter *ratelimit.Bucket
	stopper *syncutil.Stopper
	stats   Stats

	// writeMu serializes batch writes, the conditions of a batch are checked
	// against the data of previous batches
	writeMu sync.Mutex

	mu struct {
		sync.RWMutex
		closed bool
		tables *btree.BTree
	}
}

// NewStore opens the store and creates the tables of the config
func NewStore(cfg config.StoreConfig, opts ...Option) (*Store, error) {
	s := &Store{
		cfg:     cfg,
		stopper: syncutil.NewStopper(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = log.Adjust(s.logger).Named("store")
	if s.clock == nil {
		s.clock = time.Now
	}
	if cfg.WriteCapacity > 0 {
		s.limiter = ratelimit.NewBucketWithRate(float64(cfg.WriteCapacity), cfg.WriteCapacity)
	}
	s.mu.tables = btree.New(8)

	dbOpts := &pebble.Options{
		EventListener: getEventListener(s.logger.Named("pebble")),
	}
	if cfg.UseMemory {
		dbOpts.FS = vfs.NewMem()
	}
	db, err := pebble.Open(cfg.DataDir, dbOpts)
	if err != nil {
		return nil, errors.Wrapf(err, "open store at %s", cfg.DataDir)
	}
	s.db = db

	if err := s.loadTables(); err != nil {
		s.db.Close()
		return nil, err
	}

	for _, meta := range cfg.Tables {
		if err := s.CreateTable(meta); err != nil && !errors.Is(err, ErrTableExists) {
			s.db.Close()
			return nil, err
		}
	}

	s.logger.Info("store opened",
		zap.String("dir", cfg.DataDir),
		zap.Bool("memory", cfg.UseMemory),
		zap.Int64("write-capacity", cfg.WriteCapacity),
		zap.Int("tables", s.mu.tables.Len()))
	return s, nil
}

// Close waits for pending batch writes, flushes memtables and closes the database
func (s *Store) Close() error {
	s.mu.Lock()
	if s.mu.closed {
		s.mu.Unlock()
		return nil
	}
	s.mu.closed = true
	s.mu.Unlock()

	s.stopper.Stop()
	err := errors.CombineErrors(s.db.Flush(), s.db.Close())
	s.logger.Info("store closed", zap.Error(err))
	return err
}

// Stats returns the stats of the store
func (s *Store) Stats() Stats {
	return s.stats.Copy()
}

// CreateTable creates the table
func (s *Store) CreateTable(meta schema.TableMeta) error {
	if err := meta.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mu.closed {
		return transport.ErrClosed
	}
	if s.mu.tables.Has(tableItem{name: meta.Name}) {
		return errors.Wrapf(ErrTableExists, "table %s", meta.Name)
	}

	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	if err := s.db.Set(metaKey(meta.Name), data, s.writeOptions()); err != nil {
		return err
	}

	s.mu.tables.ReplaceOrInsert(tableItem{name: meta.Name, meta: meta})
	s.logger.Info("table created",
		log.TableField(meta.Name))
	return nil
}

// DeleteTable deletes the table and all rows of it
func (s *Store) DeleteTable(name string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mu.closed {
		return transport.ErrClosed
	}
	if !s.mu.tables.Has(tableItem{name: name}) {
		return transport.NewRowError(transport.ObjectNotExist, "table %s", name)
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	prefix := tableKeyPrefix(name)
	if err := batch.Delete(metaKey(name), nil); err != nil {
		return err
	}
	if err := batch.DeleteRange(prefix, row.PrefixEnd(prefix), nil); err != nil {
		return err
	}
	if err := batch.Commit(s.writeOptions()); err != nil {
		return err
	}

	s.mu.tables.Delete(tableItem{name: name})
	s.logger.Info("table deleted",
		log.TableField(name))
	return nil
}

// DescribeTable implements schema.Provider
func (s *Store) DescribeTable(ctx context.Context, name string) (schema.TableMeta, error) {
	meta, ok := s.getTable(name)
	if !ok {
		return schema.TableMeta{}, transport.NewRowError(transport.ObjectNotExist, "table %s", name)
	}
	return meta, nil
}

// ListTables returns the names of all tables in order
func (s *Store) ListTables() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var names []string
	s.mu.tables.Ascend(func(i btree.Item) bool {
		names = append(names, i.(tableItem).name)
		return true
	})
	return names
}

// BatchWriteRow implements transport.Transport. Rows are checked and applied in
// request order in one atomic write, a failed row does not affect others.
func (s *Store) BatchWriteRow(ctx context.Context, req *transport.BatchWriteRowRequest) *transport.Future {
	f := transport.NewFuture()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.mu.closed {
		f.Done(nil, transport.ErrClosed)
		return f
	}

	atomic.AddUint64(&s.stats.Requests, 1)
	s.stopper.RunWorker(func() {
		resp, err := s.applyBatch(ctx, req)
		f.Done(resp, err)
	})
	return f
}

// GetRow returns the latest version of every column of the row
func (s *Store) GetRow(ctx context.Context, table string, pk row.PrimaryKey) (transport.GetRowResponse, error) {
	meta, ok := s.getTable(table)
	if !ok {
		return transport.GetRowResponse{}, transport.NewRowError(transport.ObjectNotExist, "table %s", table)
	}
	if err := meta.CheckPrimaryKey(pk); err != nil {
		return transport.GetRowResponse{}, transport.NewRowError(transport.ParameterInvalid, "%s", err.Error())
	}

	rowPrefix := rowKeyPrefix(table, pk)
	iter := s.db.NewIter(&pebble.IterOptions{
		LowerBound: rowPrefix,
		UpperBound: row.PrefixEnd(rowPrefix),
	})
	defer iter.Close()

	var resp transport.GetRowResponse
	last := ""
	for valid := iter.First(); valid; valid = iter.Next() {
		column, ts, isCell, err := decodeCellKey(rowPrefix, iter.Key())
		if err != nil {
			return transport.GetRowResponse{}, err
		}
		if !isCell {
			resp.Exists = true
			continue
		}
		if len(resp.Columns) > 0 && column == last {
			continue
		}

		value, err := row.DecodeValue(iter.Value())
		if err != nil {
			return transport.GetRowResponse{}, err
		}
		version := ts
		resp.Columns = append(resp.Columns, row.Column{
			Name:      column,
			Value:     value,
			Timestamp: &version,
		})
		last = column
	}
	if err := iter.Error(); err != nil {
		return transport.GetRowResponse{}, err
	}

	atomic.AddUint64(&s.stats.ReadRows, 1)
	return resp, nil
}

func (s *Store) getTable(name string) (schema.TableMeta, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item := s.mu.tables.Get(tableItem{name: name})
	if item == nil {
		return schema.TableMeta{}, false
	}
	return item.(tableItem).meta, true
}

func (s *Store) loadTables() error {
	prefix := metaKeyPrefix()
	iter := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: row.PrefixEnd(prefix),
	})
	defer iter.Close()

	for valid := iter.First(); valid; valid = iter.Next() {
		var meta schema.TableMeta
		if err := json.Unmarshal(iter.Value(), &meta); err != nil {
			return errors.Wrapf(err, "load table meta %x", iter.Key())
		}
		s.mu.tables.ReplaceOrInsert(tableItem{name: meta.Name, meta: meta})
	}
	return iter.Error()
}

func (s *Store) writeOptions() *pebble.WriteOptions {
	if s.cfg.Sync {
		return pebble.Sync
	}
	return pebble.NoSync
}

type tableItem struct {
	name string
	meta schema.TableMeta
}

func (t tableItem) Less(other btree.Item) bool {
	return t.name < other.(tableItem).name
}
