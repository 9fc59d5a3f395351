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
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/matrixorigin/cubewriter/components/log"
	"github.com/matrixorigin/cubewriter/metric"
	"github.com/matrixorigin/cubewriter/row"
	"github.com/matrixorigin/cubewriter/schema"
	"github.com/matrixorigin/cubewriter/transport"
	"go.uber.org/zap"
)

func (s *Store) applyBatch(ctx context.Context, req *transport.BatchWriteRowRequest) (*transport.BatchWriteRowResponse, error) {
	start := time.Now()
	defer metric.ObserveStoreApplyDuration(start)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	resp := &transport.BatchWriteRowResponse{
		ID:   req.ID,
		Rows: make([]transport.RowResult, len(req.Rows)),
	}

	meta, ok := s.getTable(req.Table)
	if !ok {
		for i := range resp.Rows {
			resp.Rows[i] = transport.RowResult{
				Code:    transport.ObjectNotExist,
				Message: "table " + req.Table + " not exist",
			}
		}
		atomic.AddUint64(&s.stats.FailedRows, uint64(len(req.Rows)))
		return resp, nil
	}

	batch := s.db.NewIndexedBatch()
	defer batch.Close()

	now := s.clock().UnixNano() / int64(time.Millisecond)
	for i, change := range req.Rows {
		err := s.applyRow(batch, meta, change, now)
		if err != nil {
			var re *transport.RowError
			if !errors.As(err, &re) {
				return nil, err
			}
			resp.Rows[i] = re.Result()
			if re.Code == transport.NotEnoughCapacityUnit {
				atomic.AddUint64(&s.stats.ThrottledRows, 1)
			}
			atomic.AddUint64(&s.stats.FailedRows, 1)
		} else {
			atomic.AddUint64(&s.stats.WrittenRows, 1)
			atomic.AddUint64(&s.stats.WrittenBytes, uint64(change.DataSize()))
		}
		metric.IncStoreRows(meta.Name, string(resp.Rows[i].Code))
	}

	if err := batch.Commit(s.writeOptions()); err != nil {
		return nil, err
	}

	if ce := s.logger.Check(zap.DebugLevel, "batch applied"); ce != nil {
		ce.Write(log.TableField(meta.Name),
			log.RequestIDField(req.ID),
			log.RowsField(len(req.Rows)))
	}
	return resp, nil
}

// applyRow returns a *transport.RowError if the row is rejected
func (s *Store) applyRow(batch *pebble.Batch, meta schema.TableMeta, change *row.Change, now int64) error {
	if err := checkChange(meta, change); err != nil {
		return err
	}

	if s.limiter != nil && s.limiter.TakeAvailable(1) == 0 {
		return transport.NewRowError(transport.NotEnoughCapacityUnit,
			"write capacity %d rows/s exhausted", s.cfg.WriteCapacity)
	}

	rowPrefix := rowKeyPrefix(meta.Name, change.PrimaryKey)
	if err := checkCondition(batch, rowPrefix, change.Condition); err != nil {
		return err
	}

	switch change.Type {
	case row.PutChange:
		if err := deletePrefix(batch, rowPrefix); err != nil {
			return err
		}
		return putColumns(batch, rowPrefix, change.Operations, now)
	case row.UpdateChange:
		return putColumns(batch, rowPrefix, change.Operations, now)
	case row.DeleteChange:
		return deletePrefix(batch, rowPrefix)
	}
	return transport.NewRowError(transport.ParameterInvalid, "unknown change type %d", change.Type)
}

func checkChange(meta schema.TableMeta, change *row.Change) error {
	if change.Table != "" && change.Table != meta.Name {
		return transport.NewRowError(transport.ParameterInvalid,
			"row of table %s in request of table %s", change.Table, meta.Name)
	}
	if err := meta.CheckPrimaryKey(change.PrimaryKey); err != nil {
		return transport.NewRowError(transport.ParameterInvalid, "%s", err.Error())
	}

	for _, op := range change.Operations {
		if meta.IsPrimaryKeyColumn(op.Column.Name) {
			return transport.NewRowError(transport.ParameterInvalid,
				"attribute column %s is a primary key column", op.Column.Name)
		}
		if change.Type == row.DeleteChange ||
			(change.Type == row.PutChange && op.Type != row.OpPut) {
			return transport.NewRowError(transport.ParameterInvalid,
				"operation %d not allowed in %s change", op.Type, change.Type)
		}
		if op.Type == row.OpDelete && op.Column.Timestamp == nil {
			return transport.NewRowError(transport.ParameterInvalid,
				"delete column %s without timestamp", op.Column.Name)
		}
	}
	return nil
}

func checkCondition(batch *pebble.Batch, rowPrefix []byte, cond row.Condition) error {
	if cond.RowExistence != row.Ignore {
		exists, err := keyExists(batch, rowMarkerKey(rowPrefix))
		if err != nil {
			return err
		}
		if cond.RowExistence == row.ExpectExist && !exists {
			return transport.NewRowError(transport.ConditionCheckFail, "row not exist")
		}
		if cond.RowExistence == row.ExpectNotExist && exists {
			return transport.NewRowError(transport.ConditionCheckFail, "row already exists")
		}
	}

	if cond.Column == nil {
		return nil
	}

	current, err := latestValue(batch, columnKeyPrefix(rowPrefix, cond.Column.Column))
	if err != nil {
		return err
	}
	ok, err := cond.Column.Match(current)
	if err != nil {
		return transport.NewRowError(transport.DataTypeMismatch, "%s", err.Error())
	}
	if !ok {
		return transport.NewRowError(transport.ConditionCheckFail,
			"column condition on %s failed", cond.Column.Column)
	}
	return nil
}

func putColumns(batch *pebble.Batch, rowPrefix []byte, ops []row.ColumnOperation, now int64) error {
	if err := batch.Set(rowMarkerKey(rowPrefix), nil, nil); err != nil {
		return err
	}

	for _, op := range ops {
		switch op.Type {
		case row.OpPut:
			ts := now
			if op.Column.Timestamp != nil {
				ts = *op.Column.Timestamp
			}
			err := batch.Set(cellKey(rowPrefix, op.Column.Name, ts),
				row.EncodeValue(nil, op.Column.Value), nil)
			if err != nil {
				return err
			}
		case row.OpDelete:
			if err := batch.Delete(cellKey(rowPrefix, op.Column.Name, *op.Column.Timestamp), nil); err != nil {
				return err
			}
		case row.OpDeleteAll:
			if err := deletePrefix(batch, columnKeyPrefix(rowPrefix, op.Column.Name)); err != nil {
				return err
			}
		default:
			return transport.NewRowError(transport.ParameterInvalid, "unknown operation %d", op.Type)
		}
	}
	return nil
}

func deletePrefix(batch *pebble.Batch, prefix []byte) error {
	var keys [][]byte
	iter := batch.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: row.PrefixEnd(prefix),
	})
	for valid := iter.First(); valid; valid = iter.Next() {
		key := make([]byte, len(iter.Key()))
		copy(key, iter.Key())
		keys = append(keys, key)
	}
	if err := iter.Close(); err != nil {
		return err
	}

	for _, key := range keys {
		if err := batch.Delete(key, nil); err != nil {
			return err
		}
	}
	return nil
}

func keyExists(batch *pebble.Batch, key []byte) (bool, error) {
	_, closer, err := batch.Get(key)
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	closer.Close()
	return true, nil
}

// latestValue returns nil if the column has no version
func latestValue(batch *pebble.Batch, columnPrefix []byte) (*row.Value, error) {
	iter := batch.NewIter(&pebble.IterOptions{
		LowerBound: columnPrefix,
		UpperBound: row.PrefixEnd(columnPrefix),
	})
	defer iter.Close()

	if !iter.First() {
		return nil, iter.Error()
	}
	value, err := row.DecodeValue(iter.Value())
	if err != nil {
		return nil, err
	}
	return &value, nil
}
