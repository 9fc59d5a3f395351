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
	"github.com/cockroachdb/errors"
	"github.com/matrixorigin/cubewriter/config"
	"github.com/matrixorigin/cubewriter/row"
	"github.com/matrixorigin/cubewriter/schema"
)

// validator checks changes against the table schema and the size limits before
// they are admitted
type validator struct {
	meta              schema.TableMeta
	maxColumns        int
	maxPKColumnSize   int64
	maxAttrColumnSize int64
	maxRowSize        int64
}

func newValidator(meta schema.TableMeta, cfg config.WriterConfig) validator {
	return validator{
		meta:              meta,
		maxColumns:        cfg.MaxColumnsCount,
		maxPKColumnSize:   cfg.MaxPKColumnSize.Int64(),
		maxAttrColumnSize: cfg.MaxAttrColumnSize.Int64(),
		maxRowSize:        cfg.MaxBatchSize.Int64(),
	}
}

func (v validator) validate(change *row.Change) *ValidationError {
	if change == nil {
		return newValidationError(nil, "nil change")
	}
	if change.Table != "" && change.Table != v.meta.Name {
		return newValidationError(change, "change of table %s written to table %s",
			change.Table, v.meta.Name)
	}
	if err := v.meta.CheckPrimaryKey(change.PrimaryKey); err != nil {
		return newValidationError(change, "%s", err.Error())
	}
	for _, c := range change.PrimaryKey.Columns {
		if size := c.Value.Size(); size > v.maxPKColumnSize {
			return newValidationError(change, "primary key %s has %d bytes, max %d",
				c.Name, size, v.maxPKColumnSize)
		}
	}

	if n := change.ColumnCount(); n > v.maxColumns {
		return newValidationError(change, "%d columns, max %d", n, v.maxColumns)
	}
	for _, op := range change.Operations {
		if err := v.validateOperation(change.Type, op); err != nil {
			return newValidationError(change, "%s", err.Error())
		}
	}
	switch change.Type {
	case row.PutChange, row.DeleteChange:
	case row.UpdateChange:
		if len(change.Operations) == 0 {
			return newValidationError(change, "update without columns")
		}
	default:
		return newValidationError(change, "unknown change type %d", change.Type)
	}

	if size := change.DataSize(); size > v.maxRowSize {
		return newValidationError(change, "row has %d bytes, max %d", size, v.maxRowSize)
	}
	return nil
}

func (v validator) validateOperation(tp row.ChangeType, op row.ColumnOperation) error {
	if op.Column.Name == "" {
		return errors.New("unnamed column")
	}
	if v.meta.IsPrimaryKeyColumn(op.Column.Name) {
		return errors.Newf("column %s is a primary key column", op.Column.Name)
	}

	switch tp {
	case row.DeleteChange:
		return errors.Newf("column %s in delete change", op.Column.Name)
	case row.PutChange:
		if op.Type != row.OpPut {
			return errors.Newf("column %s is not put in put change", op.Column.Name)
		}
	}

	switch op.Type {
	case row.OpPut:
		if size := op.Column.Value.Size(); size > v.maxAttrColumnSize {
			return errors.Newf("column %s has %d bytes, max %d",
				op.Column.Name, size, v.maxAttrColumnSize)
		}
	case row.OpDelete:
		if op.Column.Timestamp == nil {
			return errors.Newf("delete column %s without timestamp", op.Column.Name)
		}
	case row.OpDeleteAll:
	default:
		return errors.Newf("unknown operation %d of column %s", op.Type, op.Column.Name)
	}
	return nil
}
