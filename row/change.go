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

package row

const (
	timestampSize = 8
)

// ChangeType type of a row change
type ChangeType int

const (
	// PutChange replaces the whole row
	PutChange ChangeType = iota + 1
	// UpdateChange puts or deletes some columns of the row
	UpdateChange
	// DeleteChange deletes the whole row
	DeleteChange
)

func (t ChangeType) String() string {
	switch t {
	case PutChange:
		return "PUT"
	case UpdateChange:
		return "UPDATE"
	case DeleteChange:
		return "DELETE"
	}
	return "UNKNOWN"
}

// OperationType type of a column operation
type OperationType int

const (
	// OpPut writes a version of the column
	OpPut OperationType = iota + 1
	// OpDelete deletes the version of the column given by the timestamp
	OpDelete
	// OpDeleteAll deletes all versions of the column
	OpDeleteAll
)

// Column is an attribute column. Timestamp is the explicit version, nil means the
// store assigns one.
type Column struct {
	Name      string `json:"name"`
	Value     Value  `json:"value"`
	Timestamp *int64 `json:"timestamp,omitempty"`
}

// Size returns the data size of the column
func (c Column) Size() int64 {
	size := int64(len(c.Name)) + c.Value.Size()
	if c.Timestamp != nil {
		size += timestampSize
	}
	return size
}

// ColumnOperation is an operation on an attribute column
type ColumnOperation struct {
	Type   OperationType `json:"type"`
	Column Column        `json:"column"`
}

// Change is a put, update or delete of a single row. A change must not be modified
// after it has been submitted to a writer.
type Change struct {
	Table      string            `json:"table"`
	Type       ChangeType        `json:"type"`
	PrimaryKey PrimaryKey        `json:"primary-key"`
	Operations []ColumnOperation `json:"operations,omitempty"`
	Condition  Condition         `json:"condition"`
}

// NewPutChange returns a change that replaces the row
func NewPutChange(table string, pk PrimaryKey) *Change {
	return &Change{Table: table, Type: PutChange, PrimaryKey: pk}
}

// NewUpdateChange returns a change that modifies some columns of the row
func NewUpdateChange(table string, pk PrimaryKey) *Change {
	return &Change{Table: table, Type: UpdateChange, PrimaryKey: pk}
}

// NewDeleteChange returns a change that deletes the row
func NewDeleteChange(table string, pk PrimaryKey) *Change {
	return &Change{Table: table, Type: DeleteChange, PrimaryKey: pk}
}

// AddColumn puts a column, the version is assigned by the store
func (c *Change) AddColumn(name string, value Value) *Change {
	c.Operations = append(c.Operations, ColumnOperation{
		Type:   OpPut,
		Column: Column{Name: name, Value: value},
	})
	return c
}

// AddColumnWithTimestamp puts a column with an explicit version
func (c *Change) AddColumnWithTimestamp(name string, value Value, ts int64) *Change {
	c.Operations = append(c.Operations, ColumnOperation{
		Type:   OpPut,
		Column: Column{Name: name, Value: value, Timestamp: &ts},
	})
	return c
}

// DeleteColumn deletes one version of a column, update changes only
func (c *Change) DeleteColumn(name string, ts int64) *Change {
	c.Operations = append(c.Operations, ColumnOperation{
		Type:   OpDelete,
		Column: Column{Name: name, Timestamp: &ts},
	})
	return c
}

// DeleteColumns deletes all versions of a column, update changes only
func (c *Change) DeleteColumns(name string) *Change {
	c.Operations = append(c.Operations, ColumnOperation{
		Type:   OpDeleteAll,
		Column: Column{Name: name},
	})
	return c
}

// SetCondition sets the precondition
func (c *Change) SetCondition(cond Condition) *Change {
	c.Condition = cond
	return c
}

// ColumnCount returns the number of attribute column operations
func (c *Change) ColumnCount() int {
	return len(c.Operations)
}

// DataSize returns the estimated serialized size of the change
func (c *Change) DataSize() int64 {
	size := c.PrimaryKey.Size()
	for _, op := range c.Operations {
		size += op.Column.Size()
	}
	return size + c.Condition.Size()
}
