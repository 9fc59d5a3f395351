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

import (
	"bytes"
)

// PrimaryKeyColumn is one part of a primary key
type PrimaryKeyColumn struct {
	Name  string `json:"name"`
	Value Value  `json:"value"`
}

// PrimaryKey is the ordered list of primary key columns of a row
type PrimaryKey struct {
	Columns []PrimaryKeyColumn `json:"columns"`
}

// NewPrimaryKey returns a primary key with the given columns
func NewPrimaryKey(columns ...PrimaryKeyColumn) PrimaryKey {
	return PrimaryKey{Columns: columns}
}

// AddColumn appends a primary key column
func (pk *PrimaryKey) AddColumn(name string, value Value) *PrimaryKey {
	pk.Columns = append(pk.Columns, PrimaryKeyColumn{Name: name, Value: value})
	return pk
}

// Size returns the data size of all primary key columns, names included
func (pk PrimaryKey) Size() int64 {
	size := int64(0)
	for _, c := range pk.Columns {
		size += int64(len(c.Name)) + c.Value.Size()
	}
	return size
}

// Encode returns the order-preserving encoding of the primary key values. Two
// primary keys have the same encoding iff their values are equal, so the encoding
// is used to hash, deduplicate and store rows.
func (pk PrimaryKey) Encode() []byte {
	return EncodePrimaryKey(nil, pk)
}

// Equal returns true if the primary keys have the same values
func (pk PrimaryKey) Equal(other PrimaryKey) bool {
	return bytes.Equal(pk.Encode(), other.Encode())
}

func (pk PrimaryKey) String() string {
	var buf bytes.Buffer
	buf.WriteString("[")
	for idx, c := range pk.Columns {
		if idx > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(c.Name)
		buf.WriteString(":")
		buf.WriteString(c.Value.String())
	}
	buf.WriteString("]")
	return buf.String()
}
