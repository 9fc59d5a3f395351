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

package schema

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/matrixorigin/cubewriter/row"
)

var (
	// ErrSchemaMismatch the primary key does not match the table schema
	ErrSchemaMismatch = errors.New("primary key does not match table schema")
	// ErrInvalidSchema the table meta can not be used
	ErrInvalidSchema = errors.New("invalid table schema")
)

// PrimaryKeySchema is the name and type of a primary key column
type PrimaryKeySchema struct {
	Name string        `json:"name" toml:"name"`
	Type row.ValueType `json:"type" toml:"type"`
}

// TableMeta is the schema of a table
type TableMeta struct {
	Name       string             `json:"name" toml:"name"`
	PrimaryKey []PrimaryKeySchema `json:"primary-key" toml:"primary-key"`
}

// Provider returns table schemas
type Provider interface {
	// DescribeTable returns the schema of the table
	DescribeTable(ctx context.Context, table string) (TableMeta, error)
}

// Validate returns an error if the table meta can not be used to write rows
func (m TableMeta) Validate() error {
	if m.Name == "" {
		return errors.Wrap(ErrInvalidSchema, "empty table name")
	}
	if len(m.PrimaryKey) == 0 {
		return errors.Wrapf(ErrInvalidSchema, "table %s has no primary key", m.Name)
	}

	names := make(map[string]struct{}, len(m.PrimaryKey))
	for _, pk := range m.PrimaryKey {
		if pk.Name == "" {
			return errors.Wrapf(ErrInvalidSchema, "table %s has unnamed primary key column", m.Name)
		}
		if !pk.Type.IsPrimaryKeyType() {
			return errors.Wrapf(ErrInvalidSchema, "table %s primary key %s has type %s",
				m.Name, pk.Name, pk.Type)
		}
		if _, ok := names[pk.Name]; ok {
			return errors.Wrapf(ErrInvalidSchema, "table %s has duplicated primary key %s",
				m.Name, pk.Name)
		}
		names[pk.Name] = struct{}{}
	}
	return nil
}

// IsPrimaryKeyColumn returns true if name is a primary key column
func (m TableMeta) IsPrimaryKeyColumn(name string) bool {
	for _, pk := range m.PrimaryKey {
		if pk.Name == name {
			return true
		}
	}
	return false
}

// CheckPrimaryKey checks the primary key has the same columns, in the same order
// and with the same types as the table schema.
func (m TableMeta) CheckPrimaryKey(pk row.PrimaryKey) error {
	if len(pk.Columns) != len(m.PrimaryKey) {
		return errors.Wrapf(ErrSchemaMismatch, "expect %d primary key columns, got %d",
			len(m.PrimaryKey), len(pk.Columns))
	}

	for idx, c := range pk.Columns {
		expect := m.PrimaryKey[idx]
		if c.Name != expect.Name {
			return errors.Wrapf(ErrSchemaMismatch, "primary key column %d expect %s, got %s",
				idx, expect.Name, c.Name)
		}
		if c.Value.Type != expect.Type {
			return errors.Wrapf(ErrSchemaMismatch, "primary key %s expect %s, got %s",
				c.Name, expect.Type, c.Value.Type)
		}
	}
	return nil
}
