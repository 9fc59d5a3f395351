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
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// ValueType is the type of a primary key or attribute column value
type ValueType int

const (
	// TypeInteger 64 bit signed integer
	TypeInteger ValueType = iota + 1
	// TypeString utf-8 string
	TypeString
	// TypeBinary raw bytes
	TypeBinary
	// TypeBoolean bool, attribute columns only
	TypeBoolean
	// TypeDouble float64, attribute columns only
	TypeDouble
)

var (
	// ErrTypeMismatch values of different types are compared
	ErrTypeMismatch = errors.New("value type mismatch")
)

func (t ValueType) String() string {
	switch t {
	case TypeInteger:
		return "INTEGER"
	case TypeString:
		return "STRING"
	case TypeBinary:
		return "BINARY"
	case TypeBoolean:
		return "BOOLEAN"
	case TypeDouble:
		return "DOUBLE"
	}
	return "UNKNOWN(" + strconv.Itoa(int(t)) + ")"
}

// MarshalText returns the type name, values and schemas are encoded with it on
// the wire and in the store.
func (t ValueType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses the type name, it accepts every name String returns.
func (t *ValueType) UnmarshalText(text []byte) error {
	name := strings.ToUpper(string(text))
	switch name {
	case "INTEGER", "INT":
		*t = TypeInteger
	case "STRING":
		*t = TypeString
	case "BINARY":
		*t = TypeBinary
	case "BOOLEAN", "BOOL":
		*t = TypeBoolean
	case "DOUBLE":
		*t = TypeDouble
	default:
		if strings.HasPrefix(name, "UNKNOWN(") && strings.HasSuffix(name, ")") {
			v, err := strconv.Atoi(name[len("UNKNOWN(") : len(name)-1])
			if err == nil {
				*t = ValueType(v)
				return nil
			}
		}
		return errors.Newf("unknown value type %q", text)
	}
	return nil
}

// IsPrimaryKeyType returns true if the type can be used in a primary key
func (t ValueType) IsPrimaryKeyType() bool {
	return t == TypeInteger || t == TypeString || t == TypeBinary
}

// Value is a typed column value. Only the field matching Type is meaningful.
type Value struct {
	Type   ValueType `json:"type"`
	Int    int64     `json:"int,omitempty"`
	Str    string    `json:"str,omitempty"`
	Bin    []byte    `json:"bin,omitempty"`
	Bool   bool      `json:"bool,omitempty"`
	Double float64   `json:"double,omitempty"`
}

// IntegerValue returns a integer value
func IntegerValue(v int64) Value {
	return Value{Type: TypeInteger, Int: v}
}

// StringValue returns a string value
func StringValue(v string) Value {
	return Value{Type: TypeString, Str: v}
}

// BinaryValue returns a binary value
func BinaryValue(v []byte) Value {
	return Value{Type: TypeBinary, Bin: v}
}

// BooleanValue returns a boolean value
func BooleanValue(v bool) Value {
	return Value{Type: TypeBoolean, Bool: v}
}

// DoubleValue returns a double value
func DoubleValue(v float64) Value {
	return Value{Type: TypeDouble, Double: v}
}

// Size returns the number of bytes the value occupies on the wire
func (v Value) Size() int64 {
	switch v.Type {
	case TypeInteger, TypeDouble:
		return 8
	case TypeString:
		return int64(len(v.Str))
	case TypeBinary:
		return int64(len(v.Bin))
	case TypeBoolean:
		return 1
	}
	return 0
}

// Compare compares two values of the same type, returns -1, 0 or 1.
func (v Value) Compare(other Value) (int, error) {
	if v.Type != other.Type {
		return 0, errors.Wrapf(ErrTypeMismatch, "%s vs %s", v.Type, other.Type)
	}

	switch v.Type {
	case TypeInteger:
		return compareInt64(v.Int, other.Int), nil
	case TypeString:
		return strings.Compare(v.Str, other.Str), nil
	case TypeBinary:
		return bytes.Compare(v.Bin, other.Bin), nil
	case TypeBoolean:
		if v.Bool == other.Bool {
			return 0, nil
		}
		if !v.Bool {
			return -1, nil
		}
		return 1, nil
	case TypeDouble:
		switch {
		case v.Double < other.Double:
			return -1, nil
		case v.Double > other.Double:
			return 1, nil
		}
		return 0, nil
	}
	return 0, errors.Newf("can not compare value of type %s", v.Type)
}

func (v Value) String() string {
	switch v.Type {
	case TypeInteger:
		return strconv.FormatInt(v.Int, 10)
	case TypeString:
		return strconv.Quote(v.Str)
	case TypeBinary:
		return fmt.Sprintf("0x%x", v.Bin)
	case TypeBoolean:
		return strconv.FormatBool(v.Bool)
	case TypeDouble:
		return strconv.FormatFloat(v.Double, 'g', -1, 64)
	}
	return "<invalid>"
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
