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
	"encoding/binary"
	"math"

	"github.com/cockroachdb/errors"
)

const (
	intTag    byte = 0x10
	stringTag byte = 0x20
	binaryTag byte = 0x30
	boolTag   byte = 0x40
	doubleTag byte = 0x50

	escape     byte = 0x00
	escaped00  byte = 0xff
	terminator byte = 0x01
)

var (
	// ErrCorruptedValue the encoded value can not be decoded
	ErrCorruptedValue = errors.New("corrupted encoded value")
)

// EncodePrimaryKey appends the order-preserving encoding of pk to dst. Integers
// are encoded big-endian with the sign bit flipped, strings and binaries are
// escaped and terminated, so the encoding of a key is never a prefix of another.
func EncodePrimaryKey(dst []byte, pk PrimaryKey) []byte {
	for _, c := range pk.Columns {
		dst = encodeOrderedValue(dst, c.Value)
	}
	return dst
}

func encodeOrderedValue(dst []byte, v Value) []byte {
	switch v.Type {
	case TypeInteger:
		dst = append(dst, intTag)
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(v.Int)^(1<<63))
		return append(dst, b[:]...)
	case TypeString:
		dst = append(dst, stringTag)
		return appendEscaped(dst, []byte(v.Str))
	case TypeBinary:
		dst = append(dst, binaryTag)
		return appendEscaped(dst, v.Bin)
	}
	// only primary key types are order encoded, others use their value encoding
	return EncodeValue(dst, v)
}

// EncodeString appends the order-preserving, prefix-free encoding of s to dst
func EncodeString(dst []byte, s string) []byte {
	return appendEscaped(dst, []byte(s))
}

// DecodeString decodes a string encoded by EncodeString, returns the string and
// the remaining data.
func DecodeString(data []byte) (string, []byte, error) {
	var buf []byte
	for i := 0; i < len(data); i++ {
		if data[i] != escape {
			buf = append(buf, data[i])
			continue
		}
		if i+1 >= len(data) {
			return "", nil, ErrCorruptedValue
		}
		switch data[i+1] {
		case terminator:
			return string(buf), data[i+2:], nil
		case escaped00:
			buf = append(buf, escape)
			i++
		default:
			return "", nil, ErrCorruptedValue
		}
	}
	return "", nil, ErrCorruptedValue
}

func appendEscaped(dst, value []byte) []byte {
	for _, b := range value {
		if b == escape {
			dst = append(dst, escape, escaped00)
			continue
		}
		dst = append(dst, b)
	}
	return append(dst, escape, terminator)
}

// EncodeValue appends the storage encoding of v to dst.
func EncodeValue(dst []byte, v Value) []byte {
	switch v.Type {
	case TypeInteger:
		dst = append(dst, intTag)
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(v.Int))
		return append(dst, b[:]...)
	case TypeString:
		dst = append(dst, stringTag)
		return append(dst, v.Str...)
	case TypeBinary:
		dst = append(dst, binaryTag)
		return append(dst, v.Bin...)
	case TypeBoolean:
		if v.Bool {
			return append(dst, boolTag, 1)
		}
		return append(dst, boolTag, 0)
	case TypeDouble:
		dst = append(dst, doubleTag)
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], math.Float64bits(v.Double))
		return append(dst, b[:]...)
	}
	return dst
}

// DecodeValue decodes a value encoded by EncodeValue. Binary and string data is
// copied.
func DecodeValue(data []byte) (Value, error) {
	if len(data) == 0 {
		return Value{}, ErrCorruptedValue
	}

	payload := data[1:]
	switch data[0] {
	case intTag:
		if len(payload) != 8 {
			return Value{}, ErrCorruptedValue
		}
		return IntegerValue(int64(binary.BigEndian.Uint64(payload))), nil
	case stringTag:
		return StringValue(string(payload)), nil
	case binaryTag:
		v := make([]byte, len(payload))
		copy(v, payload)
		return BinaryValue(v), nil
	case boolTag:
		if len(payload) != 1 {
			return Value{}, ErrCorruptedValue
		}
		return BooleanValue(payload[0] == 1), nil
	case doubleTag:
		if len(payload) != 8 {
			return Value{}, ErrCorruptedValue
		}
		return DoubleValue(math.Float64frombits(binary.BigEndian.Uint64(payload))), nil
	}
	return Value{}, errors.Wrapf(ErrCorruptedValue, "unknown tag %x", data[0])
}

// PrefixEnd returns the smallest key greater than every key with the given prefix,
// or nil if there is none.
func PrefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
