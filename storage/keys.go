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
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/matrixorigin/cubewriter/row"
)

// Key layout:
//   m<table>                                     -> table meta
//   t<table>r<pk>m                               -> row marker
//   t<table>r<pk>c<column><^timestamp>           -> cell value
// Table and column names use the escaped string encoding and primary keys the
// ordered primary key encoding, all prefix-free. Timestamps are inverted so the
// latest version of a column comes first.
const (
	metaPrefix   byte = 'm'
	dataPrefix   byte = 't'
	rowSep       byte = 'r'
	markerSuffix byte = 'm'
	columnSep    byte = 'c'

	timestampLen = 8
)

var (
	errInvalidKey = errors.New("invalid cell key")
)

func metaKey(table string) []byte {
	return row.EncodeString([]byte{metaPrefix}, table)
}

func metaKeyPrefix() []byte {
	return []byte{metaPrefix}
}

func tableKeyPrefix(table string) []byte {
	return row.EncodeString([]byte{dataPrefix}, table)
}

func rowKeyPrefix(table string, pk row.PrimaryKey) []byte {
	key := tableKeyPrefix(table)
	key = append(key, rowSep)
	return row.EncodePrimaryKey(key, pk)
}

func rowMarkerKey(rowPrefix []byte) []byte {
	key := make([]byte, 0, len(rowPrefix)+1)
	key = append(key, rowPrefix...)
	return append(key, markerSuffix)
}

func columnKeyPrefix(rowPrefix []byte, column string) []byte {
	key := make([]byte, 0, len(rowPrefix)+len(column)+3+timestampLen)
	key = append(key, rowPrefix...)
	key = append(key, columnSep)
	return row.EncodeString(key, column)
}

func cellKey(rowPrefix []byte, column string, ts int64) []byte {
	key := columnKeyPrefix(rowPrefix, column)
	var v [timestampLen]byte
	binary.BigEndian.PutUint64(v[:], ^uint64(ts))
	return append(key, v[:]...)
}

// decodeCellKey returns the column name and timestamp of a key under rowPrefix,
// ok is false if the key is the row marker.
func decodeCellKey(rowPrefix, key []byte) (string, int64, bool, error) {
	if len(key) <= len(rowPrefix) {
		return "", 0, false, errInvalidKey
	}
	suffix := key[len(rowPrefix):]
	switch suffix[0] {
	case markerSuffix:
		return "", 0, false, nil
	case columnSep:
		column, remain, err := row.DecodeString(suffix[1:])
		if err != nil {
			return "", 0, false, err
		}
		if len(remain) != timestampLen {
			return "", 0, false, errInvalidKey
		}
		return column, int64(^binary.BigEndian.Uint64(remain)), true, nil
	}
	return "", 0, false, errInvalidKey
}
