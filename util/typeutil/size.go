// Copyright 2021 MatrixOrigin.
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

package typeutil

import (
	"github.com/docker/go-units"
)

// ByteSize is a retype uint64 for TOML. Values are written as "4MB", "512KiB" or a
// plain number of bytes.
type ByteSize uint64

// UnmarshalText parses a Toml string into the byte size.
func (b *ByteSize) UnmarshalText(text []byte) error {
	v, err := units.RAMInBytes(string(text))
	if err != nil {
		return err
	}
	*b = ByteSize(v)
	return nil
}

// MarshalText returns the human readable size.
func (b ByteSize) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// String implements fmt.Stringer.
func (b ByteSize) String() string {
	return units.BytesSize(float64(b))
}

// Int64 returns the size as int64.
func (b ByteSize) Int64() int64 {
	return int64(b)
}
