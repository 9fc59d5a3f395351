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

package log

import (
	"encoding/hex"

	"go.uber.org/zap"
)

// TableField returns zap.StringField
func TableField(name string) zap.Field {
	return zap.String("table", name)
}

// BucketField returns zap.IntField
func BucketField(index int) zap.Field {
	return zap.Int("bucket", index)
}

// BatchIDField returns zap.Uint64Field
func BatchIDField(id uint64) zap.Field {
	return zap.Uint64("batch-id", id)
}

// RowsField returns zap.IntField
func RowsField(count int) zap.Field {
	return zap.Int("rows", count)
}

// BytesField returns zap.Int64Field
func BytesField(size int64) zap.Field {
	return zap.Int64("bytes", size)
}

// AttemptField returns zap.IntField
func AttemptField(attempt int) zap.Field {
	return zap.Int("attempt", attempt)
}

// WorkerField returns zap.IntField
func WorkerField(index int) zap.Field {
	return zap.Int("worker-index", index)
}

// ReasonField returns zap.StringField
func ReasonField(why string) zap.Field {
	return zap.String("reason", why)
}

// RowIDField returns zap.StringField
func RowIDField(id string) zap.Field {
	return zap.String("row-id", id)
}

// RequestIDField returns zap.Uint64Field
func RequestIDField(id uint64) zap.Field {
	return zap.Uint64("request-id", id)
}

// PrimaryKeyField returns zap.StringField, use hex.EncodeToString as string value
func PrimaryKeyField(encoded []byte) zap.Field {
	if len(encoded) == 0 {
		return zap.String("primary-key", "")
	}
	return zap.String("primary-key", hex.EncodeToString(encoded))
}

// ListenAddressField return address field
func ListenAddressField(address string) zap.Field {
	return zap.String("listen-address", address)
}

// RemoteAddressField return remote address field
func RemoteAddressField(address string) zap.Field {
	return zap.String("remote-address", address)
}

// ErrorCodeField returns zap.StringField
func ErrorCodeField(code string) zap.Field {
	return zap.String("error-code", code)
}
