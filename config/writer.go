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

package config

import (
	"runtime"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/matrixorigin/cubewriter/util/typeutil"
)

var (
	kb = 1024
	mb = 1024 * kb

	defaultBucketCount       = 3
	defaultBufferSize        = 1024
	defaultBucketQueueSize   = 1024
	defaultMaxBatchRowsCount = 200
	defaultMaxBatchSize      = typeutil.ByteSize(4 * mb)
	defaultMaxColumnsCount   = 128
	defaultMaxPKColumnSize   = typeutil.ByteSize(kb)
	defaultMaxAttrColumnSize = typeutil.ByteSize(2 * mb)
	defaultConcurrency       = 10
	defaultFlushInterval     = time.Second * 10
	defaultMaxRetries        = 3
	defaultRetryBackoff      = time.Millisecond * 10
	defaultMaxRetryBackoff   = time.Second
	defaultRPCTimeout        = time.Second * 30
	defaultMaxDirtyRows      = 10000
)

// WriteMode controls how many batches of a bucket can be in flight
type WriteMode int

const (
	// Sequential at most one batch of a bucket is in flight, changes of the same
	// primary key are applied in submission order
	Sequential WriteMode = iota
	// Parallel up to Concurrency batches of a bucket are in flight
	Parallel
)

func (m WriteMode) String() string {
	if m == Parallel {
		return "parallel"
	}
	return "sequential"
}

// UnmarshalText implements encoding.TextUnmarshaler
func (m *WriteMode) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "sequential":
		*m = Sequential
	case "parallel":
		*m = Parallel
	default:
		return errors.Newf("unknown write mode %q", text)
	}
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (m WriteMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// DispatchMode controls how changes are assigned to buckets
type DispatchMode int

const (
	// HashPrimaryKey changes with the same primary key go to the same bucket
	HashPrimaryKey DispatchMode = iota
	// RoundRobin changes are spread over buckets in turn
	RoundRobin
)

func (m DispatchMode) String() string {
	if m == RoundRobin {
		return "round-robin"
	}
	return "hash-primary-key"
}

// UnmarshalText implements encoding.TextUnmarshaler
func (m *DispatchMode) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "hash-primary-key", "hash":
		*m = HashPrimaryKey
	case "round-robin":
		*m = RoundRobin
	default:
		return errors.Newf("unknown dispatch mode %q", text)
	}
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (m DispatchMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// WriterConfig batching writer config. Zero values are replaced by defaults in
// Adjust.
type WriterConfig struct {
	// Table the table all changes are written to
	Table string `toml:"table"`
	// WriteMode sequential or parallel
	WriteMode WriteMode `toml:"write-mode"`
	// DispatchMode hash-primary-key or round-robin
	DispatchMode DispatchMode `toml:"dispatch-mode"`
	// BucketCount number of buckets, each bucket has its own worker
	BucketCount int `toml:"bucket-count"`
	// BufferSize capacity of the ingestion buffer, rounded up to a power of two.
	// A negative value is left as is and fails Validate.
	BufferSize int `toml:"buffer-size"`
	// BucketQueueSize capacity of the queue of each bucket
	BucketQueueSize int `toml:"bucket-queue-size"`
	// MaxBatchRowsCount max rows of a batch
	MaxBatchRowsCount int `toml:"max-batch-rows-count"`
	// MaxBatchSize max data size of a batch
	MaxBatchSize typeutil.ByteSize `toml:"max-batch-size"`
	// MaxColumnsCount max attribute columns of a row
	MaxColumnsCount int `toml:"max-columns-count"`
	// MaxPKColumnSize max size of a primary key column value
	MaxPKColumnSize typeutil.ByteSize `toml:"max-pk-column-size"`
	// MaxAttrColumnSize max size of a attribute column value
	MaxAttrColumnSize typeutil.ByteSize `toml:"max-attr-column-size"`
	// AllowDuplicatedRowInBatchRequest allows changes of the same primary key
	// in one batch
	AllowDuplicatedRowInBatchRequest bool `toml:"allow-duplicated-row-in-batch-request"`
	// Concurrency max in flight batches of a bucket in parallel mode
	Concurrency int `toml:"concurrency"`
	// CallbackThreadCount number of workers invoking callbacks
	CallbackThreadCount int `toml:"callback-thread-count"`
	// FlushInterval a non-empty batch is sent at least once per interval
	FlushInterval typeutil.Duration `toml:"flush-interval"`
	// MaxRetries max times a row failed with a retryable error is sent again
	// after its first send, so a row is sent at most MaxRetries+1 times. 0 means
	// the default (3), a negative value disables retry.
	MaxRetries int `toml:"max-retries"`
	// RetryBackoff backoff before the first retry, doubled on every retry
	RetryBackoff typeutil.Duration `toml:"retry-backoff"`
	// MaxRetryBackoff upper bound of the backoff
	MaxRetryBackoff typeutil.Duration `toml:"max-retry-backoff"`
	// RPCTimeout timeout of a batch write rpc
	RPCTimeout typeutil.Duration `toml:"rpc-timeout"`
	// CollectDirtyRows keep rows failed permanently for manual retry
	CollectDirtyRows bool `toml:"collect-dirty-rows"`
	// MaxDirtyRows max kept dirty rows, the oldest is dropped when full
	MaxDirtyRows int `toml:"max-dirty-rows"`
}

// Adjust fills defaults
func (c *WriterConfig) Adjust() {
	if c.BucketCount == 0 {
		c.BucketCount = defaultBucketCount
	}
	if c.BufferSize == 0 {
		c.BufferSize = defaultBufferSize
	}
	if c.BufferSize > 0 {
		c.BufferSize = roundUpToPowerOfTwo(c.BufferSize)
	}
	if c.BucketQueueSize == 0 {
		c.BucketQueueSize = defaultBucketQueueSize
	}
	if c.MaxBatchRowsCount == 0 {
		c.MaxBatchRowsCount = defaultMaxBatchRowsCount
	}
	if c.MaxBatchSize == 0 {
		c.MaxBatchSize = defaultMaxBatchSize
	}
	if c.MaxColumnsCount == 0 {
		c.MaxColumnsCount = defaultMaxColumnsCount
	}
	if c.MaxPKColumnSize == 0 {
		c.MaxPKColumnSize = defaultMaxPKColumnSize
	}
	if c.MaxAttrColumnSize == 0 {
		c.MaxAttrColumnSize = defaultMaxAttrColumnSize
	}
	if c.Concurrency == 0 {
		c.Concurrency = defaultConcurrency
	}
	if c.CallbackThreadCount == 0 {
		c.CallbackThreadCount = runtime.NumCPU()
	}
	if c.FlushInterval.Duration == 0 {
		c.FlushInterval.Duration = defaultFlushInterval
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.RetryBackoff.Duration == 0 {
		c.RetryBackoff.Duration = defaultRetryBackoff
	}
	if c.MaxRetryBackoff.Duration == 0 {
		c.MaxRetryBackoff.Duration = defaultMaxRetryBackoff
	}
	if c.RPCTimeout.Duration == 0 {
		c.RPCTimeout.Duration = defaultRPCTimeout
	}
	if c.MaxDirtyRows == 0 {
		c.MaxDirtyRows = defaultMaxDirtyRows
	}
}

// Validate returns an error if the config is illegal
func (c WriterConfig) Validate() error {
	if c.BucketCount < 0 {
		return errors.Newf("invalid writer.bucket-count %d", c.BucketCount)
	}
	if c.BufferSize < 0 || c.BucketQueueSize < 0 {
		return errors.Newf("invalid writer buffer size %d/%d", c.BufferSize, c.BucketQueueSize)
	}
	if c.MaxBatchRowsCount < 0 {
		return errors.Newf("invalid writer.max-batch-rows-count %d", c.MaxBatchRowsCount)
	}
	if c.MaxColumnsCount < 0 {
		return errors.Newf("invalid writer.max-columns-count %d", c.MaxColumnsCount)
	}
	if c.Concurrency < 0 || c.CallbackThreadCount < 0 {
		return errors.Newf("invalid writer concurrency %d/%d", c.Concurrency, c.CallbackThreadCount)
	}
	if c.FlushInterval.Duration < 0 || c.RetryBackoff.Duration < 0 ||
		c.MaxRetryBackoff.Duration < 0 || c.RPCTimeout.Duration < 0 {
		return errors.New("invalid writer durations")
	}
	if c.MaxRetryBackoff.Duration < c.RetryBackoff.Duration {
		return errors.Newf("writer.max-retry-backoff %s less than writer.retry-backoff %s",
			c.MaxRetryBackoff, c.RetryBackoff)
	}
	if c.MaxDirtyRows < 0 {
		return errors.Newf("invalid writer.max-dirty-rows %d", c.MaxDirtyRows)
	}
	return nil
}

// InflightLimit returns the max in flight batches of a bucket
func (c WriterConfig) InflightLimit() int64 {
	if c.WriteMode == Parallel {
		return int64(c.Concurrency)
	}
	return 1
}

// RetryLimit returns the max times a failed row is sent again
func (c WriterConfig) RetryLimit() int {
	if c.MaxRetries < 0 {
		return 0
	}
	return c.MaxRetries
}

func roundUpToPowerOfTwo(v int) int {
	if v <= 1 {
		return 1
	}
	n := 1
	for n < v {
		n <<= 1
	}
	return n
}
