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

package tcp

import (
	"time"

	"github.com/matrixorigin/cubewriter/components/log"
	"go.uber.org/zap"
)

// Option client option
type Option func(*options)

type options struct {
	logger            *zap.Logger
	maxBodySize       int
	rpcTimeout        time.Duration
	connectTimeout    time.Duration
	reconnectInterval time.Duration
	sendBatch         int64
}

func (opts *options) adjust() {
	opts.logger = log.Adjust(opts.logger).Named("tcp-client")
	if opts.rpcTimeout == 0 {
		opts.rpcTimeout = time.Second * 30
	}
	if opts.connectTimeout == 0 {
		opts.connectTimeout = time.Second * 10
	}
	if opts.reconnectInterval == 0 {
		opts.reconnectInterval = time.Millisecond * 200
	}
	if opts.sendBatch == 0 {
		opts.sendBatch = 16
	}
}

// WithLogger set logger
func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

// WithMaxBodySize set max body bytes for decode message
func WithMaxBodySize(value int) Option {
	return func(opts *options) {
		opts.maxBodySize = value
	}
}

// WithRPCTimeout set the timeout of a rpc, used if the context has no deadline
func WithRPCTimeout(value time.Duration) Option {
	return func(opts *options) {
		opts.rpcTimeout = value
	}
}

// WithConnectTimeout set timeout of connecting to server
func WithConnectTimeout(value time.Duration) Option {
	return func(opts *options) {
		opts.connectTimeout = value
	}
}

// WithReconnectInterval set the interval between reconnecting
func WithReconnectInterval(value time.Duration) Option {
	return func(opts *options) {
		opts.reconnectInterval = value
	}
}

// WithSendBatch set batch size for sending messages
func WithSendBatch(value int64) Option {
	return func(opts *options) {
		opts.sendBatch = value
	}
}
