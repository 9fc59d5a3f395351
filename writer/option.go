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

package writer

import (
	"go.uber.org/zap"
)

// Option writer option
type Option func(*options)

type options struct {
	logger             *zap.Logger
	callback           Callback
	transportOwnership bool
}

// WithLogger set logger of the writer
func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

// WithCallback set the callback, same as SetCallback
func WithCallback(cb Callback) Option {
	return func(opts *options) {
		opts.callback = cb
	}
}

// WithTransportOwnership the transport is closed by Writer.Close if it is an
// io.Closer
func WithTransportOwnership() Option {
	return func(opts *options) {
		opts.transportOwnership = true
	}
}
