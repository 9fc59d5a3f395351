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
	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"
)

func getEventListener(logger *zap.Logger) pebble.EventListener {
	return pebble.EventListener{
		BackgroundError: func(err error) {
			logger.Error("pebble background error", zap.Error(err))
		},
		CompactionEnd: func(info pebble.CompactionInfo) {
			logger.Debug(info.String())
		},
		FlushEnd: func(info pebble.FlushInfo) {
			logger.Debug(info.String())
		},
		DiskSlow: func(info pebble.DiskSlowInfo) {
			logger.Warn(info.String())
		},
		WriteStallBegin: func(info pebble.WriteStallBeginInfo) {
			logger.Warn(info.String())
		},
		WriteStallEnd: func() {
			logger.Info("write stall ended")
		},
	}
}
