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

package metric

import (
	"time"

	"github.com/matrixorigin/cubewriter/components/log"
	"github.com/matrixorigin/cubewriter/config"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

// StartPush start pushing metrics to the prometheus pushgateway until stopC is
// closed. Returns false if pushing is disabled by the config.
func StartPush(cfg config.MetricConfig, stopC <-chan struct{}, logger *zap.Logger) bool {
	logger = log.Adjust(logger).Named("metric")
	if cfg.Interval <= 0 || cfg.Addr == "" || cfg.Job == "" {
		logger.Info("metric push disabled")
		return false
	}

	logger.Info("start push metric to prometheus pushgateway",
		zap.String("job", cfg.Job),
		zap.String("pushgateway", cfg.Addr),
		zap.Int("interval-seconds", cfg.Interval))

	pusher := push.New(cfg.Addr, cfg.Job).
		Gatherer(registry).
		Grouping("instance", cfg.GetInstance())
	go func() {
		timer := time.NewTicker(time.Second * time.Duration(cfg.Interval))
		defer timer.Stop()

		for {
			select {
			case <-stopC:
				return
			case <-timer.C:
				if err := pusher.Push(); err != nil {
					logger.Error("fail to push metric",
						zap.String("pushgateway", cfg.Addr),
						zap.Error(err))
				}
			}
		}
	}()
	return true
}
