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

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matrixorigin/cubewriter/components/log"
	"github.com/matrixorigin/cubewriter/config"
	"github.com/matrixorigin/cubewriter/grafana"
	"github.com/matrixorigin/cubewriter/metric"
	"github.com/matrixorigin/cubewriter/server"
	"github.com/matrixorigin/cubewriter/storage"
	"go.uber.org/zap"
)

var (
	cfgFile           = flag.String("cfg", "", "toml config file")
	grafanaURL        = flag.String("grafana", "", "create the dashboard in the grafana at this address and exit")
	grafanaKey        = flag.String("grafana-key", "", "grafana api key")
	grafanaDataSource = flag.String("grafana-datasource", "Prometheus", "prometheus datasource of the dashboard")
)

func main() {
	flag.Parse()

	if *grafanaURL != "" {
		createDashboard()
		return
	}

	cfg := config.NewConfig()
	if *cfgFile != "" {
		c, err := config.Load(*cfgFile)
		if err != nil {
			log.GetDefaultZapLogger().Fatal("fail to load config",
				zap.String("file", *cfgFile),
				zap.Error(err))
		}
		cfg = c
	}

	logger := log.GetLoggerWithLevelName(cfg.Log.Level)
	store, err := storage.NewStore(cfg.Store, storage.WithLogger(logger))
	if err != nil {
		logger.Fatal("fail to open store", zap.Error(err))
	}

	s, err := server.NewServer(cfg.Server, store, logger)
	if err != nil {
		logger.Fatal("fail to create server", zap.Error(err))
	}
	if err := s.Start(); err != nil {
		logger.Fatal("fail to start server", zap.Error(err))
	}

	stopC := make(chan struct{})
	metric.StartPush(cfg.Metric, stopC, logger)

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	sig := <-sc
	logger.Info("exit by signal",
		zap.String("signal", sig.String()))

	close(stopC)
	s.Stop()
	if err := store.Close(); err != nil {
		logger.Error("fail to close store", zap.Error(err))
	}
}

func createDashboard() {
	logger := log.GetDefaultZapLogger()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	c := grafana.NewDashboardCreator(*grafanaURL, *grafanaKey, *grafanaDataSource)
	if err := c.Create(ctx); err != nil {
		logger.Fatal("fail to create dashboard",
			zap.String("grafana", *grafanaURL),
			zap.Error(err))
	}
	logger.Info("dashboard created",
		zap.String("grafana", *grafanaURL))
}
