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
	"os"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"github.com/matrixorigin/cubewriter/schema"
	"github.com/matrixorigin/cubewriter/util/typeutil"
)

var (
	defaultDataDir          = "/tmp/cube-tablestore"
	defaultServerAddr       = "127.0.0.1:20100"
	defaultMaxBodySize      = typeutil.ByteSize(64 * mb)
	defaultLogLevel         = "info"
	defaultMetricJob        = "cube-tablestore"
	defaultServerSendBatch  = int64(16)
	defaultServerReadBuffer = typeutil.ByteSize(64 * kb)
)

// Config is the configuration of the table store process and of the writers
// it hosts
type Config struct {
	// Writer config of writers created from this config
	Writer WriterConfig `toml:"writer"`
	// Store table store config
	Store StoreConfig `toml:"store"`
	// Server rpc server config
	Server ServerConfig `toml:"server"`
	// Metric push config
	Metric MetricConfig `toml:"metric"`
	// Log log config
	Log LogConfig `toml:"log"`
}

// StoreConfig table store config
type StoreConfig struct {
	// DataDir dir of the pebble database
	DataDir string `toml:"dir-data"`
	// UseMemory use a in-memory database, data is lost after the store is closed
	UseMemory bool `toml:"use-memory"`
	// Sync sync every write to disk
	Sync bool `toml:"sync"`
	// WriteCapacity rows per second the store accepts, 0 means no limit. Rows
	// exceeding the capacity fail with a retryable error.
	WriteCapacity int64 `toml:"write-capacity"`
	// Tables tables created on start if not exist
	Tables []schema.TableMeta `toml:"tables"`
}

// ServerConfig rpc server config
type ServerConfig struct {
	// Addr listen address
	Addr string `toml:"addr"`
	// MaxBodySize max size of a rpc message
	MaxBodySize typeutil.ByteSize `toml:"max-body-size"`
	// SendBatch async write batch of a session
	SendBatch int64 `toml:"send-batch"`
	// ReadBufferSize read buffer size of a session
	ReadBufferSize typeutil.ByteSize `toml:"read-buffer-size"`
}

// MetricConfig pushgateway config, pushing is disabled if Addr or Interval is not set
type MetricConfig struct {
	Addr     string `toml:"addr"`
	Interval int    `toml:"interval"`
	Job      string `toml:"job"`
	Instance string `toml:"instance"`
}

// LogConfig log config
type LogConfig struct {
	Level string `toml:"level"`
}

// NewConfig returns a config with all defaults
func NewConfig() *Config {
	c := &Config{}
	c.Adjust()
	return c
}

// Load loads config from the toml file, defaults are filled and the result is
// validated.
func Load(file string) (*Config, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "read config file %s", file)
	}
	return Parse(string(data))
}

// Parse parses config from toml content
func Parse(content string) (*Config, error) {
	c := &Config{}
	if _, err := toml.Decode(content, c); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	c.Adjust()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Adjust fills defaults
func (c *Config) Adjust() {
	(&c.Writer).Adjust()
	(&c.Store).adjust()
	(&c.Server).adjust()
	(&c.Metric).adjust()
	(&c.Log).adjust()
}

// Validate returns an error if the config is illegal
func (c *Config) Validate() error {
	if err := c.Writer.Validate(); err != nil {
		return err
	}
	return c.Store.validate()
}

func (c *StoreConfig) adjust() {
	if c.DataDir == "" {
		c.DataDir = defaultDataDir
	}
}

func (c StoreConfig) validate() error {
	if c.WriteCapacity < 0 {
		return errors.Newf("invalid store.write-capacity %d", c.WriteCapacity)
	}
	for _, t := range c.Tables {
		if err := t.Validate(); err != nil {
			return errors.Wrap(err, "invalid store.tables")
		}
	}
	return nil
}

func (c *ServerConfig) adjust() {
	if c.Addr == "" {
		c.Addr = defaultServerAddr
	}
	if c.MaxBodySize == 0 {
		c.MaxBodySize = defaultMaxBodySize
	}
	if c.SendBatch == 0 {
		c.SendBatch = defaultServerSendBatch
	}
	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = defaultServerReadBuffer
	}
}

func (c *MetricConfig) adjust() {
	if c.Job == "" {
		c.Job = defaultMetricJob
	}
}

// GetInstance returns the instance label of pushed metrics
func (c MetricConfig) GetInstance() string {
	if c.Instance != "" {
		return c.Instance
	}

	name, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return name
}

func (c *LogConfig) adjust() {
	if c.Level == "" {
		c.Level = defaultLogLevel
	}
}
