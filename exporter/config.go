// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package exporter

import (
	"net/url"
	"time"
)

const defaultTimeout = 15 * time.Second

type Config struct {
	Samples SamplesConfig `config:"samples"`
	Metrics MetricsConfig `config:"metrics"`
}

type SamplesConfig struct {
	Enabled    bool   `config:"enabled"`
	Console    bool   `config:"console"`
	Summary    bool   `config:"summary"`
	Filename   string `config:"filename"`
	MaxSize    int    `config:"maxSize"`
	MaxBackups int    `config:"maxBackups"`
	MaxAge     int    `config:"maxAge"`
}

func (sc *SamplesConfig) Validate() {
	if sc.Filename == "" {
		sc.Filename = "samples.jsonl"
	}
	if sc.MaxSize <= 0 {
		sc.MaxSize = 100
	}
	if sc.MaxAge <= 0 {
		sc.MaxAge = 7
	}
	if sc.MaxBackups <= 0 {
		sc.MaxBackups = 10
	}
}

type MetricsConfig struct {
	Enabled  bool              `config:"enabled"`
	Endpoint string            `config:"endpoint"`
	Header   map[string]string `config:"header"`
	Interval time.Duration     `config:"interval"`
	Timeout  time.Duration     `config:"timeout"`
}

func (mc *MetricsConfig) Validate() error {
	if _, err := url.Parse(mc.Endpoint); err != nil {
		return err
	}

	if mc.Timeout <= 0 {
		mc.Timeout = defaultTimeout
	}
	if mc.Interval <= 0 {
		mc.Interval = time.Minute
	}
	return nil
}
