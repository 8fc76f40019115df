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

package controller

import (
	"time"

	"github.com/packetd/serialacq/acquisition"
	"github.com/packetd/serialacq/gapdetect"
)

type Config struct {
	// Acquisition 采集会话参数
	Acquisition AcquisitionConfig `config:"acquisition"`

	// GapDetect 会话结束后的序列号缺失分析
	GapDetect gapdetect.Config `config:"gapdetect"`
}

type AcquisitionConfig struct {
	// MaxSamples/Duration/Speed 未配置时使用默认值 显式配置 0 是合法的
	MaxSamples *int           `config:"maxSamples"`
	Duration   *time.Duration `config:"duration"`
	Speed      *int           `config:"speed"`

	// DecodePolicy 解码失败时的处理策略 skip 或 abort
	DecodePolicy string `config:"decodePolicy"`

	// WarmUp 计时开始前读取并丢弃一帧
	WarmUp bool `config:"warmUp"`

	// Sessions agent 模式下执行的会话数 0 表示不限制
	Sessions int `config:"sessions"`

	// Interval 两次会话之间的间隔
	Interval time.Duration `config:"interval"`
}

func (c AcquisitionConfig) Params() acquisition.Params {
	return acquisition.Params{
		MaxSamples: c.MaxSamples,
		Duration:   c.Duration,
		Speed:      c.Speed,
	}
}

func (c AcquisitionConfig) GetInterval() time.Duration {
	if c.Interval < 0 {
		return 0
	}
	return c.Interval
}
