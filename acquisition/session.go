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

package acquisition

import (
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/packetd/serialacq/common"
	"github.com/packetd/serialacq/protocol"
)

func newError(format string, args ...any) error {
	format = "acquisition: " + format
	return errors.Errorf(format, args...)
}

// Defaults 会话参数的默认值
type Defaults struct {
	MaxSamples int
	Duration   time.Duration
	Speed      int
}

// NewDefaults 返回设备的默认采集参数
func NewDefaults() Defaults {
	return Defaults{
		MaxSamples: common.DefaultMaxSamples,
		Duration:   common.DefaultDuration,
		Speed:      common.DefaultSpeed,
	}
}

// Params 单次会话的请求参数
//
// 字段为 nil 时使用 Defaults 中的值 显式传入 0 是合法的请求
type Params struct {
	MaxSamples *int
	Duration   *time.Duration
	Speed      *int
}

// Session 一次采集会话
//
// 仅允许采集循环修改 会话结束后可以安全地读取
type Session struct {
	ID string

	MaxSamples    int
	Duration      time.Duration
	Speed         int
	MaxSampleTime float64

	Samples   []*protocol.Sample
	Counter   int
	StartTime time.Time
	EndTime   time.Time

	Frames          int
	DecodeFailures  int
	DecodeErr       *multierror.Error
	DisplayFailures int
	Truncated       int
}

// NewSession 解析参数并创建会话
func NewSession(d Defaults, p Params) (*Session, error) {
	s := &Session{
		ID:         uuid.New().String(),
		MaxSamples: d.MaxSamples,
		Duration:   d.Duration,
		Speed:      d.Speed,
	}
	if p.MaxSamples != nil {
		s.MaxSamples = *p.MaxSamples
	}
	if p.Duration != nil {
		s.Duration = *p.Duration
	}
	if p.Speed != nil {
		s.Speed = *p.Speed
	}

	if s.MaxSamples < 0 {
		return nil, newError("negative max samples (%d)", s.MaxSamples)
	}
	if s.Duration < 0 {
		return nil, newError("negative duration (%v)", s.Duration)
	}
	if s.Speed < 0 {
		return nil, newError("negative speed (%d)", s.Speed)
	}

	s.MaxSampleTime = s.Duration.Seconds() * float64(s.Speed)
	return s, nil
}

// Reached 返回是否已经达到任一上限
func (s *Session) Reached() bool {
	return s.Counter >= s.MaxSamples || float64(s.Counter) >= s.MaxSampleTime
}

// Elapsed 返回采集耗时
func (s *Session) Elapsed() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// ElapsedSeconds 返回以秒为单位的采集耗时
func (s *Session) ElapsedSeconds() float64 {
	return s.Elapsed().Seconds()
}

// SamplesPerSecond 返回实际采样率 耗时为 0 时返回 0
func (s *Session) SamplesPerSecond() float64 {
	sec := s.ElapsedSeconds()
	if sec <= 0 {
		return 0
	}
	return float64(s.Counter) / sec
}
