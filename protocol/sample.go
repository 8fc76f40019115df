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

package protocol

import (
	"encoding/binary"
	"time"

	"github.com/spf13/cast"
)

// NoSequence 样本中不包含序列号
const NoSequence int64 = -1

// StatusOK 设备返回的正常状态码
const StatusOK = 200

// Sample 解码后的单个样本
//
// Object 保留解码得到的原始值 (标量 / 切片 / map)
// Seq 为设备单调递增的样本序号 缺失时为 NoSequence
type Sample struct {
	Object     any       `json:"object"`
	Seq        int64     `json:"seq"`
	Timestamp  int64     `json:"timestamp"`
	Status     int       `json:"status,omitempty"`
	StatusText string    `json:"statusText,omitempty"`
	ArrivedAt  time.Time `json:"arrivedAt"`
}

// HasSequence 返回样本是否携带序列号
func (s *Sample) HasSequence() bool {
	return s.Seq >= 0
}

// Keys 描述 map 类型样本中各字段的键名
type Keys struct {
	Sequence string `mapstructure:"sequenceKey"`
	Status   string `mapstructure:"statusKey"`
	Text     string `mapstructure:"textKey"`
	Data     string `mapstructure:"dataKey"`
}

// WithDefaults 未声明的键名使用 fallback 中的值
func (k Keys) WithDefaults(fallback Keys) Keys {
	if k.Sequence == "" {
		k.Sequence = fallback.Sequence
	}
	if k.Status == "" {
		k.Status = fallback.Status
	}
	if k.Text == "" {
		k.Text = fallback.Text
	}
	if k.Data == "" {
		k.Data = fallback.Data
	}
	return k
}

// 数据区布局
//
// [0:4]  timestamp     little-endian uint32
// [4:8]  sample number little-endian uint32
// [8:11] ads status    big-endian 24bit
// [11:]  8 个通道 每个 3 字节 不做解析
const (
	dataTimestampEnd = 4
	dataSequenceEnd  = 8
)

// NewSample 从解码得到的对象中提取序列号等字段
//
// 优先使用顶层的序列号键 其次从数据区的 [4:8] 字节中读取
func NewSample(obj any, t time.Time, keys Keys) *Sample {
	s := &Sample{
		Object:    obj,
		Seq:       NoSequence,
		Timestamp: -1,
		ArrivedAt: t,
	}

	lookup := mapLookup(obj)
	if lookup == nil {
		return s
	}

	if v, ok := lookup(keys.Status); ok {
		s.Status = cast.ToInt(v)
	}
	if v, ok := lookup(keys.Text); ok {
		s.StatusText = cast.ToString(v)
	}
	if v, ok := lookup(keys.Data); ok {
		if data := toBytes(v); len(data) >= dataSequenceEnd {
			s.Timestamp = int64(binary.LittleEndian.Uint32(data[:dataTimestampEnd]))
			s.Seq = int64(binary.LittleEndian.Uint32(data[dataTimestampEnd:dataSequenceEnd]))
		}
	}
	if v, ok := lookup(keys.Sequence); ok {
		if seq, err := cast.ToInt64E(v); err == nil && seq >= 0 {
			s.Seq = seq
		}
	}
	return s
}

func mapLookup(obj any) func(string) (any, bool) {
	switch m := obj.(type) {
	case map[string]any:
		return func(k string) (any, bool) {
			if k == "" {
				return nil, false
			}
			v, ok := m[k]
			return v, ok
		}
	case map[any]any:
		return func(k string) (any, bool) {
			if k == "" {
				return nil, false
			}
			v, ok := m[k]
			return v, ok
		}
	}
	return nil
}

func toBytes(v any) []byte {
	switch b := v.(type) {
	case []byte:
		return b
	case string:
		return []byte(b)
	}
	return nil
}
