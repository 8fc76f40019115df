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
	"time"

	"github.com/spf13/cast"

	"github.com/packetd/serialacq/common"
	"github.com/packetd/serialacq/protocol"
)

// Sinker 负责将数据 `写入` 到指定存储中
type Sinker interface {
	// Name Sinker 名称 实际为 record 类型
	Name() common.RecordType

	// Sink 写入函数
	Sink(data any) error

	// Close 关闭并进行资源清理
	Close() error
}

type CreateFunc func(Config) (Sinker, error)

var sinkFactory = map[common.RecordType]CreateFunc{}

func Get(name common.RecordType) CreateFunc {
	return sinkFactory[name]
}

func Register(name common.RecordType, createFunc CreateFunc) {
	sinkFactory[name] = createFunc
}

// SampleRecord 携带会话信息的样本
type SampleRecord struct {
	Session string
	Source  string
	Sample  *protocol.Sample
}

// Summary 会话汇总
type Summary struct {
	Session          string
	Source           string
	Start            time.Time
	Elapsed          time.Duration
	Samples          int
	Frames           int
	SamplesPerSecond float64
	DecodeFailures   int
	DisplayFailures  int
	Truncated        int
	Expected         int
	Dropped          int
	Duplicates       int
	Unsequenced      int
	Missing          []int64
	Err              string
}

const (
	KindSample  = "sample"
	KindSummary = "summary"
)

// SampleLine 样本文件中的一行 由 analyze 命令读取
type SampleLine struct {
	Kind       string    `json:"kind"`
	Session    string    `json:"session"`
	Seq        int64     `json:"seq"`
	Timestamp  int64     `json:"timestamp"`
	Status     int       `json:"status,omitempty"`
	StatusText string    `json:"statusText,omitempty"`
	ArrivedAt  time.Time `json:"arrivedAt"`
	Object     any       `json:"object,omitempty"`
}

// NewSampleLine 转换为样本文件中的样本行
func NewSampleLine(r *SampleRecord) SampleLine {
	smp := r.Sample
	return SampleLine{
		Kind:       KindSample,
		Session:    r.Session,
		Seq:        smp.Seq,
		Timestamp:  smp.Timestamp,
		Status:     smp.Status,
		StatusText: smp.StatusText,
		ArrivedAt:  smp.ArrivedAt,
		Object:     normalize(smp.Object),
	}
}

// normalize 将 map[any]any 转换为可被 JSON 编码的 map[string]any
func normalize(v any) any {
	switch val := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(val))
		for k, item := range val {
			m[cast.ToString(k)] = normalize(item)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, item := range val {
			m[k] = normalize(item)
		}
		return m
	case []any:
		lst := make([]any, 0, len(val))
		for _, item := range val {
			lst = append(lst, normalize(item))
		}
		return lst
	}
	return v
}

// SummaryLine 样本文件中的会话汇总行
type SummaryLine struct {
	Kind                string  `json:"kind"`
	Session             string  `json:"session"`
	Source              string  `json:"source"`
	Samples             int     `json:"samples"`
	DurationSeconds     float64 `json:"durationSeconds"`
	SamplesPerSecond    float64 `json:"samplesPerSecond"`
	Expected            int     `json:"expected"`
	TotalDroppedSamples int     `json:"total_dropped_samples"`
	Duplicates          int     `json:"duplicates"`
	DecodeFailures      int     `json:"decodeFailures"`
	Error               string  `json:"error,omitempty"`
}

// NewSummaryLine 转换为样本文件中的汇总行
func NewSummaryLine(s *Summary) SummaryLine {
	return SummaryLine{
		Kind:                KindSummary,
		Session:             s.Session,
		Source:              s.Source,
		Samples:             s.Samples,
		DurationSeconds:     s.Elapsed.Seconds(),
		SamplesPerSecond:    s.SamplesPerSecond,
		Expected:            s.Expected,
		TotalDroppedSamples: s.Dropped,
		Duplicates:          s.Duplicates,
		DecodeFailures:      s.DecodeFailures,
		Error:               s.Err,
	}
}
