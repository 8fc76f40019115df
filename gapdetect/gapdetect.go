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

package gapdetect

import (
	"github.com/packetd/serialacq/protocol"
)

// Report 序列号缺失分析结果
type Report struct {
	// Expected 参考区间为 [0, Expected)
	Expected int `json:"expected"`

	// Missing 参考区间内未出现的序列号 升序
	Missing []int64 `json:"missing"`

	// Dropped 等于 len(Missing)
	Dropped int `json:"dropped"`

	// Duplicates 重复出现的序列号次数 重复的序列号只按一次计入已出现
	Duplicates int `json:"duplicates"`

	// Unsequenced 不携带序列号的样本数
	Unsequenced int `json:"unsequenced"`

	// OutOfRange 序列号不在参考区间内的样本数
	OutOfRange int `json:"outOfRange"`
}

// Config gapdetect 配置
//
// Expected 为 0 时使用会话的样本计数作为参考区间
type Config struct {
	Expected int  `config:"expected"`
	Annotate bool `config:"annotate"`
}

// FindDropped 计算 [0, expected) 区间内未出现的序列号
//
// 时间复杂度为 O(expected + len(samples))
func FindDropped(samples []*protocol.Sample, expected int) Report {
	if expected < 0 {
		expected = 0
	}

	r := Report{Expected: expected}
	present := make(map[int64]struct{}, len(samples))
	for _, s := range samples {
		if s == nil || !s.HasSequence() {
			r.Unsequenced++
			continue
		}
		if _, ok := present[s.Seq]; ok {
			r.Duplicates++
			continue
		}
		present[s.Seq] = struct{}{}
		if s.Seq >= int64(expected) {
			r.OutOfRange++
		}
	}

	r.Missing = make([]int64, 0)
	for i := int64(0); i < int64(expected); i++ {
		if _, ok := present[i]; !ok {
			r.Missing = append(r.Missing, i)
		}
	}
	r.Dropped = len(r.Missing)
	return r
}

// FindDroppedSeqs 对序列号列表执行 FindDropped 序列号为负数表示缺失
func FindDroppedSeqs(seqs []int64, expected int) Report {
	samples := make([]*protocol.Sample, 0, len(seqs))
	for _, seq := range seqs {
		samples = append(samples, &protocol.Sample{Seq: seq})
	}
	return FindDropped(samples, expected)
}
