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

package common

// RecordType 导出数据的类型
type RecordType string

const (
	// RecordSamples 单个解码样本
	RecordSamples RecordType = "samples"

	// RecordSummary 会话结束后的汇总
	RecordSummary RecordType = "summary"
)

// Record 交由 exporter 处理的数据
type Record struct {
	RecordType RecordType
	Data       any
}
