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

import (
	"time"
)

const (
	// App 应用程序名称
	App = "serialacq"

	// Version 应用程序版本
	Version = "v0.1.0"

	// FrameSize 设备单帧固定长度
	//
	// 设备在 MessagePack 模式下每个采样点固定输出 38 字节
	FrameSize = 38

	// MaxPendingBytes 解码器允许缓存的未完整对象字节数上限
	//
	// 正常情况下每帧恰好包含一个完整对象 缓存仅用于跨帧拼接
	// 超出上限说明数据流已经错位 此时应重置解码状态
	MaxPendingBytes = 4096

	// MaxLineSize JSON Lines 模式下单行最大长度
	MaxLineSize = 4096
)

// 采集会话默认参数
const (
	DefaultMaxSamples = 100000
	DefaultDuration   = time.Second
	DefaultSpeed      = 16000
	DefaultBaudRate   = 115200
)
