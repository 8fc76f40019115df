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
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
)

// Options 解码器等组件的弹性配置项
type Options map[string]any

func NewOptions() Options {
	return make(Options)
}

func (o Options) GetInt(k string) (int, error) {
	return cast.ToIntE(o[k])
}

func (o Options) GetBool(k string) (bool, error) {
	return cast.ToBoolE(o[k])
}

func (o Options) GetString(k string) (string, error) {
	return cast.ToStringE(o[k])
}

// GetIntDefault 获取整型配置 不存在或者无法转换时返回 def
func (o Options) GetIntDefault(k string, def int) int {
	if _, ok := o[k]; !ok {
		return def
	}
	v, err := o.GetInt(k)
	if err != nil {
		return def
	}
	return v
}

func (o Options) Merge(k string, v any) {
	o[k] = v
}

// Unpack 将 Options 解析到结构体中 字段使用 `mapstructure` tag 声明
func (o Options) Unpack(to any) error {
	return mapstructure.Decode(map[string]any(o), to)
}
