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
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/packetd/serialacq/common"
	"github.com/packetd/serialacq/confengine"
)

func newError(format string, args ...any) error {
	format = "protocol: " + format
	return errors.Errorf(format, args...)
}

// ErrDecode 数据帧无法解码
var ErrDecode = newError("decode failure")

// DecodeError 记录解码失败的位置以及原因
//
// errors.Is(err, ErrDecode) 成立
type DecodeError struct {
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	return ErrDecode.Error() + ": offset " + strconv.Itoa(e.Offset) + ": " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

// Decoder 数据帧解码器定义
//
// 要求实现方支持流式解析 尾部不完整的对象会保留并拼接到下一次输入之前
type Decoder interface {
	// Decode 解析数据 不允许修改 b 的任何字节 如果有修改需求 请先 copy 一份
	//
	// t 为数据帧完整接收的时间
	// 同一个数据帧可能会解析出 0 / 1 / N 个 *Sample 按编码顺序返回
	// 返回错误时解码器状态会被重置 已经解析出的 *Sample 仍然有效
	Decode(b []byte, t time.Time) ([]*Sample, error)

	// Pending 返回等待拼接的字节数
	Pending() int

	// Reset 丢弃等待拼接的字节
	Reset()
}

// CreateDecoderFunc 创建 Decoder 的函数类型
type CreateDecoderFunc func(opts common.Options) (Decoder, error)

var decoderFactory = map[string]CreateDecoderFunc{}

// Register 注册 Decoder 工厂函数
func Register(name string, f CreateDecoderFunc) {
	decoderFactory[name] = f
}

// Get 获取 Decoder 工厂函数
func Get(name string) (CreateDecoderFunc, error) {
	f, ok := decoderFactory[name]
	if !ok {
		return nil, newError("decoder factory (%s) not found", name)
	}
	return f, nil
}

type Config struct {
	Name    string         `config:"name"`
	Options common.Options `config:"options"`
}

func New(conf *confengine.Config) (Decoder, error) {
	var cfg Config
	if err := conf.UnpackChild("protocol", &cfg); err != nil {
		return nil, err
	}
	return NewWithConfig(cfg)
}

func NewWithConfig(cfg Config) (Decoder, error) {
	if cfg.Name == "" {
		cfg.Name = "msgpack"
	}
	if cfg.Options == nil {
		cfg.Options = common.NewOptions()
	}

	f, err := Get(cfg.Name)
	if err != nil {
		return nil, err
	}
	return f(cfg.Options)
}
