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

package source

import (
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/packetd/serialacq/common"
	"github.com/packetd/serialacq/confengine"
)

// Source 字节流数据源
//
// Read 允许返回少于 n 个字节 (包括 0 个) 调用方需要自行累积
// 返回的切片在下一次 Read 之前有效 如需保留请 copy 一份
type Source interface {
	// Name 返回 Source 名称
	Name() string

	// Read 读取至多 n 个字节
	Read(n int) ([]byte, error)

	// Flush 丢弃输入缓冲区中尚未读取的数据
	Flush() error

	// Close 关闭 Source 并释放关联资源 阻塞中的 Read 会返回错误
	Close() error
}

// Writable 支持写入设备指令的 Source
type Writable interface {
	Source
	io.Writer
}

type Config struct {
	Engine      string        `config:"engine"`
	Port        string        `config:"port"`
	BaudRate    int           `config:"baudRate"`
	ReadTimeout time.Duration `config:"readTimeout"`
	File        string        `config:"file"`
	ChunkSize   int           `config:"chunkSize"`
}

// Validate 补全默认值
func (c *Config) Validate() {
	if c.Engine == "" {
		c.Engine = "serial"
	}
	if c.BaudRate <= 0 {
		c.BaudRate = common.DefaultBaudRate
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 100 * time.Millisecond
	}
}

// CreateFunc 创建 Source 的函数类型
type CreateFunc func(conf *Config) (Source, error)

var sourceFactory = map[string]CreateFunc{}

// Register 注册 Source 工厂函数
func Register(f CreateFunc, names ...string) {
	for _, name := range names {
		sourceFactory[name] = f
	}
}

// Get 获取 Source 工厂函数
func Get(name string) (CreateFunc, error) {
	f, ok := sourceFactory[name]
	if !ok {
		return nil, errors.Errorf("source factory (%s) not found", name)
	}
	return f, nil
}

func New(conf *confengine.Config) (Source, error) {
	var cfg Config
	if err := conf.UnpackChild("source", &cfg); err != nil {
		return nil, err
	}
	return NewWithConfig(&cfg)
}

func NewWithConfig(cfg *Config) (Source, error) {
	cfg.Validate()
	f, err := Get(cfg.Engine)
	if err != nil {
		return nil, err
	}
	return f(cfg)
}
