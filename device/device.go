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

package device

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/packetd/serialacq/internal/json"
	"github.com/packetd/serialacq/logger"
)

const (
	CmdNop    = "nop"
	CmdStop   = "stop"
	CmdSdatac = "sdatac"
	CmdRdatac = "rdatac"
)

// Commander 设备指令下发
//
// Prepare 在会话开始前调用 Finish 在会话结束后调用
type Commander interface {
	Prepare(ctx context.Context) error
	Finish(ctx context.Context) error
}

// Flusher 清空输入缓冲区
type Flusher interface {
	Flush() error
}

type Config struct {
	Enabled bool          `config:"enabled"`
	Prepare []string      `config:"prepare"`
	Finish  []string      `config:"finish"`
	Delay   time.Duration `config:"delay"`
}

// Validate 补全默认指令序列
func (c *Config) Validate() {
	if len(c.Prepare) == 0 {
		c.Prepare = []string{CmdSdatac, CmdRdatac}
	}
	if len(c.Finish) == 0 {
		c.Finish = []string{CmdStop, CmdSdatac, CmdNop}
	}
}

// Command 设备指令 以 JSON Lines 形式发送
type Command struct {
	Command    string `json:"COMMAND"`
	Parameters []any  `json:"PARAMETERS"`
}

type nopCommander struct{}

func (nopCommander) Prepare(context.Context) error { return nil }
func (nopCommander) Finish(context.Context) error  { return nil }

// Nop 不下发任何指令 用于不可写的数据源
func Nop() Commander {
	return nopCommander{}
}

type commander struct {
	mut     sync.Mutex
	w       io.Writer
	flusher Flusher
	conf    Config
	buf     bytes.Buffer
}

// New 创建 Commander
//
// flusher 可以为 nil Prepare 中相邻两条指令之间会清空输入缓冲区
// 避免前一条指令的响应混入采集数据
func New(w io.Writer, flusher Flusher, conf Config) Commander {
	conf.Validate()
	return &commander{
		w:       w,
		flusher: flusher,
		conf:    conf,
	}
}

func (c *commander) Prepare(ctx context.Context) error {
	return c.sendAll(ctx, c.conf.Prepare, true)
}

func (c *commander) Finish(ctx context.Context) error {
	return c.sendAll(ctx, c.conf.Finish, false)
}

func (c *commander) sendAll(ctx context.Context, cmds []string, flush bool) error {
	for i, cmd := range cmds {
		if err := c.Send(ctx, cmd); err != nil {
			return err
		}

		last := i == len(cmds)-1
		if flush && !last && c.flusher != nil {
			if err := c.flusher.Flush(); err != nil {
				return errors.Wrap(err, "device: flush input")
			}
		}
		if !last && c.conf.Delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.conf.Delay):
			}
		}
	}
	return nil
}

// Send 发送单条指令 参数为空时发送空数组
func (c *commander) Send(ctx context.Context, cmd string, params ...any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if params == nil {
		params = []any{}
	}

	c.mut.Lock()
	defer c.mut.Unlock()

	c.buf.Reset()
	if err := json.NewEncoder(&c.buf).Encode(Command{Command: cmd, Parameters: params}); err != nil {
		return errors.Wrapf(err, "device: encode command (%s)", cmd)
	}
	if _, err := c.w.Write(c.buf.Bytes()); err != nil {
		return errors.Wrapf(err, "device: send command (%s)", cmd)
	}

	logger.Debugf("device command sent: %s", cmd)
	return nil
}
