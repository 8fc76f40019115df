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
	"context"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/packetd/serialacq/framestream"
	"github.com/packetd/serialacq/internal/rescue"
	"github.com/packetd/serialacq/logger"
	"github.com/packetd/serialacq/protocol"
)

// maxKeptDecodeErrors 会话中保留的解码错误数量上限 超出部分仅计数
const maxKeptDecodeErrors = 16

// DecodePolicy 解码失败时的处理策略
type DecodePolicy string

const (
	// DecodeSkip 丢弃该帧并继续 计数不增加
	DecodeSkip DecodePolicy = "skip"

	// DecodeAbort 立即结束会话并返回错误
	DecodeAbort DecodePolicy = "abort"
)

// ParseDecodePolicy 解析策略名称 空字符串为 DecodeSkip
func ParseDecodePolicy(s string) (DecodePolicy, error) {
	switch DecodePolicy(s) {
	case "", DecodeSkip:
		return DecodeSkip, nil
	case DecodeAbort:
		return DecodeAbort, nil
	}
	return "", newError("unknown decode policy (%s)", s)
}

// FrameReader 读取完整的数据帧
type FrameReader interface {
	ReadFrame(ctx context.Context) (framestream.Frame, error)
}

// Display 样本展示
//
// 返回的错误以及 panic 只会被记录 不会中断采集
type Display interface {
	Show(s *protocol.Sample) error
}

// DisplayFunc 函数形式的 Display
type DisplayFunc func(s *protocol.Sample) error

func (f DisplayFunc) Show(s *protocol.Sample) error {
	return f(s)
}

type multiDisplay []Display

func (md multiDisplay) Show(s *protocol.Sample) error {
	var errs error
	for _, d := range md {
		if err := rescue.Call(func() error { return d.Show(s) }); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs
}

// MultiDisplay 依次调用所有 Display 其中一个失败不影响其他
func MultiDisplay(ds ...Display) Display {
	var md multiDisplay
	for _, d := range ds {
		if d != nil {
			md = append(md, d)
		}
	}
	if len(md) == 0 {
		return nil
	}
	return md
}

type Option func(a *Acquirer)

// WithDisplay 设置样本展示
func WithDisplay(d Display) Option {
	return func(a *Acquirer) {
		a.display = d
	}
}

// WithDecodePolicy 设置解码失败策略
func WithDecodePolicy(p DecodePolicy) Option {
	return func(a *Acquirer) {
		a.policy = p
	}
}

// WithWarmUp 计时开始前先读取并丢弃一帧 用于清理设备缓冲区中的残留数据
func WithWarmUp(on bool) Option {
	return func(a *Acquirer) {
		a.warmUp = on
	}
}

// Acquirer 执行采集循环
//
// 单个会话在单个 goroutine 中同步执行 Acquirer 不允许并发调用 Acquire
type Acquirer struct {
	reader  FrameReader
	decoder protocol.Decoder
	display Display
	policy  DecodePolicy
	warmUp  bool
	now     func() time.Time
}

func New(reader FrameReader, decoder protocol.Decoder, opts ...Option) *Acquirer {
	a := &Acquirer{
		reader:  reader,
		decoder: decoder,
		policy:  DecodeSkip,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Acquire 循环读取并解码数据帧 直到样本数达到 min(MaxSamples, Duration*Speed)
//
// 读取失败时会话终止 已采集的样本保留在 sess 中并返回错误
// 单个数据帧解码出的样本超出上限时 多余的样本被丢弃并计入 Truncated
func (a *Acquirer) Acquire(ctx context.Context, sess *Session) error {
	if a.warmUp && !sess.Reached() {
		if _, err := a.reader.ReadFrame(ctx); err != nil {
			return errors.Wrap(err, "acquisition: warm-up read")
		}
		a.decoder.Reset()
	}

	sess.StartTime = a.now()
	sess.EndTime = sess.StartTime

	for !sess.Reached() {
		frame, err := a.reader.ReadFrame(ctx)
		if err != nil {
			sess.EndTime = a.now()
			return errors.Wrap(err, "acquisition: read frame")
		}
		sess.Frames++

		now := a.now()
		samples, err := a.decoder.Decode(frame, now)
		for _, s := range samples {
			if sess.Reached() {
				sess.Truncated++
				continue
			}
			sess.Samples = append(sess.Samples, s)
			sess.Counter++
			a.show(sess, s)
		}
		sess.EndTime = a.now()

		if err != nil {
			sess.DecodeFailures++
			if a.policy == DecodeAbort {
				return errors.Wrap(err, "acquisition: decode frame")
			}
			if sess.DecodeFailures <= maxKeptDecodeErrors {
				sess.DecodeErr = multierror.Append(sess.DecodeErr, err)
			}
			logger.Debugf("session %s skip frame #%d: %v", sess.ID, sess.Frames, err)
		}
	}
	return nil
}

func (a *Acquirer) show(sess *Session, s *protocol.Sample) {
	if a.display == nil {
		return
	}

	if err := rescue.Call(func() error { return a.display.Show(s) }); err != nil {
		sess.DisplayFailures++
		if sess.DisplayFailures == 1 {
			logger.Warnf("session %s display failed: %v", sess.ID, err)
		}
	}
}
