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

package framestream

import (
	"bytes"
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/valyala/bytebufferpool"

	"github.com/packetd/serialacq/common"
	"github.com/packetd/serialacq/internal/bufbytes"
	"github.com/packetd/serialacq/internal/splitio"
	"github.com/packetd/serialacq/internal/zerocopy"
	"github.com/packetd/serialacq/logger"
)

func newError(format string, args ...any) error {
	format = "framestream: " + format
	return errors.Errorf(format, args...)
}

var (
	// ErrIO 数据源读取失败 会话需要终止
	ErrIO = newError("io failure")

	// ErrIdleTimeout 超过 IdleTimeout 未收到任何字节
	ErrIdleTimeout = newError("idle timeout")
)

// IOError 包装数据源返回的错误
//
// errors.Is(err, ErrIO) 以及 errors.Is(err, <原始错误>) 均成立
type IOError struct {
	Err error
}

func (e *IOError) Error() string {
	return ErrIO.Error() + ": " + e.Err.Error()
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func (e *IOError) Is(target error) bool {
	return target == ErrIO
}

const (
	ModeFixed = "fixed"
	ModeLines = "lines"
)

type Config struct {
	Mode        string        `config:"mode"`
	FrameSize   int           `config:"frameSize"`
	MaxLineSize int           `config:"maxLineSize"`
	IdleTimeout time.Duration `config:"idleTimeout"`
}

// Validate 补全默认值
func (c *Config) Validate() error {
	if c.Mode == "" {
		c.Mode = ModeFixed
	}
	if c.FrameSize <= 0 {
		c.FrameSize = common.FrameSize
	}
	if c.MaxLineSize <= 0 {
		c.MaxLineSize = common.MaxLineSize
	}
	switch c.Mode {
	case ModeFixed, ModeLines:
		return nil
	}
	return newError("unknown mode (%s)", c.Mode)
}

// Frame 一个完整的数据帧 由调用方持有
type Frame []byte

// Stats 读取过程的统计数据
type Stats struct {
	Reads      uint64
	ShortReads uint64
	Bytes      uint64
	Frames     uint64
	Overflows  uint64
}

// Splitter 负责从字节流中切割出完整的数据帧
type Splitter interface {
	// Want 返回下一次 Read 期望的字节数
	Want() int

	// Write 写入读取到的字节
	Write(p []byte)

	// Next 返回下一个完整的数据帧 不足一帧时返回 false
	Next() (Frame, bool)

	// Overflows 返回因超长而被丢弃的数据次数
	Overflows() uint64

	// Reset 丢弃所有累积的字节
	Reset()
}

// Reader 从数据源中读取完整的数据帧
//
// 单个 Reader 的读取应该是串行的 不允许并发调用 ReadFrame
type Reader struct {
	src      zerocopy.Reader
	splitter Splitter
	idle     time.Duration
	now      func() time.Time
	stats    Stats
}

// New 创建并返回 *Reader 实例
func New(src zerocopy.Reader, conf Config) (*Reader, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	var splitter Splitter
	switch conf.Mode {
	case ModeLines:
		splitter = SplitLines(conf.MaxLineSize)
	default:
		splitter = SplitFixed(conf.FrameSize)
	}

	return &Reader{
		src:      src,
		splitter: splitter,
		idle:     conf.IdleTimeout,
		now:      time.Now,
	}, nil
}

// Stats 返回读取统计
func (r *Reader) Stats() Stats {
	st := r.stats
	st.Overflows = r.splitter.Overflows()
	return st
}

// Reset 丢弃尚未组成完整帧的字节
func (r *Reader) Reset() {
	r.splitter.Reset()
}

// ReadFrame 读取一个完整的数据帧
//
// short read 属于正常情况 会持续读取直到凑齐一帧
// 数据源返回错误时不会重试 以 *IOError 返回
// 每次读取前会检查 ctx 以及 IdleTimeout
func (r *Reader) ReadFrame(ctx context.Context) (Frame, error) {
	last := r.now()
	for {
		if frame, ok := r.splitter.Next(); ok {
			r.stats.Frames++
			return frame, nil
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		b, err := r.src.Read(r.splitter.Want())
		r.stats.Reads++
		if err != nil {
			return nil, &IOError{Err: err}
		}

		if len(b) == 0 {
			r.stats.ShortReads++
			if r.idle > 0 && r.now().Sub(last) >= r.idle {
				return nil, &IOError{Err: ErrIdleTimeout}
			}
			continue
		}

		last = r.now()
		r.stats.Bytes += uint64(len(b))
		r.splitter.Write(b)
	}
}

type fixedSplitter struct {
	buf     *bufbytes.Bytes
	pending []byte
}

// SplitFixed 按固定长度切割数据帧
//
// 每次只请求补齐当前帧所需的字节数
// 数据源多返回的字节会保留至下一帧
func SplitFixed(size int) Splitter {
	return &fixedSplitter{
		buf: bufbytes.New(size),
	}
}

func (s *fixedSplitter) Want() int {
	return s.buf.Remaining()
}

func (s *fixedSplitter) Write(p []byte) {
	n := s.buf.Write(p)
	if n < len(p) {
		s.pending = append(s.pending, p[n:]...)
	}
}

func (s *fixedSplitter) Next() (Frame, bool) {
	if !s.buf.Full() {
		return nil, false
	}

	frame := Frame(s.buf.Clone())
	s.buf.Reset()
	if len(s.pending) > 0 {
		n := s.buf.Write(s.pending)
		s.pending = append(s.pending[:0], s.pending[n:]...)
	}
	return frame, true
}

func (s *fixedSplitter) Overflows() uint64 {
	return 0
}

func (s *fixedSplitter) Reset() {
	s.buf.Reset()
	s.pending = s.pending[:0]
}

const lineReadSize = 256

type lineSplitter struct {
	carry     bytebufferpool.ByteBuffer
	maxSize   int
	overflows uint64
}

// SplitLines 按换行符切割数据帧
//
// 读取越过行尾的字节会保留至下一帧 空行会被跳过
// 单行超过 maxSize 仍未结束时整行丢弃
func SplitLines(maxSize int) Splitter {
	return &lineSplitter{
		maxSize: maxSize,
	}
}

func (s *lineSplitter) Want() int {
	return lineReadSize
}

func (s *lineSplitter) Write(p []byte) {
	s.carry.Write(p)
	if s.carry.Len() > s.maxSize && bytes.IndexByte(s.carry.B, splitio.CharLF[0]) < 0 {
		logger.Warnf("line exceeds %d bytes without terminator, dropped", s.maxSize)
		s.overflows++
		s.carry.Reset()
	}
}

func (s *lineSplitter) Next() (Frame, bool) {
	scanner := splitio.NewScanner(s.carry.B)
	var consumed int
	defer func() {
		if consumed > 0 {
			s.carry.B = append(s.carry.B[:0], s.carry.B[consumed:]...)
		}
	}()

	for scanner.Scan() {
		if !scanner.Terminated() {
			return nil, false
		}
		consumed = scanner.Offset()

		line := splitio.TrimEOL(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		frame := make(Frame, len(line))
		copy(frame, line)
		return frame, true
	}
	return nil, false
}

func (s *lineSplitter) Overflows() uint64 {
	return s.overflows
}

func (s *lineSplitter) Reset() {
	s.carry.Reset()
}
