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

package zerocopy

import (
	"io"
)

// Reader 按需读取至多 n 个字节
//
// 返回的切片引用底层数据 调用方如需保留请自行 copy
// 返回的字节数少于 n 属于正常情况 (short read) 不代表数据已经读完
type Reader interface {
	Read(n int) ([]byte, error)
}

type Writer interface {
	Write(p []byte)
}

type Closer interface {
	Close()
}

type Buffer interface {
	Writer
	Reader
	Closer

	// Len 返回尚未读取的字节数
	Len() int
}

type buffer struct {
	r     int
	limit int
	b     []byte
}

func NewBuffer(p []byte) Buffer {
	return &buffer{
		b: p,
	}
}

// NewLimitedBuffer 单次 Read 至多返回 limit 个字节
//
// 用于模拟串口等字节流每次只能读到部分数据的场景
func NewLimitedBuffer(p []byte, limit int) Buffer {
	return &buffer{
		b:     p,
		limit: limit,
	}
}

func (buf *buffer) Read(n int) ([]byte, error) {
	if buf.r >= len(buf.b) {
		return nil, io.EOF
	}

	if buf.limit > 0 && n > buf.limit {
		n = buf.limit
	}

	end := buf.r + n
	if end > len(buf.b) {
		end = len(buf.b)
	}

	b := buf.b[buf.r:end]
	buf.r = end
	return b, nil
}

func (buf *buffer) Write(p []byte) {
	buf.b = p
	buf.r = 0
}

func (buf *buffer) Len() int {
	return len(buf.b) - buf.r
}

func (buf *buffer) Close() {
	buf.r = len(buf.b)
}
