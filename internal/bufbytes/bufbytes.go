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

package bufbytes

// Bytes 定长累积缓冲区
//
// 写入的数据只会追加 直到长度达到 size 为止 超出部分被截断
// Frame 的拼接依赖此特性 已写入的片段在 Reset 之前不会被丢弃
type Bytes struct {
	size int
	buf  []byte
}

func New(size int) *Bytes {
	return &Bytes{
		size: size,
		buf:  make([]byte, 0, size),
	}
}

// Write 追加写入 p 并返回实际写入的字节数
func (b *Bytes) Write(p []byte) int {
	l := b.Remaining()
	if l <= 0 {
		return 0
	}
	if len(p) > l {
		p = p[:l]
	}
	b.buf = append(b.buf, p...)
	return len(p)
}

func (b *Bytes) Len() int {
	return len(b.buf)
}

func (b *Bytes) Size() int {
	return b.size
}

// Remaining 返回距离写满还差的字节数
func (b *Bytes) Remaining() int {
	return b.size - len(b.buf)
}

func (b *Bytes) Full() bool {
	return len(b.buf) >= b.size
}

// Bytes 返回底层数据 Reset 后内容将失效
func (b *Bytes) Bytes() []byte {
	return b.buf
}

func (b *Bytes) Clone() []byte {
	if len(b.buf) == 0 {
		return nil
	}
	return append([]byte{}, b.buf...)
}

func (b *Bytes) Reset() {
	b.buf = b.buf[:0]
}
