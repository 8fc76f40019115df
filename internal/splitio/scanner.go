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

package splitio

import (
	"bytes"
)

var (
	CharCRLF = []byte("\r\n")
	CharCR   = []byte("\r")
	CharLF   = []byte("\n")
)

// Scanner 按 `\n` 切割字节流 不拷贝底层数据
type Scanner struct {
	l, r int
	buf  []byte
}

// NewScanner 创建并返回 *Scanner 实例
//
// 切割后保留行尾的 `\r\n` 或者 `\n`
// 相比 *bufio.Scanner 不会拷贝 buf 内容
func NewScanner(b []byte) *Scanner {
	return &Scanner{
		buf: b,
	}
}

// Scan 扫描下一个 LF 字符并标记索引
func (s *Scanner) Scan() bool {
	s.l = s.r
	if len(s.buf) == s.l {
		return false
	}

	idx := bytes.IndexByte(s.buf[s.l:], CharLF[0])
	if idx == -1 {
		s.r = len(s.buf)
	} else {
		s.r = s.l + idx + 1
	}
	return true
}

// Bytes 读取当前行 如有修改需求 请拷贝一份
func (s *Scanner) Bytes() []byte {
	return s.buf[s.l:s.r]
}

// Terminated 当前行是否以 LF 结尾
//
// 字节流场景下最后一行可能尚未接收完整
func (s *Scanner) Terminated() bool {
	return s.r > s.l && s.buf[s.r-1] == CharLF[0]
}

// Offset 返回已经扫描过的字节数
func (s *Scanner) Offset() int {
	return s.r
}

// TrimEOL 去除行尾的 `\r\n` / `\n` / `\r`
func TrimEOL(b []byte) []byte {
	switch {
	case bytes.HasSuffix(b, CharCRLF):
		return b[:len(b)-2]
	case bytes.HasSuffix(b, CharLF), bytes.HasSuffix(b, CharCR):
		return b[:len(b)-1]
	}
	return b
}
