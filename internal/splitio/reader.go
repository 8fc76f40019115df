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

// Reader 逐行读取记录 返回的行不包含行尾换行符
type Reader struct {
	r, w    int
	b       []byte
	scanner *Scanner
}

// NewReader 创建并返回 *Reader 实例
//
// 相比 *bufio.Reader 不会拷贝 buf 内容
func NewReader(b []byte) *Reader {
	return &Reader{
		w:       len(b),
		b:       b,
		scanner: NewScanner(b),
	}
}

// ReadLine 读取下一行 空行会被跳过
func (lr *Reader) ReadLine() ([]byte, bool) {
	for lr.scanner.Scan() {
		b := lr.scanner.Bytes()
		lr.r += len(b)
		if line := TrimEOL(b); len(line) > 0 {
			return line, false
		}
	}
	return nil, true // EOF
}

// EOF 返回 Reader 是否已到达 EOF
func (lr *Reader) EOF() bool {
	return lr.r >= lr.w
}
