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
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/packetd/serialacq/common"
)

func TestZeroCopy(t *testing.T) {
	t.Run("Read", func(t *testing.T) {
		n := 64
		buf := NewBuffer(bytes.Repeat([]byte("a"), n*common.FrameSize))

		for i := 0; i < n; i++ {
			b, err := buf.Read(common.FrameSize)
			assert.NoError(t, err)
			assert.Len(t, b, common.FrameSize)
		}
		_, err := buf.Read(1)
		assert.Equal(t, io.EOF, err)
	})

	t.Run("ShortTail", func(t *testing.T) {
		buf := NewBuffer([]byte("abcde"))
		b, err := buf.Read(3)
		assert.NoError(t, err)
		assert.Equal(t, []byte("abc"), b)
		assert.Equal(t, 2, buf.Len())

		b, err = buf.Read(3)
		assert.NoError(t, err)
		assert.Equal(t, []byte("de"), b)
		assert.Equal(t, 0, buf.Len())
	})

	t.Run("Limited", func(t *testing.T) {
		buf := NewLimitedBuffer([]byte("abcdefg"), 2)
		var chunks [][]byte
		for {
			b, err := buf.Read(5)
			if err != nil {
				break
			}
			chunks = append(chunks, b)
		}
		assert.Equal(t, [][]byte{[]byte("ab"), []byte("cd"), []byte("ef"), []byte("g")}, chunks)
	})

	t.Run("Close", func(t *testing.T) {
		buf := NewBuffer(bytes.Repeat([]byte("a"), 1024))
		buf.Close()
		_, err := buf.Read(1)
		assert.Equal(t, io.EOF, err)
	})

	t.Run("Rewrite", func(t *testing.T) {
		buf := NewBuffer([]byte("abc"))
		buf.Close()
		buf.Write([]byte("xy"))
		b, err := buf.Read(8)
		assert.NoError(t, err)
		assert.Equal(t, []byte("xy"), b)
	})
}

func BenchmarkZeroCopyBuffer(b *testing.B) {
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			buf := NewBuffer(nil)
			buf.Write(bytes.Repeat([]byte("a"), 1000*common.FrameSize))
			for {
				data, err := buf.Read(common.FrameSize)
				if err != nil {
					break
				}
				_ = data // 避免编译器优化
			}
		}
	})
}
