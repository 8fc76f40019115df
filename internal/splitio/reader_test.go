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
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReader(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  [][]byte
	}{
		{
			name:  "EmptyInput",
			input: []byte{},
			want:  nil,
		},
		{
			name:  "SingleRecordWithoutLF",
			input: []byte(`{"seq":0}`),
			want: [][]byte{
				[]byte(`{"seq":0}`),
			},
		},
		{
			name:  "MultipleRecords",
			input: []byte("{\"seq\":0}\n{\"seq\":1}\n{\"seq\":2}\n"),
			want: [][]byte{
				[]byte(`{"seq":0}`),
				[]byte(`{"seq":1}`),
				[]byte(`{"seq":2}`),
			},
		},
		{
			name:  "CRLFTerminated",
			input: []byte("{\"seq\":0}\r\n{\"seq\":1}\r\n"),
			want: [][]byte{
				[]byte(`{"seq":0}`),
				[]byte(`{"seq":1}`),
			},
		},
		{
			name:  "SkipEmptyLines",
			input: []byte("\n\n{\"seq\":0}\n\r\n\n{\"seq\":1}\n\n"),
			want: [][]byte{
				[]byte(`{"seq":0}`),
				[]byte(`{"seq":1}`),
			},
		},
		{
			name:  "OnlyLFs",
			input: []byte("\n\n\n"),
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rd := NewReader(tt.input)
			var lines [][]byte
			for {
				line, eof := rd.ReadLine()
				if eof {
					break
				}
				lines = append(lines, line)
			}
			assert.Equal(t, tt.want, lines)
			assert.True(t, rd.EOF())
		})
	}
}

func BenchmarkBufioReader(b *testing.B) {
	input := bytes.Repeat([]byte(strings.Repeat("x", 1024)+"\n"), 100)

	b.ReportAllocs()
	b.ResetTimer()
	b.SetBytes(int64(len(input)))

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			rd := bufio.NewReader(bytes.NewBuffer(input))
			for {
				line, _, err := rd.ReadLine()
				if err != nil {
					break
				}
				_ = line
			}
		}
	})
}

func BenchmarkReader(b *testing.B) {
	input := bytes.Repeat([]byte(strings.Repeat("x", 1024)+"\n"), 100)

	b.ReportAllocs()
	b.ResetTimer()
	b.SetBytes(int64(len(input)))

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			rd := NewReader(input)
			for {
				line, eof := rd.ReadLine()
				if eof {
					break
				}
				_ = line
			}
		}
	})
}
