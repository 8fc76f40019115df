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

package gapdetect

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/packetd/serialacq/protocol"
)

func TestFindDropped(t *testing.T) {
	tests := []struct {
		name     string
		seqs     []int64
		expected int
		want     Report
	}{
		{
			name:     "NoGap",
			seqs:     []int64{0, 1, 2},
			expected: 3,
			want:     Report{Expected: 3, Missing: []int64{}},
		},
		{
			name:     "TwoMissing",
			seqs:     []int64{0, 1, 3},
			expected: 5,
			want:     Report{Expected: 5, Missing: []int64{2, 4}, Dropped: 2},
		},
		{
			name:     "Gaps",
			seqs:     []int64{0, 2, 3, 5},
			expected: 6,
			want:     Report{Expected: 6, Missing: []int64{1, 4}, Dropped: 2},
		},
		{
			name:     "OutOfOrder",
			seqs:     []int64{4, 0, 2},
			expected: 5,
			want:     Report{Expected: 5, Missing: []int64{1, 3}, Dropped: 2},
		},
		{
			name:     "Duplicates",
			seqs:     []int64{0, 0, 1, 1, 1},
			expected: 3,
			want:     Report{Expected: 3, Missing: []int64{2}, Dropped: 1, Duplicates: 3},
		},
		{
			name:     "Unsequenced",
			seqs:     []int64{protocol.NoSequence, 1, protocol.NoSequence},
			expected: 3,
			want:     Report{Expected: 3, Missing: []int64{0, 2}, Dropped: 2, Unsequenced: 2},
		},
		{
			name:     "OutOfRange",
			seqs:     []int64{0, 1, 9},
			expected: 3,
			want:     Report{Expected: 3, Missing: []int64{2}, Dropped: 1, OutOfRange: 1},
		},
		{
			name:     "EmptySamples",
			expected: 3,
			want:     Report{Expected: 3, Missing: []int64{0, 1, 2}, Dropped: 3},
		},
		{
			name:     "ZeroExpected",
			seqs:     []int64{0, 1},
			expected: 0,
			want:     Report{Missing: []int64{}, OutOfRange: 2},
		},
		{
			name:     "NegativeExpected",
			expected: -5,
			want:     Report{Missing: []int64{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindDroppedSeqs(tt.seqs, tt.expected)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len(got.Missing), got.Dropped)
		})
	}
}

func TestFindDroppedNilSample(t *testing.T) {
	r := FindDropped([]*protocol.Sample{nil, {Seq: 0}}, 1)
	assert.Equal(t, 1, r.Unsequenced)
	assert.Equal(t, 0, r.Dropped)
}

func TestFindDroppedLarge(t *testing.T) {
	const n = 100000
	samples := make([]*protocol.Sample, 0, n)
	for i := int64(0); i < n; i++ {
		if i%1000 == 999 {
			continue
		}
		samples = append(samples, &protocol.Sample{Seq: i})
	}

	r := FindDropped(samples, n)
	assert.Equal(t, 100, r.Dropped)
	assert.Equal(t, int64(999), r.Missing[0])
	assert.Equal(t, int64(n-1), r.Missing[99])
}

func BenchmarkFindDropped(b *testing.B) {
	samples := make([]*protocol.Sample, 0, 16000)
	for i := int64(0); i < 16000; i += 2 {
		samples = append(samples, &protocol.Sample{Seq: i})
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		FindDropped(samples, 16000)
	}
}
