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

package pmsgpack

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/packetd/serialacq/common"
	"github.com/packetd/serialacq/protocol"
)

// deviceData 构造设备数据区 timestamp / sample number / ads status / 8 通道
func deviceData(ts, seq uint32) []byte {
	b := make([]byte, 35)
	binary.LittleEndian.PutUint32(b[0:4], ts)
	binary.LittleEndian.PutUint32(b[4:8], seq)
	b[8], b[9], b[10] = 0xc0, 0x00, 0x00
	return b
}

func deviceFrame(t *testing.T, ts, seq uint32) []byte {
	b, err := msgpack.Marshal(map[string]any{
		"C": 200,
		"T": "Ok",
		"D": deviceData(ts, seq),
	})
	require.NoError(t, err)
	return b
}

func newDecoder(t *testing.T, opts common.Options) protocol.Decoder {
	d, err := New(opts)
	require.NoError(t, err)
	return d
}

func TestDecodeDeviceFrame(t *testing.T) {
	d := newDecoder(t, common.NewOptions())
	now := time.Now()

	samples, err := d.Decode(deviceFrame(t, 1000, 42), now)
	require.NoError(t, err)
	require.Len(t, samples, 1)

	s := samples[0]
	assert.Equal(t, int64(42), s.Seq)
	assert.Equal(t, int64(1000), s.Timestamp)
	assert.Equal(t, protocol.StatusOK, s.Status)
	assert.Equal(t, "Ok", s.StatusText)
	assert.Equal(t, now, s.ArrivedAt)
	assert.Equal(t, 0, d.Pending())
}

func TestDecodeMultipleObjects(t *testing.T) {
	d := newDecoder(t, nil)

	var b []byte
	for i := uint32(0); i < 3; i++ {
		b = append(b, deviceFrame(t, i*10, i)...)
	}

	samples, err := d.Decode(b, time.Now())
	require.NoError(t, err)
	require.Len(t, samples, 3)
	for i, s := range samples {
		assert.Equal(t, int64(i), s.Seq)
	}
}

func TestDecodeIncompleteObject(t *testing.T) {
	d := newDecoder(t, nil)
	b := deviceFrame(t, 1, 7)

	samples, err := d.Decode(b[:10], time.Now())
	assert.NoError(t, err)
	assert.Empty(t, samples)
	assert.Equal(t, 10, d.Pending())

	samples, err = d.Decode(b[10:], time.Now())
	assert.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, int64(7), samples[0].Seq)
	assert.Equal(t, 0, d.Pending())
}

func TestDecodeObjectThenPartial(t *testing.T) {
	d := newDecoder(t, nil)
	first := deviceFrame(t, 1, 1)
	second := deviceFrame(t, 2, 2)

	samples, err := d.Decode(append(append([]byte{}, first...), second[:5]...), time.Now())
	assert.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, 5, d.Pending())

	samples, err = d.Decode(second[5:], time.Now())
	assert.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, int64(2), samples[0].Seq)
}

func TestDecodeMalformed(t *testing.T) {
	d := newDecoder(t, nil)

	samples, err := d.Decode([]byte{0xc1, 0x00, 0x01}, time.Now())
	assert.Empty(t, samples)
	assert.True(t, errors.Is(err, protocol.ErrDecode))

	var de *protocol.DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 0, de.Offset)
	assert.Equal(t, 0, d.Pending())

	// 解码器在错误后可以继续工作
	samples, err = d.Decode(deviceFrame(t, 1, 3), time.Now())
	assert.NoError(t, err)
	assert.Len(t, samples, 1)
}

func TestDecodeMalformedAfterObject(t *testing.T) {
	d := newDecoder(t, nil)
	first := deviceFrame(t, 1, 1)

	samples, err := d.Decode(append(append([]byte{}, first...), 0xc1), time.Now())
	assert.Len(t, samples, 1)

	var de *protocol.DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, len(first), de.Offset)
}

func TestDecodePendingOverflow(t *testing.T) {
	d := newDecoder(t, common.Options{"maxPending": 4})
	b := deviceFrame(t, 1, 1)

	samples, err := d.Decode(b[:10], time.Now())
	assert.Empty(t, samples)
	assert.True(t, errors.Is(err, protocol.ErrDecode))
	assert.Equal(t, 0, d.Pending())
}

func TestDecodeScalarAndSequenceKey(t *testing.T) {
	d := newDecoder(t, common.Options{"sequenceKey": "n"})

	scalar, err := msgpack.Marshal(7)
	require.NoError(t, err)
	keyed, err := msgpack.Marshal(map[string]any{"n": 99})
	require.NoError(t, err)
	list, err := msgpack.Marshal([]any{1, 2, 3})
	require.NoError(t, err)

	samples, err := d.Decode(append(append(scalar, keyed...), list...), time.Now())
	require.NoError(t, err)
	require.Len(t, samples, 3)

	assert.Equal(t, protocol.NoSequence, samples[0].Seq)
	assert.False(t, samples[0].HasSequence())
	assert.Equal(t, int64(99), samples[1].Seq)
	assert.Equal(t, protocol.NoSequence, samples[2].Seq)
	assert.Len(t, samples[2].Object, 3)
}

func TestDecodeEmpty(t *testing.T) {
	d := newDecoder(t, nil)
	samples, err := d.Decode(nil, time.Now())
	assert.NoError(t, err)
	assert.Empty(t, samples)
}

func TestRegistered(t *testing.T) {
	d, err := protocol.NewWithConfig(protocol.Config{})
	require.NoError(t, err)
	assert.IsType(t, &decoder{}, d)
}

func BenchmarkDecode(b *testing.B) {
	frame, _ := msgpack.Marshal(map[string]any{"C": 200, "T": "Ok", "D": deviceData(1, 1)})
	d, _ := New(nil)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = d.Decode(frame, time.Time{})
	}
}
