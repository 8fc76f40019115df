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
	"bytes"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/packetd/serialacq/common"
	"github.com/packetd/serialacq/protocol"
)

const Name = "msgpack"

func init() {
	protocol.Register(Name, New)
}

// DefaultKeys 设备 MessagePack 响应中的字段
//
// C: 状态码 T: 状态描述 D: 数据区
var DefaultKeys = protocol.Keys{
	Sequence: "sample_number",
	Status:   "C",
	Text:     "T",
	Data:     "D",
}

type Options struct {
	MaxPending    int `mapstructure:"maxPending"`
	protocol.Keys `mapstructure:",squash"`
}

type decoder struct {
	keys       protocol.Keys
	maxPending int
	pending    []byte
}

// New 创建 MessagePack 解码器
//
// 单个数据帧中可能包含多个对象 也可能仅包含一个对象的前半部分
func New(opts common.Options) (protocol.Decoder, error) {
	var o Options
	if err := opts.Unpack(&o); err != nil {
		return nil, errors.Wrap(err, "msgpack: unpack options")
	}
	if o.MaxPending <= 0 {
		o.MaxPending = common.MaxPendingBytes
	}

	return &decoder{
		keys:       o.Keys.WithDefaults(DefaultKeys),
		maxPending: o.MaxPending,
	}, nil
}

func (d *decoder) Pending() int {
	return len(d.pending)
}

func (d *decoder) Reset() {
	d.pending = d.pending[:0]
}

func (d *decoder) Decode(b []byte, t time.Time) ([]*protocol.Sample, error) {
	data := b
	if len(d.pending) > 0 {
		data = make([]byte, 0, len(d.pending)+len(b))
		data = append(data, d.pending...)
		data = append(data, b...)
		d.pending = d.pending[:0]
	}

	r := bytes.NewReader(data)
	dec := msgpack.GetDecoder()
	defer msgpack.PutDecoder(dec)
	dec.Reset(r)
	dec.UseLooseInterfaceDecoding(true)

	var samples []*protocol.Sample
	for r.Len() > 0 {
		offset := len(data) - r.Len()
		obj, err := dec.DecodeInterfaceLoose()
		if err == nil {
			samples = append(samples, protocol.NewSample(obj, t, d.keys))
			continue
		}

		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			rest := data[offset:]
			if len(rest) > d.maxPending {
				return samples, &protocol.DecodeError{
					Offset: offset,
					Err:    errors.Errorf("incomplete object exceeds %d bytes", d.maxPending),
				}
			}
			d.pending = append(d.pending, rest...)
			return samples, nil
		}
		return samples, &protocol.DecodeError{Offset: offset, Err: err}
	}
	return samples, nil
}
