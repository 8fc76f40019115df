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

package pjsonlines

import (
	"encoding/base64"
	"time"

	"github.com/pkg/errors"

	"github.com/packetd/serialacq/common"
	"github.com/packetd/serialacq/internal/json"
	"github.com/packetd/serialacq/internal/splitio"
	"github.com/packetd/serialacq/protocol"
)

const Name = "jsonlines"

func init() {
	protocol.Register(Name, New)
}

// DefaultKeys 设备 JSON Lines 响应中的字段 DATA 为 base64 编码
var DefaultKeys = protocol.Keys{
	Sequence: "sample_number",
	Status:   "STATUS_CODE",
	Text:     "STATUS_TEXT",
	Data:     "DATA",
}

type Options struct {
	protocol.Keys `mapstructure:",squash"`
}

type decoder struct {
	keys protocol.Keys
}

// New 创建 JSON Lines 解码器
//
// 输入由 framestream 按行切割 每行均为一个完整的 JSON 对象 因此不存在待拼接的数据
func New(opts common.Options) (protocol.Decoder, error) {
	var o Options
	if err := opts.Unpack(&o); err != nil {
		return nil, errors.Wrap(err, "jsonlines: unpack options")
	}
	return &decoder{
		keys: o.Keys.WithDefaults(DefaultKeys),
	}, nil
}

func (d *decoder) Pending() int {
	return 0
}

func (d *decoder) Reset() {}

func (d *decoder) Decode(b []byte, t time.Time) ([]*protocol.Sample, error) {
	var samples []*protocol.Sample
	scanner := splitio.NewScanner(b)
	var offset int
	for scanner.Scan() {
		line := splitio.TrimEOL(scanner.Bytes())
		if len(line) == 0 {
			offset = scanner.Offset()
			continue
		}

		obj, err := d.decodeLine(line)
		if err != nil {
			return samples, &protocol.DecodeError{Offset: offset, Err: err}
		}
		samples = append(samples, protocol.NewSample(obj, t, d.keys))
		offset = scanner.Offset()
	}
	return samples, nil
}

func (d *decoder) decodeLine(line []byte) (any, error) {
	var obj any
	if err := json.Unmarshal(line, &obj); err != nil {
		return nil, err
	}

	m, ok := obj.(map[string]any)
	if !ok {
		return obj, nil
	}

	if s, ok := m[d.keys.Data].(string); ok {
		data, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, errors.Wrapf(err, "decode %s field", d.keys.Data)
		}
		m[d.keys.Data] = data
	}
	return m, nil
}
