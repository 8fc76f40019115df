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

package file

import (
	"os"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/packetd/serialacq/internal/zerocopy"
	"github.com/packetd/serialacq/logger"
	"github.com/packetd/serialacq/source"
)

const Name = "file"

func init() {
	source.Register(New, Name)
}

// fileSource 回放已录制的串口字节流
//
// ChunkSize > 0 时单次 Read 至多返回 ChunkSize 个字节 用于模拟串口的部分读取
// 读取完毕后返回 io.EOF
type fileSource struct {
	path   string
	buf    zerocopy.Buffer
	closed atomic.Bool
}

func New(conf *source.Config) (source.Source, error) {
	if conf.File == "" {
		return nil, errors.New("file: file required")
	}

	b, err := os.ReadFile(conf.File)
	if err != nil {
		return nil, errors.Wrapf(err, "file: read (%s)", conf.File)
	}

	logger.Infof("replay source %s loaded, size=%d, chunkSize=%d", conf.File, len(b), conf.ChunkSize)
	return &fileSource{
		path: conf.File,
		buf:  zerocopy.NewLimitedBuffer(b, conf.ChunkSize),
	}, nil
}

func (s *fileSource) Name() string {
	return Name + ":" + s.path
}

func (s *fileSource) Read(n int) ([]byte, error) {
	return s.buf.Read(n)
}

// Flush 回放数据没有需要丢弃的陈旧数据
func (s *fileSource) Flush() error {
	return nil
}

func (s *fileSource) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.buf.Close()
	}
	return nil
}
