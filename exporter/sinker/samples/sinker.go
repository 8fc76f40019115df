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

package samples

import (
	"bufio"
	"io"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/packetd/serialacq/common"
	"github.com/packetd/serialacq/exporter"
	"github.com/packetd/serialacq/internal/json"
)

func init() {
	exporter.Register(common.RecordSamples, New)
}

// Sinker 以 JSON Lines 格式输出样本以及会话汇总
//
// Console 模式下每行立即刷新 文件模式下仅在汇总以及关闭时刷新
type Sinker struct {
	mut     sync.Mutex
	wr      io.WriteCloser
	bw      *bufio.Writer
	encoder *json.Encoder
	cfg     *exporter.SamplesConfig
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

func New(conf exporter.Config) (exporter.Sinker, error) {
	cfg := &conf.Samples
	cfg.Validate()

	var wr io.WriteCloser
	switch {
	case cfg.Console:
		wr = nopCloser{Writer: os.Stdout}
	default:
		wr = &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			LocalTime:  true,
		}
	}
	return newSinker(wr, cfg), nil
}

func newSinker(wr io.WriteCloser, cfg *exporter.SamplesConfig) *Sinker {
	bw := bufio.NewWriter(wr)
	return &Sinker{
		wr:      wr,
		bw:      bw,
		cfg:     cfg,
		encoder: json.NewEncoder(bw),
	}
}

func (s *Sinker) Name() common.RecordType {
	return common.RecordSamples
}

func (s *Sinker) Sink(data any) error {
	s.mut.Lock()
	defer s.mut.Unlock()

	switch v := data.(type) {
	case *exporter.SampleRecord:
		if v.Sample == nil {
			return nil
		}
		err := s.encoder.Encode(exporter.NewSampleLine(v))
		if err != nil {
			return err
		}
		if s.cfg.Console {
			return s.bw.Flush()
		}
		return nil

	case *exporter.Summary:
		if err := s.encoder.Encode(exporter.NewSummaryLine(v)); err != nil {
			return err
		}
		return s.bw.Flush()
	}
	return nil
}

func (s *Sinker) Close() error {
	s.mut.Lock()
	defer s.mut.Unlock()

	if err := s.bw.Flush(); err != nil {
		s.wr.Close()
		return err
	}
	return s.wr.Close()
}
