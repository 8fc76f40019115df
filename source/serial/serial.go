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

package serial

import (
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/tarm/serial"

	"github.com/packetd/serialacq/common"
	"github.com/packetd/serialacq/logger"
	"github.com/packetd/serialacq/source"
)

const Name = "serial"

func init() {
	source.Register(New, Name)
}

type port interface {
	io.ReadWriteCloser
	Flush() error
}

var openPort = func(c *serial.Config) (port, error) {
	return serial.OpenPort(c)
}

type serialSource struct {
	name string
	mut  sync.Mutex // 保护 Write
	port port
	buf  []byte

	closeOnce sync.Once
	closed    chan struct{}
}

// New 打开串口设备
//
// tarm/serial 在 ReadTimeout 到期后返回 0 字节 以 io.EOF 的形式体现
// 这里将其视为一次 short read 而不是错误
func New(conf *source.Config) (source.Source, error) {
	if conf.Port == "" {
		return nil, errors.New("serial: port required")
	}

	p, err := openPort(&serial.Config{
		Name:        conf.Port,
		Baud:        conf.BaudRate,
		ReadTimeout: conf.ReadTimeout,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "serial: open port (%s)", conf.Port)
	}

	logger.Infof("serial port %s opened, baud=%d, readTimeout=%v", conf.Port, conf.BaudRate, conf.ReadTimeout)
	return &serialSource{
		name:   conf.Port,
		port:   p,
		buf:    make([]byte, common.MaxLineSize),
		closed: make(chan struct{}),
	}, nil
}

func (s *serialSource) Name() string {
	return Name + ":" + s.name
}

func (s *serialSource) Read(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	if n > len(s.buf) {
		s.buf = make([]byte, n)
	}

	select {
	case <-s.closed:
		return nil, io.ErrClosedPipe
	default:
	}

	nr, err := s.port.Read(s.buf[:n])
	if err != nil {
		select {
		case <-s.closed:
			return nil, io.ErrClosedPipe
		default:
		}
		if errors.Is(err, io.EOF) {
			return s.buf[:nr], nil
		}
		return nil, err
	}
	return s.buf[:nr], nil
}

func (s *serialSource) Write(p []byte) (int, error) {
	s.mut.Lock()
	defer s.mut.Unlock()

	return s.port.Write(p)
}

func (s *serialSource) Flush() error {
	return s.port.Flush()
}

func (s *serialSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		err = s.port.Close()
	})
	return err
}
