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

package controller

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/packetd/serialacq/common"
	"github.com/packetd/serialacq/confengine"
	"github.com/packetd/serialacq/exporter"
	"github.com/packetd/serialacq/internal/json"
)

func deviceFrame(t *testing.T, seq uint32) []byte {
	data := make([]byte, 35)
	binary.LittleEndian.PutUint32(data[0:4], seq*10)
	binary.LittleEndian.PutUint32(data[4:8], seq)
	b, err := msgpack.Marshal(map[string]any{"C": 200, "T": "Ok", "D": data})
	require.NoError(t, err)
	return b
}

// writeCapture 写入 0..n-1 的帧 跳过 skip 中的序列号
func writeCapture(t *testing.T, n uint32, skip ...uint32) (string, int) {
	skipped := make(map[uint32]bool)
	for _, s := range skip {
		skipped[s] = true
	}

	var buf bytes.Buffer
	var frameSize int
	for i := uint32(0); i < n; i++ {
		if skipped[i] {
			continue
		}
		b := deviceFrame(t, i)
		frameSize = len(b)
		buf.Write(b)
	}

	path := filepath.Join(t.TempDir(), "capture.bin")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path, frameSize
}

func newTestController(t *testing.T, extra string) (*Controller, string) {
	capture, frameSize := writeCapture(t, 20, 7)
	return newCaptureController(t, capture, frameSize, extra)
}

func newCaptureController(t *testing.T, capture string, frameSize int, extra string) (*Controller, string) {
	samples := filepath.Join(t.TempDir(), "samples.jsonl")

	content := fmt.Sprintf(`
logger:
  stdout: true
  level: error
source:
  engine: file
  file: %s
  chunkSize: 5
framestream:
  frameSize: %d
metricsStorage:
  enabled: true
exporter:
  samples:
    enabled: true
    summary: true
    filename: %s
%s
`, capture, frameSize, samples, extra)

	conf, err := confengine.LoadContent([]byte(content))
	require.NoError(t, err)

	ctr, err := New(conf, common.GetBuildInfo())
	require.NoError(t, err)
	return ctr, samples
}

func TestRunSession(t *testing.T) {
	ctr, samples := newTestController(t, `
acquisition:
  maxSamples: 15
`)
	require.NoError(t, ctr.Start())

	res, err := ctr.RunSession(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 15, res.Session.Counter)
	assert.Len(t, res.Session.Samples, 15)
	assert.Equal(t, 15, res.Report.Expected)
	assert.Equal(t, []int64{7}, res.Report.Missing)
	assert.Equal(t, 1, res.Report.OutOfRange)
	assert.Equal(t, 1, res.Summary.Dropped)
	assert.Empty(t, res.Summary.Err)
	assert.Same(t, res.Summary, ctr.LastSummary())

	require.NoError(t, ctr.Stop())

	b, err := os.ReadFile(samples)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 16)

	var line exporter.SummaryLine
	require.NoError(t, json.Unmarshal([]byte(lines[15]), &line))
	assert.Equal(t, exporter.KindSummary, line.Kind)
	assert.Equal(t, 1, line.TotalDroppedSamples)
	assert.Equal(t, 15, line.Samples)
}

func TestRunSessionSourceExhausted(t *testing.T) {
	ctr, _ := newTestController(t, `
gapdetect:
  expected: 20
  annotate: true
`)
	defer ctr.Stop()

	res, err := ctr.RunSession(context.Background())
	assert.Error(t, err)

	// 数据源耗尽前的样本全部保留
	assert.Equal(t, 19, res.Session.Counter)
	assert.Equal(t, []int64{7}, res.Report.Missing)
	assert.Equal(t, []int64{7}, res.Summary.Missing)
	assert.NotEmpty(t, res.Summary.Err)
}

func TestRunCanceled(t *testing.T) {
	ctr, _ := newTestController(t, "")
	defer ctr.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, ctr.Run(ctx))

	last := ctr.LastSummary()
	require.NotNil(t, last)
	assert.Equal(t, 0, last.Samples)
	assert.NotEmpty(t, last.Err)
}

func TestRunSessions(t *testing.T) {
	ctr, _ := newTestController(t, `
acquisition:
  maxSamples: 5
  sessions: 2
`)
	defer ctr.Stop()

	require.NoError(t, ctr.Run(context.Background()))
	assert.Equal(t, 5, ctr.LastSummary().Samples)
}

func TestReload(t *testing.T) {
	ctr, _ := newTestController(t, "")
	defer ctr.Stop()

	conf, err := confengine.LoadContent([]byte("acquisition:\n  maxSamples: 3\n  decodePolicy: abort\n"))
	require.NoError(t, err)
	require.NoError(t, ctr.Reload(conf))
	assert.Equal(t, 3, *ctr.config().Acquisition.MaxSamples)

	res, err := ctr.RunSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Session.Counter)

	conf, err = confengine.LoadContent([]byte("acquisition:\n  decodePolicy: retry\n"))
	require.NoError(t, err)
	assert.Error(t, ctr.Reload(conf))
}

func TestNewInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "NegativeMaxSamples", content: "acquisition:\n  maxSamples: -1\n"},
		{name: "UnknownPolicy", content: "acquisition:\n  decodePolicy: retry\n"},
		{name: "UnknownSource", content: "source:\n  engine: usb\n"},
		{name: "UnknownProtocol", content: "protocol:\n  name: csv\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf, err := confengine.LoadContent([]byte("logger:\n  stdout: true\n" + tt.content))
			require.NoError(t, err)
			_, err = New(conf, common.GetBuildInfo())
			assert.Error(t, err)
		})
	}
}

func TestRoutes(t *testing.T) {
	ctr, _ := newTestController(t, `
acquisition:
  maxSamples: 10
`)
	defer ctr.Stop()

	rec := httptest.NewRecorder()
	ctr.routeLastSession(rec, httptest.NewRequest(http.MethodGet, "/session/last", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, err := ctr.RunSession(context.Background())
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	ctr.routeLastSession(rec, httptest.NewRequest(http.MethodGet, "/session/last", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"samples":10`)

	rec = httptest.NewRecorder()
	ctr.routeSessionMetrics(rec, httptest.NewRequest(http.MethodGet, "/session/metrics", nil))
	assert.Contains(t, rec.Body.String(), `serialacq_session_samples_total{source="file:`)

	rec = httptest.NewRecorder()
	ctr.routeMetrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "serialacq_acquired_samples_total")
}

func TestWatch(t *testing.T) {
	ctr, _ := newTestController(t, `
acquisition:
  maxSamples: 3
`)
	defer ctr.Stop()

	done := make(chan *httptest.ResponseRecorder)
	go func() {
		rec := httptest.NewRecorder()
		ctr.routeWatch(rec, httptest.NewRequest(http.MethodGet, "/watch?max_message=3&timeout=2s", nil))
		done <- rec
	}()

	// 等待订阅建立后再开始会话
	require.Eventually(t, func() bool { return ctr.bus.Num() == 1 }, time.Second, time.Millisecond)
	_, err := ctr.RunSession(context.Background())
	require.NoError(t, err)

	rec := <-done
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3)

	var line exporter.SampleLine
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &line))
	assert.Equal(t, int64(2), line.Seq)
	assert.Equal(t, int64(20), line.Timestamp)
}

func TestRunSessionDiscardsStalePending(t *testing.T) {
	const partial = 10

	// 每个会话读取一帧 帧尾为下一个对象的前 partial 个字节
	// 第二个会话开始前设备侧剩余的字节已被 Flush 丢弃
	var buf bytes.Buffer
	var objSize int
	for _, seq := range []uint32{0, 1, 2, 3} {
		b := deviceFrame(t, seq)
		objSize = len(b)
		if seq%2 == 1 {
			b = b[:partial]
		}
		buf.Write(b)
	}
	path := filepath.Join(t.TempDir(), "capture.bin")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	ctr, _ := newCaptureController(t, path, objSize+partial, `
acquisition:
  maxSamples: 1
`)
	defer ctr.Stop()

	res, err := ctr.RunSession(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Session.Samples, 1)
	assert.Equal(t, int64(0), res.Session.Samples[0].Seq)
	assert.Equal(t, partial, ctr.decoder.Pending())

	res, err = ctr.RunSession(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Session.Samples, 1)
	assert.Equal(t, int64(2), res.Session.Samples[0].Seq)
	assert.Equal(t, int64(20), res.Session.Samples[0].Timestamp)
	assert.Equal(t, 0, res.Session.DecodeFailures)
}
