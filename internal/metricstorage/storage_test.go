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

package metricstorage

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/serialacq/confengine"
	"github.com/packetd/serialacq/internal/fasttime"
)

func TestStorageUpdate(t *testing.T) {
	s := NewWithConfig(Config{})
	defer s.Close()

	lbs := Labels("source", "file:capture.bin")
	s.Update(
		ConstMetric{Model: ModelCounter, Name: "serialacq_session_samples_total", Labels: lbs, Value: 10},
		ConstMetric{Model: ModelCounter, Name: "serialacq_session_samples_total", Labels: lbs, Value: 5},
		ConstMetric{Model: ModelGauge, Name: "serialacq_session_last_dropped_samples", Labels: lbs, Value: 3},
		ConstMetric{Model: ModelGauge, Name: "serialacq_session_last_dropped_samples", Labels: lbs, Value: 1},
	)

	var buf bytes.Buffer
	s.WritePrometheus(&buf)
	assert.Equal(t,
		"serialacq_session_last_dropped_samples{source=\"file:capture.bin\"} 1\n"+
			"serialacq_session_samples_total{source=\"file:capture.bin\"} 15\n",
		buf.String(),
	)
}

func TestStorageHistogram(t *testing.T) {
	s := NewWithConfig(Config{})
	defer s.Close()

	lbs := Labels("source", "serial")
	for _, v := range []float64{0.5, 1.2, 700} {
		s.Update(ConstMetric{Model: ModelHistogram, Name: "serialacq_session_elapsed_seconds", Labels: lbs, Value: v})
	}

	values := map[string]float64{}
	for _, cm := range s.Snapshot() {
		key := cm.Name
		for _, l := range cm.Labels {
			if l.Name == "le" {
				key += "/" + l.Value
			}
		}
		values[key] = cm.Value
	}
	assert.Equal(t, float64(1), values["serialacq_session_elapsed_seconds_bucket/0.5"])
	assert.Equal(t, float64(2), values["serialacq_session_elapsed_seconds_bucket/2"])
	assert.Equal(t, float64(3), values["serialacq_session_elapsed_seconds_bucket/+Inf"])
	assert.Equal(t, float64(3), values["serialacq_session_elapsed_seconds_count"])
	assert.InDelta(t, 701.7, values["serialacq_session_elapsed_seconds_sum"], 1e-9)
}

func TestStorageWriteRequest(t *testing.T) {
	s := NewWithConfig(Config{})
	defer s.Close()

	s.Update(ConstMetric{Model: ModelGauge, Name: "serialacq_session_last_samples_per_second", Labels: Labels("source", "serial"), Value: 15998})
	wr := s.WriteRequest()
	require.Len(t, wr.Timeseries, 1)

	ts := wr.Timeseries[0]
	assert.Equal(t, "__name__", ts.Labels[0].Name)
	assert.Equal(t, "serialacq_session_last_samples_per_second", ts.Labels[0].Value)
	assert.Equal(t, "source", ts.Labels[1].Name)
	assert.Equal(t, float64(15998), ts.Samples[0].Value)
}

func TestStorageRemoveExpired(t *testing.T) {
	s := NewWithConfig(Config{Expired: time.Minute})
	defer s.Close()

	s.Update(ConstMetric{Model: ModelCounter, Name: "serialacq_sessions_total", Labels: Labels("status", "ok"), Value: 1})
	s.RemoveExpired(fasttime.UnixTimestamp())
	assert.Len(t, s.Snapshot(), 1)

	s.RemoveExpired(fasttime.UnixTimestamp() + 120)
	assert.Empty(t, s.Snapshot())
}

func TestWritePrometheusEscape(t *testing.T) {
	var buf bytes.Buffer
	WritePrometheus(&buf, ConstMetric{Name: "m", Labels: Labels("path", `C:\dev "x"`), Value: 1.5})
	assert.Equal(t, "m{path=\"C:\\\\dev \\\"x\\\"\"} 1.5\n", buf.String())
}

func TestNewDisabled(t *testing.T) {
	conf, err := confengine.LoadContent([]byte("metricsStorage:\n  enabled: false\n"))
	require.NoError(t, err)

	s, err := New(conf)
	assert.NoError(t, err)
	assert.Nil(t, s)
}
