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
	"io"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/prometheus/prompb"

	"github.com/packetd/serialacq/internal/fasttime"
	"github.com/packetd/serialacq/internal/labels"
)

// DefObserveDuration 会话耗时的默认桶分布
var DefObserveDuration = []float64{
	0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600,
}

type Model uint8

const (
	ModelCounter Model = iota
	ModelGauge
	ModelHistogram
)

type ConstMetric struct {
	Model  Model
	Name   string
	Labels labels.Labels
	Value  float64
}

type entry struct {
	lbs     labels.Labels
	val     float64
	buckets []float64
	sum     float64
	count   float64
	updated int64
}

// series 同名指标按标签集合分组存储
type series struct {
	mut     sync.RWMutex
	name    string
	model   Model
	bounds  []float64
	entries map[uint64]*entry
	expired time.Duration
}

func newSeries(name string, model Model, expired time.Duration, bounds []float64) *series {
	s := &series{
		name:    name,
		model:   model,
		expired: expired,
		entries: make(map[uint64]*entry),
	}
	if model == ModelHistogram {
		s.bounds = append(append([]float64{}, bounds...), math.Inf(+1))
	}
	return s
}

func (s *series) getOrCreate(lbs labels.Labels) *entry {
	hash := lbs.Hash()
	e, ok := s.entries[hash]
	if !ok {
		e = &entry{lbs: lbs}
		if s.model == ModelHistogram {
			e.buckets = make([]float64, len(s.bounds))
		}
		s.entries[hash] = e
	}
	e.updated = fasttime.UnixTimestamp()
	return e
}

func (s *series) update(v float64, lbs labels.Labels) {
	s.mut.Lock()
	defer s.mut.Unlock()

	e := s.getOrCreate(lbs)
	switch s.model {
	case ModelCounter:
		e.val += v
	case ModelGauge:
		e.val = v
	case ModelHistogram:
		for i := 0; i < len(s.bounds); i++ {
			if s.bounds[i] >= v {
				e.buckets[i]++
			}
		}
		e.count++
		e.sum += v
	}
}

func (s *series) removeExpired(now int64) {
	s.mut.Lock()
	defer s.mut.Unlock()

	sec := int64(s.expired.Seconds())
	for hash, e := range s.entries {
		if now-e.updated > sec {
			delete(s.entries, hash)
		}
	}
}

// constMetrics 展开为常量指标 直方图展开为 _bucket / _sum / _count
func (s *series) constMetrics() []ConstMetric {
	s.mut.RLock()
	defer s.mut.RUnlock()

	var cms []ConstMetric
	for _, e := range s.entries {
		if s.model != ModelHistogram {
			cms = append(cms, ConstMetric{Model: s.model, Name: s.name, Labels: e.lbs, Value: e.val})
			continue
		}

		for i, bound := range s.bounds {
			le := strconv.FormatFloat(bound, 'f', -1, 64)
			cms = append(cms, ConstMetric{
				Model:  s.model,
				Name:   s.name + "_bucket",
				Labels: e.lbs.With("le", le),
				Value:  e.buckets[i],
			})
		}
		cms = append(cms,
			ConstMetric{Model: s.model, Name: s.name + "_sum", Labels: e.lbs, Value: e.sum},
			ConstMetric{Model: s.model, Name: s.name + "_count", Labels: e.lbs, Value: e.count},
		)
	}
	return cms
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`, `"`, `\"`)

// WritePrometheus 以 Prometheus 文本格式输出
func WritePrometheus(w io.Writer, metrics ...ConstMetric) {
	for i := 0; i < len(metrics); i++ {
		metric := metrics[i]
		w.Write([]byte(metric.Name))
		w.Write([]byte(`{`))

		for n, label := range metric.Labels {
			if n > 0 {
				w.Write([]byte(`,`))
			}
			w.Write([]byte(label.Name))
			w.Write([]byte(`="`))
			w.Write([]byte(labelEscaper.Replace(label.Value)))
			w.Write([]byte(`"`))
		}

		w.Write([]byte("} "))
		w.Write([]byte(strconv.FormatFloat(metric.Value, 'f', -1, 64)))
		w.Write([]byte("\n"))
	}
}

// ToPrompbTimeSeries 转换为 remote write 时序
func ToPrompbTimeSeries(metrics ...ConstMetric) []prompb.TimeSeries {
	ts := fasttime.UnixMilli()
	seriess := make([]prompb.TimeSeries, 0, len(metrics))
	for _, metric := range metrics {
		lbs := make([]prompb.Label, 0, len(metric.Labels)+1)
		lbs = append(lbs, prompb.Label{
			Name:  "__name__",
			Value: metric.Name,
		})
		for _, label := range metric.Labels {
			lbs = append(lbs, prompb.Label{
				Name:  label.Name,
				Value: label.Value,
			})
		}
		seriess = append(seriess, prompb.TimeSeries{
			Labels: lbs,
			Samples: []prompb.Sample{{
				Value:     metric.Value,
				Timestamp: ts,
			}},
		})
	}
	return seriess
}
