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
	"sort"
	"sync"
	"time"

	"github.com/prometheus/prometheus/prompb"

	"github.com/packetd/serialacq/confengine"
	"github.com/packetd/serialacq/internal/fasttime"
	"github.com/packetd/serialacq/internal/labels"
)

type Config struct {
	Enabled bool          `config:"enabled"`
	Expired time.Duration `config:"expired"`
}

// Storage 保存会话维度的汇总指标 供 remote write 以及 /session/metrics 使用
type Storage struct {
	cfg    Config
	mut    sync.RWMutex
	series map[string]*series
	done   chan struct{}
	once   sync.Once
}

// New 创建并返回 Storage 实例
//
// 当 .Enabled 为 false 时会返回空指针 调用方需先判断
func New(conf *confengine.Config) (*Storage, error) {
	var config Config
	if err := conf.UnpackChild("metricsStorage", &config); err != nil {
		return nil, err
	}
	if !config.Enabled {
		return nil, nil
	}
	return NewWithConfig(config), nil
}

func NewWithConfig(config Config) *Storage {
	if config.Expired <= 0 {
		config.Expired = 30 * time.Minute
	}
	storage := &Storage{
		cfg:    config,
		series: make(map[string]*series),
		done:   make(chan struct{}),
	}
	go storage.gc()
	return storage
}

func (s *Storage) getOrCreate(name string, model Model) *series {
	s.mut.RLock()
	inst, ok := s.series[name]
	s.mut.RUnlock()
	if ok {
		return inst
	}

	s.mut.Lock()
	defer s.mut.Unlock()

	if inst, ok = s.series[name]; ok {
		return inst
	}
	inst = newSeries(name, model, s.cfg.Expired, DefObserveDuration)
	s.series[name] = inst
	return inst
}

// Update 写入指标 同名指标以首次写入的 Model 为准
func (s *Storage) Update(cms ...ConstMetric) {
	for i := 0; i < len(cms); i++ {
		cm := cms[i]
		s.getOrCreate(cm.Name, cm.Model).update(cm.Value, cm.Labels)
	}
}

// Snapshot 返回按名称排序的全部常量指标
func (s *Storage) Snapshot() []ConstMetric {
	s.mut.RLock()
	all := make([]*series, 0, len(s.series))
	for _, inst := range s.series {
		all = append(all, inst)
	}
	s.mut.RUnlock()
	sort.Slice(all, func(i, j int) bool {
		return all[i].name < all[j].name
	})

	var cms []ConstMetric
	for _, inst := range all {
		cms = append(cms, inst.constMetrics()...)
	}
	return cms
}

func (s *Storage) gc() {
	ticker := time.NewTicker(s.cfg.Expired / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RemoveExpired(fasttime.UnixTimestamp())
		case <-s.done:
			return
		}
	}
}

// RemoveExpired 清理超过 Expired 未更新的时序
func (s *Storage) RemoveExpired(now int64) {
	s.mut.RLock()
	defer s.mut.RUnlock()

	for _, inst := range s.series {
		inst.removeExpired(now)
	}
}

func (s *Storage) WritePrometheus(w io.Writer) {
	WritePrometheus(w, s.Snapshot()...)
}

func (s *Storage) WriteRequest() *prompb.WriteRequest {
	return &prompb.WriteRequest{
		Timeseries: ToPrompbTimeSeries(s.Snapshot()...),
	}
}

func (s *Storage) Close() {
	s.once.Do(func() {
		close(s.done)
	})
}

// Labels 便于调用方构造标签
func Labels(pairs ...string) labels.Labels {
	return labels.New(pairs...)
}
