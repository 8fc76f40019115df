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

package exporter

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/packetd/serialacq/common"
	"github.com/packetd/serialacq/confengine"
	"github.com/packetd/serialacq/internal/metricstorage"
	"github.com/packetd/serialacq/logger"
)

// 会话汇总指标名称
const (
	metricSessionsTotal        = common.App + "_sessions_total"
	metricSamplesTotal         = common.App + "_session_samples_total"
	metricDroppedTotal         = common.App + "_session_dropped_samples_total"
	metricDecodeFailuresTotal  = common.App + "_session_decode_failures_total"
	metricLastSamplesPerSecond = common.App + "_session_last_samples_per_second"
	metricLastDropped          = common.App + "_session_last_dropped_samples"
	metricElapsedSeconds       = common.App + "_session_elapsed_seconds"
)

type Exporter struct {
	ctx    context.Context
	cancel context.CancelFunc
	conf   Config
	wg     sync.WaitGroup

	metricsStorage *metricstorage.Storage

	samplesSinker Sinker
	metricsSinker Sinker
}

func New(conf *confengine.Config, metricsStorage *metricstorage.Storage) (*Exporter, error) {
	var cfg Config
	if err := conf.UnpackChild("exporter", &cfg); err != nil {
		return nil, err
	}
	return NewWithConfig(cfg, metricsStorage)
}

func NewWithConfig(cfg Config, metricsStorage *metricstorage.Storage) (*Exporter, error) {
	var err error
	var samplesSinker Sinker
	if cfg.Samples.Enabled {
		f := Get(common.RecordSamples)
		if f == nil {
			return nil, errors.New("exporter: samples sinker not registered")
		}
		if samplesSinker, err = f(cfg); err != nil {
			return nil, err
		}
	}

	var metricsSinker Sinker
	if cfg.Metrics.Enabled && metricsStorage != nil {
		if cfg.Metrics.Endpoint == "" {
			return nil, errors.New("exporter: metrics endpoint required")
		}
		if err = cfg.Metrics.Validate(); err != nil {
			return nil, err
		}
		f := Get(common.RecordSummary)
		if f == nil {
			return nil, errors.New("exporter: metrics sinker not registered")
		}
		if metricsSinker, err = f(cfg); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Exporter{
		ctx:            ctx,
		cancel:         cancel,
		conf:           cfg,
		metricsStorage: metricsStorage,
		samplesSinker:  samplesSinker,
		metricsSinker:  metricsSinker,
	}, nil
}

func (e *Exporter) Start() {
	if e.metricsSinker != nil {
		e.wg.Add(1)
		go e.loopExportMetrics()
	}
}

// Close 推送最后一次指标并关闭所有 Sinker
func (e *Exporter) Close() error {
	e.cancel()
	e.wg.Wait()

	var errs error
	if e.metricsSinker != nil {
		if err := e.metricsSinker.Sink(e.metricsStorage.WriteRequest()); err != nil {
			errs = multierror.Append(errs, err)
		}
		if err := e.metricsSinker.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if e.samplesSinker != nil {
		if err := e.samplesSinker.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs
}

func (e *Exporter) Export(record *common.Record) error {
	switch record.RecordType {
	case common.RecordSamples:
		if e.samplesSinker == nil {
			return nil
		}
		return e.samplesSinker.Sink(record.Data)

	case common.RecordSummary:
		summary, ok := record.Data.(*Summary)
		if !ok {
			return nil
		}
		if e.metricsStorage != nil {
			e.metricsStorage.Update(summaryMetrics(summary)...)
		}
		if e.samplesSinker != nil && e.conf.Samples.Summary {
			return e.samplesSinker.Sink(summary)
		}
	}
	return nil
}

func summaryMetrics(s *Summary) []metricstorage.ConstMetric {
	lbs := metricstorage.Labels("source", s.Source)
	status := "ok"
	if s.Err != "" {
		status = "failed"
	}

	return []metricstorage.ConstMetric{
		{Model: metricstorage.ModelCounter, Name: metricSessionsTotal, Labels: lbs.With("status", status), Value: 1},
		{Model: metricstorage.ModelCounter, Name: metricSamplesTotal, Labels: lbs, Value: float64(s.Samples)},
		{Model: metricstorage.ModelCounter, Name: metricDroppedTotal, Labels: lbs, Value: float64(s.Dropped)},
		{Model: metricstorage.ModelCounter, Name: metricDecodeFailuresTotal, Labels: lbs, Value: float64(s.DecodeFailures)},
		{Model: metricstorage.ModelGauge, Name: metricLastSamplesPerSecond, Labels: lbs, Value: s.SamplesPerSecond},
		{Model: metricstorage.ModelGauge, Name: metricLastDropped, Labels: lbs, Value: float64(s.Dropped)},
		{Model: metricstorage.ModelHistogram, Name: metricElapsedSeconds, Labels: lbs, Value: s.Elapsed.Seconds()},
	}
}

func (e *Exporter) loopExportMetrics() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.conf.Metrics.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return

		case <-ticker.C:
			if err := e.metricsSinker.Sink(e.metricsStorage.WriteRequest()); err != nil {
				logger.Errorf("sink metrics failed: %v", err)
			}
		}
	}
}
