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
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/packetd/serialacq/acquisition"
	"github.com/packetd/serialacq/common"
	"github.com/packetd/serialacq/confengine"
	"github.com/packetd/serialacq/device"
	"github.com/packetd/serialacq/exporter"
	"github.com/packetd/serialacq/framestream"
	"github.com/packetd/serialacq/gapdetect"
	"github.com/packetd/serialacq/internal/json"
	"github.com/packetd/serialacq/internal/metricstorage"
	"github.com/packetd/serialacq/internal/pubsub"
	"github.com/packetd/serialacq/logger"
	"github.com/packetd/serialacq/protocol"
	"github.com/packetd/serialacq/server"
	"github.com/packetd/serialacq/source"
)

const finishTimeout = 5 * time.Second

// Result 一次会话的结果
type Result struct {
	Session *acquisition.Session
	Report  gapdetect.Report
	Summary *exporter.Summary
}

type Controller struct {
	ctx       context.Context
	cancel    context.CancelFunc
	buildInfo common.BuildInfo

	mut  sync.Mutex
	cfg  Config
	last *exporter.Summary

	src     source.Source
	cmd     device.Commander
	reader  *framestream.Reader
	decoder protocol.Decoder
	policy  acquisition.DecodePolicy

	exp     *exporter.Exporter
	svr     *server.Server
	storage *metricstorage.Storage
	bus     *pubsub.PubSub
}

func setupLogger(conf *confengine.Config) error {
	var opts logger.Options
	if err := conf.UnpackChild("logger", &opts); err != nil {
		return err
	}

	opts.Validate()
	logger.SetOptions(opts)
	return nil
}

func unpackConfig(conf *confengine.Config) (Config, error) {
	var cfg Config
	if err := conf.UnpackChild("acquisition", &cfg.Acquisition); err != nil {
		return cfg, err
	}
	if err := conf.UnpackChild("gapdetect", &cfg.GapDetect); err != nil {
		return cfg, err
	}

	// 提前校验 避免运行到会话开始时才发现参数非法
	if _, err := acquisition.NewSession(acquisition.NewDefaults(), cfg.Acquisition.Params()); err != nil {
		return cfg, err
	}
	if _, err := acquisition.ParseDecodePolicy(cfg.Acquisition.DecodePolicy); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newCommander(conf *confengine.Config, src source.Source) (device.Commander, error) {
	var cfg device.Config
	if err := conf.UnpackChild("device", &cfg); err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return device.Nop(), nil
	}

	w, ok := src.(source.Writable)
	if !ok {
		logger.Warnf("source %s is not writable, device commands disabled", src.Name())
		return device.Nop(), nil
	}
	return device.New(w, w, cfg), nil
}

func New(conf *confengine.Config, buildInfo common.BuildInfo) (*Controller, error) {
	if err := setupLogger(conf); err != nil {
		return nil, err
	}

	cfg, err := unpackConfig(conf)
	if err != nil {
		return nil, err
	}
	policy, _ := acquisition.ParseDecodePolicy(cfg.Acquisition.DecodePolicy)

	var fsCfg framestream.Config
	if err := conf.UnpackChild("framestream", &fsCfg); err != nil {
		return nil, err
	}

	decoder, err := protocol.New(conf)
	if err != nil {
		return nil, err
	}

	storage, err := metricstorage.New(conf)
	if err != nil {
		return nil, err
	}

	exp, err := exporter.New(conf, storage)
	if err != nil {
		return nil, err
	}

	svr, err := server.New(conf)
	if err != nil {
		return nil, err
	}

	src, err := source.New(conf)
	if err != nil {
		return nil, err
	}

	reader, err := framestream.New(src, fsCfg)
	if err != nil {
		src.Close()
		return nil, err
	}

	cmd, err := newCommander(conf, src)
	if err != nil {
		src.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		ctx:       ctx,
		cancel:    cancel,
		buildInfo: buildInfo,
		cfg:       cfg,
		src:       src,
		cmd:       cmd,
		reader:    reader,
		decoder:   decoder,
		policy:    policy,
		exp:       exp,
		svr:       svr,
		storage:   storage,
		bus:       pubsub.New(),
	}, nil
}

func (c *Controller) Start() error {
	c.setupServer()

	if c.svr != nil {
		go func() {
			err := c.svr.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorf("failed to start server: %v", err)
			}
		}()
	}

	c.exp.Start()
	return nil
}

func (c *Controller) config() Config {
	c.mut.Lock()
	defer c.mut.Unlock()
	return c.cfg
}

// Reload 重新加载会话参数 下一次会话开始时生效
func (c *Controller) Reload(conf *confengine.Config) error {
	cfg, err := unpackConfig(conf)
	if err != nil {
		return err
	}
	policy, _ := acquisition.ParseDecodePolicy(cfg.Acquisition.DecodePolicy)

	c.mut.Lock()
	defer c.mut.Unlock()
	c.cfg = cfg
	c.policy = policy
	return nil
}

// LastSummary 返回最近一次会话的汇总 尚无会话时返回 nil
func (c *Controller) LastSummary() *exporter.Summary {
	c.mut.Lock()
	defer c.mut.Unlock()
	return c.last
}

// Run 按配置循环执行会话 直到 ctx 结束或达到会话次数
func (c *Controller) Run(ctx context.Context) error {
	for n := 1; ; n++ {
		if _, err := c.RunSession(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		cfg := c.config()
		if cfg.Acquisition.Sessions > 0 && n >= cfg.Acquisition.Sessions {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(cfg.Acquisition.GetInterval()):
		}
	}
}

// RunSession 执行一次完整的采集会话
//
// 会话失败时依旧返回已采集的结果以及汇总
func (c *Controller) RunSession(ctx context.Context) (*Result, error) {
	cfg := c.config()
	c.mut.Lock()
	policy := c.policy
	c.mut.Unlock()

	sess, err := acquisition.NewSession(acquisition.NewDefaults(), cfg.Acquisition.Params())
	if err != nil {
		return nil, err
	}

	if err := c.cmd.Prepare(ctx); err != nil {
		logger.Warnf("session %s: prepare device failed: %v", sess.ID, err)
	}
	if err := c.src.Flush(); err != nil {
		logger.Warnf("session %s: flush source failed: %v", sess.ID, err)
	}

	// ctx 结束时关闭数据源 使阻塞在系统调用中的 Read 返回
	stop := context.AfterFunc(ctx, func() {
		c.src.Close()
	})
	defer stop()

	// 上一次会话残留的不完整帧以及待拼接的字节不属于本次会话
	c.reader.Reset()
	c.decoder.Reset()
	acq := acquisition.New(c.reader, c.decoder,
		acquisition.WithDecodePolicy(policy),
		acquisition.WithWarmUp(cfg.Acquisition.WarmUp),
		acquisition.WithDisplay(c.newDisplay(sess)),
	)

	logger.Infof("session %s: acquiring from %s (maxSamples=%d, duration=%s, speed=%d)",
		sess.ID, c.src.Name(), sess.MaxSamples, sess.Duration, sess.Speed)
	acqErr := acq.Acquire(ctx, sess)

	finishCtx, cancel := context.WithTimeout(context.Background(), finishTimeout)
	if err := c.cmd.Finish(finishCtx); err != nil {
		logger.Warnf("session %s: finish device failed: %v", sess.ID, err)
	}
	cancel()

	expected := cfg.GapDetect.Expected
	if expected <= 0 {
		expected = sess.Counter
	}
	report := gapdetect.FindDropped(sess.Samples, expected)

	summary := c.summarize(sess, report, acqErr)
	c.recordSession(summary)
	if err := c.exp.Export(&common.Record{RecordType: common.RecordSummary, Data: summary}); err != nil {
		logger.Errorf("session %s: export summary failed: %v", sess.ID, err)
	}

	logger.Infof("session %s: duration %.3fs, %d samples, %.2f samples/sec, %d dropped",
		sess.ID, sess.ElapsedSeconds(), sess.Counter, sess.SamplesPerSecond(), report.Dropped)
	if sess.DecodeErr != nil {
		logger.Warnf("session %s: %d frames failed to decode: %v", sess.ID, sess.DecodeFailures, sess.DecodeErr.ErrorOrNil())
	}

	return &Result{Session: sess, Report: report, Summary: summary}, acqErr
}

func (c *Controller) summarize(sess *acquisition.Session, report gapdetect.Report, acqErr error) *exporter.Summary {
	summary := &exporter.Summary{
		Session:          sess.ID,
		Source:           c.src.Name(),
		Start:            sess.StartTime,
		Elapsed:          sess.Elapsed(),
		Samples:          sess.Counter,
		Frames:           sess.Frames,
		SamplesPerSecond: sess.SamplesPerSecond(),
		DecodeFailures:   sess.DecodeFailures,
		DisplayFailures:  sess.DisplayFailures,
		Truncated:        sess.Truncated,
		Expected:         report.Expected,
		Dropped:          report.Dropped,
		Duplicates:       report.Duplicates,
		Unsequenced:      report.Unsequenced,
	}
	if c.config().GapDetect.Annotate {
		summary.Missing = report.Missing
	}
	if acqErr != nil {
		summary.Err = acqErr.Error()
	}
	return summary
}

func (c *Controller) recordSession(summary *exporter.Summary) {
	status := "ok"
	if summary.Err != "" {
		status = "failed"
	}
	sessionsTotal.WithLabelValues(status).Inc()
	droppedSamples.Add(float64(summary.Dropped))
	decodeFailures.Add(float64(summary.DecodeFailures))

	stats := c.reader.Stats()
	streamReads.WithLabelValues(summary.Source, "all").Set(float64(stats.Reads))
	streamReads.WithLabelValues(summary.Source, "short").Set(float64(stats.ShortReads))
	streamBytes.WithLabelValues(summary.Source).Set(float64(stats.Bytes))
	streamOverflows.WithLabelValues(summary.Source).Set(float64(stats.Overflows))

	c.mut.Lock()
	c.last = summary
	c.mut.Unlock()
}

func (c *Controller) newDisplay(sess *acquisition.Session) acquisition.Display {
	src := c.src.Name()
	return acquisition.MultiDisplay(
		acquisition.DisplayFunc(func(s *protocol.Sample) error {
			acquiredSamples.Inc()
			return c.exp.Export(&common.Record{
				RecordType: common.RecordSamples,
				Data:       &exporter.SampleRecord{Session: sess.ID, Source: src, Sample: s},
			})
		}),
		acquisition.DisplayFunc(func(s *protocol.Sample) error {
			if c.bus.Num() == 0 {
				return nil
			}
			b, err := json.Marshal(exporter.NewSampleLine(&exporter.SampleRecord{Session: sess.ID, Source: src, Sample: s}))
			if err != nil {
				return err
			}
			c.bus.Publish(b)
			return nil
		}),
	)
}

func (c *Controller) recordMetrics() {
	uptime.Set(time.Since(common.Started()).Seconds())
	buildInfo.WithLabelValues(c.buildInfo.Version, c.buildInfo.GitHash, c.buildInfo.Time).Set(1)
}

func (c *Controller) Stop() error {
	c.cancel()

	var errs error
	if c.svr != nil {
		ctx, cancel := context.WithTimeout(context.Background(), finishTimeout)
		if err := c.svr.Shutdown(ctx); err != nil {
			errs = multierror.Append(errs, err)
		}
		cancel()
	}
	if err := c.src.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := c.exp.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if c.storage != nil {
		c.storage.Close()
	}
	return errs
}
