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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/packetd/serialacq/common"
)

var (
	uptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "uptime",
			Help:      "Uptime in seconds",
		},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "build_info",
			Help:      "Build information",
		},
		[]string{"version", "git_hash", "build_time"},
	)

	sessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "sessions_total",
			Help:      "Acquisition sessions total",
		},
		[]string{"status"},
	)

	acquiredSamples = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "acquired_samples_total",
			Help:      "Acquired samples total",
		},
	)

	droppedSamples = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "dropped_samples_total",
			Help:      "Dropped samples total detected by gap analysis",
		},
	)

	decodeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "decode_failures_total",
			Help:      "Frames failed to decode total",
		},
	)

	streamReads = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "stream_reads_total",
			Help:      "Source reads total",
		},
		[]string{"source", "kind"},
	)

	streamBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "stream_received_bytes_total",
			Help:      "Source received bytes total",
		},
		[]string{"source"},
	)

	streamOverflows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "stream_overflows_total",
			Help:      "Discarded over-long frames total",
		},
		[]string{"source"},
	)

	watchDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "watch_dropped_samples_total",
			Help:      "Samples dropped by slow watch subscribers total",
		},
	)
)
