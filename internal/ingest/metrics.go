// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsIngest mirrors the teacher's pkg/ingestion/metrics.go shape:
// a handful of counters/histograms registered exactly once against the
// default registry, generalized from ingestion-specific names to
// pipeline-stage names.
type metricsIngest struct {
	messagesTotal *prometheus.CounterVec
	deferredTotal prometheus.Counter
	commitSeconds prometheus.Histogram
	inFlight      prometheus.Gauge
}

var (
	ingMetricsOnce sync.Once
	ingMetrics     *metricsIngest
)

func metrics() *metricsIngest {
	ingMetricsOnce.Do(func() {
		ingMetrics = &metricsIngest{
			messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "ingest_messages_total",
				Help: "Messages processed by the ingest runtime, by status.",
			}, []string{"status"}),
			deferredTotal: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "ingest_deferred_total",
				Help: "Messages deferred at admission because they carried dependencies.",
			}),
			commitSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "ingest_commit_seconds",
				Help:    "Wall time to commit one epoch to the graph.",
				Buckets: prometheus.DefBuckets,
			}),
			inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "ingest_in_flight",
				Help: "Messages currently being executed.",
			}),
		}
		prometheus.MustRegister(
			ingMetrics.messagesTotal,
			ingMetrics.deferredTotal,
			ingMetrics.commitSeconds,
			ingMetrics.inFlight,
		)
	})
	return ingMetrics
}
