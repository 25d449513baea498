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

package extraction

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsExtraction holds Prometheus metrics for Driver.Run.
type metricsExtraction struct {
	once sync.Once

	tablesProcessed prometheus.Counter
	tablesErrored   prometheus.Counter
	tablesSkipped   prometheus.Counter
	runDuration     prometheus.Histogram
}

var exMetrics metricsExtraction

func (m *metricsExtraction) init() {
	m.once.Do(func() {
		m.tablesProcessed = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tabex_extraction_tables_processed_total", Help: "Template tables successfully extracted",
		})
		m.tablesErrored = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tabex_extraction_tables_errored_total", Help: "Template tables that failed extraction",
		})
		m.tablesSkipped = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tabex_extraction_tables_skipped_total", Help: "Template tables skipped by tag filter or existing output",
		})
		m.runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "tabex_extraction_run_seconds", Help: "Wall-clock duration of a full Driver.Run call",
			Buckets: prometheus.DefBuckets,
		})
		prometheus.MustRegister(m.tablesProcessed, m.tablesErrored, m.tablesSkipped, m.runDuration)
	})
}

func recordTableOutcome(err error) {
	exMetrics.init()
	if err != nil {
		exMetrics.tablesErrored.Inc()
		return
	}
	exMetrics.tablesProcessed.Inc()
}

func recordSkipped(n int) {
	exMetrics.init()
	exMetrics.tablesSkipped.Add(float64(n))
}

func observeRunDuration(seconds float64) {
	exMetrics.init()
	exMetrics.runDuration.Observe(seconds)
}
