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

package pipeline

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsPipeline holds Prometheus metrics for the scheduler.
type metricsPipeline struct {
	once sync.Once

	phasesRun    prometheus.Counter
	nodesSuccess prometheus.Counter
	nodesErrored prometheus.Counter
	nodesUnproc  prometheus.Counter
}

var plMetrics metricsPipeline

func (m *metricsPipeline) init() {
	m.once.Do(func() {
		m.phasesRun = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tabex_pipeline_phases_total", Help: "Scheduler phases executed",
		})
		m.nodesSuccess = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tabex_pipeline_nodes_success_total", Help: "Nodes that completed successfully",
		})
		m.nodesErrored = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tabex_pipeline_nodes_errored_total", Help: "Nodes that errored during processing",
		})
		m.nodesUnproc = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tabex_pipeline_nodes_unprocessed_total", Help: "Nodes left unprocessed due to missing dependencies or cycles",
		})
		prometheus.MustRegister(m.phasesRun, m.nodesSuccess, m.nodesErrored, m.nodesUnproc)
	})
}

func recordPhaseRun() { plMetrics.init(); plMetrics.phasesRun.Inc() }

func recordNodeOutcome(kind NodeResultKind) {
	plMetrics.init()
	switch kind {
	case ResultSuccess:
		plMetrics.nodesSuccess.Inc()
	case ResultProcessErrored:
		plMetrics.nodesErrored.Inc()
	case ResultUnprocessed:
		plMetrics.nodesUnproc.Inc()
	}
}
