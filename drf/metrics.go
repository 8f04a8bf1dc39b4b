// Copyright 2026 The Digital RF Authors
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

package drf

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the optional write-path counters a ChannelWriter reports
// through SetMetrics.
type Metrics struct {
	samplesWritten   prometheus.Counter
	filesOpened      prometheus.Counter
	overlapsRejected prometheus.Counter
}

// NewMetrics builds and registers a Metrics set under reg. channel is
// used as a constant label so multiple channels can share a registry.
func NewMetrics(reg prometheus.Registerer, channel string) *Metrics {
	m := &Metrics{
		samplesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "digitalrf",
			Name:        "samples_written_total",
			Help:        "Total samples from caller buffers appended to this channel; zero-filled gap samples are not counted.",
			ConstLabels: prometheus.Labels{"channel": channel},
		}),
		filesOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "digitalrf",
			Name:        "files_opened_total",
			Help:        "Total data files opened for this channel.",
			ConstLabels: prometheus.Labels{"channel": channel},
		}),
		overlapsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "digitalrf",
			Name:        "overlap_rejections_total",
			Help:        "Write calls rejected for starting before next_expected_index.",
			ConstLabels: prometheus.Labels{"channel": channel},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.samplesWritten, m.filesOpened, m.overlapsRejected)
	}
	return m
}
