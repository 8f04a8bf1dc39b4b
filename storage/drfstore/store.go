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

// Package drfstore is the thin Options/Open façade over
// drf.ChannelWriter that an ingest binary embeds.
package drfstore

import (
	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/digitalrf/digitalrf/drf"
)

// Options configures a channel store. Digital RF never compacts or
// expires files, so there are no retention knobs: only cadence, type,
// compression and a start index.
type Options struct {
	ChannelDir       string
	Config           drf.Config
	StartGlobalIndex uint64

	// Registerer, if set, enables the write-path counters described in
	// drf.Metrics, labeled with ChannelName.
	Registerer  prometheus.Registerer
	ChannelName string
}

// Open validates opts and returns a ready-to-use channel writer backed
// by the real HDF5 implementation.
func Open(logger log.Logger, opts Options) (*drf.ChannelWriter, error) {
	cw, err := drf.Open(logger, drf.NewH5Backend(), opts.ChannelDir, opts.Config, opts.StartGlobalIndex)
	if err != nil {
		return nil, err
	}
	if opts.Registerer != nil {
		cw.SetMetrics(drf.NewMetrics(opts.Registerer, opts.ChannelName))
	}
	return cw, nil
}
