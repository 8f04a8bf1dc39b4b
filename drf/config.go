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

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/digitalrf/digitalrf/internal/pathplan"
	"github.com/digitalrf/digitalrf/internal/ratime"
)

// Config is the immutable per-channel configuration set at first open.
// It is shared, unchanged, between the Channel Writer, File Writer and
// Properties Emitter.
type Config struct {
	Rate ratime.Rate

	SubdirCadenceSecs    uint64
	FileCadenceMillisecs uint64

	SampleType     SampleType
	NumSubchannels int

	IsContinuous bool

	CompressionLevel int // 0..9
	Checksum         bool

	UUID string

	// MarchingPeriods, if true, emits one '.' to the heartbeat sink per
	// new subdirectory, a cosmetic legacy indicator. The sink defaults
	// to os.Stderr; tests override it with SetHeartbeat.
	MarchingPeriods bool
}

// Validate rejects a config the channel cannot be created with.
func (c Config) Validate() error {
	if err := c.SampleType.Validate(); err != nil {
		return newErr(KindConfigInvalid, "Config.Validate", err)
	}
	if c.NumSubchannels <= 0 {
		return newErr(KindConfigInvalid, "Config.Validate", errors.Errorf("num_subchannels must be positive, got %d", c.NumSubchannels))
	}
	if c.CompressionLevel < 0 || c.CompressionLevel > 9 {
		return newErr(KindConfigInvalid, "Config.Validate", errors.Errorf("compression_level must be in [0,9], got %d", c.CompressionLevel))
	}
	pp := pathplan.Config{
		SubdirCadenceSecs:    c.SubdirCadenceSecs,
		FileCadenceMillisecs: c.FileCadenceMillisecs,
		Rate:                 c.Rate,
	}
	if err := pp.Validate(); err != nil {
		return newErr(KindConfigInvalid, "Config.Validate", err)
	}
	return nil
}

// GenerateUUID returns a fresh random identifier suitable for
// Config.UUID, for callers that don't already have a channel-level
// opaque identifier to echo into every file.
func GenerateUUID() string { return uuid.NewString() }

func (c Config) planner() pathplan.Config {
	return pathplan.Config{
		SubdirCadenceSecs:    c.SubdirCadenceSecs,
		FileCadenceMillisecs: c.FileCadenceMillisecs,
		Rate:                 c.Rate,
	}
}
