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

// Package pathplan maps a global sample index to the subdirectory and
// file that must hold it, plus the remaining capacity of both, without
// ever approximating the sample rate as a float.
package pathplan

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/digitalrf/digitalrf/internal/ratime"
)

// subdirLayout renders the ISO-8601 extended date with hyphens in the
// time part in place of colons.
const subdirLayout = "2006-01-02T15-04-05"

// Config is the subset of channel configuration the planner needs.
type Config struct {
	SubdirCadenceSecs    uint64
	FileCadenceMillisecs uint64
	Rate                 ratime.Rate
}

// Validate enforces the cadence-divisibility invariant:
// subdir_cadence_secs * 1000 must be a multiple of file_cadence_millisecs.
func (c Config) Validate() error {
	if err := c.Rate.Validate(); err != nil {
		return err
	}
	if c.SubdirCadenceSecs == 0 || c.FileCadenceMillisecs == 0 {
		return errors.New("subdir and file cadence must be positive")
	}
	if (c.SubdirCadenceSecs*1000)%c.FileCadenceMillisecs != 0 {
		return errors.Errorf("subdir_cadence_secs*1000 (%d) is not a multiple of file_cadence_millisecs (%d)",
			c.SubdirCadenceSecs*1000, c.FileCadenceMillisecs)
	}
	return nil
}

// Plan describes where global sample index G lives on disk and how much
// room remains in its file and subdirectory.
type Plan struct {
	SubdirName string
	FileName   string
	SubdirPath string // SubdirName, convenience join target

	FirstIndexOfSubdir uint64
	FirstIndexOfFile   uint64

	SampleOffsetWithinFile   uint64
	SamplesRemainingInFile   uint64
	SamplesRemainingInSubdir uint64
}

// firstIndexAtOrAfterSecond returns the smallest global sample index g such
// that g's unix time is >= the given whole second, i.e. ceil(second *
// num / den).
func firstIndexAtOrAfterSecond(second uint64, r ratime.Rate) (uint64, error) {
	// g >= second * num / den  <=>  g = ceil(second*num/den). UnixToIndex
	// rounds to nearest, so start from its estimate and correct by
	// walking in the direction that satisfies the boundary exactly.
	g, err := ratime.UnixToIndex(int64(second), 0, r)
	if err != nil {
		return 0, err
	}
	for {
		t, err := ratime.IndexToUnix(g, r)
		if err != nil {
			return 0, err
		}
		if uint64(t.UnixSecond) >= second {
			break
		}
		g++
	}
	// Walk back down in case rounding overshot past the true boundary.
	for g > 0 {
		t, err := ratime.IndexToUnix(g-1, r)
		if err != nil {
			break
		}
		if uint64(t.UnixSecond) < second {
			break
		}
		g--
	}
	return g, nil
}

// firstIndexAtOrAfterMillis is the millisecond-resolution analogue used
// for file boundaries.
func firstIndexAtOrAfterMillis(millis uint64, r ratime.Rate) (uint64, error) {
	sec := millis / 1000
	rem := millis % 1000
	g, err := firstIndexAtOrAfterSecond(sec, r)
	if err != nil {
		return 0, err
	}
	if rem == 0 {
		return g, nil
	}
	picosecond := rem * 1_000_000_000 // ms -> ps
	for {
		t, err := ratime.IndexToUnix(g, r)
		if err != nil {
			return 0, err
		}
		if uint64(t.UnixSecond) > sec || (uint64(t.UnixSecond) == sec && t.Picosecond >= picosecond) {
			break
		}
		g++
	}
	for g > 0 {
		t, err := ratime.IndexToUnix(g-1, r)
		if err != nil {
			break
		}
		if uint64(t.UnixSecond) < sec || (uint64(t.UnixSecond) == sec && t.Picosecond < picosecond) {
			break
		}
		g--
	}
	return g, nil
}

// Plan computes the full placement of global sample index g under cfg.
func (c Config) Plan(g uint64) (Plan, error) {
	if err := c.Validate(); err != nil {
		return Plan{}, err
	}

	t, err := ratime.IndexToUnix(g, c.Rate)
	if err != nil {
		return Plan{}, err
	}

	subdirStartSecond := (uint64(t.UnixSecond) / c.SubdirCadenceSecs) * c.SubdirCadenceSecs
	totalMillis := uint64(t.UnixSecond)*1000 + t.Picosecond/1_000_000_000
	fileStartMillis := (totalMillis / c.FileCadenceMillisecs) * c.FileCadenceMillisecs

	firstOfSubdir, err := firstIndexAtOrAfterSecond(subdirStartSecond, c.Rate)
	if err != nil {
		return Plan{}, err
	}
	firstOfFile, err := firstIndexAtOrAfterMillis(fileStartMillis, c.Rate)
	if err != nil {
		return Plan{}, err
	}
	firstOfNextSubdir, err := firstIndexAtOrAfterSecond(subdirStartSecond+c.SubdirCadenceSecs, c.Rate)
	if err != nil {
		return Plan{}, err
	}
	firstOfNextFile, err := firstIndexAtOrAfterMillis(fileStartMillis+c.FileCadenceMillisecs, c.Rate)
	if err != nil {
		return Plan{}, err
	}

	subdirTime := time.Unix(int64(subdirStartSecond), 0).UTC()
	subdirName := subdirTime.Format(subdirLayout)

	fileSec := fileStartMillis / 1000
	fileMilliRemainder := fileStartMillis % 1000
	fileName := fmt.Sprintf("rf@%d.%03d.h5", fileSec, fileMilliRemainder)

	return Plan{
		SubdirName:               subdirName,
		FileName:                 fileName,
		SubdirPath:               subdirName,
		FirstIndexOfSubdir:       firstOfSubdir,
		FirstIndexOfFile:         firstOfFile,
		SampleOffsetWithinFile:   g - firstOfFile,
		SamplesRemainingInFile:   firstOfNextFile - g,
		SamplesRemainingInSubdir: firstOfNextSubdir - g,
	}, nil
}
