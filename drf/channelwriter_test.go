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
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/digitalrf/digitalrf/internal/ratime"
)

// testConfig is a 1kHz channel with a 100ms (100-sample) file cadence
// and a 1s (1000-sample, 10-file) subdirectory cadence, used across
// every scenario below unless noted.
func testConfig(continuous bool) Config {
	return Config{
		Rate:                 ratime.Rate{Num: 1000, Den: 1},
		SubdirCadenceSecs:    1,
		FileCadenceMillisecs: 100,
		SampleType:           Int16LE(),
		NumSubchannels:       1,
		IsContinuous:         continuous,
		UUID:                 "test-channel",
	}
}

func mustOpen(t *testing.T, cfg Config, start uint64) (*ChannelWriter, *fakeBackend) {
	t.Helper()
	backend := newFakeBackend()
	cw, err := Open(nil, backend, t.TempDir(), cfg, start)
	require.NoError(t, err)
	return cw, backend
}

func samples(n uint64) []byte {
	return make([]byte, n*2) // int16, 1 subchannel
}

// S1: a write entirely inside one file.
func TestWriteSingleFileContinuous(t *testing.T) {
	cw, _ := mustOpen(t, testConfig(true), 0)
	require.NoError(t, cw.Write(samples(50), 50))

	assert.Equal(t, uint64(50), cw.NextExpectedIndex())
	last, ok := cw.LastWrittenIndex()
	require.True(t, ok)
	assert.Equal(t, uint64(49), last)
	assert.Contains(t, cw.LastFileWritten(), "rf@0.000.h5")
}

// S2: a write that crosses exactly one file boundary (100 samples/file).
func TestWriteCrossesFileBoundary(t *testing.T) {
	cw, _ := mustOpen(t, testConfig(true), 0)
	require.NoError(t, cw.Write(samples(150), 150))

	assert.Equal(t, uint64(150), cw.NextExpectedIndex())
	assert.Contains(t, cw.LastFileWritten(), "rf@0.100.h5")
}

// S3: a write that crosses a subdirectory boundary (1000 samples/subdir).
func TestWriteCrossesSubdirBoundary(t *testing.T) {
	cw, _ := mustOpen(t, testConfig(true), 0)
	require.NoError(t, cw.Write(samples(1005), 1005))

	assert.Equal(t, uint64(1005), cw.NextExpectedIndex())
	assert.NotContains(t, cw.LastDirWritten(), "1970-01-01T00-00-00")
}

// S4: a gap in non-continuous mode must not zero-fill; the second run
// gets its own index row at the true global index. The gap stays inside
// one 100-sample file so both runs land in rf@0.000.h5.
func TestWriteBlocksGapNonContinuous(t *testing.T) {
	cw, backend := mustOpen(t, testConfig(false), 0)

	buf := samples(20)
	err := cw.WriteBlocks(buf, []uint64{0, 50}, []uint64{0, 10}, 20)
	require.NoError(t, err)

	// The file holds exactly 20 samples of real data, not 60, with one
	// index row per run.
	path := cw.LastFileWritten()
	df := backend.mustDataFile(t, path)
	assert.Equal(t, uint64(20), df.NumSamples())
	assert.Equal(t, []indexRow{{0, 0}, {50, 10}}, df.index)
	assert.Equal(t, uint64(60), cw.NextExpectedIndex())
}

// S5: the same gap, but in continuous mode, must zero-fill the space
// between the two runs.
func TestWriteBlocksGapContinuousZeroFills(t *testing.T) {
	cw, backend := mustOpen(t, testConfig(true), 0)

	buf := samples(20)
	err := cw.WriteBlocks(buf, []uint64{0, 50}, []uint64{0, 10}, 20)
	require.NoError(t, err)

	path := cw.LastFileWritten()
	df := backend.mustDataFile(t, path)
	// 10 real + 40 zero-filled gap + 10 real = 60 samples on disk,
	// presented to readers as a single run.
	assert.Equal(t, uint64(60), df.NumSamples())
	assert.Equal(t, []indexRow{{0, 0}}, df.index)
	assert.Equal(t, uint64(60), cw.NextExpectedIndex())
}

// A gap that lands past the end of the current file must not be
// zero-filled across the boundary: the old file keeps its short length
// and the new file begins at the run's own index.
func TestContinuousGapNeverFillsAcrossFiles(t *testing.T) {
	cw, backend := mustOpen(t, testConfig(true), 0)

	require.NoError(t, cw.Write(samples(10), 10))
	require.NoError(t, cw.WriteBlocks(samples(10), []uint64{150}, []uint64{0}, 10))

	first := backend.mustDataFile(t, filepath.Join(cw.channelDir, "1970-01-01T00-00-00", "rf@0.000.h5"))
	assert.Equal(t, uint64(10), first.NumSamples())

	second := backend.mustDataFile(t, filepath.Join(cw.channelDir, "1970-01-01T00-00-00", "rf@0.100.h5"))
	assert.Equal(t, uint64(10), second.NumSamples())
	assert.Equal(t, []indexRow{{150, 0}}, second.index)
}

// S6: writing before next_expected_index must be rejected as an
// overlap, never silently accepted or truncated.
func TestWriteOverlapRejected(t *testing.T) {
	cw, _ := mustOpen(t, testConfig(true), 0)
	require.NoError(t, cw.Write(samples(50), 50))

	err := cw.WriteBlocks(samples(10), []uint64{25}, []uint64{0}, 10)
	require.Error(t, err)

	assert.True(t, errors.Is(err, Sentinel(KindOverlap)))
	assert.False(t, errors.Is(err, Sentinel(KindOrder)))
	// next_expected_index must be unchanged by the rejected call.
	assert.Equal(t, uint64(50), cw.NextExpectedIndex())
}

func TestWriteBlocksRejectsNonIncreasingOffsets(t *testing.T) {
	cw, _ := mustOpen(t, testConfig(true), 0)
	err := cw.WriteBlocks(samples(20), []uint64{0, 5}, []uint64{0, 0}, 20)
	require.Error(t, err)
	var de *Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, KindOrder, de.Kind)
}

func TestReopenWithMismatchedConfigIsPropertiesConflict(t *testing.T) {
	backend := newFakeBackend()
	dir := t.TempDir()

	cfg := testConfig(true)
	cw, err := Open(nil, backend, dir, cfg, 0)
	require.NoError(t, err)
	require.NoError(t, cw.Close())

	cfg2 := cfg
	cfg2.NumSubchannels = 2
	_, err = Open(nil, backend, dir, cfg2, 0)
	require.Error(t, err)
	var de *Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, KindPropertiesConflict, de.Kind)
}

func TestReopenWithMatchingConfigSucceeds(t *testing.T) {
	backend := newFakeBackend()
	dir := t.TempDir()

	cfg := testConfig(true)
	cw, err := Open(nil, backend, dir, cfg, 0)
	require.NoError(t, err)
	require.NoError(t, cw.Close())

	cw2, err := Open(nil, backend, dir, cfg, 0)
	require.NoError(t, err)
	require.NoError(t, cw2.Close())
}

// The engine never clobbers: a pre-existing file at the planned path
// fails the write and leaves the bookkeeping untouched.
func TestWriteIntoExistingFileRejected(t *testing.T) {
	cw, _ := mustOpen(t, testConfig(true), 0)

	subdir := filepath.Join(cw.channelDir, "1970-01-01T00-00-00")
	require.NoError(t, os.MkdirAll(subdir, 0777))
	f, err := os.Create(filepath.Join(subdir, "rf@0.000.h5"))
	require.NoError(t, err)
	f.Close()

	err = cw.Write(samples(10), 10)
	require.Error(t, err)
	var de *Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, KindFileExists, de.Kind)
	assert.Equal(t, uint64(0), cw.NextExpectedIndex())
	assert.Empty(t, cw.LastFileWritten())
}

// A 200 S/s channel with 1000ms files: 250 samples span rf@0.000.h5
// (200 rows) and rf@1.000.h5 (50 rows, run starting at 200).
func TestWriteAt200HzSpansSecondFile(t *testing.T) {
	cfg := Config{
		Rate:                 ratime.Rate{Num: 200, Den: 1},
		SubdirCadenceSecs:    3600,
		FileCadenceMillisecs: 1000,
		SampleType:           Int16LE(),
		NumSubchannels:       1,
		IsContinuous:         true,
		UUID:                 "test-channel",
	}
	cw, backend := mustOpen(t, cfg, 0)
	require.NoError(t, cw.Write(samples(250), 250))

	subdir := filepath.Join(cw.channelDir, "1970-01-01T00-00-00")
	first := backend.mustDataFile(t, filepath.Join(subdir, "rf@0.000.h5"))
	assert.Equal(t, uint64(200), first.NumSamples())
	assert.Equal(t, []indexRow{{0, 0}}, first.index)

	second := backend.mustDataFile(t, filepath.Join(subdir, "rf@1.000.h5"))
	assert.Equal(t, uint64(50), second.NumSamples())
	assert.Equal(t, []indexRow{{200, 0}}, second.index)
}

func TestMarchingPeriodsEmitOnSubdirCrossings(t *testing.T) {
	cfg := testConfig(true)
	cfg.MarchingPeriods = true
	cw, _ := mustOpen(t, cfg, 0)

	var heartbeat bytes.Buffer
	cw.SetHeartbeat(&heartbeat)

	// 2500 samples at 1000/subdir: subdirs 00, 01 and 02, two crossings.
	require.NoError(t, cw.Write(samples(2500), 2500))
	assert.Equal(t, "..", heartbeat.String())
}

// Structural invariants over random gapped write sequences: every
// written sample is accounted for exactly once across the produced
// files, and each file's index is strictly increasing in both columns
// with its final row inside the dataset.
func TestGappedWritesAccountForEverySample(t *testing.T) {
	root := t.TempDir()
	iter := 0
	rapid.Check(t, func(rt *rapid.T) {
		iter++
		backend := newFakeBackend()
		dir := filepath.Join(root, fmt.Sprintf("ch%d", iter))
		cw, err := Open(nil, backend, dir, testConfig(false), 0)
		require.NoError(rt, err)

		numRuns := rapid.IntRange(1, 5).Draw(rt, "runs")
		var (
			globalIndices []uint64
			blockOffsets  []uint64
			g, off        uint64
		)
		for i := 0; i < numRuns; i++ {
			if i > 0 {
				gap := rapid.Uint64Range(1, 250).Draw(rt, "gap")
				g += gap
			}
			globalIndices = append(globalIndices, g)
			blockOffsets = append(blockOffsets, off)
			runLen := rapid.Uint64Range(1, 40).Draw(rt, "runlen")
			g += runLen
			off += runLen
		}
		nSamples := off
		require.NoError(rt, cw.WriteBlocks(samples(nSamples), globalIndices, blockOffsets, nSamples))

		var total uint64
		for _, df := range backend.files {
			total += df.NumSamples()
			require.NotEmpty(rt, df.index)
			assert.Equal(rt, uint64(0), df.index[0].SampleIndex)
			for i := 1; i < len(df.index); i++ {
				assert.Greater(rt, df.index[i].GlobalIndex, df.index[i-1].GlobalIndex)
				assert.Greater(rt, df.index[i].SampleIndex, df.index[i-1].SampleIndex)
			}
			assert.Less(rt, df.index[len(df.index)-1].SampleIndex, df.NumSamples())
		}
		assert.Equal(rt, nSamples, total)
		require.NoError(rt, cw.Close())
	})
}

// mustDataFile looks up the fake data file backing path, failing the
// test if the backend never created one there.
func (b *fakeBackend) mustDataFile(t *testing.T, path string) *fakeDataFile {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	f, ok := b.files[path]
	if !ok {
		t.Fatalf("no fake data file recorded at %s", path)
	}
	return f
}
