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
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/digitalrf/digitalrf/internal/pathplan"
	"github.com/digitalrf/digitalrf/internal/ratime"
)

// ChannelWriter is the top-level write-engine state machine. It is
// not safe for concurrent use: every public entry point except the
// SetHeartbeat and SetMetrics setters takes an internal mutex so a caller's own concurrency bug turns into
// a predictable serialization rather than a torn write, but two
// goroutines sharing one ChannelWriter will still corrupt Digital RF's
// "at most one writer per channel directory" invariant if driven from
// outside this package's control.
type ChannelWriter struct {
	logger  log.Logger
	backend fileBackend

	channelDir string
	cfg        Config
	planner    pathplan.Config
	rowBytes   int

	heartbeat io.Writer
	metrics   *Metrics

	mu sync.Mutex

	nextExpectedIndex uint64
	lastWrittenIndex  int64 // starts at startGlobalIndex-1 (-1 for a start index of 0)

	open           *FileWriter
	openPath       string
	openSubdirName string

	lastFileWritten    string
	lastDirWritten     string
	lastWriteWallclock time.Time

	closed bool
}

// Open initializes (or re-validates) a channel directory for writing.
// backend is normally NewH5Backend(); tests pass a fake.
func Open(logger log.Logger, backend fileBackend, channelDir string, cfg Config, startGlobalIndex uint64) (*ChannelWriter, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(channelDir, 0777); err != nil {
		return nil, newErr(KindIO, "ChannelWriter.Open", err)
	}
	if err := ensureProperties(backend, channelDir, cfg); err != nil {
		return nil, err
	}

	cw := &ChannelWriter{
		logger:            logger,
		backend:           backend,
		channelDir:        channelDir,
		cfg:               cfg,
		planner:           cfg.planner(),
		rowBytes:          cfg.SampleType.ByteWidth() * cfg.NumSubchannels,
		heartbeat:         os.Stderr,
		nextExpectedIndex: startGlobalIndex,
		lastWrittenIndex:  int64(startGlobalIndex) - 1,
	}
	// A writer dropped without an explicit Close must still release its
	// open file. Close clears the finalizer again.
	runtime.SetFinalizer(cw, (*ChannelWriter).Close)

	level.Info(logger).Log("msg", "channel writer initialized", "dir", channelDir, "start_index", startGlobalIndex)
	return cw, nil
}

// SetHeartbeat overrides the marching-periods sink (default os.Stderr),
// letting tests observe it without capturing the real stderr stream.
func (cw *ChannelWriter) SetHeartbeat(w io.Writer) { cw.heartbeat = w }

// SetMetrics attaches a Metrics recorder; nil disables metrics.
func (cw *ChannelWriter) SetMetrics(m *Metrics) { cw.metrics = m }

// NextExpectedIndex is the global index of the next sample if the
// stream continued without a gap.
func (cw *ChannelWriter) NextExpectedIndex() uint64 {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.nextExpectedIndex
}

// LastWrittenIndex returns the most recently written global index.
// Before the first write it reports the start index minus one; ok is
// false only when that value would be negative (start index 0 and
// nothing written yet).
func (cw *ChannelWriter) LastWrittenIndex() (idx uint64, ok bool) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if cw.lastWrittenIndex < 0 {
		return 0, false
	}
	return uint64(cw.lastWrittenIndex), true
}

// LastFileWritten, LastDirWritten and LastWriteWallclockTime report
// where and when the most recent successful write landed.
func (cw *ChannelWriter) LastFileWritten() string {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.lastFileWritten
}

func (cw *ChannelWriter) LastDirWritten() string {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.lastDirWritten
}

func (cw *ChannelWriter) LastWriteWallclockTime() time.Time {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.lastWriteWallclock
}

// Write treats buf as nSamples continuous samples starting at
// NextExpectedIndex.
func (cw *ChannelWriter) Write(buf []byte, nSamples uint64) error {
	cw.mu.Lock()
	next := cw.nextExpectedIndex
	cw.mu.Unlock()
	return cw.WriteBlocks(buf, []uint64{next}, []uint64{0}, nSamples)
}

// WriteBlocks writes k runs, run j spanning buffer rows
// [blockOffsets[j], blockOffsets[j+1]) (the last run extends to
// nSamples), each beginning at global sample index globalIndices[j].
// globalIndices must be strictly increasing and may never advance more
// slowly than blockOffsets: gaps can be inserted, never removed.
func (cw *ChannelWriter) WriteBlocks(buf []byte, globalIndices, blockOffsets []uint64, nSamples uint64) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.closed {
		return newErr(KindInternalInvariant, "ChannelWriter.WriteBlocks", errors.New("writer is closed"))
	}
	if err := validateBlocks(globalIndices, blockOffsets, nSamples, cw.nextExpectedIndex); err != nil {
		var de *Error
		if cw.metrics != nil && errors.As(err, &de) && de.Kind == KindOverlap {
			cw.metrics.overlapsRejected.Inc()
		}
		return err
	}
	if uint64(len(buf)) < nSamples*uint64(cw.rowBytes) {
		return newErr(KindOrder, "ChannelWriter.WriteBlocks",
			errors.Errorf("buffer has %d bytes, need %d for %d samples", len(buf), nSamples*uint64(cw.rowBytes), nSamples))
	}

	// The observability accessors must not report a partially applied
	// call, so they roll back with the rest of the
	// bookkeeping even when some samples reached disk.
	prevFile, prevDir := cw.lastFileWritten, cw.lastDirWritten

	k := len(globalIndices)
	runs := make([]Run, k)
	for j := 0; j < k; j++ {
		runLen := nSamples - blockOffsets[j]
		if j+1 < k {
			runLen = blockOffsets[j+1] - blockOffsets[j]
		}
		runs[j] = Run{GlobalIndex: globalIndices[j], BufferOffset: blockOffsets[j], Length: runLen}
	}
	if err := cw.writeRuns(buf, runs); err != nil {
		cw.closeOnIOErrorBestEffort(err)
		cw.lastFileWritten, cw.lastDirWritten = prevFile, prevDir
		return err
	}

	lastRunStart := globalIndices[k-1]
	lastRunBufStart := blockOffsets[k-1]
	cw.nextExpectedIndex = lastRunStart + (nSamples - lastRunBufStart)
	cw.lastWrittenIndex = int64(cw.nextExpectedIndex) - 1
	cw.lastWriteWallclock = time.Now()
	if cw.metrics != nil {
		cw.metrics.samplesWritten.Add(float64(nSamples))
	}
	return nil
}

// closeOnIOErrorBestEffort closes the open file after an I/O failure
// mid-call. Subsequent writes to the same (now-closed) file path
// receive FileExists and must advance the index.
func (cw *ChannelWriter) closeOnIOErrorBestEffort(cause error) {
	var de *Error
	if !errors.As(cause, &de) {
		return
	}
	switch de.Kind {
	case KindIO, KindWriteFailed, KindFileOpenFailed, KindDatasetCreateFailed:
	default:
		return
	}
	if cw.open == nil {
		return
	}
	_ = cw.open.close()
	cw.open = nil
	cw.openPath = ""
}

// validateBlocks enforces the structural constraints on a WriteBlocks
// call before anything touches disk.
func validateBlocks(globalIndices, blockOffsets []uint64, nSamples, nextExpected uint64) error {
	k := len(globalIndices)
	if k == 0 || len(blockOffsets) != k {
		return newErr(KindOrder, "validateBlocks", errors.New("global_indices and block_offsets must be equal-length and non-empty"))
	}
	if blockOffsets[0] != 0 {
		return newErr(KindOrder, "validateBlocks", errors.New("block_offsets[0] must be 0"))
	}
	for j := 1; j < k; j++ {
		if blockOffsets[j] <= blockOffsets[j-1] {
			return newErr(KindOrder, "validateBlocks", errors.New("block_offsets must be strictly increasing"))
		}
		if globalIndices[j] <= globalIndices[j-1] {
			return newErr(KindOrder, "validateBlocks", errors.New("global_indices must be strictly increasing"))
		}
		if globalIndices[j]-globalIndices[j-1] < blockOffsets[j]-blockOffsets[j-1] {
			return newErr(KindOrder, "validateBlocks",
				errors.New("global_indices may not advance more slowly than block_offsets (samples cannot be removed, only gaps inserted)"))
		}
	}
	for j := 0; j < k; j++ {
		if blockOffsets[j] >= nSamples {
			return newErr(KindOrder, "validateBlocks", errors.New("block_offsets must all be < n_samples"))
		}
	}
	if globalIndices[0] < nextExpected {
		return newErr(KindOverlap, "validateBlocks",
			errors.Errorf("global_indices[0]=%d precedes next_expected_index=%d", globalIndices[0], nextExpected))
	}
	return nil
}

// writeRuns is the slicing loop: repeatedly ask the Path Planner for
// the file holding the next unwritten sample, collect the slices of
// this and any following runs that fit in that file, then hand the
// whole batch to the open FileWriter: gapped files in one
// appendWithGaps call, continuous files run by run with zero-fill
// bridging the gaps.
func (cw *ChannelWriter) writeRuns(buf []byte, runs []Run) error {
	for i := 0; i < len(runs); {
		plan, err := cw.planner.Plan(runs[i].GlobalIndex)
		if err != nil {
			return newErr(KindInternalInvariant, "ChannelWriter.writeRuns", err)
		}
		if plan.SamplesRemainingInFile == 0 {
			return newErr(KindInternalInvariant, "ChannelWriter.writeRuns", errors.New("path planner reported zero remaining capacity"))
		}
		if err := cw.ensureFileOpen(plan); err != nil {
			return err
		}

		// fileEnd is the first global index beyond the open file; a run
		// reaching past it is split and its remainder re-planned.
		fileEnd := runs[i].GlobalIndex + plan.SamplesRemainingInFile
		var batch []Run
		for i < len(runs) && runs[i].GlobalIndex < fileEnd {
			r := runs[i]
			m := r.Length
			if r.GlobalIndex+m > fileEnd {
				m = fileEnd - r.GlobalIndex
			}
			batch = append(batch, Run{GlobalIndex: r.GlobalIndex, BufferOffset: r.BufferOffset, Length: m})
			if m < r.Length {
				runs[i] = Run{GlobalIndex: r.GlobalIndex + m, BufferOffset: r.BufferOffset + m, Length: r.Length - m}
				break
			}
			i++
		}

		if cw.cfg.IsContinuous {
			for _, r := range batch {
				if cw.open.hasWritten && cw.open.lastInFile+1 < r.GlobalIndex {
					gap := r.GlobalIndex - (cw.open.lastInFile + 1)
					if err := cw.open.zeroFill(gap, cw.rowBytes); err != nil {
						return err
					}
				}
				start := r.BufferOffset * uint64(cw.rowBytes)
				end := start + r.Length*uint64(cw.rowBytes)
				if err := cw.open.appendContinuous(buf[start:end], r.Length, r.GlobalIndex); err != nil {
					return err
				}
			}
		} else {
			if err := cw.open.appendWithGaps(buf, cw.rowBytes, batch); err != nil {
				return err
			}
		}

		cw.lastFileWritten = cw.openPath
		cw.lastDirWritten = filepath.Join(cw.channelDir, plan.SubdirName)
	}
	return nil
}

// ensureFileOpen makes sure cw.open refers to the file described by
// plan, opening a new FileWriter (and closing any previous one) if
// necessary.
func (cw *ChannelWriter) ensureFileOpen(plan pathplan.Plan) error {
	path := filepath.Join(cw.channelDir, plan.SubdirName, plan.FileName)
	if cw.open != nil && cw.openPath == path {
		return nil
	}

	if cw.open != nil {
		if err := cw.open.close(); err != nil {
			return err
		}
		cw.open = nil
		cw.openPath = ""
	}

	subdirPath := filepath.Join(cw.channelDir, plan.SubdirName)
	if plan.SubdirName != cw.openSubdirName {
		if cw.cfg.MarchingPeriods && cw.openSubdirName != "" {
			io.WriteString(cw.heartbeat, ".")
		}
		cw.openSubdirName = plan.SubdirName
	}
	if err := os.MkdirAll(subdirPath, 0777); err != nil {
		return newErr(KindIO, "ChannelWriter.ensureFileOpen", err)
	}

	if _, err := os.Stat(path); err == nil {
		return newErr(KindFileExists, "ChannelWriter.ensureFileOpen", errors.Errorf("%s already exists", path))
	} else if !os.IsNotExist(err) {
		return newErr(KindIO, "ChannelWriter.ensureFileOpen", err)
	}

	cadenceSamples, exact := ratime.CadenceSamples(cw.cfg.FileCadenceMillisecs, cw.cfg.Rate)
	if !exact {
		// Fractional boundaries: this file's true capacity is re-derived
		// from the plan itself rather than a cached channel-wide cadence.
		// offset+remaining spans the file's first index to the next
		// file's first index regardless of where g landed.
		cadenceSamples = plan.SampleOffsetWithinFile + plan.SamplesRemainingInFile
	}

	fw, err := openFileWriter(cw.logger, cw.backend, path, cw.cfg, plan.FirstIndexOfFile, cadenceSamples)
	if err != nil {
		return err
	}
	cw.open = fw
	cw.openPath = path
	if cw.metrics != nil {
		cw.metrics.filesOpened.Inc()
	}
	return nil
}

// Close closes any open file and makes the writer unusable.
func (cw *ChannelWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if cw.closed {
		return nil
	}
	cw.closed = true
	runtime.SetFinalizer(cw, nil)
	if cw.open != nil {
		err := cw.open.close()
		cw.open = nil
		if err != nil {
			return err
		}
	}
	return nil
}
