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
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// maxChunkBytes bounds the chunk size used for rf_data to a few MiB.
// Chosen once here, not configurable.
const maxChunkBytes = 4 * 1024 * 1024

// fileWriterState is the Closed -> Open -> Closed lifecycle of one
// data file. There is no reopen.
type fileWriterState int

const (
	stateOpen fileWriterState = iota
	stateClosed
)

// FileWriter owns exactly one open HDF5 file for one file-cadence
// window: the sample dataset (rf_data), the run index (rf_data_index),
// and the file-level attributes mirroring the channel config.
type FileWriter struct {
	logger log.Logger

	path           string
	cfg            Config
	first          uint64 // first global sample index this file may hold
	cadenceSamples uint64

	df    dataFile
	state fileWriterState

	// lastInFile is the global index of the last sample written to
	// this file. appendContinuous uses it in both modes to decide
	// whether a run needs a new index row; in continuous mode the
	// Channel Writer also uses it to size a zero-fill gap.
	lastInFile uint64
	hasWritten bool
}

// openFileWriter creates path via backend and writes the channel
// attributes plus both datasets. firstGlobalIndex is the planner's
// first index of this file (the file's sample 0 corresponds to this
// global index).
func openFileWriter(logger log.Logger, backend fileBackend, path string, cfg Config, firstGlobalIndex, cadenceSamples uint64) (*FileWriter, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	df, err := backend.Create(path, cfg.SampleType)
	if err != nil {
		return nil, newErr(KindFileOpenFailed, "FileWriter.open", err)
	}

	fw := &FileWriter{
		logger:         logger,
		path:           path,
		cfg:            cfg,
		first:          firstGlobalIndex,
		cadenceSamples: cadenceSamples,
		df:             df,
		state:          stateOpen,
	}

	if err := fw.writeAttrs(); err != nil {
		df.Close()
		return nil, err
	}

	chunkRows := cadenceSamples
	maxRows := uint64(maxChunkBytes / (cfg.SampleType.ByteWidth() * cfg.NumSubchannels))
	if maxRows == 0 {
		maxRows = 1
	}
	if chunkRows == 0 || chunkRows > maxRows {
		chunkRows = maxRows
	}
	if err := df.CreateSampleDataset(cfg.NumSubchannels, chunkRows, cfg.CompressionLevel, cfg.Checksum); err != nil {
		df.Close()
		return nil, newErr(KindDatasetCreateFailed, "FileWriter.open", err)
	}
	if err := df.CreateIndexDataset(); err != nil {
		df.Close()
		return nil, newErr(KindDatasetCreateFailed, "FileWriter.open", err)
	}

	level.Debug(logger).Log("msg", "opened data file", "path", path, "first_index", firstGlobalIndex)
	return fw, nil
}

func (fw *FileWriter) writeAttrs() error {
	attrs := map[string]interface{}{
		"subdir_cadence_secs":    fw.cfg.SubdirCadenceSecs,
		"file_cadence_millisecs": fw.cfg.FileCadenceMillisecs,
		"sample_rate_numerator":  fw.cfg.Rate.Num,
		"sample_rate_denominator": fw.cfg.Rate.Den,
		"samples_per_second":     fw.cfg.Rate.SamplesPerSecond(),
		"is_complex":             boolToInt32(fw.cfg.SampleType.IsComplex),
		"num_subchannels":        int32(fw.cfg.NumSubchannels),
		"uuid_str":               fw.cfg.UUID,
		"epoch":                  "1970-01-01T00:00:00Z",
		"digital_rf_time_description": "unix_second + picosecond offset, computed exactly from global sample index and sample_rate_numerator/denominator",
		"digital_rf_version":     "2.x",
		"computer_time":          uint64(time.Now().Unix()),
		"init_utc_timestamp":     uint64(time.Now().Unix()),
	}
	for name, v := range attrs {
		if err := fw.df.WriteAttr(name, v); err != nil {
			return newErr(KindIO, "FileWriter.writeAttrs", err)
		}
	}
	return nil
}

func boolToInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// capacityRemaining is how many more samples this file may hold before
// the caller must ask the Path Planner for the next file.
func (fw *FileWriter) capacityRemaining() uint64 {
	return fw.cadenceSamples - fw.df.NumSamples()
}

// appendContinuous extends rf_data by n samples starting at
// startingGlobalIndex, writing buf (n*rowBytes bytes, row-major). It
// appends an index entry only if this run is not contiguous with the
// previous one in this file.
func (fw *FileWriter) appendContinuous(buf []byte, n uint64, startingGlobalIndex uint64) error {
	if fw.state != stateOpen {
		return newErr(KindInternalInvariant, "FileWriter.appendContinuous", errClosed)
	}
	if n > fw.capacityRemaining() {
		return newErr(KindOutOfFileCapacity, "FileWriter.appendContinuous", nil)
	}

	priorLen, err := fw.df.AppendSamples(buf, n)
	if err != nil {
		return newErr(KindWriteFailed, "FileWriter.appendContinuous", err)
	}

	contiguous := fw.hasWritten && startingGlobalIndex == fw.lastInFile+1
	if !contiguous {
		if err := fw.df.AppendIndexRow(startingGlobalIndex, priorLen); err != nil {
			return newErr(KindWriteFailed, "FileWriter.appendContinuous", err)
		}
	}

	fw.lastInFile = startingGlobalIndex + n - 1
	fw.hasWritten = true
	return nil
}

// Run is one contiguous span inside a single file: GlobalIndex is the
// first global sample index of the run, BufferOffset is its starting
// row within the caller's buffer, and Length is its row count.
type Run struct {
	GlobalIndex  uint64
	BufferOffset uint64
	Length       uint64
}

// appendWithGaps writes each run via appendContinuous in order. Runs
// must already be strictly sorted, non-overlapping, and sliced to fit
// inside this file; rowBytes is the encoded width of one row.
func (fw *FileWriter) appendWithGaps(buf []byte, rowBytes int, runs []Run) error {
	for _, r := range runs {
		start := r.BufferOffset * uint64(rowBytes)
		end := start + r.Length*uint64(rowBytes)
		if err := fw.appendContinuous(buf[start:end], r.Length, r.GlobalIndex); err != nil {
			return err
		}
	}
	return nil
}

// zeroFill extends rf_data by n zero rows without adding an index
// entry, used in continuous mode to bridge a gap inside one file.
func (fw *FileWriter) zeroFill(n uint64, rowBytes int) error {
	if n == 0 {
		return nil
	}
	zeros := make([]byte, n*uint64(rowBytes))
	if _, err := fw.df.AppendSamples(zeros, n); err != nil {
		return newErr(KindWriteFailed, "FileWriter.zeroFill", err)
	}
	fw.lastInFile += n
	return nil
}

// close flushes and closes both datasets and the file. Idempotent.
func (fw *FileWriter) close() error {
	if fw.state == stateClosed {
		return nil
	}
	fw.state = stateClosed
	if err := fw.df.Close(); err != nil {
		return newErr(KindIO, "FileWriter.close", err)
	}
	level.Debug(fw.logger).Log("msg", "closed data file", "path", fw.path, "samples", fw.df.NumSamples())
	return nil
}

var errClosed = fileWriterClosedErr{}

type fileWriterClosedErr struct{}

func (fileWriterClosedErr) Error() string { return "file writer is not open" }
