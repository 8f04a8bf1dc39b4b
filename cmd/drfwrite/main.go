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

// The drfwrite command streams synthetic samples into a Digital RF
// channel directory. It exists to exercise the write engine end to
// end, not as a production ingest tool.
package main

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/promlog"
	promlogflag "github.com/prometheus/common/promlog/flag"

	"github.com/digitalrf/digitalrf/drf"
	"github.com/digitalrf/digitalrf/internal/ratime"
	"github.com/digitalrf/digitalrf/storage/drfstore"
)

func main() {
	cfg := struct {
		channelDir      string
		rateNum         uint64
		rateDen         uint64
		subdirCadence   uint64
		fileCadenceMs   uint64
		numSubchannels  int
		startIndex      uint64
		numSamples      uint64
		continuous      bool
		compression     int
		checksum        bool
		marchingPeriods bool
		logLevel        promlog.AllowedLevel
	}{}

	a := kingpin.New(filepath.Base(os.Args[0]), "Stream synthetic samples into a Digital RF channel directory.")
	a.HelpFlag.Short('h')

	a.Flag("channel-dir", "Channel directory to write into.").Required().StringVar(&cfg.channelDir)
	a.Flag("rate.num", "Sample rate numerator.").Default("1000").Uint64Var(&cfg.rateNum)
	a.Flag("rate.den", "Sample rate denominator.").Default("1").Uint64Var(&cfg.rateDen)
	a.Flag("subdir-cadence-secs", "Wall-clock seconds of data per subdirectory.").Default("3600").Uint64Var(&cfg.subdirCadence)
	a.Flag("file-cadence-millisecs", "Wall-clock milliseconds of data per file.").Default("1000").Uint64Var(&cfg.fileCadenceMs)
	a.Flag("num-subchannels", "Dataset row width.").Default("1").IntVar(&cfg.numSubchannels)
	a.Flag("start-index", "Global sample index of the first written sample.").Default("0").Uint64Var(&cfg.startIndex)
	a.Flag("num-samples", "Total samples to write.").Default("1000").Uint64Var(&cfg.numSamples)
	a.Flag("continuous", "Open files in continuous mode (zero-fill gaps).").Default("true").BoolVar(&cfg.continuous)
	a.Flag("compression-level", "HDF5 gzip compression level (0-9).").Default("0").IntVar(&cfg.compression)
	a.Flag("checksum", "Enable HDF5 Fletcher-32 checksumming.").Default("false").BoolVar(&cfg.checksum)
	a.Flag("marching-periods", "Emit '.' to stderr on each new subdirectory.").Default("false").BoolVar(&cfg.marchingPeriods)
	promlogflag.AddFlags(a, &cfg.logLevel)

	if _, err := a.Parse(os.Args[1:]); err != nil {
		errPrint(errors.Wrap(err, "parsing commandline arguments"))
		a.Usage(os.Args[1:])
		os.Exit(2)
	}

	logger := promlog.New(cfg.logLevel)

	drfCfg := drf.Config{
		Rate:                 ratime.Rate{Num: cfg.rateNum, Den: cfg.rateDen},
		SubdirCadenceSecs:    cfg.subdirCadence,
		FileCadenceMillisecs: cfg.fileCadenceMs,
		SampleType:           drf.Int16LE(),
		NumSubchannels:       cfg.numSubchannels,
		IsContinuous:         cfg.continuous,
		CompressionLevel:     cfg.compression,
		Checksum:             cfg.checksum,
		UUID:                 drf.GenerateUUID(),
		MarchingPeriods:      cfg.marchingPeriods,
	}

	cw, err := drfstore.Open(logger, drfstore.Options{
		ChannelDir:       cfg.channelDir,
		Config:           drfCfg,
		StartGlobalIndex: cfg.startIndex,
		Registerer:       prometheus.DefaultRegisterer,
		ChannelName:      filepath.Base(cfg.channelDir),
	})
	if err != nil {
		level.Error(logger).Log("msg", "failed to open channel", "err", err)
		os.Exit(1)
	}
	defer cw.Close()

	buf := syntheticTone(cfg.numSamples, cfg.numSubchannels)
	if err := cw.Write(buf, cfg.numSamples); err != nil {
		level.Error(logger).Log("msg", "write failed", "err", err)
		os.Exit(1)
	}

	level.Info(logger).Log("msg", "write complete",
		"samples", cfg.numSamples,
		"last_file", cw.LastFileWritten(),
		"last_dir", cw.LastDirWritten())
}

// syntheticTone renders n int16 samples of a sine wave with amplitude
// 30000 and a 64-sample period across numSubchannels identical columns,
// little-endian, row-major.
func syntheticTone(n uint64, numSubchannels int) []byte {
	buf := make([]byte, n*uint64(numSubchannels)*2)
	for i := uint64(0); i < n; i++ {
		v := int16(math.Round(30000 * math.Sin(2*math.Pi*float64(i)/64)))
		for c := 0; c < numSubchannels; c++ {
			off := (i*uint64(numSubchannels) + uint64(c)) * 2
			binary.LittleEndian.PutUint16(buf[off:off+2], uint16(v))
		}
	}
	return buf
}

func errPrint(err error) {
	os.Stderr.WriteString(err.Error() + "\n")
}
