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
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// propertiesFileName is the fixed name of the channel-level property
// file, shared with the Digital Metadata sidecar store.
const propertiesFileName = "drf_properties.h5"

// H5Tget_class / H5Tget_order codes mirrored into drf_properties.h5 so
// readers can reconstruct the element type without opening a data file.
const (
	h5ClassInteger  int64 = 0
	h5ClassFloat    int64 = 1
	h5ClassCompound int64 = 6

	h5OrderLE int64 = 0
	h5OrderBE int64 = 1
)

func h5Class(t SampleType) int64 {
	if t.IsComplex {
		return h5ClassCompound
	}
	if t.Scalar.Kind == KindFloat {
		return h5ClassFloat
	}
	return h5ClassInteger
}

func h5Order(t SampleType) int64 {
	if t.Scalar.Endian == BigEndian {
		return h5OrderBE
	}
	return h5OrderLE
}

// writeProperties creates drf_properties.h5 in channelDir, failing if
// it cannot be created (the caller must have already checked for an
// existing file and compared it via loadAndCompareProperties).
func writeProperties(backend fileBackend, channelDir string, cfg Config) error {
	path := filepath.Join(channelDir, propertiesFileName)
	f, err := backend.CreateProps(path)
	if err != nil {
		return newErr(KindIO, "writeProperties", err)
	}
	defer f.Close()

	attrs := map[string]interface{}{
		"subdir_cadence_secs":     cfg.SubdirCadenceSecs,
		"file_cadence_millisecs":  cfg.FileCadenceMillisecs,
		"sample_rate_numerator":   cfg.Rate.Num,
		"sample_rate_denominator": cfg.Rate.Den,
		"samples_per_second":      cfg.Rate.SamplesPerSecond(),
		"is_complex":              boolToInt32(cfg.SampleType.IsComplex),
		"num_subchannels":         int32(cfg.NumSubchannels),
		"is_continuous":           boolToInt32(cfg.IsContinuous),
		"uuid_str":                cfg.UUID,
		"epoch":                   "1970-01-01T00:00:00Z",
		"digital_rf_version":      "2.x",
		"H5Tget_class":            h5Class(cfg.SampleType),
		"H5Tget_order":            h5Order(cfg.SampleType),
		"H5Tget_size":             int64(cfg.SampleType.ByteWidth()),
		"H5Tget_precision":        int64(cfg.SampleType.Scalar.Bits),
		"H5Tget_offset":           int64(0),
	}
	for name, v := range attrs {
		if err := f.WriteAttr(name, v); err != nil {
			return newErr(KindIO, "writeProperties", err)
		}
	}
	return nil
}

// loadAndCompareProperties loads an existing drf_properties.h5 and
// compares every configuration field against cfg, failing on the first
// mismatch: TypeMismatch for an H5Tget_* type descriptor,
// PropertiesConflict for any other field.
func loadAndCompareProperties(backend fileBackend, channelDir string, cfg Config) error {
	path := filepath.Join(channelDir, propertiesFileName)
	r, err := backend.OpenProps(path)
	if err != nil {
		return newErr(KindIO, "loadAndCompareProperties", err)
	}
	defer r.Close()

	checkUint64 := func(name string, want uint64) error {
		got, err := r.ReadUint64(name)
		if err != nil {
			return newErr(KindIO, "loadAndCompareProperties", err)
		}
		if got != want {
			return newErr(KindPropertiesConflict, "loadAndCompareProperties",
				errors.Errorf("%s: existing channel has %d, requested %d", name, got, want))
		}
		return nil
	}
	checkInt32 := func(name string, want int32) error {
		got, err := r.ReadInt32(name)
		if err != nil {
			return newErr(KindIO, "loadAndCompareProperties", err)
		}
		if got != want {
			return newErr(KindPropertiesConflict, "loadAndCompareProperties",
				errors.Errorf("%s: existing channel has %d, requested %d", name, got, want))
		}
		return nil
	}
	// Element-type divergence is reported as TypeMismatch rather than
	// the generic PropertiesConflict: reopening a channel with an
	// inconsistent element type is fatal and unrecoverable.
	checkType := func(name string, want int64) error {
		got, err := r.ReadInt64(name)
		if err != nil {
			return newErr(KindIO, "loadAndCompareProperties", err)
		}
		if got != want {
			return newErr(KindTypeMismatch, "loadAndCompareProperties",
				errors.Errorf("%s: existing channel has %d, requested %d", name, got, want))
		}
		return nil
	}
	checkString := func(name, want string) error {
		got, err := r.ReadString(name)
		if err != nil {
			return newErr(KindIO, "loadAndCompareProperties", err)
		}
		if got != want {
			return newErr(KindPropertiesConflict, "loadAndCompareProperties",
				errors.Errorf("%s: existing channel has %q, requested %q", name, got, want))
		}
		return nil
	}

	if err := checkUint64("subdir_cadence_secs", cfg.SubdirCadenceSecs); err != nil {
		return err
	}
	if err := checkUint64("file_cadence_millisecs", cfg.FileCadenceMillisecs); err != nil {
		return err
	}
	if err := checkUint64("sample_rate_numerator", cfg.Rate.Num); err != nil {
		return err
	}
	if err := checkUint64("sample_rate_denominator", cfg.Rate.Den); err != nil {
		return err
	}
	if err := checkType("H5Tget_class", h5Class(cfg.SampleType)); err != nil {
		return err
	}
	if err := checkType("H5Tget_order", h5Order(cfg.SampleType)); err != nil {
		return err
	}
	if err := checkType("H5Tget_size", int64(cfg.SampleType.ByteWidth())); err != nil {
		return err
	}
	if err := checkType("H5Tget_precision", int64(cfg.SampleType.Scalar.Bits)); err != nil {
		return err
	}
	if err := checkType("H5Tget_offset", 0); err != nil {
		return err
	}
	if err := checkInt32("is_complex", boolToInt32(cfg.SampleType.IsComplex)); err != nil {
		return err
	}
	if err := checkInt32("num_subchannels", int32(cfg.NumSubchannels)); err != nil {
		return err
	}
	if err := checkInt32("is_continuous", boolToInt32(cfg.IsContinuous)); err != nil {
		return err
	}
	if err := checkString("uuid_str", cfg.UUID); err != nil {
		return err
	}
	return nil
}

// ensureProperties creates drf_properties.h5 if the channel directory
// is new, otherwise loads and compares.
func ensureProperties(backend fileBackend, channelDir string, cfg Config) error {
	path := filepath.Join(channelDir, propertiesFileName)
	_, statErr := os.Stat(path)
	switch {
	case os.IsNotExist(statErr):
		return writeProperties(backend, channelDir, cfg)
	case statErr != nil:
		return newErr(KindIO, "ensureProperties", statErr)
	default:
		return loadAndCompareProperties(backend, channelDir, cfg)
	}
}
