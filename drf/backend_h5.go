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

import "github.com/digitalrf/digitalrf/internal/h5ds"

// h5Backend is the production fileBackend, creating real HDF5 files
// through internal/h5ds. Per-file compression/checksum/chunking are
// taken from the Config passed into each Open call, not stored here.
type h5Backend struct{}

// NewH5Backend returns the production file backend. Callers outside
// this package receive it as an opaque value satisfying the
// unexported fileBackend interface.
func NewH5Backend() fileBackend { return &h5Backend{} }

func toElement(t SampleType) h5ds.Element {
	var kind h5ds.ScalarKind
	switch t.Scalar.Kind {
	case KindInt:
		kind = h5ds.KindInt
	case KindUint:
		kind = h5ds.KindUint
	case KindFloat:
		kind = h5ds.KindFloat
	}
	endian := h5ds.LittleEndian
	if t.Scalar.Endian == BigEndian {
		endian = h5ds.BigEndian
	}
	return h5ds.Element{Kind: kind, Bits: t.Scalar.Bits, Endian: endian, Complex: t.IsComplex}
}

func (b *h5Backend) Create(path string, sampleType SampleType) (dataFile, error) {
	f, err := h5ds.Create(path)
	if err != nil {
		return nil, err
	}
	return &h5DataFile{f: f, elem: toElement(sampleType)}, nil
}

func (b *h5Backend) CreateProps(path string) (propsFile, error) {
	return h5ds.Create(path)
}

func (b *h5Backend) OpenProps(path string) (propsReader, error) {
	return h5ds.OpenReadOnly(path)
}

// h5DataFile adapts *h5ds.File to the dataFile interface, remembering
// the element type needed to lazily create the sample dataset.
type h5DataFile struct {
	f    *h5ds.File
	elem h5ds.Element
}

func (d *h5DataFile) WriteAttr(name string, v interface{}) error { return d.f.WriteAttr(name, v) }

func (d *h5DataFile) CreateSampleDataset(numSubchannels int, chunkRows uint64, compressionLevel int, checksum bool) error {
	return d.f.CreateSampleDataset(d.elem, numSubchannels, chunkRows, compressionLevel, checksum)
}

func (d *h5DataFile) CreateIndexDataset() error { return d.f.CreateIndexDataset() }

func (d *h5DataFile) AppendSamples(data []byte, n uint64) (uint64, error) {
	return d.f.AppendSamples(data, n)
}

func (d *h5DataFile) AppendIndexRow(globalIndex, sampleIndex uint64) error {
	return d.f.AppendIndexRow(globalIndex, sampleIndex)
}

func (d *h5DataFile) NumSamples() uint64 { return d.f.NumSamples() }

func (d *h5DataFile) Close() error { return d.f.Close() }
