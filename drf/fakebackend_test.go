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
	"sync"

	"github.com/pkg/errors"
)

// fakeBackend is an in-memory fileBackend standing in for the real
// HDF5 implementation in backend_h5.go, so the Channel/File Writer
// slicing and gap logic can be exercised without libhdf5 installed.
type fakeBackend struct {
	mu    sync.Mutex
	props map[string]*fakeAttrs
	files map[string]*fakeDataFile
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		props: make(map[string]*fakeAttrs),
		files: make(map[string]*fakeDataFile),
	}
}

func (b *fakeBackend) Create(path string, sampleType SampleType) (dataFile, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, errors.Errorf("%s already exists", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	f.Close()

	df := &fakeDataFile{path: path, elemBytes: sampleType.ByteWidth(), rowBytes: sampleType.ByteWidth()}
	b.mu.Lock()
	b.files[path] = df
	b.mu.Unlock()
	return df, nil
}

func (b *fakeBackend) CreateProps(path string) (propsFile, error) {
	// Touch the real path: ensureProperties decides create-vs-compare by
	// stat'ing it, same as against real HDF5 files.
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	f.Close()

	b.mu.Lock()
	defer b.mu.Unlock()
	a := newFakeAttrs()
	b.props[path] = a
	return &fakePropsFile{attrs: a}, nil
}

func (b *fakeBackend) OpenProps(path string) (propsReader, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.props[path]
	if !ok {
		return nil, errors.Errorf("%s not found", path)
	}
	return &fakePropsReader{attrs: a}, nil
}

// fakeAttrs is the shared attribute store a props writer populates and
// a props reader later reads back, standing in for an HDF5 file's
// attribute table.
type fakeAttrs struct {
	mu sync.Mutex
	m  map[string]interface{}
}

func newFakeAttrs() *fakeAttrs { return &fakeAttrs{m: make(map[string]interface{})} }

func (a *fakeAttrs) set(name string, v interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.m[name] = v
}

func (a *fakeAttrs) get(name string) (interface{}, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, ok := a.m[name]
	return v, ok
}

type fakePropsFile struct{ attrs *fakeAttrs }

func (f *fakePropsFile) WriteAttr(name string, v interface{}) error {
	f.attrs.set(name, v)
	return nil
}

func (f *fakePropsFile) Close() error { return nil }

type fakePropsReader struct{ attrs *fakeAttrs }

func (r *fakePropsReader) ReadUint64(name string) (uint64, error) {
	v, ok := r.attrs.get(name)
	if !ok {
		return 0, errors.Errorf("attribute %s not set", name)
	}
	u, ok := v.(uint64)
	if !ok {
		return 0, errors.Errorf("attribute %s is not uint64", name)
	}
	return u, nil
}

func (r *fakePropsReader) ReadInt64(name string) (int64, error) {
	v, ok := r.attrs.get(name)
	if !ok {
		return 0, errors.Errorf("attribute %s not set", name)
	}
	i, ok := v.(int64)
	if !ok {
		return 0, errors.Errorf("attribute %s is not int64", name)
	}
	return i, nil
}

func (r *fakePropsReader) ReadInt32(name string) (int32, error) {
	v, ok := r.attrs.get(name)
	if !ok {
		return 0, errors.Errorf("attribute %s not set", name)
	}
	i, ok := v.(int32)
	if !ok {
		return 0, errors.Errorf("attribute %s is not int32", name)
	}
	return i, nil
}

func (r *fakePropsReader) ReadString(name string) (string, error) {
	v, ok := r.attrs.get(name)
	if !ok {
		return "", errors.Errorf("attribute %s not set", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.Errorf("attribute %s is not string", name)
	}
	return s, nil
}

func (r *fakePropsReader) Close() error { return nil }

// fakeDataFile stands in for h5DataFile: rf_data is a flat byte buffer
// and rf_data_index is a slice of (global_index, sample_index) rows,
// mirroring the two real HDF5 datasets closely enough to exercise
// every FileWriter code path.
type fakeDataFile struct {
	mu        sync.Mutex
	path      string
	elemBytes int
	rowBytes  int
	attrs     fakeAttrs
	data      []byte
	index     []indexRow
	closed    bool
}

type indexRow struct {
	GlobalIndex uint64
	SampleIndex uint64
}

func (f *fakeDataFile) WriteAttr(name string, v interface{}) error {
	if f.attrs.m == nil {
		f.attrs.m = make(map[string]interface{})
	}
	f.attrs.set(name, v)
	return nil
}

func (f *fakeDataFile) CreateSampleDataset(numSubchannels int, chunkRows uint64, compressionLevel int, checksum bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rowBytes = f.elemBytes * numSubchannels
	return nil
}

func (f *fakeDataFile) CreateIndexDataset() error { return nil }

func (f *fakeDataFile) AppendSamples(data []byte, n uint64) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	priorRows := uint64(len(f.data)) / uint64(f.rowBytes)
	f.data = append(f.data, data...)
	return priorRows, nil
}

func (f *fakeDataFile) AppendIndexRow(globalIndex, sampleIndex uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.index = append(f.index, indexRow{GlobalIndex: globalIndex, SampleIndex: sampleIndex})
	return nil
}

func (f *fakeDataFile) NumSamples() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.data)) / uint64(f.rowBytes)
}

func (f *fakeDataFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
