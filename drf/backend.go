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

// dataFile is the narrow surface FileWriter needs from an open HDF5
// data file. The production implementation (h5File, backend_h5.go)
// forwards to internal/h5ds; tests substitute an in-memory fake so the
// Channel Writer's slicing logic can be exercised without libhdf5
// installed.
type dataFile interface {
	WriteAttr(name string, v interface{}) error
	CreateSampleDataset(numSubchannels int, chunkRows uint64, compressionLevel int, checksum bool) error
	CreateIndexDataset() error
	AppendSamples(data []byte, n uint64) (priorRows uint64, err error)
	AppendIndexRow(globalIndex, sampleIndex uint64) error
	NumSamples() uint64
	Close() error
}

// propsFile is the narrow surface the Properties Emitter needs to
// write a brand new drf_properties.h5.
type propsFile interface {
	WriteAttr(name string, v interface{}) error
	Close() error
}

// propsReader is the narrow surface the Properties Emitter needs to
// compare against an existing drf_properties.h5.
type propsReader interface {
	ReadUint64(name string) (uint64, error)
	ReadInt64(name string) (int64, error)
	ReadInt32(name string) (int32, error)
	ReadString(name string) (string, error)
	Close() error
}

// fileBackend creates or opens files. It exists so FileWriter and the
// properties code (properties.go) never import internal/h5ds directly.
type fileBackend interface {
	// Create creates a new data file at path, failing if one already exists.
	Create(path string, sampleType SampleType) (dataFile, error)
	// CreateProps creates a new properties file at path.
	CreateProps(path string) (propsFile, error)
	// OpenProps opens an existing properties file for reading.
	OpenProps(path string) (propsReader, error)
}
