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

// Package h5ds is the only package in this module that imports
// gonum.org/v1/hdf5: every raw HDF5 call lives here, so the rest of
// the engine (Path Planner, Channel Writer) talks to a narrow
// Go-shaped interface instead of the C binding directly.
package h5ds

import (
	"github.com/pkg/errors"
	"gonum.org/v1/hdf5"
)

// ScalarKind mirrors drf.ScalarKind without importing the drf package
// (which itself depends on h5ds for the production backend).
type ScalarKind int

const (
	KindInt ScalarKind = iota
	KindUint
	KindFloat
)

// Endian mirrors drf.Endian.
type Endian int

const (
	LittleEndian Endian = iota
	BigEndian
)

// Element describes one HDF5 element type: a scalar, or (if Complex)
// a compound {r, i} struct of two such scalars.
type Element struct {
	Kind    ScalarKind
	Bits    int
	Endian  Endian
	Complex bool
}

// scalarDatatype resolves a scalar kind, width and byte order to its
// HDF5 predefined type.
func scalarDatatype(kind ScalarKind, bits int, endian Endian) (*hdf5.Datatype, error) {
	be := endian == BigEndian
	switch kind {
	case KindInt:
		switch bits {
		case 8:
			if be {
				return hdf5.T_STD_I8BE, nil
			}
			return hdf5.T_STD_I8LE, nil
		case 16:
			if be {
				return hdf5.T_STD_I16BE, nil
			}
			return hdf5.T_STD_I16LE, nil
		case 32:
			if be {
				return hdf5.T_STD_I32BE, nil
			}
			return hdf5.T_STD_I32LE, nil
		case 64:
			if be {
				return hdf5.T_STD_I64BE, nil
			}
			return hdf5.T_STD_I64LE, nil
		}
	case KindUint:
		switch bits {
		case 8:
			if be {
				return hdf5.T_STD_U8BE, nil
			}
			return hdf5.T_STD_U8LE, nil
		case 16:
			if be {
				return hdf5.T_STD_U16BE, nil
			}
			return hdf5.T_STD_U16LE, nil
		case 32:
			if be {
				return hdf5.T_STD_U32BE, nil
			}
			return hdf5.T_STD_U32LE, nil
		case 64:
			if be {
				return hdf5.T_STD_U64BE, nil
			}
			return hdf5.T_STD_U64LE, nil
		}
	case KindFloat:
		switch bits {
		case 32:
			if be {
				return hdf5.T_IEEE_F32BE, nil
			}
			return hdf5.T_IEEE_F32LE, nil
		case 64:
			if be {
				return hdf5.T_IEEE_F64BE, nil
			}
			return hdf5.T_IEEE_F64LE, nil
		}
	}
	return nil, errors.Errorf("unsupported element: kind=%d bits=%d", kind, bits)
}

// elementDatatype resolves the dataset's full element type, wrapping a
// scalar in a compound {r, i} struct for complex samples.
func elementDatatype(e Element) (*hdf5.Datatype, error) {
	scalar, err := scalarDatatype(e.Kind, e.Bits, e.Endian)
	if err != nil {
		return nil, err
	}
	if !e.Complex {
		return scalar, nil
	}
	width := uint(e.Bits / 8)
	compound, err := hdf5.NewCompoundDatatype(2 * width)
	if err != nil {
		return nil, errors.Wrap(err, "create compound datatype")
	}
	if err := compound.Insert("r", 0, scalar); err != nil {
		return nil, errors.Wrap(err, "insert r field")
	}
	if err := compound.Insert("i", width, scalar); err != nil {
		return nil, errors.Wrap(err, "insert i field")
	}
	return compound, nil
}

// File is an open Digital RF data or properties file.
type File struct {
	path     string
	h        *hdf5.File
	sampleDS *hdf5.Dataset
	indexDS  *hdf5.Dataset

	elem           Element
	numSubchannels int
	numSamples     uint64
	numIndexRows   uint64
}

// Create creates a new HDF5 file at path, failing if it already
// exists: the write engine never clobbers a prior file.
func Create(path string) (*File, error) {
	h, err := hdf5.CreateFile(path, hdf5.F_ACC_EXCL)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s", path)
	}
	return &File{path: path, h: h}, nil
}

// WriteAttr writes a single root attribute. v must be a scalar Go
// value (uint64, int64, int32, float64 or string) understood by the HDF5
// binding's reflection-based Write.
func (f *File) WriteAttr(name string, v interface{}) error {
	dtype, err := hdf5.NewDatatypeFromValue(v)
	if err != nil {
		return errors.Wrapf(err, "resolve datatype for attribute %s", name)
	}
	space, err := hdf5.NewDataspace(hdf5.S_SCALAR)
	if err != nil {
		return errors.Wrapf(err, "create scalar dataspace for attribute %s", name)
	}
	defer space.Close()

	attr, err := f.h.CreateAttribute(name, dtype, space)
	if err != nil {
		return errors.Wrapf(err, "create attribute %s", name)
	}
	defer attr.Close()

	if err := attr.Write(v); err != nil {
		return errors.Wrapf(err, "write attribute %s", name)
	}
	return nil
}

// CreateSampleDataset creates the extensible rf_data dataset: shape
// (0, numSubchannels) growing along axis 0, chunked at chunkRows,
// optionally gzip-compressed and/or Fletcher-32 checksummed.
func (f *File) CreateSampleDataset(e Element, numSubchannels int, chunkRows uint64, compressionLevel int, checksum bool) error {
	f.elem = e
	f.numSubchannels = numSubchannels

	dtype, err := elementDatatype(e)
	if err != nil {
		return err
	}

	dims := []uint{0, uint(numSubchannels)}
	maxdims := []uint{hdf5.UNLIMITED, uint(numSubchannels)}
	space, err := hdf5.NewDataspaceSimple(dims, maxdims)
	if err != nil {
		return errors.Wrap(err, "create rf_data dataspace")
	}
	defer space.Close()

	plist, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return errors.Wrap(err, "create rf_data property list")
	}
	defer plist.Close()

	if err := plist.SetChunk([]uint{uint(chunkRows), uint(numSubchannels)}); err != nil {
		return errors.Wrap(err, "set chunk size")
	}
	if compressionLevel > 0 {
		if err := plist.SetDeflate(uint(compressionLevel)); err != nil {
			return errors.Wrap(err, "set deflate filter")
		}
	}
	if checksum {
		if err := plist.SetFletcher32(); err != nil {
			return errors.Wrap(err, "set fletcher32 filter")
		}
	}

	ds, err := f.h.CreateDatasetWith("rf_data", dtype, space, plist)
	if err != nil {
		return errors.Wrap(err, "create rf_data dataset")
	}
	f.sampleDS = ds
	return nil
}

// CreateIndexDataset creates the extensible rf_data_index dataset,
// shape (0, 2) of uint64 pairs (global_index, sample_index_in_file).
func (f *File) CreateIndexDataset() error {
	dims := []uint{0, 2}
	maxdims := []uint{hdf5.UNLIMITED, 2}
	space, err := hdf5.NewDataspaceSimple(dims, maxdims)
	if err != nil {
		return errors.Wrap(err, "create rf_data_index dataspace")
	}
	defer space.Close()

	plist, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return errors.Wrap(err, "create rf_data_index property list")
	}
	defer plist.Close()
	if err := plist.SetChunk([]uint{256, 2}); err != nil {
		return errors.Wrap(err, "set index chunk size")
	}

	ds, err := f.h.CreateDatasetWith("rf_data_index", hdf5.T_STD_U64LE, space, plist)
	if err != nil {
		return errors.Wrap(err, "create rf_data_index dataset")
	}
	f.indexDS = ds
	return nil
}

// extendAndWrite grows dataset ds along axis 0 by addRows rows
// starting at the current length, writing data into exactly that
// hyperslab.
func extendAndWrite(ds *hdf5.Dataset, cols int, priorRows, addRows uint64, data interface{}) error {
	newRows := priorRows + addRows
	if err := ds.Resize([]uint{uint(newRows), uint(cols)}); err != nil {
		return errors.Wrap(err, "resize dataset")
	}

	space, err := ds.Space()
	if err != nil {
		return errors.Wrap(err, "open dataset dataspace")
	}
	defer space.Close()

	offset := []uint{uint(priorRows), 0}
	count := []uint{uint(addRows), uint(cols)}
	if err := space.SelectHyperslab(offset, nil, count, nil); err != nil {
		return errors.Wrap(err, "select hyperslab")
	}

	memSpace, err := hdf5.NewDataspaceSimple(count, count)
	if err != nil {
		return errors.Wrap(err, "create memory dataspace")
	}
	defer memSpace.Close()

	if err := ds.WriteSubset(data, memSpace, space); err != nil {
		return errors.Wrap(err, "write hyperslab")
	}
	return nil
}

// AppendSamples appends n rows of raw, pre-encoded sample data (one
// element per subchannel column, row-major) to rf_data and returns the
// dataset's row count prior to this append.
func (f *File) AppendSamples(data []byte, n uint64) (priorRows uint64, err error) {
	if f.sampleDS == nil {
		return 0, errors.New("rf_data dataset not created")
	}
	prior := f.numSamples
	if err := extendAndWrite(f.sampleDS, f.numSubchannels, prior, n, data); err != nil {
		return 0, err
	}
	f.numSamples = prior + n
	return prior, nil
}

// AppendIndexRow appends a single (global_index, sample_index) pair to
// rf_data_index.
func (f *File) AppendIndexRow(globalIndex, sampleIndex uint64) error {
	if f.indexDS == nil {
		return errors.New("rf_data_index dataset not created")
	}
	row := []uint64{globalIndex, sampleIndex}
	if err := extendAndWrite(f.indexDS, 2, f.numIndexRows, 1, row); err != nil {
		return err
	}
	f.numIndexRows++
	return nil
}

// NumSamples is the current length of rf_data.
func (f *File) NumSamples() uint64 { return f.numSamples }

// Close flushes and closes both datasets, then the file. Idempotent.
func (f *File) Close() error {
	if f.h == nil {
		return nil
	}
	var first error
	if f.indexDS != nil {
		if err := f.indexDS.Close(); err != nil && first == nil {
			first = err
		}
		f.indexDS = nil
	}
	if f.sampleDS != nil {
		if err := f.sampleDS.Close(); err != nil && first == nil {
			first = err
		}
		f.sampleDS = nil
	}
	if err := f.h.Close(); err != nil && first == nil {
		first = err
	}
	f.h = nil
	if first != nil {
		return errors.Wrapf(first, "close %s", f.path)
	}
	return nil
}

// PropsReader is a read-only handle on an existing properties or data
// file, used to compare a re-init's configuration against what was
// already persisted.
type PropsReader struct {
	path string
	h    *hdf5.File
}

// OpenReadOnly opens an existing HDF5 file for attribute comparison.
func OpenReadOnly(path string) (*PropsReader, error) {
	h, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	return &PropsReader{path: path, h: h}, nil
}

func (r *PropsReader) readAttr(name string, dst interface{}) error {
	attr, err := r.h.OpenAttribute(name)
	if err != nil {
		return errors.Wrapf(err, "open attribute %s", name)
	}
	defer attr.Close()
	if err := attr.Read(dst); err != nil {
		return errors.Wrapf(err, "read attribute %s", name)
	}
	return nil
}

// ReadUint64 reads a uint64 attribute.
func (r *PropsReader) ReadUint64(name string) (uint64, error) {
	var v uint64
	err := r.readAttr(name, &v)
	return v, err
}

// ReadInt64 reads an int64 attribute.
func (r *PropsReader) ReadInt64(name string) (int64, error) {
	var v int64
	err := r.readAttr(name, &v)
	return v, err
}

// ReadInt32 reads an int32 attribute.
func (r *PropsReader) ReadInt32(name string) (int32, error) {
	var v int32
	err := r.readAttr(name, &v)
	return v, err
}

// ReadString reads a string attribute.
func (r *PropsReader) ReadString(name string) (string, error) {
	var v string
	err := r.readAttr(name, &v)
	return v, err
}

// Close closes the underlying file handle.
func (r *PropsReader) Close() error {
	if r.h == nil {
		return nil
	}
	err := r.h.Close()
	r.h = nil
	if err != nil {
		return errors.Wrapf(err, "close %s", r.path)
	}
	return nil
}
