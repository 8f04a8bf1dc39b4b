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
	"strconv"

	"github.com/pkg/errors"
)

// ScalarKind is the arithmetic family of one scalar element.
type ScalarKind int

const (
	KindInt ScalarKind = iota
	KindUint
	KindFloat
)

// Endian is the on-disk byte order of a scalar element.
type Endian int

const (
	LittleEndian Endian = iota
	BigEndian
)

// ScalarType is a leaf of the sample type sum:
// an integer or float of a given width and byte order. Complex samples
// wrap two of these in an {r, i} struct (see SampleType.IsComplex).
type ScalarType struct {
	Kind   ScalarKind
	Bits   int
	Endian Endian
}

// ByteWidth is the size in bytes of one scalar value.
func (s ScalarType) ByteWidth() int {
	return s.Bits / 8
}

func (s ScalarType) validate() error {
	switch s.Kind {
	case KindInt, KindUint:
		switch s.Bits {
		case 8, 16, 32, 64:
		default:
			return errors.Errorf("unsupported integer width %d", s.Bits)
		}
	case KindFloat:
		switch s.Bits {
		case 32, 64:
		default:
			return errors.Errorf("unsupported float width %d", s.Bits)
		}
	default:
		return errors.Errorf("unknown scalar kind %d", s.Kind)
	}
	return nil
}

// SampleType is the full per-element type of a channel's rf_data
// dataset: a scalar, optionally wrapped as a complex {r, i} struct.
type SampleType struct {
	Scalar    ScalarType
	IsComplex bool
}

// ByteWidth is the size in bytes of one dataset element (one row's
// single column for a non-complex type, or the r+i pair for complex).
func (t SampleType) ByteWidth() int {
	if t.IsComplex {
		return 2 * t.Scalar.ByteWidth()
	}
	return t.Scalar.ByteWidth()
}

// Validate rejects scalar kinds/widths outside the supported set:
// {int8, uint8, int16, int32, int64, uint16, uint32, uint64, float32,
// float64}, each optionally wrapped complex.
func (t SampleType) Validate() error {
	return t.Scalar.validate()
}

// String is a compact textual description, e.g. "complex_float32 LE"
// or "int16 BE".
func (t SampleType) String() string {
	var kind string
	switch t.Scalar.Kind {
	case KindInt:
		kind = "int"
	case KindUint:
		kind = "uint"
	case KindFloat:
		kind = "float"
	}
	name := kind
	if t.IsComplex {
		name = "complex_" + name
	}
	order := "LE"
	if t.Scalar.Endian == BigEndian {
		order = "BE"
	}
	return name + strconv.Itoa(t.Scalar.Bits) + " " + order
}

// Convenience constructors matching the common configurations used by
// Digital RF channels.
func Int8LE() SampleType    { return SampleType{Scalar: ScalarType{KindInt, 8, LittleEndian}} }
func Int16LE() SampleType   { return SampleType{Scalar: ScalarType{KindInt, 16, LittleEndian}} }
func Int32LE() SampleType   { return SampleType{Scalar: ScalarType{KindInt, 32, LittleEndian}} }
func Int64LE() SampleType   { return SampleType{Scalar: ScalarType{KindInt, 64, LittleEndian}} }
func Uint8LE() SampleType   { return SampleType{Scalar: ScalarType{KindUint, 8, LittleEndian}} }
func Uint16LE() SampleType  { return SampleType{Scalar: ScalarType{KindUint, 16, LittleEndian}} }
func Uint32LE() SampleType  { return SampleType{Scalar: ScalarType{KindUint, 32, LittleEndian}} }
func Uint64LE() SampleType  { return SampleType{Scalar: ScalarType{KindUint, 64, LittleEndian}} }
func Float32LE() SampleType { return SampleType{Scalar: ScalarType{KindFloat, 32, LittleEndian}} }
func Float64LE() SampleType { return SampleType{Scalar: ScalarType{KindFloat, 64, LittleEndian}} }

// Complex wraps a scalar type as a complex {r, i} pair.
func Complex(scalar SampleType) SampleType {
	scalar.IsComplex = true
	return scalar
}
