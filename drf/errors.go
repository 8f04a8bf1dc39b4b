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

import "fmt"

// Kind classifies a write-engine error. Callers switch on Kind rather
// than string-matching Error().
type Kind string

const (
	KindConfigInvalid       Kind = "ConfigInvalid"
	KindPropertiesConflict  Kind = "PropertiesConflict"
	KindFileExists          Kind = "FileExists"
	KindOverlap             Kind = "OverlapError"
	KindOrder               Kind = "OrderError"
	KindIO                  Kind = "IoError"
	KindInternalInvariant   Kind = "InternalInvariantViolated"
	KindFileOpenFailed      Kind = "FileOpenFailed"
	KindDatasetCreateFailed Kind = "DatasetCreateFailed"
	KindTypeMismatch        Kind = "TypeMismatch"
	KindWriteFailed         Kind = "WriteFailed"
	KindOutOfFileCapacity   Kind = "OutOfFileCapacity"
)

// Error is the typed error returned by every public operation in this
// package. It wraps an underlying cause (often an *os.PathError or an
// HDF5 library error) without discarding it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is allows errors.Is(err, drf.Sentinel(drf.KindOverlap)) style checks:
// it reports true when the target is a *Error with the same Kind. The
// target's Op and wrapped cause are not compared.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinel returns a comparable *Error value for use with errors.Is,
// e.g. errors.Is(err, drf.Sentinel(drf.KindOverlap)).
func Sentinel(k Kind) *Error { return &Error{Kind: k} }
