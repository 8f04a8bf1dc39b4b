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

// Package ratime performs exact rational conversions between a global
// sample index and calendar/unix time. The sample rate is carried as
// num/den throughout; no step in this package rounds through a float.
package ratime

import (
	"math/big"
	"time"

	"github.com/pkg/errors"
)

// picoPerSec is the number of picoseconds in one second.
var picoPerSec = big.NewInt(1e12)

// Rate is an exact sample rate expressed as a ratio of two positive
// integers: Num samples per Den seconds.
type Rate struct {
	Num uint64
	Den uint64
}

// Validate rejects a rate with a zero numerator or denominator.
func (r Rate) Validate() error {
	if r.Num == 0 || r.Den == 0 {
		return errors.Errorf("sample rate %d/%d has a zero term", r.Num, r.Den)
	}
	return nil
}

// SamplesPerSecond returns an informational float64 hint. It must never
// be used for boundary arithmetic, only for the samples_per_second
// attribute mirrored into file metadata.
func (r Rate) SamplesPerSecond() float64 {
	return float64(r.Num) / float64(r.Den)
}

// Time is the decomposition of g*den/num seconds since the Unix epoch
// into a calendar timestamp plus a sub-second picosecond remainder
// (truncated to a whole picosecond).
type Time struct {
	Year, Month, Day     int
	Hour, Minute, Second int
	UnixSecond           int64
	Picosecond           uint64
}

// IndexToUnix decomposes global sample index g into exact calendar time
// under the given rate. UnixSecond is exact; Picosecond is the exact
// sub-second remainder truncated toward zero to a whole picosecond.
func IndexToUnix(g uint64, r Rate) (Time, error) {
	if err := r.Validate(); err != nil {
		return Time{}, err
	}

	num := new(big.Int).SetUint64(r.Num)
	den := new(big.Int).SetUint64(r.Den)
	gi := new(big.Int).SetUint64(g)

	// numerator = g * den, exact unix-second numerator over `num`.
	numerator := new(big.Int).Mul(gi, den)

	sec := new(big.Int)
	rem := new(big.Int)
	sec.QuoRem(numerator, num, rem)

	// picosecond = (rem * 1e12) / num; rem < num keeps it below 1e12, and
	// the integer division truncates any sub-picosecond remainder.
	pico := new(big.Int).Mul(rem, picoPerSec)
	pico.Quo(pico, num)

	if !sec.IsInt64() {
		return Time{}, errors.Errorf("index %d at rate %d/%d overflows a 64-bit unix second", g, r.Num, r.Den)
	}

	unixSec := sec.Int64()
	t := time.Unix(unixSec, 0).UTC()

	return Time{
		Year:       t.Year(),
		Month:      int(t.Month()),
		Day:        t.Day(),
		Hour:       t.Hour(),
		Minute:     t.Minute(),
		Second:     t.Second(),
		UnixSecond: unixSec,
		Picosecond: pico.Uint64(),
	}, nil
}

// UnixToIndex is the inverse of IndexToUnix: it recovers the global
// sample index nearest to the given (second, picosecond) instant, with
// ties rounding half-away-from-zero.
func UnixToIndex(second int64, picosecond uint64, r Rate) (uint64, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}
	if picosecond >= 1e12 {
		return 0, errors.Errorf("picosecond %d out of range [0, 1e12)", picosecond)
	}

	num := new(big.Int).SetUint64(r.Num)
	den := new(big.Int).SetUint64(r.Den)

	// exact instant, in picoseconds since the epoch:
	//   instant = second * 1e12 + picosecond
	instant := new(big.Int).Mul(big.NewInt(second), picoPerSec)
	instant.Add(instant, new(big.Int).SetUint64(picosecond))

	// g = instant * num / (den * 1e12), rounded half-away-from-zero.
	numerator := new(big.Int).Mul(instant, num)
	denominator := new(big.Int).Mul(den, picoPerSec)

	g, rem := new(big.Int), new(big.Int)
	g.QuoRem(numerator, denominator, rem)

	// round half-away-from-zero: compare 2*|rem| against denominator.
	twiceRem := new(big.Int).Abs(rem)
	twiceRem.Lsh(twiceRem, 1)
	if twiceRem.Cmp(denominator) >= 0 {
		if numerator.Sign() < 0 {
			g.Sub(g, big.NewInt(1))
		} else {
			g.Add(g, big.NewInt(1))
		}
	}

	if g.Sign() < 0 {
		return 0, errors.Errorf("instant (%d s, %d ps) precedes the epoch at rate %d/%d", second, picosecond, r.Num, r.Den)
	}
	if !g.IsUint64() {
		return 0, errors.Errorf("instant (%d s, %d ps) overflows a 64-bit sample index", second, picosecond)
	}
	return g.Uint64(), nil
}

// CadenceSamples converts a wall-clock cadence window, expressed in
// whole milliseconds, into an exact sample count at the given rate. The
// second return value is false when the cadence does not divide evenly;
// callers must then re-derive boundaries per-query rather than cache a
// single integer cadence.
func CadenceSamples(cadenceMillis uint64, r Rate) (samples uint64, exact bool) {
	num := new(big.Int).SetUint64(r.Num)
	den := new(big.Int).SetUint64(r.Den)
	millis := new(big.Int).SetUint64(cadenceMillis)

	numerator := new(big.Int).Mul(millis, num)
	denominator := new(big.Int).Mul(den, big.NewInt(1000))

	q, rem := new(big.Int), new(big.Int)
	q.QuoRem(numerator, denominator, rem)
	if rem.Sign() != 0 || !q.IsUint64() {
		return 0, false
	}
	return q.Uint64(), true
}
