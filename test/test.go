// This file is part of bwpatch.
//
// bwpatch is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// bwpatch is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with bwpatch.  If not, see <https://www.gnu.org/licenses/>.

// Package test collects the small assertion helpers used throughout the
// engine's test suite. None of it is required for the engine to work; it
// exists so that _test.go files read uniformly instead of every package
// rolling its own comparison helper.
package test

import (
	"fmt"
	"math"
	"testing"
)

// ExpectSuccess fails the test unless v is a "successful" value: true, a nil
// error, or nil itself.
func ExpectSuccess(t *testing.T, v interface{}) {
	t.Helper()
	switch v := v.(type) {
	case bool:
		if !v {
			t.Errorf("expected success, got false")
		}
	case error:
		if v != nil {
			t.Errorf("expected success, got error: %v", v)
		}
	case nil:
		// success
	default:
		t.Errorf("unsupported type for ExpectSuccess: %T", v)
	}
}

// ExpectedSuccess is an alias for ExpectSuccess.
func ExpectedSuccess(t *testing.T, v interface{}) {
	t.Helper()
	ExpectSuccess(t, v)
}

// ExpectFailure fails the test unless v is a "failing" value: false or a
// non-nil error.
func ExpectFailure(t *testing.T, v interface{}) {
	t.Helper()
	switch v := v.(type) {
	case bool:
		if v {
			t.Errorf("expected failure, got true")
		}
	case error:
		if v == nil {
			t.Errorf("expected failure, got nil error")
		}
	default:
		t.Errorf("unsupported type for ExpectFailure: %T", v)
	}
}

// ExpectedFailure is an alias for ExpectFailure.
func ExpectedFailure(t *testing.T, v interface{}) {
	t.Helper()
	ExpectFailure(t, v)
}

// ExpectEquality fails the test unless got equals want, as reported by
// fmt.Sprintf("%v").
func ExpectEquality(t *testing.T, got interface{}, want interface{}) {
	t.Helper()
	if fmt.Sprintf("%v", got) != fmt.Sprintf("%v", want) {
		t.Errorf("got %v, wanted %v", got, want)
	}
}

// Equate is an alias for ExpectEquality with the arguments in the
// (t, got, want) order used by the older call sites in this package.
func Equate(t *testing.T, got interface{}, want interface{}) {
	t.Helper()
	ExpectEquality(t, got, want)
}

// ExpectInequality fails the test if got equals want.
func ExpectInequality(t *testing.T, got interface{}, want interface{}) {
	t.Helper()
	if fmt.Sprintf("%v", got) == fmt.Sprintf("%v", want) {
		t.Errorf("got %v, did not want %v", got, want)
	}
}

// ExpectApproximate fails the test unless got is within delta of want.
func ExpectApproximate(t *testing.T, got float64, want float64, delta float64) {
	t.Helper()
	if math.Abs(got-want) > delta {
		t.Errorf("got %v, wanted approximately %v (+/- %v)", got, want, delta)
	}
}
