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

// Package errors is a helper package for the plain Go language error type. We
// think of these errors as curated errors. External to this package, curated
// errors are referenced as plain errors (ie. they implement the error
// interface).
//
// The engine recognises four curated error kinds, enumerated as the message
// patterns in messages.go: PatternNotFound, InvalidParameter, RangeError and
// AssemblyError, plus UnsupportedCapability for patch names a model patcher
// does not implement. Drivers (CLI, web) distinguish these kinds with Is() or
// Has() rather than inspecting string text.
//
// The Error() function implementation for curated errors ensures that the
// causal chain is normalised: it does not contain duplicate adjacent parts.
// This alleviates the problem of when and how to wrap an error returned by a
// lower layer that has already been curated.
package errors
