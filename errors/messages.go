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

package errors

// error message patterns, grouped by the four curated error kinds named in
// the engine's error handling design, plus the UnsupportedCapability kind
// used for patch names a model patcher doesn't implement.
const (
	// PatternNotFound is returned by the pattern matcher when a signature
	// search is exhausted without a match.
	PatternNotFound = "pattern not found: %v"

	// InvalidParameter covers out-of-range speeds, malformed firmware
	// version strings, unknown register discriminators and unknown models.
	InvalidParameter = "invalid parameter: %v"

	// RangeError is returned by the checksum kernels when the requested
	// range falls outside of the buffer.
	RangeError = "range error: %v"

	// AssemblyError is returned when the assembler façade is given a
	// snippet it cannot encode.
	AssemblyError = "assembly error: %v"

	// UnsupportedCapability is returned when a patch token names a
	// capability the model patcher does not implement.
	UnsupportedCapability = "unsupported capability: %v"

	// PatchError wraps a failure that occurred while dispatching a single
	// patch token from the orchestrator.
	PatchError = "patch error: %v"
)
