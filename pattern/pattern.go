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

// Package pattern implements the wildcard/mask byte-signature search used to
// locate patch anchors in a firmware image, plus a few small text-parsing
// helpers that read values back out of a disassembled instruction.
package pattern

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/scooterteam/bwpatch/errors"
)

// Wildcard, used in a Signature, matches any byte value.
const Wildcard = -1

// Signature is a byte pattern to search for. An element equal to Wildcard
// matches any byte at that position.
type Signature []int

// Sig is a convenience constructor for a Signature literal.
func Sig(b ...int) Signature {
	return Signature(b)
}

// Find returns the smallest index i in [start, stop) such that, for every
// position j in sig, sig[j] is Wildcard or (data[i+j] & mask[j]) == sig[j].
// stop is len(data)-len(sig), or start+maxIterations if that is smaller;
// maxIterations <= 0 means unbounded. The interval is half-open: stop itself
// is never checked, matching the search this replaces.
func Find(data []byte, sig Signature, mask []byte, start int, maxIterations int) (int, error) {
	if start < 0 {
		start = 0
	}
	if mask != nil && len(mask) != len(sig) {
		return 0, errors.Errorf(errors.InvalidParameter, "mask length does not match signature length")
	}

	stop := len(data) - len(sig)
	if maxIterations > 0 && start+maxIterations < stop {
		stop = start + maxIterations
	}

	for i := start; i < stop; i++ {
		if matchAt(data, sig, mask, i) {
			return i, nil
		}
	}

	return 0, errors.Errorf(errors.PatternNotFound, sig)
}

func matchAt(data []byte, sig Signature, mask []byte, i int) bool {
	for j, s := range sig {
		if s == Wildcard {
			continue
		}
		b := data[i+j]
		if mask != nil {
			b &= mask[j]
		}
		if int(b) != s {
			return false
		}
	}
	return true
}

var ldrPCOffset = regexp.MustCompile(`\[pc,\s*#(0x[0-9a-fA-F]+|[0-9]+)\]`)

// ExtractLDROffset pulls the immediate offset out of a disassembled PC-relative
// load, e.g. "ldr r1, [pc, #0x1dc]" yields 0x1dc. The second result is false
// if insn does not contain a "[pc, #...]" operand.
func ExtractLDROffset(insn string) (int, bool) {
	m := ldrPCOffset.FindStringSubmatch(insn)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseInt(strings.TrimPrefix(m[1], "0x"), 16, 64)
	if err != nil {
		if v2, err2 := strconv.ParseInt(m[1], 0, 64); err2 == nil {
			return int(v2), true
		}
		return 0, false
	}
	return int(v), true
}

// OffsetToNearestWord rounds ofs up to the next multiple of 4 (an already
// word-aligned ofs is returned unchanged), mirroring the literal-pool
// alignment the ES32 models perform by hand after reading an LDR immediate
// back out of disassembled text.
func OffsetToNearestWord(ofs int) int {
	if rem := ofs % 4; rem != 0 {
		ofs += 4 - rem
	}
	return ofs
}

var registerToken = regexp.MustCompile(`(?i)\br(1[0-5]|[0-9])\b`)

// RegisterFromDisassembly returns the first register operand mentioned in a
// disassembled instruction, lower-cased (e.g. "r4"). If insn mentions no
// register, def is returned instead.
func RegisterFromDisassembly(insn string, def string) string {
	m := registerToken.FindString(insn)
	if m == "" {
		return def
	}
	return strings.ToLower(m)
}
