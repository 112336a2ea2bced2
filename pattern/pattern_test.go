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

package pattern_test

import (
	"testing"

	"github.com/scooterteam/bwpatch/pattern"
	"github.com/scooterteam/bwpatch/test"
	"github.com/stretchr/testify/assert"
)

func TestFind_exact(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	i, err := pattern.Find(data, pattern.Sig(0x03, 0x04), nil, 0, 0)
	test.ExpectSuccess(t, err)
	assert.Equal(t, 2, i)
}

func TestFind_wildcard(t *testing.T) {
	data := []byte{0xCA, 0x09, 0x1A, 0x70}
	i, err := pattern.Find(data, pattern.Sig(0xCA, pattern.Wildcard, 0x1A), nil, 0, 0)
	test.ExpectSuccess(t, err)
	assert.Equal(t, 0, i)
}

func TestFind_mask(t *testing.T) {
	data := []byte{0xF3, 0x12, 0x00}
	sig := pattern.Sig(0xF0, 0x12)
	mask := []byte{0xF0, 0xFF}
	i, err := pattern.Find(data, sig, mask, 0, 0)
	test.ExpectSuccess(t, err)
	assert.Equal(t, 0, i)
}

func TestFind_matchAtStopBoundaryNotFound(t *testing.T) {
	// the only match sits at len(data)-len(sig), the excluded upper end
	// of the search interval - this must not be found.
	data := []byte{0x00, 0x00, 0xCA, 0xFE}
	_, err := pattern.Find(data, pattern.Sig(0xCA, 0xFE), nil, 0, 0)
	test.ExpectFailure(t, err)
}

func TestFind_notFound(t *testing.T) {
	data := []byte{0x01, 0x02}
	_, err := pattern.Find(data, pattern.Sig(0x09), nil, 0, 0)
	test.ExpectFailure(t, err)
}

func TestFind_smallestIndex(t *testing.T) {
	data := []byte{0x01, 0x01, 0x01}
	i, err := pattern.Find(data, pattern.Sig(0x01), nil, 0, 0)
	test.ExpectSuccess(t, err)
	assert.Equal(t, 0, i)
}

func TestFind_startAtMatch(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03}
	i, err := pattern.Find(data, pattern.Sig(0x02), nil, 1, 0)
	test.ExpectSuccess(t, err)
	assert.Equal(t, 1, i)
}

func TestFind_startPastMatch(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03}
	_, err := pattern.Find(data, pattern.Sig(0x02), nil, 2, 0)
	test.ExpectFailure(t, err)
}

func TestFind_maxIterations(t *testing.T) {
	data := []byte{0x00, 0x00, 0x00, 0x01}
	_, err := pattern.Find(data, pattern.Sig(0x01), nil, 0, 2)
	test.ExpectFailure(t, err)
}

func TestExtractLDROffset(t *testing.T) {
	ofs, ok := pattern.ExtractLDROffset("ldr\tr1, [pc, #0x1dc]")
	assert.True(t, ok)
	assert.Equal(t, 0x1dc, ofs)

	_, ok = pattern.ExtractLDROffset("movs\tr1, #0x1")
	assert.False(t, ok)
}

func TestOffsetToNearestWord(t *testing.T) {
	assert.Equal(t, 0x10, pattern.OffsetToNearestWord(0x10))
	assert.Equal(t, 0x14, pattern.OffsetToNearestWord(0x12))
	assert.Equal(t, 0x14, pattern.OffsetToNearestWord(0x13))
}

func TestRegisterFromDisassembly(t *testing.T) {
	assert.Equal(t, "r4", pattern.RegisterFromDisassembly("movs\tr4, #0x0", "r1"))
	assert.Equal(t, "r1", pattern.RegisterFromDisassembly("nop", "r1"))
}
