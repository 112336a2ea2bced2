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

package checksum_test

import (
	"testing"

	"github.com/scooterteam/bwpatch/checksum"
	"github.com/scooterteam/bwpatch/test"
	"github.com/stretchr/testify/assert"
)

func TestCCITT_zero(t *testing.T) {
	got, err := checksum.CCITT([]byte{0x00}, 0, 1)
	test.ExpectSuccess(t, err)
	assert.Equal(t, []byte{0x00, 0x00}, got)
}

func TestCCITT_singleByte(t *testing.T) {
	// A single 0x01 byte happens to reduce to the generator polynomial
	// itself under non-reflected CRC-16/CCITT with a zero initial register.
	got, err := checksum.CCITT([]byte{0x01}, 0, 1)
	test.ExpectSuccess(t, err)
	assert.Equal(t, []byte{0x10, 0x21}, got)
}

func TestCCITT_empty(t *testing.T) {
	got, err := checksum.CCITT([]byte{0xAB, 0xCD}, 0, 0)
	test.ExpectSuccess(t, err)
	assert.Equal(t, []byte{0x00, 0x00}, got)
}

func TestCCITT_rangeError(t *testing.T) {
	_, err := checksum.CCITT([]byte{0x01, 0x02}, 1, 5)
	test.ExpectFailure(t, err)
}

func TestLKS32Body_empty(t *testing.T) {
	got, err := checksum.LKS32Body([]byte{}, 0, 0)
	test.ExpectSuccess(t, err)
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, got)
}

func TestLKS32Body_padsToWord(t *testing.T) {
	// Three bytes must be padded with one 0xFF before the CRC-32 runs; this
	// only asserts the function succeeds and returns four little-endian
	// bytes, since the padded CRC-32 value itself is not hand-verifiable.
	got, err := checksum.LKS32Body([]byte{0x01, 0x02, 0x03}, 0, 3)
	test.ExpectSuccess(t, err)
	assert.Len(t, got, 4)
}

func TestLKS32Body_rangeError(t *testing.T) {
	_, err := checksum.LKS32Body([]byte{0x01}, 0, 4)
	test.ExpectFailure(t, err)
}

func TestN32Body_empty(t *testing.T) {
	got, err := checksum.N32Body([]byte{}, 0, 0)
	test.ExpectSuccess(t, err)
	assert.Equal(t, []byte{0xFF, 0xFF}, got)
}

func TestN32Body_rangeError(t *testing.T) {
	_, err := checksum.N32Body([]byte{0x01, 0x02}, 0, 10)
	test.ExpectFailure(t, err)
}

func TestN32Body_deterministic(t *testing.T) {
	data := []byte{0x10, 0x20, 0x30, 0x40}
	a, err := checksum.N32Body(data, 0, len(data))
	test.ExpectSuccess(t, err)
	b, err := checksum.N32Body(data, 0, len(data))
	test.ExpectSuccess(t, err)
	assert.Equal(t, a, b)
}
