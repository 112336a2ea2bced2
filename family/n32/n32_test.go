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

package n32_test

import (
	"testing"

	"github.com/scooterteam/bwpatch/checksum"
	"github.com/scooterteam/bwpatch/family/n32"
	"github.com/scooterteam/bwpatch/test"
	"github.com/stretchr/testify/assert"
)

func buildFirmwareWithValidCRC(size int) []byte {
	fw := make([]byte, size)
	for i := range fw {
		fw[i] = byte(i)
	}
	crc, _ := checksum.N32Body(fw, n32.CRCStartOffset, size-2-n32.CRCStartOffset)
	copy(fw[size-2:], crc)
	return fw
}

func TestXOR_symmetric(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0xAA, 0x00}
	original := append([]byte{}, data...)
	n32.Encrypt(data)
	assert.NotEqual(t, original, data)
	n32.Decrypt(data)
	assert.Equal(t, original, data)
}

func TestVerifyFirmwareCRC_roundTrip(t *testing.T) {
	fw := buildFirmwareWithValidCRC(100)
	valid, embedded, calculated, err := n32.VerifyFirmwareCRC(fw, 100)
	test.ExpectSuccess(t, err)
	assert.True(t, valid)
	assert.Equal(t, embedded, calculated)
}

func TestVerifyFirmwareCRC_sizeTooSmall(t *testing.T) {
	_, _, _, err := n32.VerifyFirmwareCRC([]byte{0x01, 0x02}, 1)
	test.ExpectFailure(t, err)
}

func TestIsEncrypted_detectsValidCRCAsEncrypted(t *testing.T) {
	fw := buildFirmwareWithValidCRC(100)
	assert.True(t, n32.IsEncrypted(fw, 100))
}

func TestIsEncrypted_plaintextFailsCheck(t *testing.T) {
	fw := buildFirmwareWithValidCRC(100)
	n32.Decrypt(fw) // scramble the CRC relationship by flipping every byte
	assert.False(t, n32.IsEncrypted(fw, 100))
}

func TestCalculateFirmwareSize_noLongRunReturnsFullLength(t *testing.T) {
	fw := make([]byte, 64)
	assert.Equal(t, 64, n32.CalculateFirmwareSize(fw))
}

func TestCalculateFirmwareSize_detectsPaddingRun(t *testing.T) {
	fw := make([]byte, 1024)
	for i := 0; i < 200; i++ {
		fw[i] = byte(i)
	}
	for i := 200; i < 1024; i++ {
		fw[i] = 0xAA
	}
	got := n32.CalculateFirmwareSize(fw)
	assert.Equal(t, 0, got%n32.AlignmentBoundary)
	// the run ends at the buffer's end (index 1024), not at its start
	// (index 200); rounded up to the next 128-byte boundary that is 1024.
	assert.Equal(t, 1024, got)
}

func TestCalculateFirmwareSize_roundsUpRunEndNotStart(t *testing.T) {
	// a padding run starting at 90, well before the 128-byte boundary, and
	// ending at 700, just past the 640 boundary: rounding the run's start
	// would land on 128, rounding its end correctly lands on 768.
	fw := make([]byte, 1024)
	for i := range fw {
		fw[i] = 0xFF
	}
	for i := 90; i < 700; i++ {
		fw[i] = 0x00
	}
	got := n32.CalculateFirmwareSize(fw)
	assert.Equal(t, 768, got)
}

func TestFixChecksum_reEncryptsWhenInputWasEncrypted(t *testing.T) {
	plain := buildFirmwareWithValidCRC(100)
	encrypted := append([]byte{}, plain...)
	n32.Encrypt(encrypted)
	// Re-embed a CRC valid for the now-encrypted bytes so construction
	// detects encryption.
	crc, _ := checksum.N32Body(encrypted, n32.CRCStartOffset, 100-2-n32.CRCStartOffset)
	copy(encrypted[98:], crc)

	f := n32.New(encrypted)
	_, err := f.FixChecksum()
	test.ExpectSuccess(t, err)

	out := f.CreateFullImage()
	valid, _, _, err := n32.VerifyFirmwareCRC(out, 100)
	test.ExpectSuccess(t, err)
	assert.True(t, valid)
}

func TestCalcSpeedValue_truncates(t *testing.T) {
	assert.Equal(t, 99, n32.CalcSpeedValue(9.95, 10))
}

func TestCalcSpeed_singleByte(t *testing.T) {
	got := n32.CalcSpeed(9.95, 10)
	assert.Len(t, got, 1)
	assert.Equal(t, byte(99), got[0])
}

func TestNew_noEnvelopeWhenShort(t *testing.T) {
	fw := buildFirmwareWithValidCRC(100)
	f := n32.New(fw)
	assert.Equal(t, fw, f.CreateFullImage())
}
