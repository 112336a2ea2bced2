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

// Package n32 specializes the base patcher for the N32 chip family, whose
// firmware ships XOR-encrypted inside an outer envelope. Unlike LKS32 and
// ES32, a Family here is built from a detect-and-decrypt step at
// construction time and re-encrypts symmetrically during FixChecksum.
package n32

import (
	"encoding/binary"
	"math"

	"github.com/scooterteam/bwpatch/checksum"
	"github.com/scooterteam/bwpatch/core"
	"github.com/scooterteam/bwpatch/errors"
)

const (
	// EncryptionKey is the single-byte XOR key the firmware body is
	// obfuscated with.
	EncryptionKey = 0xAA

	// FirmwareOffset is the size of the outer envelope header, present
	// only when the input includes the full image rather than just the
	// firmware body.
	FirmwareOffset = 0x80

	// FirmwareWindow is the size of the firmware slot within the outer
	// envelope.
	FirmwareWindow = 0x9880

	// CRCStartOffset is where the body CRC-16-REVERSED computation begins.
	CRCStartOffset = 0x40

	// MinPaddingLength is the minimum run length of a constant padding
	// byte that counts as trailing padding rather than data.
	MinPaddingLength = 500

	// AlignmentBoundary is the block size the recovered firmware size is
	// rounded up to.
	AlignmentBoundary = 128
)

// Family is the N32 specialization of core.Patcher. Its buffer is always
// the bare firmware body, decrypted; header/footer (if the input carried
// the full envelope) are kept aside and spliced back in by CreateFullImage.
type Family struct {
	*core.Patcher
	header       []byte
	footer       []byte
	firmwareSize int
	wasEncrypted bool
}

// New extracts the firmware body from data (stripping the envelope if
// present), detects whether it is currently XOR-encrypted, and decrypts it
// so every capability method operates on plaintext.
func New(data []byte) *Family {
	var header, firmware, footer []byte
	if len(data) >= FirmwareOffset+FirmwareWindow {
		header = data[:FirmwareOffset]
		firmware = data[FirmwareOffset : FirmwareOffset+FirmwareWindow]
		footer = data[FirmwareOffset+FirmwareWindow:]
	} else {
		firmware = data
	}

	fwSize := CalculateFirmwareSize(firmware)
	encrypted := IsEncrypted(firmware, fwSize)
	if encrypted {
		Decrypt(firmware[:fwSize])
	}

	return &Family{
		Patcher:      core.NewPatcher(firmware),
		header:       header,
		footer:       footer,
		firmwareSize: fwSize,
		wasEncrypted: encrypted,
	}
}

// XOR applies the symmetric XOR-0xAA transform in place.
func XOR(data []byte) {
	for i := range data {
		data[i] ^= EncryptionKey
	}
}

// Encrypt is XOR, named for call-site clarity.
func Encrypt(data []byte) { XOR(data) }

// Decrypt is XOR, named for call-site clarity; Encrypt and Decrypt are the
// same operation since the cipher is a symmetric single-byte XOR.
func Decrypt(data []byte) { XOR(data) }

// CalculateFirmwareSize scans for the longest run of a constant byte in
// {0xAA, 0x00} exceeding MinPaddingLength bytes and returns the index just
// past that run's last byte, rounded up to the next AlignmentBoundary — the
// recovered size of the real firmware before its trailing pad. If no such
// run exists, the full slice length is returned.
func CalculateFirmwareSize(firmware []byte) int {
	n := len(firmware)
	bestEnd, bestLen := -1, 0
	for i := 0; i < n; {
		b := firmware[i]
		if b == 0xAA || b == 0x00 {
			j := i
			for j < n && firmware[j] == b {
				j++
			}
			if run := j - i; run > MinPaddingLength && run > bestLen {
				bestLen = run
				bestEnd = j
			}
			i = j
		} else {
			i++
		}
	}
	if bestEnd <= 0 {
		return n
	}
	if rem := bestEnd % AlignmentBoundary; rem != 0 {
		bestEnd += AlignmentBoundary - rem
	}
	return bestEnd
}

// VerifyFirmwareCRC recomputes the CRC-16-REVERSED body checksum over
// [CRCStartOffset, fwSize-2) and compares it against the 16-bit big-endian
// value stored at [fwSize-2, fwSize).
func VerifyFirmwareCRC(firmware []byte, fwSize int) (valid bool, embedded uint16, calculated uint16, err error) {
	if fwSize < CRCStartOffset+2 || fwSize > len(firmware) {
		return false, 0, 0, errors.Errorf(errors.RangeError, "firmware size %d out of range", fwSize)
	}
	crcBytes, err := checksum.N32Body(firmware, CRCStartOffset, fwSize-2-CRCStartOffset)
	if err != nil {
		return false, 0, 0, err
	}
	calculated = binary.BigEndian.Uint16(crcBytes)
	embedded = binary.BigEndian.Uint16(firmware[fwSize-2 : fwSize])
	return embedded == calculated, embedded, calculated, nil
}

// IsEncrypted reports whether firmware, in its current byte representation,
// validates against its own embedded CRC — the signal that it's still in
// its as-shipped encrypted form. Any error (a size too small to hold a CRC
// field) is treated as "not encrypted" rather than propagated.
func IsEncrypted(firmware []byte, fwSize int) bool {
	valid, _, _, err := VerifyFirmwareCRC(firmware, fwSize)
	if err != nil {
		return false
	}
	return valid
}

// FixChecksum re-encrypts the firmware (if it was encrypted on input),
// recomputes the CRC-16-REVERSED body checksum and writes it at the last
// two bytes of the recovered firmware window. Satisfies core.ChecksumFixer.
func (f *Family) FixChecksum() (core.Records, error) {
	if f.wasEncrypted {
		Encrypt(f.Data[:f.firmwareSize])
	}
	if f.firmwareSize < CRCStartOffset+2 {
		return nil, errors.Errorf(errors.RangeError, "firmware size %d too small for a checksum field", f.firmwareSize)
	}
	crc, err := checksum.N32Body(f.Data, CRCStartOffset, f.firmwareSize-2-CRCStartOffset)
	if err != nil {
		return nil, err
	}
	rec := core.Write(f.Data, "n32_body_checksum", f.firmwareSize-2, crc)
	return core.Records{rec}, nil
}

// CreateFullImage splices the firmware body back between the header and
// footer it was extracted from, if the original input carried the full
// envelope; otherwise it returns the firmware bytes unchanged.
func (f *Family) CreateFullImage() []byte {
	if f.header == nil && f.footer == nil {
		return f.Data
	}
	out := make([]byte, 0, len(f.header)+len(f.Data)+len(f.footer))
	out = append(out, f.header...)
	out = append(out, f.Data...)
	out = append(out, f.footer...)
	return out
}

// CalcSpeedValue returns floor(factor*kmh), the raw integer this family's
// patches embed directly as a single-byte immediate.
func CalcSpeedValue(kmh float64, factor float64) int {
	return int(math.Floor(factor * kmh))
}

// CalcSpeed returns the single byte holding floor(factor*kmh).
func CalcSpeed(kmh float64, factor float64) []byte {
	return []byte{byte(CalcSpeedValue(kmh, factor))}
}
