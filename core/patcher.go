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

// Package core owns the firmware buffer and the assembler handle shared by
// every chip-family and model patcher, and implements the one patch the
// LKS32 and ES32 families share verbatim: the header checksum. Everything family- or
// model-specific is layered on top via the capability interfaces in
// model.go.
package core

import (
	"encoding/binary"
	"regexp"
	"strings"

	"github.com/scooterteam/bwpatch/asm"
	"github.com/scooterteam/bwpatch/checksum"
	"github.com/scooterteam/bwpatch/errors"
	"github.com/scooterteam/bwpatch/pattern"
)

// Patcher owns the mutable firmware buffer and the assembler façade every
// family and model patcher builds on. It carries no chip-specific state;
// family patchers embed it.
type Patcher struct {
	Data []byte
	Asm  *asm.Assembler
}

// NewPatcher wraps data for patching in place. data is mutated directly by
// every capability method reached through the returned Patcher.
func NewPatcher(data []byte) *Patcher {
	return &Patcher{Data: data, Asm: asm.New()}
}

// Bytes returns the buffer being patched, satisfying Model.
func (p *Patcher) Bytes() []byte {
	return p.Data
}

// NopOut overwrites length bytes at offset with NOP instructions. Several
// family and model patchers use this to remove a now-redundant guard after
// redirecting the code path around it. length must be even.
func (p *Patcher) NopOut(name string, offset, length int) (Record, error) {
	if length <= 0 || length%2 != 0 {
		return Record{}, errors.Errorf(errors.AssemblyError, "nop region length %d is not a multiple of 2", length)
	}
	snippet := strings.TrimSuffix(strings.Repeat("nop;", length/2), ";")
	enc, err := p.Asm.Assemble(snippet, uint32(offset))
	if err != nil {
		return Record{}, err
	}
	return Write(p.Data, name, offset, enc), nil
}

const headerFinalizedGuard = 0x2E

// FixHeaderChecksum recomputes and writes the short CRC-16/CCITT header
// checksum near the start of the image, shared verbatim by the LKS32 and
// ES32 families; the N32 family's FixChecksum does not call it. startOffset
// is the family-specific base: LKS32 and ES32 each locate their own marker
// and pass in the offset derived from it.
//
// If the image is already finalized for this header (the two bytes just
// before startOffset aren't the 0xFF 0xFF placeholder), this is a no-op:
// both return values are nil.
func FixHeaderChecksum(data []byte, startOffset int) (*Record, error) {
	if startOffset < 2 || startOffset+2 > len(data) {
		return nil, errors.Errorf(errors.RangeError, "start offset %d out of range", startOffset)
	}
	if data[startOffset-2] != 0xFF || data[startOffset-1] != 0xFF {
		return nil, nil
	}

	var size int
	checksumOffset := 0xA
	if len(data) > 0 && data[0] == 'T' {
		size = len(data) - startOffset
		checksumOffset = 0x13
	} else {
		if len(data) < 4 {
			return nil, errors.Errorf(errors.RangeError, "image too small to hold a size header")
		}
		size = int(binary.BigEndian.Uint32(data[0:4]))
	}

	for checksumOffset+0x10 <= headerFinalizedGuard {
		at := startOffset + checksumOffset
		if at+2 > len(data) || data[at] != 0 || data[at+1] != 0 {
			break
		}
		checksumOffset += 0x10
	}

	crc, err := checksum.CCITT(data, startOffset, size)
	if err != nil {
		return nil, err
	}
	rec := Write(data, "header_checksum", startOffset+checksumOffset, crc)
	return &rec, nil
}

var fourDigits = regexp.MustCompile(`^[0-9]{4}$`)

var drvVersionSig = pattern.Sig(
	0x6F, 0x6B, 0x0D, pattern.Wildcard, pattern.Wildcard, pattern.Wildcard, pattern.Wildcard,
	0x0D, 0x65, 0x72, 0x72, 0x6F, 0x72,
)

// FakeDrvVersion overwrites the displayed firmware version with version, a
// string that must be exactly four ASCII digits. It locates the signature
// for the driver's "ok\r????\rerror" response and patches the four bytes
// standing in for "????".
func FakeDrvVersion(data []byte, version string) (Records, error) {
	if !fourDigits.MatchString(version) {
		return nil, errors.Errorf(errors.InvalidParameter, "firmware version %q is not four ASCII digits", version)
	}
	ofs, err := pattern.Find(data, drvVersionSig, nil, 0, 0)
	if err != nil {
		return nil, err
	}
	rec := Write(data, "fdv", ofs+3, []byte(version))
	return Records{rec}, nil
}
